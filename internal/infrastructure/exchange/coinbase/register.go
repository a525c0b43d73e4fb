package coinbase

import (
	"watchbar/internal/application"
	"watchbar/internal/application/port"
	"watchbar/internal/infrastructure/pricefeed"
)

func init() {
	pricefeed.Register(application.GroupCoinbase, func(opt pricefeed.Options) port.StreamSource {
		return NewStream(opt.WsURL)
	})
}
