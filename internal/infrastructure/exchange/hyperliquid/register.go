package hyperliquid

import (
	"watchbar/internal/application"
	"watchbar/internal/application/port"
	"watchbar/internal/infrastructure/pricefeed"
)

func init() {
	pricefeed.Register(application.GroupHyper, func(opt pricefeed.Options) port.StreamSource {
		return NewStream(opt.WsURL)
	})
}
