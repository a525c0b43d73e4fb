package tradingview

import (
	"watchbar/internal/application"
	"watchbar/internal/application/port"
	"watchbar/internal/infrastructure/pricefeed"
)

func init() {
	pricefeed.Register(application.GroupTradingView, func(opt pricefeed.Options) port.StreamSource {
		return NewStream(opt.WsURL)
	})
}
