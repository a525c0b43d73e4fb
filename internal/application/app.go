package application

import "watchbar/internal/domain"

// Provider-group 名称：共用一条流式连接的目录集合
const (
	GroupCoinbase    = "coinbase"
	GroupHyper       = "hyper" // 永续 + 现货共用一个 socket、一次订阅
	GroupHyperEVM    = "hyperevm"
	GroupTradingView = "tradingview"
)

// AllGroups 固定顺序，便于日志与渲染
func AllGroups() []string {
	return []string{GroupCoinbase, GroupHyper, GroupHyperEVM, GroupTradingView}
}

// GroupOf 目录 -> 连接组 的映射
func GroupOf(p domain.Provider) string {
	switch p {
	case domain.ProviderCoinbase:
		return GroupCoinbase
	case domain.ProviderHyperliquidPerp, domain.ProviderHyperliquidSpot:
		return GroupHyper
	case domain.ProviderHyperEVM:
		return GroupHyperEVM
	case domain.ProviderTradingView:
		return GroupTradingView
	}
	return ""
}

// ProvidersOf 连接组 -> 目录列表；双目录组只有 hyper
func ProvidersOf(group string) []domain.Provider {
	switch group {
	case GroupCoinbase:
		return []domain.Provider{domain.ProviderCoinbase}
	case GroupHyper:
		return []domain.Provider{domain.ProviderHyperliquidPerp, domain.ProviderHyperliquidSpot}
	case GroupHyperEVM:
		return []domain.Provider{domain.ProviderHyperEVM}
	case GroupTradingView:
		return []domain.Provider{domain.ProviderTradingView}
	}
	return nil
}
