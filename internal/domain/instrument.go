package domain

import "strings"

// Provider 行情来源（五个目录，四条连接）
type Provider int

const (
	ProviderCoinbase        Provider = iota // 现货交易所
	ProviderHyperliquidPerp                 // 永续合约
	ProviderHyperliquidSpot                 // 永续平台上的现货（与永续共用一条连接）
	ProviderHyperEVM                        // builder-dex 资产
	ProviderTradingView                     // 股票 scanner
)

var providerPrefixes = map[Provider]string{
	ProviderCoinbase:        "CB",
	ProviderHyperliquidPerp: "HLP",
	ProviderHyperliquidSpot: "HLS",
	ProviderHyperEVM:        "HX",
	ProviderTradingView:     "TV",
}

var providerNames = map[Provider]string{
	ProviderCoinbase:        "coinbase",
	ProviderHyperliquidPerp: "hyperliquid-perp",
	ProviderHyperliquidSpot: "hyperliquid-spot",
	ProviderHyperEVM:        "hyperevm",
	ProviderTradingView:     "tradingview",
}

func (p Provider) Prefix() string { return providerPrefixes[p] }
func (p Provider) String() string { return providerNames[p] }

// AllProviders 固定枚举顺序，readiness gate 用它派生 "全部加载完成"
func AllProviders() []Provider {
	return []Provider{
		ProviderCoinbase,
		ProviderHyperliquidPerp,
		ProviderHyperliquidSpot,
		ProviderHyperEVM,
		ProviderTradingView,
	}
}

// InstrumentID 拼接全局唯一 id, e.g. "CB:BTC-USD", "HLS:@1"
func InstrumentID(p Provider, native string) string {
	return p.Prefix() + ":" + native
}

// ProviderOfID 从 id 前缀反查来源；id 非法时返回 false
// 注意 native 部分本身可能含冒号（如 "TV:NASDAQ:AAPL"），只切第一个
func ProviderOfID(id string) (Provider, bool) {
	prefix, _, ok := strings.Cut(id, ":")
	if !ok {
		return 0, false
	}
	for p, px := range providerPrefixes {
		if px == prefix {
			return p, true
		}
	}
	return 0, false
}

// Instrument 单个可交易标的：不可变身份 + 展示元数据
// BaselinePrice / MarkPrice 来自目录载荷，用于流启动前的涨跌幅展示
type Instrument struct {
	ID            string
	NativeSymbol  string // provider 自己的 API/流使用的符号
	DisplaySymbol string
	DisplayName   string
	Glyph         string
	Provider      Provider

	BaselinePrice float64 // 前一周期开/收盘价，0 表示目录未提供
	MarkPrice     float64 // 目录里的当前标记价，0 表示目录未提供
}

// Catalog 某个 provider 的全部标的集合
// 每次成功拉取整体替换，不做增量合并；旧条目直接丢弃
type Catalog struct {
	provider Provider
	byID     map[string]Instrument
	order    []string
}

func NewCatalog(p Provider) *Catalog {
	return &Catalog{provider: p, byID: make(map[string]Instrument)}
}

func (c *Catalog) Provider() Provider { return c.provider }

// Replace 原子替换整个集合
func (c *Catalog) Replace(items []Instrument) {
	byID := make(map[string]Instrument, len(items))
	order := make([]string, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		if _, dup := byID[it.ID]; dup {
			continue
		}
		byID[it.ID] = it
		order = append(order, it.ID)
	}
	c.byID = byID
	c.order = order
}

func (c *Catalog) Get(id string) (Instrument, bool) {
	it, ok := c.byID[id]
	return it, ok
}

func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

func (c *Catalog) Len() int { return len(c.byID) }

// IDs 返回目录顺序的 id 列表（副本）
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
