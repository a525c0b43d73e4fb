package exchange

import "strings"

// DisplayMeta 展示用元数据（名称 + 图标字符）
type DisplayMeta struct {
	Name  string
	Glyph string
}

// 静态展示表，按基础币种/代码索引
// 未收录的符号走 MetaFor 的兜底：原生符号当名字，通用图标
var displayTable = map[string]DisplayMeta{
	"BTC":  {Name: "Bitcoin", Glyph: "₿"},
	"ETH":  {Name: "Ethereum", Glyph: "Ξ"},
	"SOL":  {Name: "Solana", Glyph: "◎"},
	"DOGE": {Name: "Dogecoin", Glyph: "Ð"},
	"XRP":  {Name: "XRP", Glyph: "✕"},
	"ADA":  {Name: "Cardano", Glyph: "₳"},
	"LTC":  {Name: "Litecoin", Glyph: "Ł"},
	"LINK": {Name: "Chainlink", Glyph: "⬡"},
	"AVAX": {Name: "Avalanche", Glyph: "▲"},
	"HYPE": {Name: "Hyperliquid", Glyph: "✺"},
	"PURR": {Name: "Purr", Glyph: "✺"},
	"AAPL": {Name: "Apple", Glyph: ""},
	"MSFT": {Name: "Microsoft", Glyph: "⊞"},
	"NVDA": {Name: "NVIDIA", Glyph: "◆"},
	"TSLA": {Name: "Tesla", Glyph: "⚡"},
	"AMZN": {Name: "Amazon", Glyph: "a"},
	"GOOG": {Name: "Alphabet", Glyph: "G"},
	"META": {Name: "Meta", Glyph: "∞"},
	"SPY":  {Name: "S&P 500 ETF", Glyph: "§"},
	"QQQ":  {Name: "Nasdaq 100 ETF", Glyph: "§"},
}

const genericGlyph = "◌"

// MetaFor 查表；未知符号返回通用图标 + 原生符号本身
func MetaFor(base string) DisplayMeta {
	key := strings.ToUpper(strings.TrimSpace(base))
	if m, ok := displayTable[key]; ok {
		return m
	}
	return DisplayMeta{Name: base, Glyph: genericGlyph}
}
