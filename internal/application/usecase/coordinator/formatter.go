package coordinator

import (
	"fmt"
	"strings"

	"watchbar/internal/domain"
)

const (
	ansiReset    = "\033[0m"
	ansiRed      = "\033[31m"
	ansiGreen    = "\033[32m"
	ansiYellow   = "\033[33m"
	ansiDim      = "\033[2m"
	ansiClearEOL = "\033[K"
)

func colorize(s, c string) string { return c + s + ansiReset }

// Entry 一个选中标的的渲染输入
type Entry struct {
	ID     string
	Symbol string
	Glyph  string
	Quote  domain.Quote
	Live   bool // 所属组是否在 Streaming
}

type Formatter struct{}

func NewFormatter() *Formatter { return &Formatter{} }

// Render 单行状态：glyph+符号 最新价 涨跌幅，断流的组整条置灰
func (f *Formatter) Render(entries []Entry) string {
	var sb strings.Builder
	sb.WriteString("\r")
	sb.WriteString(colorize("[WATCH] ", ansiDim))

	for i, e := range entries {
		if i > 0 {
			sb.WriteString(colorize("  ||  ", ansiDim))
		}

		label := e.Symbol
		if e.Glyph != "" {
			label = e.Glyph + " " + label
		}

		px := "--"
		if e.Quote.Price > 0 {
			px = trimFloat(e.Quote.Price)
		}

		chg := "--"
		col := ansiYellow
		if e.Quote.Price > 0 && e.Quote.BaselinePrice > 0 {
			chg = fmt.Sprintf("%+.2f%%", e.Quote.ChangePercent)
			switch {
			case e.Quote.ChangePercent > 0:
				col = ansiGreen
			case e.Quote.ChangePercent < 0:
				col = ansiRed
			}
		}

		if !e.Live {
			sb.WriteString(colorize(label+" "+px+" "+chg, ansiDim))
			continue
		}
		sb.WriteString(label)
		sb.WriteString(" ")
		sb.WriteString(px)
		sb.WriteString(" ")
		sb.WriteString(colorize(chg, col))
	}

	sb.WriteString(ansiClearEOL)
	return sb.String()
}

// trimFloat 小数位随价格量级收缩，尾零去掉
func trimFloat(v float64) string {
	var s string
	switch {
	case v >= 1000:
		s = fmt.Sprintf("%.2f", v)
	case v >= 1:
		s = fmt.Sprintf("%.4f", v)
	default:
		s = fmt.Sprintf("%.6f", v)
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
