package tradingview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"watchbar/internal/domain"
	"watchbar/internal/infrastructure/exchange"
)

// Catalog 股票目录：scanner 的一次 ranked-query
// POST {rest}/{market}/scan，按市值排序取前 limit 条
// close/open 两列直接给出当前价与基准价，流未开时涨跌幅即可用
type Catalog struct {
	restURL string
	market  string
	limit   int
	client  *http.Client
}

func NewCatalog(restURL, market string, limit int) *Catalog {
	return &Catalog{
		restURL: strings.TrimRight(strings.TrimSpace(restURL), "/"),
		market:  strings.TrimSpace(market),
		limit:   limit,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Catalog) Provider() domain.Provider { return domain.ProviderTradingView }

type scanRequest struct {
	Columns []string `json:"columns"`
	Sort    struct {
		SortBy    string `json:"sortBy"`
		SortOrder string `json:"sortOrder"`
	} `json:"sort"`
	Range [2]int `json:"range"`
}

type scanResponse struct {
	Data []struct {
		S string            `json:"s"` // "NASDAQ:AAPL"
		D []json.RawMessage `json:"d"` // 与 columns 对齐
	} `json:"data"`
}

func (c *Catalog) Load(ctx context.Context) ([]domain.Instrument, error) {
	var reqBody scanRequest
	reqBody.Columns = []string{"name", "description", "close", "open"}
	reqBody.Sort.SortBy = "market_cap_basic"
	reqBody.Sort.SortOrder = "desc"
	reqBody.Range = [2]int{0, c.limit}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.restURL+"/"+c.market+"/scan", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tradingview scan: http %d: %s", resp.StatusCode, string(msg))
	}

	var scan scanResponse
	if err := json.NewDecoder(resp.Body).Decode(&scan); err != nil {
		return nil, fmt.Errorf("tradingview scan decode: %w", err)
	}

	out := make([]domain.Instrument, 0, len(scan.Data))
	for _, row := range scan.Data {
		if row.S == "" {
			continue
		}
		it := domain.Instrument{
			ID:           domain.InstrumentID(domain.ProviderTradingView, row.S),
			NativeSymbol: row.S,
			Provider:     domain.ProviderTradingView,
		}
		var name, description string
		var closePx, openPx float64
		if len(row.D) > 0 {
			_ = json.Unmarshal(row.D[0], &name)
		}
		if len(row.D) > 1 {
			_ = json.Unmarshal(row.D[1], &description)
		}
		if len(row.D) > 2 {
			_ = json.Unmarshal(row.D[2], &closePx)
		}
		if len(row.D) > 3 {
			_ = json.Unmarshal(row.D[3], &openPx)
		}

		if name == "" {
			name = row.S
		}
		it.DisplaySymbol = name
		m := exchange.MetaFor(name)
		if m.Name != name {
			it.DisplayName, it.Glyph = m.Name, m.Glyph
		} else if description != "" {
			it.DisplayName, it.Glyph = description, m.Glyph
		} else {
			it.DisplayName, it.Glyph = m.Name, m.Glyph
		}
		it.BaselinePrice = openPx
		it.MarkPrice = closePx
		out = append(out, it)
	}
	return out, nil
}
