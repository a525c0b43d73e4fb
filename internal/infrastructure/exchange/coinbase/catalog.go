package coinbase

import (
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

// Catalog 现货目录：GET {rest}/products
// Coinbase 的目录载荷不带参考价，基准价由 ticker 帧的 open_24h 补齐
type Catalog struct {
	restURL string
	client  *http.Client
}

func NewCatalog(restURL string) *Catalog {
	return &Catalog{
		restURL: strings.TrimRight(strings.TrimSpace(restURL), "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Catalog) Provider() domain.Provider { return domain.ProviderCoinbase }

type product struct {
	ID            string `json:"id"` // "BTC-USD"
	BaseCurrency  string `json:"base_currency"`
	QuoteCurrency string `json:"quote_currency"`
	Status        string `json:"status"`
	TradingDisabl bool   `json:"trading_disabled"`
}

func (c *Catalog) Load(ctx context.Context) ([]domain.Instrument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.restURL+"/products", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("coinbase products: http %d: %s", resp.StatusCode, string(body))
	}

	var products []product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, fmt.Errorf("coinbase products decode: %w", err)
	}

	out := make([]domain.Instrument, 0, len(products))
	for _, p := range products {
		if p.ID == "" || p.Status != "online" || p.TradingDisabl {
			continue
		}
		meta := exchange.MetaFor(p.BaseCurrency)
		out = append(out, domain.Instrument{
			ID:            domain.InstrumentID(domain.ProviderCoinbase, p.ID),
			NativeSymbol:  p.ID,
			DisplaySymbol: p.BaseCurrency + "/" + p.QuoteCurrency,
			DisplayName:   meta.Name,
			Glyph:         meta.Glyph,
			Provider:      domain.ProviderCoinbase,
		})
	}
	return out, nil
}
