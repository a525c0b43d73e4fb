package hyperevm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"watchbar/internal/domain"
	"watchbar/internal/infrastructure/exchange"
)

// Catalog builder-dex 资产目录
// 与 hyperliquid 永续同构：metaAndAssetCtxs + dex 命名空间，按下标 join
type Catalog struct {
	restURL string
	dex     string
	client  *http.Client
}

func NewCatalog(restURL, dex string) *Catalog {
	return &Catalog{
		restURL: strings.TrimRight(strings.TrimSpace(restURL), "/"),
		dex:     strings.TrimSpace(dex),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Catalog) Provider() domain.Provider { return domain.ProviderHyperEVM }

type metaResp struct {
	Universe []struct {
		Name       string `json:"name"`
		IsDelisted bool   `json:"isDelisted"`
	} `json:"universe"`
}

type assetCtx struct {
	MarkPx    string `json:"markPx"`
	MidPx     string `json:"midPx"`
	PrevDayPx string `json:"prevDayPx"`
}

func (c *Catalog) Load(ctx context.Context) ([]domain.Instrument, error) {
	body, err := json.Marshal(map[string]string{"type": "metaAndAssetCtxs", "dex": c.dex})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.restURL+"/info", bytes.NewReader(body))
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
		return nil, fmt.Errorf("hyperevm info: http %d: %s", resp.StatusCode, string(msg))
	}

	var parts []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&parts); err != nil {
		return nil, fmt.Errorf("hyperevm info decode: %w", err)
	}
	if len(parts) < 2 {
		return nil, fmt.Errorf("hyperevm info: expected 2 elements, got %d", len(parts))
	}

	var meta metaResp
	if err := json.Unmarshal(parts[0], &meta); err != nil {
		return nil, fmt.Errorf("hyperevm meta: %w", err)
	}
	var ctxs []assetCtx
	if err := json.Unmarshal(parts[1], &ctxs); err != nil {
		return nil, fmt.Errorf("hyperevm ctxs: %w", err)
	}

	out := make([]domain.Instrument, 0, len(meta.Universe))
	for i, u := range meta.Universe {
		if u.Name == "" || u.IsDelisted {
			continue
		}
		it := domain.Instrument{
			ID:            domain.InstrumentID(domain.ProviderHyperEVM, u.Name),
			NativeSymbol:  u.Name,
			DisplaySymbol: u.Name,
			Provider:      domain.ProviderHyperEVM,
		}
		m := exchange.MetaFor(u.Name)
		it.DisplayName, it.Glyph = m.Name, m.Glyph
		if i < len(ctxs) {
			if v, e := strconv.ParseFloat(ctxs[i].PrevDayPx, 64); e == nil {
				it.BaselinePrice = v
			}
			if v, e := strconv.ParseFloat(ctxs[i].MarkPx, 64); e == nil && v > 0 {
				it.MarkPrice = v
			} else if v, e := strconv.ParseFloat(ctxs[i].MidPx, 64); e == nil {
				it.MarkPrice = v
			}
		}
		out = append(out, it)
	}
	return out, nil
}
