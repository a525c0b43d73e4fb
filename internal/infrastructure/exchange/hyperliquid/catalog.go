package hyperliquid

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

// info 端点统一是 POST {rest}/info + JSON body
func postInfo(ctx context.Context, client *http.Client, restURL string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, restURL+"/info", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("hyperliquid info: http %d: %s", resp.StatusCode, string(msg))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type assetCtx struct {
	MarkPx    string `json:"markPx"`
	MidPx     string `json:"midPx"`
	PrevDayPx string `json:"prevDayPx"`
}

func (c assetCtx) mark() float64 {
	if v, err := strconv.ParseFloat(c.MarkPx, 64); err == nil && v > 0 {
		return v
	}
	v, _ := strconv.ParseFloat(c.MidPx, 64)
	return v
}

func (c assetCtx) prevDay() float64 {
	v, _ := strconv.ParseFloat(c.PrevDayPx, 64)
	return v
}

// PerpCatalog 永续目录：metaAndAssetCtxs
// 响应是两个并列数组（按下标对齐的元数据数组 + 上下文数组），必须按位置 join
type PerpCatalog struct {
	restURL string
	client  *http.Client
}

func NewPerpCatalog(restURL string) *PerpCatalog {
	return &PerpCatalog{
		restURL: strings.TrimRight(strings.TrimSpace(restURL), "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *PerpCatalog) Provider() domain.Provider { return domain.ProviderHyperliquidPerp }

type perpMeta struct {
	Universe []struct {
		Name       string `json:"name"`
		IsDelisted bool   `json:"isDelisted"`
	} `json:"universe"`
}

func (c *PerpCatalog) Load(ctx context.Context) ([]domain.Instrument, error) {
	var resp []json.RawMessage
	if err := postInfo(ctx, c.client, c.restURL, map[string]string{"type": "metaAndAssetCtxs"}, &resp); err != nil {
		return nil, err
	}
	if len(resp) < 2 {
		return nil, fmt.Errorf("metaAndAssetCtxs: expected 2 elements, got %d", len(resp))
	}

	var meta perpMeta
	if err := json.Unmarshal(resp[0], &meta); err != nil {
		return nil, fmt.Errorf("metaAndAssetCtxs meta: %w", err)
	}
	var ctxs []assetCtx
	if err := json.Unmarshal(resp[1], &ctxs); err != nil {
		return nil, fmt.Errorf("metaAndAssetCtxs ctxs: %w", err)
	}

	out := make([]domain.Instrument, 0, len(meta.Universe))
	for i, u := range meta.Universe {
		if u.Name == "" || u.IsDelisted {
			continue
		}
		it := domain.Instrument{
			ID:            domain.InstrumentID(domain.ProviderHyperliquidPerp, u.Name),
			NativeSymbol:  u.Name,
			DisplaySymbol: u.Name,
			Provider:      domain.ProviderHyperliquidPerp,
		}
		m := exchange.MetaFor(u.Name)
		it.DisplayName, it.Glyph = m.Name, m.Glyph
		// ctx 数组与 universe 按下标对齐；长度不齐时缺失项留零值
		if i < len(ctxs) {
			it.BaselinePrice = ctxs[i].prevDay()
			it.MarkPrice = ctxs[i].mark()
		}
		out = append(out, it)
	}
	return out, nil
}

// SpotCatalog 现货目录：spotMetaAndAssetCtxs
// 交易对名可能是 "@N" 这种内部形式；展示符号要经 token 下标表解析：
// pair name -> 两个 token 下标 -> 两个 token 名 -> "BASE/QUOTE"
// 名字本身已是人类可读（含 "/"）时直接透传
type SpotCatalog struct {
	restURL string
	client  *http.Client
}

func NewSpotCatalog(restURL string) *SpotCatalog {
	return &SpotCatalog{
		restURL: strings.TrimRight(strings.TrimSpace(restURL), "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *SpotCatalog) Provider() domain.Provider { return domain.ProviderHyperliquidSpot }

type spotMeta struct {
	Tokens []struct {
		Name  string `json:"name"`
		Index int    `json:"index"`
	} `json:"tokens"`
	Universe []struct {
		Name   string `json:"name"`
		Tokens []int  `json:"tokens"` // [base, quote]
	} `json:"universe"`
}

func (c *SpotCatalog) Load(ctx context.Context) ([]domain.Instrument, error) {
	var resp []json.RawMessage
	if err := postInfo(ctx, c.client, c.restURL, map[string]string{"type": "spotMetaAndAssetCtxs"}, &resp); err != nil {
		return nil, err
	}
	if len(resp) < 2 {
		return nil, fmt.Errorf("spotMetaAndAssetCtxs: expected 2 elements, got %d", len(resp))
	}

	var meta spotMeta
	if err := json.Unmarshal(resp[0], &meta); err != nil {
		return nil, fmt.Errorf("spotMetaAndAssetCtxs meta: %w", err)
	}
	var ctxs []assetCtx
	if err := json.Unmarshal(resp[1], &ctxs); err != nil {
		return nil, fmt.Errorf("spotMetaAndAssetCtxs ctxs: %w", err)
	}

	tokenName := make(map[int]string, len(meta.Tokens))
	for _, t := range meta.Tokens {
		tokenName[t.Index] = t.Name
	}

	out := make([]domain.Instrument, 0, len(meta.Universe))
	for i, u := range meta.Universe {
		if u.Name == "" {
			continue
		}
		display := u.Name
		base := u.Name
		if !strings.Contains(u.Name, "/") && len(u.Tokens) == 2 {
			bn, bok := tokenName[u.Tokens[0]]
			qn, qok := tokenName[u.Tokens[1]]
			if bok && qok {
				display = bn + "/" + qn
				base = bn
			}
		} else if b, _, ok := strings.Cut(u.Name, "/"); ok {
			base = b
		}

		it := domain.Instrument{
			ID:            domain.InstrumentID(domain.ProviderHyperliquidSpot, u.Name),
			NativeSymbol:  u.Name,
			DisplaySymbol: display,
			Provider:      domain.ProviderHyperliquidSpot,
		}
		m := exchange.MetaFor(base)
		it.DisplayName, it.Glyph = m.Name, m.Glyph
		if i < len(ctxs) {
			it.BaselinePrice = ctxs[i].prevDay()
			it.MarkPrice = ctxs[i].mark()
		}
		out = append(out, it)
	}
	return out, nil
}
