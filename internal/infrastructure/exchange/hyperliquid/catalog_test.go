package hyperliquid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func infoServer(t *testing.T, handlers map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/info" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp, ok := handlers[body["type"]]
		if !ok {
			http.Error(w, "unknown type", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(resp))
	}))
}

func TestPerpCatalogPositionalJoin(t *testing.T) {
	srv := infoServer(t, map[string]string{
		"metaAndAssetCtxs": `[
			{"universe":[
				{"name":"BTC"},
				{"name":"OLD","isDelisted":true},
				{"name":"ETH"}
			]},
			[
				{"markPx":"97000.0","prevDayPx":"95000.0"},
				{"markPx":"1.0","prevDayPx":"1.0"},
				{"markPx":"","midPx":"3500.0","prevDayPx":"3400.0"}
			]
		]`,
	})
	defer srv.Close()

	items, err := NewPerpCatalog(srv.URL).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 instruments (delisted dropped), got %d", len(items))
	}

	btc := items[0]
	if btc.ID != "HLP:BTC" || btc.BaselinePrice != 95000 || btc.MarkPrice != 97000 {
		t.Fatalf("unexpected BTC: %+v", btc)
	}
	// markPx 为空时退回 midPx；下标对齐跳过 delisted 条目所占的 ctx
	eth := items[1]
	if eth.ID != "HLP:ETH" || eth.MarkPrice != 3500 || eth.BaselinePrice != 3400 {
		t.Fatalf("unexpected ETH: %+v", eth)
	}
}

func TestSpotCatalogTokenTable(t *testing.T) {
	srv := infoServer(t, map[string]string{
		"spotMetaAndAssetCtxs": `[
			{
				"tokens":[
					{"name":"PURR","index":0},
					{"name":"USDC","index":1}
				],
				"universe":[
					{"name":"@1","tokens":[0,1]},
					{"name":"HYPE/USDC","tokens":[2,1]}
				]
			},
			[
				{"markPx":"0.30","prevDayPx":"0.25"},
				{"markPx":"40.5","prevDayPx":"39.0"}
			]
		]`,
	})
	defer srv.Close()

	items, err := NewSpotCatalog(srv.URL).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 instruments, got %d", len(items))
	}

	// 内部名 "@1" -> 展示名 "PURR/USDC"，id 保留内部名（流里的 key 就是它）
	purr := items[0]
	if purr.ID != "HLS:@1" || purr.NativeSymbol != "@1" || purr.DisplaySymbol != "PURR/USDC" {
		t.Fatalf("unexpected @1: %+v", purr)
	}
	if purr.BaselinePrice != 0.25 || purr.MarkPrice != 0.30 {
		t.Fatalf("unexpected @1 prices: %+v", purr)
	}

	// 已是人类可读名的交易对直接透传
	hype := items[1]
	if hype.ID != "HLS:HYPE/USDC" || hype.DisplaySymbol != "HYPE/USDC" {
		t.Fatalf("unexpected HYPE: %+v", hype)
	}
}

func TestPerpCatalogHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewPerpCatalog(srv.URL).Load(context.Background()); err == nil {
		t.Fatal("expected error on http 503")
	}
}
