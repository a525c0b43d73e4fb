package domain

import (
	"math"
	"testing"
	"time"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestQuoteChangePercent(t *testing.T) {
	var q Quote
	q.SetBaseline(100)
	q.SetPrice(105, time.Now())
	if !almostEqual(q.ChangePercent, 5) {
		t.Fatalf("expected +5%%, got %v", q.ChangePercent)
	}

	// 基准价后到也要回填涨跌幅
	var q2 Quote
	q2.SetPrice(95, time.Now())
	if q2.ChangePercent != 0 {
		t.Fatalf("no baseline, change must be 0, got %v", q2.ChangePercent)
	}
	q2.SetBaseline(100)
	if !almostEqual(q2.ChangePercent, -5) {
		t.Fatalf("expected -5%%, got %v", q2.ChangePercent)
	}
}

func TestStoreMergeDropsUnknown(t *testing.T) {
	s := NewPriceStore()

	if s.Merge("CB:GONE", 10, false, time.Now()) {
		t.Fatal("unknown id must be dropped")
	}
	if _, ok := s.Get("CB:GONE"); ok {
		t.Fatal("dropped update must not create an entry")
	}

	if s.Merge("CB:BTC-USD", 0, true, time.Now()) {
		t.Fatal("non-positive price must be dropped")
	}
	if !s.Merge("CB:BTC-USD", 50000, true, time.Now()) {
		t.Fatal("valid update rejected")
	}
	q, ok := s.Get("CB:BTC-USD")
	if !ok || q.Price != 50000 {
		t.Fatalf("unexpected quote: %+v ok=%v", q, ok)
	}
}

func TestStoreSeedKeepsStreamPrice(t *testing.T) {
	s := NewPriceStore()
	s.Merge("HLP:ETH", 3000, true, time.Now())

	// 目录重载只刷新基准价，流里写入的最新价保留
	s.Seed(Instrument{ID: "HLP:ETH", BaselinePrice: 2900, MarkPrice: 2950})
	q, _ := s.Get("HLP:ETH")
	if q.Price != 3000 {
		t.Errorf("stream price overwritten by seed: %v", q.Price)
	}
	if q.BaselinePrice != 2900 {
		t.Errorf("baseline not refreshed: %v", q.BaselinePrice)
	}

	// 流还没写过价时才采用目录标记价
	s.Seed(Instrument{ID: "HLP:SOL", BaselinePrice: 100, MarkPrice: 110})
	q, _ = s.Get("HLP:SOL")
	if q.Price != 110 || !almostEqual(q.ChangePercent, 10) {
		t.Errorf("mark price seed wrong: %+v", q)
	}
}

func TestCatalogReplaceIsAtomic(t *testing.T) {
	c := NewCatalog(ProviderCoinbase)
	c.Replace([]Instrument{
		{ID: "CB:BTC-USD"},
		{ID: "CB:ETH-USD"},
	})
	if c.Len() != 2 || !c.Has("CB:ETH-USD") {
		t.Fatalf("unexpected catalog after first replace: %v", c.IDs())
	}

	// 整体替换：旧条目直接消失，重复 id 去重
	c.Replace([]Instrument{
		{ID: "CB:SOL-USD"},
		{ID: "CB:SOL-USD"},
		{ID: ""},
	})
	if c.Len() != 1 || c.Has("CB:BTC-USD") {
		t.Fatalf("replace not atomic: %v", c.IDs())
	}
}

func TestProviderOfID(t *testing.T) {
	cases := []struct {
		id   string
		want Provider
		ok   bool
	}{
		{"CB:BTC-USD", ProviderCoinbase, true},
		{"HLP:ETH", ProviderHyperliquidPerp, true},
		{"HLS:@1", ProviderHyperliquidSpot, true},
		{"HX:PURR", ProviderHyperEVM, true},
		{"TV:NASDAQ:AAPL", ProviderTradingView, true}, // native 自带冒号
		{"ZZ:FOO", 0, false},
		{"noprefix", 0, false},
	}
	for _, tc := range cases {
		p, ok := ProviderOfID(tc.id)
		if ok != tc.ok || (ok && p != tc.want) {
			t.Errorf("ProviderOfID(%q) = %v,%v want %v,%v", tc.id, p, ok, tc.want, tc.ok)
		}
	}
}
