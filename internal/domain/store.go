package domain

import (
	"sync"
	"time"
)

// PriceStore 合并后的最新报价视图：instrument id -> Quote
// 写入方约定：每个 id 只有一条解码路径会写；读取方（展示层）随时并发读
type PriceStore struct {
	mu     sync.RWMutex
	quotes map[string]*Quote
}

func NewPriceStore() *PriceStore {
	return &PriceStore{quotes: make(map[string]*Quote)}
}

// Seed 目录加载后为标的建立初始报价（基准价 + 可选的目录标记价）
// 已存在的条目只刷新基准价，保留流里写入的最新价
func (s *PriceStore) Seed(it Instrument) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.quotes[it.ID]
	if q == nil {
		q = &Quote{}
		s.quotes[it.ID] = q
	}
	if it.BaselinePrice > 0 {
		q.SetBaseline(it.BaselinePrice)
	}
	if q.Price == 0 && it.MarkPrice > 0 {
		q.SetPrice(it.MarkPrice, time.Now())
	}
}

// Merge 写入一条价格更新；known=false 的 id 静默丢弃
// （防御目录替换前后 provider 抢先/滞后推送的竞态）
func (s *PriceStore) Merge(id string, price float64, known bool, ts time.Time) bool {
	if !known || price <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.quotes[id]
	if q == nil {
		q = &Quote{}
		s.quotes[id] = q
	}
	q.SetPrice(price, ts)
	return true
}

// MergeBaseline 流消息自带基准价时（如 Coinbase open_24h）一并刷新
func (s *PriceStore) MergeBaseline(id string, baseline float64) {
	if baseline <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if q := s.quotes[id]; q != nil {
		q.SetBaseline(baseline)
	}
}

// Get 返回报价副本，不存在时 ok=false
func (s *PriceStore) Get(id string) (Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := s.quotes[id]
	if q == nil {
		return Quote{}, false
	}
	return *q, true
}

// Snapshot 按给定顺序取报价副本；缺失的 id 返回零值 Quote
func (s *PriceStore) Snapshot(ids []string) map[string]Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Quote, len(ids))
	for _, id := range ids {
		if q := s.quotes[id]; q != nil {
			out[id] = *q
		} else {
			out[id] = Quote{}
		}
	}
	return out
}
