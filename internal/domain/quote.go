package domain

import "time"

// Quote holds the latest known price for one instrument.
// ChangePercent is always recomputed from (Price, BaselinePrice); it is never
// written independently, so the pair stays consistent at rest.
type Quote struct {
	Price         float64 // 0 = not yet known
	BaselinePrice float64 // prior-period open/close, 0 = unknown
	ChangePercent float64
	LastUpdate    time.Time
}

func (q *Quote) recompute() {
	if q.BaselinePrice > 0 {
		q.ChangePercent = (q.Price - q.BaselinePrice) / q.BaselinePrice * 100
	} else {
		q.ChangePercent = 0
	}
}

// SetPrice applies a new last price and restamps LastUpdate.
func (q *Quote) SetPrice(price float64, ts time.Time) {
	q.Price = price
	q.LastUpdate = ts
	q.recompute()
}

// SetBaseline replaces the reference price (catalog load / daily rollover).
func (q *Quote) SetBaseline(baseline float64) {
	q.BaselinePrice = baseline
	q.recompute()
}
