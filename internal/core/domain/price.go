package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot is a point-in-time set of USD prices keyed by price-feed id.
type PriceSnapshot struct {
	Prices    map[string]decimal.Decimal `json:"prices"`
	FetchedAt time.Time                  `json:"fetchedAt"`
	Source    string                     `json:"source"`
}

// Age returns how old the snapshot is at now.
func (p PriceSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(p.FetchedAt)
}

// Covers reports whether every id has a price in the snapshot.
func (p PriceSnapshot) Covers(ids []string) bool {
	for _, id := range ids {
		if _, ok := p.Prices[id]; !ok {
			return false
		}
	}
	return true
}

// Subset returns the prices for ids that are present. Missing ids are omitted.
func (p PriceSnapshot) Subset(ids []string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(ids))
	for _, id := range ids {
		if v, ok := p.Prices[id]; ok {
			out[id] = v
		}
	}
	return out
}
