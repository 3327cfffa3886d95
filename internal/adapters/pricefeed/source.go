package pricefeed

import (
	"context"

	"github.com/shopspring/decimal"
)

// Source fetches USD prices for a set of price ids.
// Ids the upstream does not know are absent from the result, never zero.
type Source interface {
	Name() string
	Fetch(ctx context.Context, ids []string) (map[string]decimal.Decimal, error)
}
