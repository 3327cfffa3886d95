package services

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceSvc is the cached view of the upstream price feed.
type PriceSvc interface {
	// GetPrices returns USD prices for ids. Ids unknown upstream are absent.
	GetPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error)

	// Refresh fetches a new snapshot for the configured universe.
	Refresh(ctx context.Context) error
}

// PriceFeed is an upstream price source.
type PriceFeed interface {
	Name() string
	Fetch(ctx context.Context, ids []string) (map[string]decimal.Decimal, error)
}
