package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote mirrors a row of the quotes table.
type Quote struct {
	QuoteID        string          `db:"quote_id"`
	PublicID       string          `db:"public_id"`
	BaseSymbol     string          `db:"base_symbol"`
	QuoteSymbol    string          `db:"quote_symbol"`
	Chain          string          `db:"chain"`
	AmountIn       decimal.Decimal `db:"amount_in"`
	Rate           decimal.Decimal `db:"rate"`
	AmountOut      decimal.Decimal `db:"amount_out"`
	DepositAddress string          `db:"deposit_address"`
	PayoutAddress  *string         `db:"payout_address"` // Nullable, set at most once
	Status         string          `db:"status"`
	ExpiresAt      time.Time       `db:"expires_at"`
	TxInHash       *string         `db:"tx_in_hash"`
	TxOutHash      *string         `db:"tx_out_hash"`
	AuditFields
}

// QuoteEvent mirrors a row of the quote_events table.
type QuoteEvent struct {
	EventID   int64     `db:"event_id"`
	QuoteID   string    `db:"quote_id"`
	PublicID  string    `db:"public_id"` // Joined from quotes
	EventType string    `db:"event_type"`
	Payload   []byte    `db:"payload"` // JSONB
	CreatedAt time.Time `db:"created_at"`
}

// PriceSnapshot mirrors a row of the price_snapshots table.
type PriceSnapshot struct {
	SnapshotID int64     `db:"snapshot_id"`
	Source     string    `db:"source"`
	Payload    []byte    `db:"payload"` // JSONB map of price id -> decimal string
	FetchedAt  time.Time `db:"fetched_at"`
}
