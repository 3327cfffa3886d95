package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteStatus is the lifecycle state of a Quote.
type QuoteStatus string

const (
	StatusAwaitingPayment QuoteStatus = "awaiting_payment"
	StatusAwaitingReview  QuoteStatus = "awaiting_review"
	StatusConfirming      QuoteStatus = "confirming"
	StatusSuccess         QuoteStatus = "success"
	StatusFailed          QuoteStatus = "failed"
	StatusExpired         QuoteStatus = "expired"
)

// StatusProcessing is the name the quote engine uses for the initial state.
const StatusProcessing = StatusAwaitingPayment

// PublicIDPrefix prefixes every client-facing quote identifier.
const PublicIDPrefix = "q_"

// DefaultQuoteValidity is the fixed window between creation and expiry.
const DefaultQuoteValidity = 10 * time.Minute

var allStatuses = []QuoteStatus{
	StatusAwaitingPayment,
	StatusAwaitingReview,
	StatusConfirming,
	StatusSuccess,
	StatusFailed,
	StatusExpired,
}

// NonTerminalStatuses lists the states a quote can still leave automatically.
func NonTerminalStatuses() []QuoteStatus {
	return []QuoteStatus{StatusAwaitingPayment, StatusAwaitingReview, StatusConfirming}
}

// IsValid reports whether s is a known status.
func (s QuoteStatus) IsValid() bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s is absorbing.
func (s QuoteStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusExpired
}

// Quote is a rate-locked, time-bounded record of a proposed asset exchange.
type Quote struct {
	ID             string          `json:"id"`
	PublicID       string          `json:"publicId"`
	BaseSymbol     string          `json:"baseSymbol"`
	QuoteSymbol    string          `json:"quoteSymbol"`
	Chain          string          `json:"chain"`
	AmountIn       decimal.Decimal `json:"amountIn"`
	Rate           decimal.Decimal `json:"rate"`
	AmountOut      decimal.Decimal `json:"amountOut"`
	DepositAddress string          `json:"depositAddress"`
	PayoutAddress  *string         `json:"payoutAddress,omitempty"`
	Status         QuoteStatus     `json:"status"`
	ExpiresAt      time.Time       `json:"expiresAt"`
	TxInHash       *string         `json:"txInHash,omitempty"`
	TxOutHash      *string         `json:"txOutHash,omitempty"`
	AuditFields
}

// IsExpiredAt reports whether the validity window has passed at now.
func (q Quote) IsExpiredAt(now time.Time) bool {
	return q.ExpiresAt.Before(now)
}

// NeedsExpiry reports whether the quote is non-terminal and past its window.
func (q Quote) NeedsExpiry(now time.Time) bool {
	return !q.Status.IsTerminal() && q.IsExpiredAt(now)
}

// HasPayout reports whether a payout address has been attached.
func (q Quote) HasPayout() bool {
	return q.PayoutAddress != nil && *q.PayoutAddress != ""
}

// LockRate computes the locked rate and output amount from two USD prices.
// The output is the exact product of amountIn and the stored rate.
func LockRate(amountIn, basePriceUSD, quotePriceUSD decimal.Decimal) (rate, amountOut decimal.Decimal) {
	rate = basePriceUSD.DivRound(quotePriceUSD, RateScale)
	amountOut = amountIn.Mul(rate)
	return rate, amountOut
}

// RateScale is the number of fractional digits kept when dividing prices.
const RateScale int32 = 18

// SettlementSources returns the statuses from which an external settlement
// signal may move a quote to target. A nil result means the target cannot be
// reached by a settlement signal.
func SettlementSources(target QuoteStatus) []QuoteStatus {
	switch target {
	case StatusConfirming:
		return []QuoteStatus{StatusAwaitingReview, StatusConfirming}
	case StatusSuccess, StatusFailed:
		return NonTerminalStatuses()
	default:
		return nil
	}
}

// CanSettle reports whether a settlement signal may move a quote from -> to.
func CanSettle(from, to QuoteStatus) bool {
	for _, s := range SettlementSources(to) {
		if s == from {
			return true
		}
	}
	return false
}
