package domain

import "time"

// QuoteEventType tags an audit log entry.
type QuoteEventType string

const (
	EventCreated             QuoteEventType = "CREATED"
	EventPayoutAttached      QuoteEventType = "PAYOUT_ATTACHED"
	EventUserPaid            QuoteEventType = "USER_PAID"
	EventExpired             QuoteEventType = "EXPIRED"
	EventSettlementSignal    QuoteEventType = "SETTLEMENT_SIGNAL"
	EventAdminStatusOverride QuoteEventType = "ADMIN_STATUS_OVERRIDE"
)

// QuoteEvent is an append-only record of a state-changing operation on a quote.
type QuoteEvent struct {
	ID        int64          `json:"id"`
	QuoteID   string         `json:"quoteId"`
	PublicID  string         `json:"publicId"`
	Type      QuoteEventType `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"createdAt"`
}

// NewQuoteEvent builds an event with an initialised payload.
func NewQuoteEvent(eventType QuoteEventType, payload map[string]any, at time.Time) QuoteEvent {
	if payload == nil {
		payload = map[string]any{}
	}
	return QuoteEvent{Type: eventType, Payload: payload, CreatedAt: at}
}

// NewExpiredEvent records an expiry applied at by trigger ("sweep" or "read").
func NewExpiredEvent(trigger string, at time.Time) QuoteEvent {
	return NewQuoteEvent(EventExpired, map[string]any{
		"trigger":    trigger,
		"expired_at": at.UTC().Format(time.RFC3339),
	}, at)
}
