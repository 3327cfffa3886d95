package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/swap_exchange_app/internal/core/domain"
)

// QuoteCursor marks the position after which the next page of recent quotes starts.
type QuoteCursor struct {
	CreatedAt time.Time
	PublicID  string
}

// QuoteTransition describes a conditional status change: the row is only
// updated when its current status is one of From.
type QuoteTransition struct {
	PublicID  string
	To        domain.QuoteStatus
	From      []domain.QuoteStatus
	TxInHash  *string
	TxOutHash *string
	Now       time.Time
	Event     domain.QuoteEvent
}

// QuoteReader defines read operations for quote data
type QuoteReader interface {
	// FindQuoteByPublicID retrieves a quote by its client-facing identifier.
	FindQuoteByPublicID(ctx context.Context, publicID string) (*domain.Quote, error)

	// ListRecentQuotes returns quotes newest first, starting after the cursor when given.
	ListRecentQuotes(ctx context.Context, limit int, after *QuoteCursor) ([]domain.Quote, error)
}

// QuoteEventReader defines read operations for the quote audit log
type QuoteEventReader interface {
	// ListQuoteEvents returns the events of a quote in ascending time order.
	ListQuoteEvents(ctx context.Context, publicID string) ([]domain.QuoteEvent, error)
}

// QuoteWriter defines write operations for quote data.
// Every method persists its audit event in the same transaction as the row change.
type QuoteWriter interface {
	// CreateQuote inserts a new quote together with its CREATED event.
	CreateQuote(ctx context.Context, quote domain.Quote, event domain.QuoteEvent) error

	// AttachPayoutAddress sets the payout address only if it is still null and the
	// quote is open. The bool reports whether this call applied the change.
	AttachPayoutAddress(ctx context.Context, publicID, address string, now time.Time, event domain.QuoteEvent) (*domain.Quote, bool, error)

	// MarkUserPaid records the user-reported inbound hash and advances
	// awaiting_payment to awaiting_review.
	MarkUserPaid(ctx context.Context, publicID, txInHash string, now time.Time, event domain.QuoteEvent) (*domain.Quote, bool, error)

	// ApplyTransition performs a conditional status change.
	ApplyTransition(ctx context.Context, t QuoteTransition) (*domain.Quote, bool, error)

	// OverrideStatus sets the status unconditionally and returns the previous status.
	OverrideStatus(ctx context.Context, publicID string, status domain.QuoteStatus, txInHash, txOutHash *string, now time.Time, event domain.QuoteEvent) (*domain.Quote, domain.QuoteStatus, error)

	// ExpireQuote expires a single quote if it is non-terminal and overdue.
	ExpireQuote(ctx context.Context, publicID string, now time.Time, event domain.QuoteEvent) (*domain.Quote, bool, error)

	// ExpireOverdueQuotes expires every non-terminal overdue quote and returns them.
	ExpireOverdueQuotes(ctx context.Context, now time.Time, event domain.QuoteEvent) ([]domain.Quote, error)
}

// QuoteRepositoryFacade combines all quote-related repository interfaces
// This is a facade for clients that need access to all operations
type QuoteRepositoryFacade interface {
	QuoteReader
	QuoteEventReader
	QuoteWriter
}

// QuoteRepositoryWithTx extends QuoteRepositoryFacade with transaction capabilities
type QuoteRepositoryWithTx interface {
	QuoteRepositoryFacade
	TransactionManager
}
