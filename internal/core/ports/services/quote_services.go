package services

import (
	"context"

	"github.com/SscSPs/swap_exchange_app/internal/core/domain"
	"github.com/SscSPs/swap_exchange_app/internal/dto"
)

// QuoteEngineSvc creates rate-locked quotes. It is the only path that creates a quote.
type QuoteEngineSvc interface {
	// CreateQuote prices the pair, locks the rate and persists a new quote.
	CreateQuote(ctx context.Context, req dto.CreateQuoteRequest) (*domain.Quote, error)
}

// QuoteLifecycleSvc owns the status transitions of existing quotes.
type QuoteLifecycleSvc interface {
	// AttachPayout sets the payout address at most once.
	AttachPayout(ctx context.Context, publicID, address string) (*domain.Quote, error)

	// ReportUserPaid records the user-reported inbound transaction hash.
	ReportUserPaid(ctx context.Context, publicID, txInHash string) (*domain.Quote, error)

	// ApplySettlementSignal applies an external settlement status along the monotonic state machine.
	ApplySettlementSignal(ctx context.Context, publicID string, req dto.SettlementSignalRequest) (*domain.Quote, error)

	// SweepExpired expires all overdue open quotes and returns how many changed.
	SweepExpired(ctx context.Context) (int, error)

	// SetStatus is the administrative override. It ignores the state machine.
	SetStatus(ctx context.Context, req dto.AdminSetStatusRequest, actor string) (*domain.Quote, error)
}

// QuoteQuerySvc defines read access to quotes and their audit log.
type QuoteQuerySvc interface {
	// GetByPublicID returns one quote, expiring it first if it is overdue.
	GetByPublicID(ctx context.Context, publicID string) (*domain.Quote, error)

	// ListRecent returns quotes newest first for administrative review.
	ListRecent(ctx context.Context, params dto.ListQuotesParams) (*dto.ListQuotesResponse, error)

	// ListEvents returns a quote's audit events in ascending order.
	ListEvents(ctx context.Context, publicID string) ([]domain.QuoteEvent, error)
}

// QuoteNotifier is the best-effort change channel for single quotes.
type QuoteNotifier interface {
	// Subscribe registers onChange for publicID. The returned func releases the
	// subscription and must be called.
	Subscribe(publicID string, onChange func(domain.Quote)) (unsubscribe func())

	// Publish delivers a persisted quote state to its subscribers.
	Publish(quote domain.Quote)
}
