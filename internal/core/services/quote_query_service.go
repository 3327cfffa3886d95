package services

import (
	"context"
	"log/slog"

	"github.com/SscSPs/swap_exchange_app/internal/apperrors"
	"github.com/SscSPs/swap_exchange_app/internal/core/domain"
	portsrepo "github.com/SscSPs/swap_exchange_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/swap_exchange_app/internal/core/ports/services"
	"github.com/SscSPs/swap_exchange_app/internal/dto"
	"github.com/SscSPs/swap_exchange_app/internal/utils/pagination"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// quoteQueryService implements the QuoteQuerySvc interface
type quoteQueryService struct {
	BaseService
	quoteRepo portsrepo.QuoteRepositoryFacade
}

// NewQuoteQueryService creates the read side of the quote API.
func NewQuoteQueryService(repo portsrepo.QuoteRepositoryFacade, options ...ServiceOption) portssvc.QuoteQuerySvc {
	return &quoteQueryService{
		BaseService: newBaseService(options),
		quoteRepo:   repo,
	}
}

var _ portssvc.QuoteQuerySvc = (*quoteQueryService)(nil)

// GetByPublicID never returns an open quote whose window has passed: such a
// quote is expired in place before it is returned.
func (s *quoteQueryService) GetByPublicID(ctx context.Context, publicID string) (*domain.Quote, error) {
	quote, err := s.quoteRepo.FindQuoteByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	if !quote.NeedsExpiry(now) {
		return quote, nil
	}

	event := domain.NewExpiredEvent(triggerRead, now)
	expired, applied, err := s.quoteRepo.ExpireQuote(ctx, publicID, now, event)
	if err != nil {
		s.LogError(ctx, err, "Failed to expire quote on read", slog.String("public_id", publicID))
		return nil, err
	}
	if !applied {
		// Someone else moved it first.
		return s.quoteRepo.FindQuoteByPublicID(ctx, publicID)
	}

	s.metrics.QuoteTransition(string(domain.StatusExpired), triggerRead)
	s.publish(expired)
	s.LogDebug(ctx, "Quote expired on read", slog.String("public_id", publicID))
	return expired, nil
}

func (s *quoteQueryService) ListRecent(ctx context.Context, params dto.ListQuotesParams) (*dto.ListQuotesResponse, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var cursor *portsrepo.QuoteCursor
	if params.NextToken != "" {
		createdAt, publicID, err := pagination.DecodeToken(params.NextToken)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid nextToken")
		}
		cursor = &portsrepo.QuoteCursor{CreatedAt: createdAt, PublicID: publicID}
	}

	// Fetch one extra row to learn whether another page exists.
	quotes, err := s.quoteRepo.ListRecentQuotes(ctx, limit+1, cursor)
	if err != nil {
		s.LogError(ctx, err, "Failed to list quotes")
		return nil, err
	}

	resp := &dto.ListQuotesResponse{}
	if len(quotes) > limit {
		quotes = quotes[:limit]
		last := quotes[len(quotes)-1]
		token := pagination.EncodeToken(last.CreatedAt, last.PublicID)
		resp.NextToken = &token
	}
	resp.Quotes = dto.ToQuoteResponseList(quotes)
	return resp, nil
}

func (s *quoteQueryService) ListEvents(ctx context.Context, publicID string) ([]domain.QuoteEvent, error) {
	if _, err := s.quoteRepo.FindQuoteByPublicID(ctx, publicID); err != nil {
		return nil, err
	}
	return s.quoteRepo.ListQuoteEvents(ctx, publicID)
}
