package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/swap_exchange_app/internal/apperrors"
	"github.com/SscSPs/swap_exchange_app/internal/core/domain"
	portsrepo "github.com/SscSPs/swap_exchange_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/swap_exchange_app/internal/core/ports/services"
	"github.com/SscSPs/swap_exchange_app/internal/dto"
	"github.com/google/uuid"
)

const (
	// maxAmountScale is the number of fractional digits accepted for amountIn.
	maxAmountScale int32 = 18
	// maxAmountIntegerDigits caps amountIn below 10^15.
	maxAmountIntegerDigits = 15
	// minAmountExponent bounds the representation of amountIn, so inputs like
	// "1e-2000000000" are refused before any rescaling.
	minAmountExponent int32 = -64
)

// quoteService implements the QuoteEngineSvc interface
type quoteService struct {
	BaseService
	quoteRepo portsrepo.QuoteWriter
	prices    portssvc.PriceSvc
	catalog   *domain.AssetCatalog
	validity  time.Duration
}

// NewQuoteService creates the quote engine.
func NewQuoteService(
	repo portsrepo.QuoteWriter,
	prices portssvc.PriceSvc,
	catalog *domain.AssetCatalog,
	validity time.Duration,
	options ...ServiceOption,
) portssvc.QuoteEngineSvc {
	if validity <= 0 {
		validity = domain.DefaultQuoteValidity
	}
	return &quoteService{
		BaseService: newBaseService(options),
		quoteRepo:   repo,
		prices:      prices,
		catalog:     catalog,
		validity:    validity,
	}
}

var _ portssvc.QuoteEngineSvc = (*quoteService)(nil)

func (s *quoteService) CreateQuote(ctx context.Context, req dto.CreateQuoteRequest) (*domain.Quote, error) {
	base := domain.NormalizeSymbol(req.BaseSymbol)
	quoteSym := domain.NormalizeSymbol(req.QuoteSymbol)
	chain := strings.TrimSpace(req.Chain)

	if base == "" || quoteSym == "" || chain == "" {
		return nil, apperrors.NewValidationError("baseSymbol, quoteSymbol and chain are required")
	}
	if req.AmountIn == nil || !req.AmountIn.IsPositive() {
		return nil, apperrors.NewValidationError("amountIn must be greater than 0")
	}
	amountIn := *req.AmountIn
	// Bounds are checked on exponent and coefficient only. Comparing or
	// formatting an unbounded decimal allocates in proportion to its exponent.
	if amountIn.Exponent() < minAmountExponent {
		return nil, apperrors.NewValidationError(fmt.Sprintf("amountIn supports at most %d decimal places", maxAmountScale))
	}
	if int64(amountIn.NumDigits())+int64(amountIn.Exponent()) > maxAmountIntegerDigits {
		return nil, apperrors.NewValidationError(fmt.Sprintf("amountIn must be less than 1e%d", maxAmountIntegerDigits))
	}
	if !amountIn.Equal(amountIn.Truncate(maxAmountScale)) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("amountIn supports at most %d decimal places", maxAmountScale))
	}
	if base == quoteSym {
		return nil, apperrors.NewValidationError("baseSymbol and quoteSymbol must differ")
	}

	depositAddress, ok := s.catalog.DepositAddress(base)
	if !ok {
		return nil, apperrors.NewUnsupportedAssetError("no deposit address configured for " + base)
	}
	baseID, ok := s.catalog.PriceID(base)
	if !ok {
		return nil, apperrors.NewUnsupportedAssetError("no price mapping for " + base)
	}
	quoteID, ok := s.catalog.PriceID(quoteSym)
	if !ok {
		return nil, apperrors.NewUnsupportedAssetError("no price mapping for " + quoteSym)
	}

	prices, err := s.prices.GetPrices(ctx, []string{baseID, quoteID})
	if err != nil {
		s.LogError(ctx, err, "Failed to price quote", slog.String("base", base), slog.String("quote", quoteSym))
		return nil, err
	}
	basePrice, ok := prices[baseID]
	if !ok {
		return nil, apperrors.NewUnsupportedAssetError("no price available for " + base)
	}
	quotePrice, ok := prices[quoteID]
	if !ok || !quotePrice.IsPositive() {
		return nil, apperrors.NewUnsupportedAssetError("no price available for " + quoteSym)
	}

	rate, amountOut := domain.LockRate(amountIn, basePrice, quotePrice)
	now := s.Now()
	quote := domain.Quote{
		ID:             uuid.NewString(),
		PublicID:       domain.PublicIDPrefix + uuid.NewString(),
		BaseSymbol:     base,
		QuoteSymbol:    quoteSym,
		Chain:          chain,
		AmountIn:       amountIn,
		Rate:           rate,
		AmountOut:      amountOut,
		DepositAddress: depositAddress,
		Status:         domain.StatusProcessing,
		ExpiresAt:      now.Add(s.validity),
		AuditFields: domain.AuditFields{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	event := domain.NewQuoteEvent(domain.EventCreated, map[string]any{
		"base":       base,
		"quote":      quoteSym,
		"chain":      chain,
		"amount_in":  amountIn.String(),
		"rate":       rate.String(),
		"amount_out": amountOut.String(),
		"expires_at": quote.ExpiresAt.Format(time.RFC3339),
	}, now)

	if err := s.quoteRepo.CreateQuote(ctx, quote, event); err != nil {
		s.LogError(ctx, err, "Failed to persist quote", slog.String("public_id", quote.PublicID))
		return nil, fmt.Errorf("failed to create quote in service: %w", err)
	}

	s.metrics.QuoteCreated(base, quoteSym)
	s.publish(&quote)
	s.LogInfo(ctx, "Quote created",
		slog.String("public_id", quote.PublicID),
		slog.String("pair", base+"/"+quoteSym),
		slog.String("rate", rate.String()),
		slog.Time("expires_at", quote.ExpiresAt))
	return &quote, nil
}
