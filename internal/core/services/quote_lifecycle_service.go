package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/swap_exchange_app/internal/apperrors"
	"github.com/SscSPs/swap_exchange_app/internal/core/domain"
	portsrepo "github.com/SscSPs/swap_exchange_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/swap_exchange_app/internal/core/ports/services"
	"github.com/SscSPs/swap_exchange_app/internal/dto"
	"github.com/SscSPs/swap_exchange_app/internal/utils/address"
)

const (
	triggerUserPaid   = "user_paid"
	triggerSettlement = "settlement"
	triggerSweep      = "sweep"
	triggerRead       = "read"
	triggerAdmin      = "admin"
)

// quoteLifecycleService implements the QuoteLifecycleSvc interface
type quoteLifecycleService struct {
	BaseService
	quoteRepo portsrepo.QuoteRepositoryFacade
}

// NewQuoteLifecycleService creates the lifecycle manager.
func NewQuoteLifecycleService(repo portsrepo.QuoteRepositoryFacade, options ...ServiceOption) portssvc.QuoteLifecycleSvc {
	return &quoteLifecycleService{
		BaseService: newBaseService(options),
		quoteRepo:   repo,
	}
}

var _ portssvc.QuoteLifecycleSvc = (*quoteLifecycleService)(nil)

func (s *quoteLifecycleService) AttachPayout(ctx context.Context, publicID, payoutAddress string) (*domain.Quote, error) {
	payoutAddress = strings.TrimSpace(payoutAddress)
	if payoutAddress == "" {
		return nil, apperrors.NewValidationError("payoutAddress is required")
	}

	quote, err := s.quoteRepo.FindQuoteByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	// First write wins; later submissions are discarded unvalidated.
	if quote.HasPayout() {
		return quote, nil
	}

	now := s.Now()
	if quote.Status.IsTerminal() || quote.IsExpiredAt(now) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("quote %s is no longer open (status %s)", publicID, quote.Status))
	}
	if err := address.ValidateForSymbol(quote.QuoteSymbol, payoutAddress); err != nil {
		return nil, err
	}

	event := domain.NewQuoteEvent(domain.EventPayoutAttached, map[string]any{
		"payout_address": payoutAddress,
	}, now)
	updated, applied, err := s.quoteRepo.AttachPayoutAddress(ctx, publicID, payoutAddress, now, event)
	if err != nil {
		s.LogError(ctx, err, "Failed to attach payout address", slog.String("public_id", publicID))
		return nil, err
	}
	if !applied {
		// Lost a race or the quote closed meanwhile; report the stored state.
		current, err := s.quoteRepo.FindQuoteByPublicID(ctx, publicID)
		if err != nil {
			return nil, err
		}
		if current.HasPayout() {
			return current, nil
		}
		return nil, apperrors.NewConflictError(fmt.Sprintf("quote %s is no longer open (status %s)", publicID, current.Status))
	}

	s.publish(updated)
	s.LogInfo(ctx, "Payout address attached", slog.String("public_id", publicID))
	return updated, nil
}

func (s *quoteLifecycleService) ReportUserPaid(ctx context.Context, publicID, txInHash string) (*domain.Quote, error) {
	txInHash = strings.TrimSpace(txInHash)
	if txInHash == "" {
		return nil, apperrors.NewValidationError("txInHash is required")
	}

	quote, err := s.quoteRepo.FindQuoteByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	if quote.Status.IsTerminal() {
		return nil, apperrors.NewConflictError(fmt.Sprintf("quote %s is %s", publicID, quote.Status))
	}
	if quote.Status == domain.StatusAwaitingPayment && quote.IsExpiredAt(now) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("quote %s has expired", publicID))
	}

	event := domain.NewQuoteEvent(domain.EventUserPaid, map[string]any{
		"tx_in_hash": txInHash,
	}, now)
	updated, applied, err := s.quoteRepo.MarkUserPaid(ctx, publicID, txInHash, now, event)
	if err != nil {
		s.LogError(ctx, err, "Failed to record user payment", slog.String("public_id", publicID))
		return nil, err
	}
	if !applied {
		return nil, apperrors.NewConflictError(fmt.Sprintf("quote %s changed state, retry", publicID))
	}

	s.recordTransition(quote.Status, updated.Status, triggerUserPaid)
	s.publish(updated)
	s.LogInfo(ctx, "User reported payment",
		slog.String("public_id", publicID),
		slog.String("status", string(updated.Status)))
	return updated, nil
}

func (s *quoteLifecycleService) ApplySettlementSignal(ctx context.Context, publicID string, req dto.SettlementSignalRequest) (*domain.Quote, error) {
	to := req.Status
	sources := domain.SettlementSources(to)
	if sources == nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("status %q cannot be signalled by settlement", to))
	}
	txIn, txOut := trimmedOrNil(req.TxInHash), trimmedOrNil(req.TxOutHash)
	if to == domain.StatusSuccess && txOut == nil {
		return nil, apperrors.NewValidationError("txOutHash is required for success")
	}

	quote, err := s.quoteRepo.FindQuoteByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if !domain.CanSettle(quote.Status, to) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("cannot move quote %s from %s to %s", publicID, quote.Status, to))
	}

	now := s.Now()
	payload := map[string]any{"to": string(to)}
	if txIn != nil {
		payload["tx_in_hash"] = *txIn
	}
	if txOut != nil {
		payload["tx_out_hash"] = *txOut
	}
	updated, applied, err := s.quoteRepo.ApplyTransition(ctx, portsrepo.QuoteTransition{
		PublicID:  publicID,
		To:        to,
		From:      sources,
		TxInHash:  txIn,
		TxOutHash: txOut,
		Now:       now,
		Event:     domain.NewQuoteEvent(domain.EventSettlementSignal, payload, now),
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to apply settlement signal", slog.String("public_id", publicID))
		return nil, err
	}
	if !applied {
		return nil, apperrors.NewConflictError(fmt.Sprintf("cannot move quote %s to %s from its current state", publicID, to))
	}

	s.recordTransition(quote.Status, updated.Status, triggerSettlement)
	s.publish(updated)
	s.LogInfo(ctx, "Settlement signal applied",
		slog.String("public_id", publicID),
		slog.String("from", string(quote.Status)),
		slog.String("to", string(to)))
	return updated, nil
}

func (s *quoteLifecycleService) SweepExpired(ctx context.Context) (int, error) {
	now := s.Now()
	event := domain.NewExpiredEvent(triggerSweep, now)
	expired, err := s.quoteRepo.ExpireOverdueQuotes(ctx, now, event)
	if err != nil {
		s.LogError(ctx, err, "Failed to sweep expired quotes")
		return 0, err
	}
	for i := range expired {
		s.metrics.QuoteTransition(string(domain.StatusExpired), triggerSweep)
		s.publish(&expired[i])
	}
	if len(expired) > 0 {
		s.LogInfo(ctx, "Expired overdue quotes", slog.Int("count", len(expired)))
	}
	return len(expired), nil
}

func (s *quoteLifecycleService) SetStatus(ctx context.Context, req dto.AdminSetStatusRequest, actor string) (*domain.Quote, error) {
	publicID := strings.TrimSpace(req.PublicID)
	if publicID == "" {
		return nil, apperrors.NewValidationError("publicId is required")
	}
	if !req.Status.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown status %q", req.Status))
	}
	txIn, txOut := trimmedOrNil(req.TxInHash), trimmedOrNil(req.TxOutHash)

	now := s.Now()
	payload := map[string]any{
		"to":    string(req.Status),
		"actor": actor,
	}
	if note := strings.TrimSpace(req.Note); note != "" {
		payload["note"] = note
	}
	if txIn != nil {
		payload["tx_in_hash"] = *txIn
	}
	if txOut != nil {
		payload["tx_out_hash"] = *txOut
	}

	event := domain.NewQuoteEvent(domain.EventAdminStatusOverride, payload, now)
	updated, prev, err := s.quoteRepo.OverrideStatus(ctx, publicID, req.Status, txIn, txOut, now, event)
	if err != nil {
		s.LogError(ctx, err, "Failed to override quote status", slog.String("public_id", publicID))
		return nil, err
	}

	s.GetLogger(ctx).Warn("Quote status overridden",
		slog.Bool("admin_override", true),
		slog.String("actor", actor),
		slog.String("public_id", publicID),
		slog.String("from", string(prev)),
		slog.String("to", string(req.Status)))
	s.recordTransition(prev, updated.Status, triggerAdmin)
	s.publish(updated)
	return updated, nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
