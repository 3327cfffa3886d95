package services_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/swap_exchange_app/internal/apperrors"
	"github.com/SscSPs/swap_exchange_app/internal/core/domain"
	portsrepo "github.com/SscSPs/swap_exchange_app/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Clock ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- In-memory quote repository ---
// Mirrors the conditional updates of the Postgres repository.

type memQuoteRepo struct {
	mu          sync.Mutex
	quotes      map[string]domain.Quote
	events      []domain.QuoteEvent
	nextEventID int64
	createErr   error
}

func newMemQuoteRepo() *memQuoteRepo {
	return &memQuoteRepo{quotes: make(map[string]domain.Quote)}
}

var _ portsrepo.QuoteRepositoryFacade = (*memQuoteRepo)(nil)

func (r *memQuoteRepo) appendEvent(q domain.Quote, ev domain.QuoteEvent) {
	r.nextEventID++
	ev.ID = r.nextEventID
	ev.QuoteID = q.ID
	ev.PublicID = q.PublicID
	r.events = append(r.events, ev)
}

func (r *memQuoteRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.quotes)
}

func (r *memQuoteRepo) eventsOf(publicID string, typ domain.QuoteEventType) []domain.QuoteEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.QuoteEvent
	for _, ev := range r.events {
		if ev.PublicID == publicID && (typ == "" || ev.Type == typ) {
			out = append(out, ev)
		}
	}
	return out
}

func (r *memQuoteRepo) put(q domain.Quote) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quotes[q.PublicID] = q
}

func (r *memQuoteRepo) CreateQuote(ctx context.Context, quote domain.Quote, event domain.QuoteEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, exists := r.quotes[quote.PublicID]; exists {
		return apperrors.NewAppError(409, "duplicate public id", nil)
	}
	r.quotes[quote.PublicID] = quote
	r.appendEvent(quote, event)
	return nil
}

func (r *memQuoteRepo) FindQuoteByPublicID(ctx context.Context, publicID string) (*domain.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotes[publicID]
	if !ok {
		return nil, apperrors.NewNotFoundError("quote " + publicID + " not found")
	}
	return &q, nil
}

func (r *memQuoteRepo) ListRecentQuotes(ctx context.Context, limit int, after *portsrepo.QuoteCursor) ([]domain.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]domain.Quote, 0, len(r.quotes))
	for _, q := range r.quotes {
		all = append(all, q)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].PublicID > all[j].PublicID
	})
	out := []domain.Quote{}
	for _, q := range all {
		if after != nil {
			older := q.CreatedAt.Before(after.CreatedAt) ||
				(q.CreatedAt.Equal(after.CreatedAt) && q.PublicID < after.PublicID)
			if !older {
				continue
			}
		}
		out = append(out, q)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memQuoteRepo) ListQuoteEvents(ctx context.Context, publicID string) ([]domain.QuoteEvent, error) {
	return r.eventsOf(publicID, ""), nil
}

func isOneOf(s domain.QuoteStatus, set []domain.QuoteStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func (r *memQuoteRepo) AttachPayoutAddress(ctx context.Context, publicID, address string, now time.Time, event domain.QuoteEvent) (*domain.Quote, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotes[publicID]
	if !ok || q.PayoutAddress != nil || q.Status.IsTerminal() || !q.ExpiresAt.After(now) {
		return nil, false, nil
	}
	q.PayoutAddress = &address
	q.UpdatedAt = now
	r.quotes[publicID] = q
	r.appendEvent(q, event)
	return &q, true, nil
}

func (r *memQuoteRepo) MarkUserPaid(ctx context.Context, publicID, txInHash string, now time.Time, event domain.QuoteEvent) (*domain.Quote, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotes[publicID]
	if !ok || q.Status.IsTerminal() {
		return nil, false, nil
	}
	if q.Status == domain.StatusAwaitingPayment {
		if !q.ExpiresAt.After(now) {
			return nil, false, nil
		}
		q.Status = domain.StatusAwaitingReview
	}
	q.TxInHash = &txInHash
	q.UpdatedAt = now
	r.quotes[publicID] = q
	r.appendEvent(q, event)
	return &q, true, nil
}

func (r *memQuoteRepo) ApplyTransition(ctx context.Context, t portsrepo.QuoteTransition) (*domain.Quote, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotes[t.PublicID]
	if !ok || !isOneOf(q.Status, t.From) {
		return nil, false, nil
	}
	prev := q.Status
	q.Status = t.To
	if t.TxInHash != nil {
		q.TxInHash = t.TxInHash
	}
	if t.TxOutHash != nil {
		q.TxOutHash = t.TxOutHash
	}
	q.UpdatedAt = t.Now
	r.quotes[t.PublicID] = q
	ev := t.Event
	ev.Payload["from"] = string(prev)
	r.appendEvent(q, ev)
	return &q, true, nil
}

func (r *memQuoteRepo) OverrideStatus(ctx context.Context, publicID string, status domain.QuoteStatus, txInHash, txOutHash *string, now time.Time, event domain.QuoteEvent) (*domain.Quote, domain.QuoteStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotes[publicID]
	if !ok {
		return nil, "", apperrors.NewNotFoundError("quote " + publicID + " not found")
	}
	prev := q.Status
	q.Status = status
	if txInHash != nil {
		q.TxInHash = txInHash
	}
	if txOutHash != nil {
		q.TxOutHash = txOutHash
	}
	q.UpdatedAt = now
	r.quotes[publicID] = q
	event.Payload["from"] = string(prev)
	r.appendEvent(q, event)
	return &q, prev, nil
}

func (r *memQuoteRepo) ExpireQuote(ctx context.Context, publicID string, now time.Time, event domain.QuoteEvent) (*domain.Quote, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotes[publicID]
	if !ok || !q.NeedsExpiry(now) {
		return nil, false, nil
	}
	q.Status = domain.StatusExpired
	q.UpdatedAt = now
	r.quotes[publicID] = q
	r.appendEvent(q, event)
	return &q, true, nil
}

func (r *memQuoteRepo) ExpireOverdueQuotes(ctx context.Context, now time.Time, event domain.QuoteEvent) ([]domain.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	expired := []domain.Quote{}
	for id, q := range r.quotes {
		if !q.NeedsExpiry(now) {
			continue
		}
		q.Status = domain.StatusExpired
		q.UpdatedAt = now
		r.quotes[id] = q
		r.appendEvent(q, event)
		expired = append(expired, q)
	}
	return expired, nil
}

// --- Price service stub ---

type MockPriceSvc struct {
	mock.Mock
}

func (m *MockPriceSvc) GetPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]decimal.Decimal), args.Error(1)
}

func (m *MockPriceSvc) Refresh(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- Price feed fake ---

type fakeFeed struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	err    error
	calls  [][]string
}

func (f *fakeFeed) Name() string { return "fake" }

func (f *fakeFeed) Fetch(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), ids...))
	if f.err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPriceFeedUnavailable, f.err)
	}
	out := make(map[string]decimal.Decimal)
	for _, id := range ids {
		if p, ok := f.prices[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeFeed) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeFeed) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// --- Snapshot repository mock ---

type MockPriceSnapshotRepository struct {
	mock.Mock
}

func (m *MockPriceSnapshotRepository) FindLatestPriceSnapshot(ctx context.Context, source string) (*domain.PriceSnapshot, error) {
	args := m.Called(ctx, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PriceSnapshot), args.Error(1)
}

func (m *MockPriceSnapshotRepository) SavePriceSnapshot(ctx context.Context, snapshot domain.PriceSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string { return &s }
