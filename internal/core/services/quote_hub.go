package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/SscSPs/swap_exchange_app/internal/core/domain"
	portsrepo "github.com/SscSPs/swap_exchange_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/swap_exchange_app/internal/core/ports/services"
	"github.com/SscSPs/swap_exchange_app/internal/platform/metrics"
)

// subscriberBuffer is how many undelivered updates a subscriber may lag by
// before further updates are dropped.
const subscriberBuffer = 8

type subscriber struct {
	updates  chan domain.Quote
	done     chan struct{}
	onChange func(domain.Quote)
}

// QuoteHub fans persisted quote changes out to per-quote subscribers.
// Delivery is asynchronous and best effort.
type QuoteHub struct {
	mu      sync.RWMutex
	subs    map[string]map[uint64]*subscriber
	nextID  uint64
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewQuoteHub creates an empty hub.
func NewQuoteHub(m *metrics.Metrics, logger *slog.Logger) *QuoteHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuoteHub{
		subs:    make(map[string]map[uint64]*subscriber),
		metrics: m,
		logger:  logger.With("component", "quote_hub"),
	}
}

var _ portssvc.QuoteNotifier = (*QuoteHub)(nil)

// Subscribe registers onChange for publicID and returns an idempotent unsubscribe.
func (h *QuoteHub) Subscribe(publicID string, onChange func(domain.Quote)) func() {
	sub := &subscriber{
		updates:  make(chan domain.Quote, subscriberBuffer),
		done:     make(chan struct{}),
		onChange: onChange,
	}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[publicID] == nil {
		h.subs[publicID] = make(map[uint64]*subscriber)
	}
	h.subs[publicID][id] = sub
	h.mu.Unlock()
	h.metrics.AddSubscribers(1)

	go h.deliver(publicID, sub)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[publicID], id)
			if len(h.subs[publicID]) == 0 {
				delete(h.subs, publicID)
			}
			h.mu.Unlock()
			close(sub.done)
			h.metrics.AddSubscribers(-1)
		})
	}
}

// Publish queues quote for every subscriber of its public id. Full queues drop the update.
func (h *QuoteHub) Publish(quote domain.Quote) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs[quote.PublicID] {
		select {
		case sub.updates <- quote:
		default:
			h.logger.Debug("Dropping update for slow subscriber", "public_id", quote.PublicID)
		}
	}
}

// HasSubscribers reports whether anyone listens on publicID.
func (h *QuoteHub) HasSubscribers(publicID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[publicID]) > 0
}

// RelayFrom returns a change handler that re-reads the quote and publishes it.
// It feeds database notifications, which carry only the public id, into the hub.
func (h *QuoteHub) RelayFrom(reader portsrepo.QuoteReader) func(ctx context.Context, publicID string) {
	return func(ctx context.Context, publicID string) {
		if !h.HasSubscribers(publicID) {
			return
		}
		q, err := reader.FindQuoteByPublicID(ctx, publicID)
		if err != nil {
			h.logger.Warn("Failed to load changed quote", "public_id", publicID, "error", err)
			return
		}
		h.Publish(*q)
	}
}

func (h *QuoteHub) deliver(publicID string, sub *subscriber) {
	var lastSeen time.Time
	for {
		select {
		case <-sub.done:
			return
		case q := <-sub.updates:
			// The same write can arrive both in-process and via the database.
			if !lastSeen.IsZero() && !q.UpdatedAt.After(lastSeen) {
				continue
			}
			lastSeen = q.UpdatedAt
			h.invoke(publicID, sub, q)
		}
	}
}

func (h *QuoteHub) invoke(publicID string, sub *subscriber, q domain.Quote) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Quote subscriber panicked", "public_id", publicID, "panic", r)
		}
	}()
	sub.onChange(q)
}
