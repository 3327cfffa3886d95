package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SscSPs/swap_exchange_app/internal/apperrors"
	"github.com/SscSPs/swap_exchange_app/internal/core/domain"
	portsrepo "github.com/SscSPs/swap_exchange_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/swap_exchange_app/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

const (
	DefaultPriceTTL      = 60 * time.Second
	DefaultPriceMaxStale = 15 * time.Minute
)

// PriceCacheConfig bounds how long snapshots are served.
type PriceCacheConfig struct {
	TTL      time.Duration
	MaxStale time.Duration
	// Universe is always included in upstream fetches.
	Universe []string
}

// priceService serves prices from an in-memory snapshot and refreshes it from the feed.
type priceService struct {
	BaseService
	feed     portssvc.PriceFeed
	repo     portsrepo.PriceSnapshotRepositoryFacade
	ttl      time.Duration
	maxStale time.Duration
	universe []string

	mu       sync.RWMutex
	snapshot *domain.PriceSnapshot
	// queried holds the ids asked of the feed for snapshot; an id here but
	// absent from the prices was reported unknown.
	queried map[string]struct{}

	// refreshMu serialises upstream fetches.
	refreshMu sync.Mutex
}

// NewPriceService creates the price cache.
func NewPriceService(feed portssvc.PriceFeed, repo portsrepo.PriceSnapshotRepositoryFacade, cfg PriceCacheConfig, options ...ServiceOption) portssvc.PriceSvc {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultPriceTTL
	}
	if cfg.MaxStale < cfg.TTL {
		cfg.MaxStale = cfg.TTL
	}
	return &priceService{
		BaseService: newBaseService(options),
		feed:        feed,
		repo:        repo,
		ttl:         cfg.TTL,
		maxStale:    cfg.MaxStale,
		universe:    normalizePriceIDs(cfg.Universe),
	}
}

var _ portssvc.PriceSvc = (*priceService)(nil)

func (s *priceService) GetPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	ids = normalizePriceIDs(ids)
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("at least one price id is required")
	}

	if prices, ok := s.fromCache(ids, s.Now()); ok {
		return prices, nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// Another caller may have refreshed while we waited.
	now := s.Now()
	if prices, ok := s.fromCache(ids, now); ok {
		return prices, nil
	}

	persisted := s.loadPersisted(ctx)
	if persisted != nil && persisted.Age(now) < s.ttl && persisted.Covers(ids) {
		s.install(persisted, keysOf(persisted.Prices))
		s.LogDebug(ctx, "Serving persisted price snapshot", slog.Time("fetched_at", persisted.FetchedAt))
		return persisted.Subset(ids), nil
	}

	snap, err := s.fetch(ctx, union(ids, s.universe), now)
	if err != nil {
		if stale := s.staleFallback(persisted, now); stale != nil {
			s.GetLogger(ctx).Warn("Price feed failed, serving stale snapshot",
				slog.String("error", err.Error()),
				slog.Duration("age", stale.Age(now)))
			return stale.Subset(ids), nil
		}
		return nil, err
	}
	return snap.Subset(ids), nil
}

func (s *priceService) Refresh(ctx context.Context) error {
	if len(s.universe) == 0 {
		return nil
	}
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	_, err := s.fetch(ctx, s.universe, s.Now())
	return err
}

func (s *priceService) fromCache(ids []string, now time.Time) (map[string]decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil || s.snapshot.Age(now) >= s.ttl {
		return nil, false
	}
	for _, id := range ids {
		if _, ok := s.snapshot.Prices[id]; ok {
			continue
		}
		if _, asked := s.queried[id]; !asked {
			return nil, false
		}
	}
	return s.snapshot.Subset(ids), true
}

// fetch calls the feed, installs and persists the result. Must hold refreshMu.
func (s *priceService) fetch(ctx context.Context, ids []string, now time.Time) (*domain.PriceSnapshot, error) {
	prices, err := s.feed.Fetch(ctx, ids)
	if err != nil {
		s.metrics.PriceFetch(s.feed.Name(), "error")
		s.LogError(ctx, err, "Price feed fetch failed", slog.Int("ids", len(ids)))
		return nil, apperrors.NewPriceFeedError("price feed unavailable", err)
	}
	s.metrics.PriceFetch(s.feed.Name(), "ok")

	snap := &domain.PriceSnapshot{Prices: prices, FetchedAt: now, Source: s.feed.Name()}
	queried := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		queried[id] = struct{}{}
	}
	s.install(snap, queried)

	if s.repo != nil {
		if err := s.repo.SavePriceSnapshot(ctx, *snap); err != nil {
			s.LogError(ctx, err, "Failed to persist price snapshot")
		}
	}
	return snap, nil
}

func (s *priceService) install(snap *domain.PriceSnapshot, queried map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	s.queried = queried
}

func (s *priceService) loadPersisted(ctx context.Context) *domain.PriceSnapshot {
	if s.repo == nil {
		return nil
	}
	snap, err := s.repo.FindLatestPriceSnapshot(ctx, s.feed.Name())
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to load persisted price snapshot")
		}
		return nil
	}
	return snap
}

// staleFallback picks the newest known snapshot still inside the max-stale window.
func (s *priceService) staleFallback(persisted *domain.PriceSnapshot, now time.Time) *domain.PriceSnapshot {
	s.mu.RLock()
	best := s.snapshot
	s.mu.RUnlock()

	if persisted != nil && (best == nil || persisted.FetchedAt.After(best.FetchedAt)) {
		best = persisted
	}
	if best == nil || best.Age(now) >= s.maxStale {
		return nil
	}
	return best
}

func normalizePriceIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func union(a, b []string) []string {
	return normalizePriceIDs(append(append([]string{}, a...), b...))
}

func keysOf(m map[string]decimal.Decimal) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}
