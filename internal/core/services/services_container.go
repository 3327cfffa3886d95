package services

import (
	"github.com/SscSPs/swap_exchange_app/internal/core/domain"
	portsrepo "github.com/SscSPs/swap_exchange_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/swap_exchange_app/internal/core/ports/services"
	"github.com/SscSPs/swap_exchange_app/internal/platform/config"
	"github.com/SscSPs/swap_exchange_app/internal/platform/metrics"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(
	cfg *config.Config,
	repos portsrepo.RepositoryProvider,
	feed portssvc.PriceFeed,
	hub *QuoteHub,
	m *metrics.Metrics,
	options ...ServiceOption,
) *portssvc.ServiceContainer {
	catalog := domain.NewAssetCatalog(cfg.PriceIDs, cfg.DepositAddresses)
	// Every service shares the clock, the metrics and the hub.
	opts := append([]ServiceOption{WithMetrics(m), WithNotifier(hub)}, options...)

	container := &portssvc.ServiceContainer{Notifier: hub}
	container.Price = NewPriceService(feed, repos.PriceSnapshotRepo, PriceCacheConfig{
		TTL:      cfg.PriceCacheTTL,
		MaxStale: cfg.PriceCacheMaxStale,
		Universe: catalog.PriceIDs(),
	}, opts...)
	container.Quote = NewQuoteService(repos.QuoteRepo, container.Price, catalog, cfg.QuoteValidity, opts...)
	container.Lifecycle = NewQuoteLifecycleService(repos.QuoteRepo, opts...)
	container.Query = NewQuoteQueryService(repos.QuoteRepo, opts...)

	return container
}
