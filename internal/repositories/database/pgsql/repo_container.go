package pgsql

import (
	portsrepo "github.com/SscSPs/swap_exchange_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	quoteRepo := newPgxQuoteRepository(dbPool)
	priceSnapshotRepo := newPgxPriceSnapshotRepository(dbPool)

	return portsrepo.RepositoryProvider{
		QuoteRepo:         quoteRepo,
		PriceSnapshotRepo: priceSnapshotRepo,
	}
}
