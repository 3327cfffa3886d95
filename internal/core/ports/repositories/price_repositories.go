package repositories

import (
	"context"

	"github.com/SscSPs/swap_exchange_app/internal/core/domain"
)

// PriceSnapshotReader defines read operations for persisted price snapshots
type PriceSnapshotReader interface {
	// FindLatestPriceSnapshot returns the newest snapshot from source.
	FindLatestPriceSnapshot(ctx context.Context, source string) (*domain.PriceSnapshot, error)
}

// PriceSnapshotWriter defines write operations for persisted price snapshots
type PriceSnapshotWriter interface {
	// SavePriceSnapshot appends a snapshot.
	SavePriceSnapshot(ctx context.Context, snapshot domain.PriceSnapshot) error
}

// PriceSnapshotRepositoryFacade combines price snapshot repository interfaces
type PriceSnapshotRepositoryFacade interface {
	PriceSnapshotReader
	PriceSnapshotWriter
}
