package pgsql

import (
	"context"
	"errors"

	"github.com/SscSPs/swap_exchange_app/internal/apperrors"
	"github.com/SscSPs/swap_exchange_app/internal/core/domain"
	portsrepo "github.com/SscSPs/swap_exchange_app/internal/core/ports/repositories"
	"github.com/SscSPs/swap_exchange_app/internal/models"
	"github.com/SscSPs/swap_exchange_app/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPriceSnapshotRepository persists price feed snapshots.
type PgxPriceSnapshotRepository struct {
	BaseRepository
}

func newPgxPriceSnapshotRepository(pool *pgxpool.Pool) *PgxPriceSnapshotRepository {
	return &PgxPriceSnapshotRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.PriceSnapshotRepositoryFacade = (*PgxPriceSnapshotRepository)(nil)

// SavePriceSnapshot appends a snapshot row.
func (r *PgxPriceSnapshotRepository) SavePriceSnapshot(ctx context.Context, snapshot domain.PriceSnapshot) error {
	m, err := mapping.ToModelPriceSnapshot(snapshot)
	if err != nil {
		return apperrors.NewStorageError("failed to encode price snapshot", err)
	}
	_, err = r.Pool.Exec(ctx, `
		INSERT INTO price_snapshots (source, payload, fetched_at)
		VALUES ($1, $2, $3)`,
		m.Source, m.Payload, m.FetchedAt,
	)
	if err != nil {
		return apperrors.NewStorageError("failed to insert price snapshot", err)
	}
	return nil
}

// FindLatestPriceSnapshot returns the newest snapshot recorded for source.
func (r *PgxPriceSnapshotRepository) FindLatestPriceSnapshot(ctx context.Context, source string) (*domain.PriceSnapshot, error) {
	var m models.PriceSnapshot
	err := r.Pool.QueryRow(ctx, `
		SELECT snapshot_id, source, payload, fetched_at
		FROM price_snapshots
		WHERE source = $1
		ORDER BY fetched_at DESC
		LIMIT 1`, source,
	).Scan(&m.SnapshotID, &m.Source, &m.Payload, &m.FetchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("no price snapshot for source " + source)
		}
		return nil, apperrors.NewStorageError("failed to get latest price snapshot", err)
	}
	snap, err := mapping.ToDomainPriceSnapshot(m)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to decode price snapshot", err)
	}
	return &snap, nil
}
