package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/swap_exchange_app/internal/apperrors"
	"github.com/SscSPs/swap_exchange_app/internal/core/domain"
	portsrepo "github.com/SscSPs/swap_exchange_app/internal/core/ports/repositories"
	"github.com/SscSPs/swap_exchange_app/internal/models"
	"github.com/SscSPs/swap_exchange_app/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const quoteColumns = `
	quote_id, public_id, base_symbol, quote_symbol, chain,
	amount_in, rate, amount_out, deposit_address, payout_address,
	status, expires_at, tx_in_hash, tx_out_hash, created_at, updated_at`

// same list, qualified for UPDATE ... FROM statements
const quoteColumnsQ = `
	q.quote_id, q.public_id, q.base_symbol, q.quote_symbol, q.chain,
	q.amount_in, q.rate, q.amount_out, q.deposit_address, q.payout_address,
	q.status, q.expires_at, q.tx_in_hash, q.tx_out_hash, q.created_at, q.updated_at`

// PgxQuoteRepository implements portsrepo.QuoteRepositoryWithTx using pgxpool.
type PgxQuoteRepository struct {
	BaseRepository
}

// newPgxQuoteRepository creates a new PgxQuoteRepository.
func newPgxQuoteRepository(pool *pgxpool.Pool) *PgxQuoteRepository {
	return &PgxQuoteRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxQuoteRepository implements portsrepo.QuoteRepositoryWithTx
var _ portsrepo.QuoteRepositoryWithTx = (*PgxQuoteRepository)(nil)

func scanQuote(row pgx.Row, extra ...any) (*domain.Quote, error) {
	var m models.Quote
	dest := []any{
		&m.QuoteID, &m.PublicID, &m.BaseSymbol, &m.QuoteSymbol, &m.Chain,
		&m.AmountIn, &m.Rate, &m.AmountOut, &m.DepositAddress, &m.PayoutAddress,
		&m.Status, &m.ExpiresAt, &m.TxInHash, &m.TxOutHash, &m.CreatedAt, &m.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	q := mapping.ToDomainQuote(m)
	return &q, nil
}

func statusStrings(statuses []domain.QuoteStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func insertEvent(ctx context.Context, tx pgx.Tx, quote *domain.Quote, event domain.QuoteEvent) error {
	event.QuoteID = quote.ID
	event.PublicID = quote.PublicID
	m, err := mapping.ToModelQuoteEvent(event)
	if err != nil {
		return apperrors.NewStorageError("failed to encode quote event", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO quote_events (quote_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4)`,
		m.QuoteID, m.EventType, m.Payload, m.CreatedAt,
	)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to insert %s event", event.Type), err)
	}
	return nil
}

// CreateQuote inserts a new quote together with its CREATED event.
func (r *PgxQuoteRepository) CreateQuote(ctx context.Context, quote domain.Quote, event domain.QuoteEvent) error {
	m := mapping.ToModelQuote(quote)
	return r.WithinTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO quotes (`+quoteColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			m.QuoteID, m.PublicID, m.BaseSymbol, m.QuoteSymbol, m.Chain,
			m.AmountIn, m.Rate, m.AmountOut, m.DepositAddress, m.PayoutAddress,
			m.Status, m.ExpiresAt, m.TxInHash, m.TxOutHash, m.CreatedAt, m.UpdatedAt,
		)
		if err != nil {
			return apperrors.NewStorageError("failed to insert quote", err)
		}
		return insertEvent(ctx, tx, &quote, event)
	})
}

// FindQuoteByPublicID retrieves a quote by its client-facing identifier.
func (r *PgxQuoteRepository) FindQuoteByPublicID(ctx context.Context, publicID string) (*domain.Quote, error) {
	q, err := scanQuote(r.Pool.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE public_id = $1`, publicID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("quote " + publicID + " not found")
		}
		return nil, apperrors.NewStorageError("failed to get quote by public id", err)
	}
	return q, nil
}

// ListRecentQuotes returns quotes newest first, starting after the cursor when given.
func (r *PgxQuoteRepository) ListRecentQuotes(ctx context.Context, limit int, after *portsrepo.QuoteCursor) ([]domain.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes`
	args := []interface{}{}
	argNum := 1

	if after != nil {
		query += fmt.Sprintf(" WHERE (created_at, public_id) < ($%d, $%d)", argNum, argNum+1)
		args = append(args, after.CreatedAt, after.PublicID)
		argNum += 2
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, public_id DESC LIMIT $%d", argNum)
	args = append(args, limit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list quotes", err)
	}
	defer rows.Close()

	quotes := []domain.Quote{}
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, apperrors.NewStorageError("failed to scan quote", err)
		}
		quotes = append(quotes, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("error iterating quotes", err)
	}
	return quotes, nil
}

// ListQuoteEvents returns the events of a quote in ascending time order.
func (r *PgxQuoteRepository) ListQuoteEvents(ctx context.Context, publicID string) ([]domain.QuoteEvent, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT e.event_id, e.quote_id, q.public_id, e.event_type, e.payload, e.created_at
		FROM quote_events e
		JOIN quotes q ON q.quote_id = e.quote_id
		WHERE q.public_id = $1
		ORDER BY e.created_at ASC, e.event_id ASC`, publicID)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list quote events", err)
	}
	defer rows.Close()

	events := []domain.QuoteEvent{}
	for rows.Next() {
		var m models.QuoteEvent
		if err := rows.Scan(&m.EventID, &m.QuoteID, &m.PublicID, &m.EventType, &m.Payload, &m.CreatedAt); err != nil {
			return nil, apperrors.NewStorageError("failed to scan quote event", err)
		}
		ev, err := mapping.ToDomainQuoteEvent(m)
		if err != nil {
			return nil, apperrors.NewStorageError("failed to decode quote event", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("error iterating quote events", err)
	}
	return events, nil
}

// conditionalUpdate runs an UPDATE ... RETURNING inside a transaction and, when a row
// changed, appends event for it. A missing row is reported as applied=false.
func (r *PgxQuoteRepository) conditionalUpdate(
	ctx context.Context,
	op string,
	event domain.QuoteEvent,
	query string,
	args ...any,
) (*domain.Quote, bool, error) {
	var updated *domain.Quote
	err := r.WithinTx(ctx, func(tx pgx.Tx) error {
		q, err := scanQuote(tx.QueryRow(ctx, query, args...))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return apperrors.NewStorageError("failed to "+op, err)
		}
		updated = q
		return insertEvent(ctx, tx, q, event)
	})
	if err != nil {
		return nil, false, err
	}
	return updated, updated != nil, nil
}

// AttachPayoutAddress sets the payout address only while it is null and the quote is open.
func (r *PgxQuoteRepository) AttachPayoutAddress(ctx context.Context, publicID, address string, now time.Time, event domain.QuoteEvent) (*domain.Quote, bool, error) {
	return r.conditionalUpdate(ctx, "attach payout address", event, `
		UPDATE quotes
		SET payout_address = $2, updated_at = $3
		WHERE public_id = $1
		  AND payout_address IS NULL
		  AND status = ANY($4)
		  AND expires_at > $3
		RETURNING `+quoteColumns,
		publicID, address, now, statusStrings(domain.NonTerminalStatuses()),
	)
}

// MarkUserPaid records txInHash (last write wins) and advances awaiting_payment to awaiting_review.
// An awaiting_payment quote past its window is left untouched.
func (r *PgxQuoteRepository) MarkUserPaid(ctx context.Context, publicID, txInHash string, now time.Time, event domain.QuoteEvent) (*domain.Quote, bool, error) {
	return r.conditionalUpdate(ctx, "mark quote paid", event, `
		UPDATE quotes
		SET tx_in_hash = $2,
		    status = CASE WHEN status = $5 THEN $6 ELSE status END,
		    updated_at = $3
		WHERE public_id = $1
		  AND status = ANY($4)
		  AND (status <> $5 OR expires_at > $3)
		RETURNING `+quoteColumns,
		publicID, txInHash, now, statusStrings(domain.NonTerminalStatuses()),
		string(domain.StatusAwaitingPayment), string(domain.StatusAwaitingReview),
	)
}

// ApplyTransition moves a quote to t.To when its current status is one of t.From.
// The event payload receives the previous status under "from".
func (r *PgxQuoteRepository) ApplyTransition(ctx context.Context, t portsrepo.QuoteTransition) (*domain.Quote, bool, error) {
	var updated *domain.Quote
	err := r.WithinTx(ctx, func(tx pgx.Tx) error {
		var prev string
		q, err := scanQuote(tx.QueryRow(ctx, `
			WITH prev AS (
				SELECT quote_id, status FROM quotes WHERE public_id = $1 FOR UPDATE
			)
			UPDATE quotes q
			SET status = $2,
			    tx_in_hash = COALESCE($3, q.tx_in_hash),
			    tx_out_hash = COALESCE($4, q.tx_out_hash),
			    updated_at = $5
			FROM prev
			WHERE q.quote_id = prev.quote_id
			  AND prev.status = ANY($6)
			RETURNING `+quoteColumnsQ+`, prev.status`,
			t.PublicID, string(t.To), t.TxInHash, t.TxOutHash, t.Now, statusStrings(t.From),
		), &prev)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return apperrors.NewStorageError("failed to apply quote transition", err)
		}
		updated = q
		event := t.Event
		if event.Payload == nil {
			event.Payload = map[string]any{}
		}
		event.Payload["from"] = prev
		return insertEvent(ctx, tx, q, event)
	})
	if err != nil {
		return nil, false, err
	}
	return updated, updated != nil, nil
}

// OverrideStatus sets the status unconditionally and returns the previous status.
func (r *PgxQuoteRepository) OverrideStatus(
	ctx context.Context,
	publicID string,
	status domain.QuoteStatus,
	txInHash, txOutHash *string,
	now time.Time,
	event domain.QuoteEvent,
) (*domain.Quote, domain.QuoteStatus, error) {
	var (
		updated *domain.Quote
		prev    string
	)
	err := r.WithinTx(ctx, func(tx pgx.Tx) error {
		q, err := scanQuote(tx.QueryRow(ctx, `
			WITH prev AS (
				SELECT quote_id, status FROM quotes WHERE public_id = $1 FOR UPDATE
			)
			UPDATE quotes q
			SET status = $2,
			    tx_in_hash = COALESCE($3, q.tx_in_hash),
			    tx_out_hash = COALESCE($4, q.tx_out_hash),
			    updated_at = $5
			FROM prev
			WHERE q.quote_id = prev.quote_id
			RETURNING `+quoteColumnsQ+`, prev.status`,
			publicID, string(status), txInHash, txOutHash, now,
		), &prev)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFoundError("quote " + publicID + " not found")
			}
			return apperrors.NewStorageError("failed to override quote status", err)
		}
		updated = q
		if event.Payload == nil {
			event.Payload = map[string]any{}
		}
		event.Payload["from"] = prev
		return insertEvent(ctx, tx, q, event)
	})
	if err != nil {
		return nil, "", err
	}
	return updated, domain.QuoteStatus(prev), nil
}

// ExpireQuote expires a single quote if it is non-terminal and overdue.
func (r *PgxQuoteRepository) ExpireQuote(ctx context.Context, publicID string, now time.Time, event domain.QuoteEvent) (*domain.Quote, bool, error) {
	return r.conditionalUpdate(ctx, "expire quote", event, `
		UPDATE quotes
		SET status = $2, updated_at = $3
		WHERE public_id = $1
		  AND status = ANY($4)
		  AND expires_at < $3
		RETURNING `+quoteColumns,
		publicID, string(domain.StatusExpired), now, statusStrings(domain.NonTerminalStatuses()),
	)
}

// ExpireOverdueQuotes expires every non-terminal overdue quote in one statement and
// writes one event per expired row. Rows already expired are excluded by the status filter.
func (r *PgxQuoteRepository) ExpireOverdueQuotes(ctx context.Context, now time.Time, event domain.QuoteEvent) ([]domain.Quote, error) {
	expired := []domain.Quote{}
	err := r.WithinTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			UPDATE quotes
			SET status = $1, updated_at = $2
			WHERE status = ANY($3)
			  AND expires_at < $2
			RETURNING `+quoteColumns,
			string(domain.StatusExpired), now, statusStrings(domain.NonTerminalStatuses()),
		)
		if err != nil {
			return apperrors.NewStorageError("failed to expire overdue quotes", err)
		}
		for rows.Next() {
			q, err := scanQuote(rows)
			if err != nil {
				rows.Close()
				return apperrors.NewStorageError("failed to scan expired quote", err)
			}
			expired = append(expired, *q)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return apperrors.NewStorageError("error iterating expired quotes", err)
		}
		if len(expired) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for i := range expired {
			ev := event
			ev.QuoteID = expired[i].ID
			ev.PublicID = expired[i].PublicID
			m, err := mapping.ToModelQuoteEvent(ev)
			if err != nil {
				return apperrors.NewStorageError("failed to encode expiry event", err)
			}
			batch.Queue(`
				INSERT INTO quote_events (quote_id, event_type, payload, created_at)
				VALUES ($1, $2, $3, $4)`,
				m.QuoteID, m.EventType, m.Payload, m.CreatedAt,
			)
		}
		br := tx.SendBatch(ctx, batch)
		for range expired {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return apperrors.NewStorageError("failed to insert expiry event", err)
			}
		}
		if err := br.Close(); err != nil {
			return apperrors.NewStorageError("failed to close expiry event batch", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}
