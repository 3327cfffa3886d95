package pgsql

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// QuoteChangeChannel is the NOTIFY channel fed by the quotes table trigger.
const QuoteChangeChannel = "quote_changes"

const (
	listenMinBackoff = time.Second
	listenMaxBackoff = 30 * time.Second
)

// QuoteChangeListener relays quote_changes notifications from Postgres. Each
// notification carries the public id of the quote that changed.
type QuoteChangeListener struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewQuoteChangeListener creates a listener on pool.
func NewQuoteChangeListener(pool *pgxpool.Pool, logger *slog.Logger) *QuoteChangeListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuoteChangeListener{pool: pool, logger: logger.With("component", "quote_listener")}
}

// Run blocks until ctx is cancelled, calling onChange for every notification.
// Lost connections are re-established with exponential backoff.
func (l *QuoteChangeListener) Run(ctx context.Context, onChange func(ctx context.Context, publicID string)) {
	backoff := listenMinBackoff
	for {
		err := l.listen(ctx, onChange, func() { backoff = listenMinBackoff })
		if ctx.Err() != nil {
			return
		}
		l.logger.Warn("Quote change listener disconnected, retrying", "error", err, "backoff", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > listenMaxBackoff {
			backoff = listenMaxBackoff
		}
	}
}

func (l *QuoteChangeListener) listen(ctx context.Context, onChange func(context.Context, string), connected func()) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+QuoteChangeChannel); err != nil {
		return err
	}
	connected()
	l.logger.Info("Listening for quote changes", "channel", QuoteChangeChannel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if n.Payload == "" {
			continue
		}
		onChange(ctx, n.Payload)
	}
}
