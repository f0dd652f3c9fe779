package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"signal-advisor/internal/engine"
)

const signalsSchema = `
CREATE TABLE IF NOT EXISTS signals (
	id          TEXT PRIMARY KEY,
	symbol      TEXT NOT NULL,
	interval    TEXT NOT NULL,
	direction   TEXT NOT NULL,
	strength    TEXT NOT NULL,
	confidence  DOUBLE PRECISION NOT NULL,
	entry_price DOUBLE PRECISION NOT NULL,
	stop_loss   DOUBLE PRECISION NOT NULL,
	take_profit DOUBLE PRECISION NOT NULL,
	reasons     TEXT[] NOT NULL DEFAULT '{}',
	status      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_symbol_created ON signals (symbol, created_at DESC);
`

// Repository persists emitted signals to Postgres. It is an audit log for
// the in-memory registry, not a source of truth: the engine never reads it
// on the decision path.
type Repository struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewRepository connects to Postgres and ensures the schema exists.
func NewRepository(ctx context.Context, url string, log zerolog.Logger) (*Repository, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, signalsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure signals schema: %w", err)
	}

	return &Repository{
		pool: pool,
		log:  log.With().Str("component", "repository").Logger(),
	}, nil
}

// SaveSignal inserts an emitted signal, updating status fields on conflict
// so that status transitions replayed after a reconnect are not lost.
func (r *Repository) SaveSignal(ctx context.Context, sig engine.Signal) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO signals (id, symbol, interval, direction, strength, confidence,
			entry_price, stop_loss, take_profit, reasons, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET status = $11, updated_at = $13`,
		sig.ID, sig.Symbol, sig.Interval, sig.Direction, sig.Strength, sig.Confidence,
		sig.EntryPrice, sig.StopLoss, sig.TakeProfit, sig.Reasons, sig.Status, sig.CreatedAt, sig.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save signal %s: %w", sig.ID, err)
	}
	return nil
}

// UpdateStatus records a lifecycle transition.
func (r *Repository) UpdateStatus(ctx context.Context, id, status string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE signals SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, at,
	)
	if err != nil {
		return fmt.Errorf("update signal %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update signal %s: not found", id)
	}
	return nil
}

// RecentSignals returns the newest persisted signals for a symbol. An empty
// symbol returns across all symbols.
func (r *Repository) RecentSignals(ctx context.Context, symbol string, limit int) ([]engine.Signal, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, symbol, interval, direction, strength, confidence,
		entry_price, stop_loss, take_profit, reasons, status, created_at, updated_at
		FROM signals`
	args := []interface{}{}
	if symbol != "" {
		query += ` WHERE symbol = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, symbol, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []engine.Signal
	for rows.Next() {
		var sig engine.Signal
		if err := rows.Scan(&sig.ID, &sig.Symbol, &sig.Interval, &sig.Direction, &sig.Strength,
			&sig.Confidence, &sig.EntryPrice, &sig.StopLoss, &sig.TakeProfit, &sig.Reasons,
			&sig.Status, &sig.CreatedAt, &sig.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}
