package postgres

import (
	"context"
	"fmt"

	"order-sync-gateway/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Pool is the subset of *pgxpool.Pool the repositories use. pgxmock's pool
// satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// NewPool creates a PostgreSQL connection pool using pgx.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("dbname", cfg.DBName).
		Int32("max_conns", cfg.MaxConns).
		Msg("PostgreSQL connection pool established")

	return pool, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sync_records (
		id                   UUID PRIMARY KEY,
		order_id             TEXT NOT NULL UNIQUE,
		fulfillment_order_id TEXT UNIQUE,
		provider_status      TEXT,
		status               TEXT NOT NULL,
		attempt              INTEGER NOT NULL,
		tracking_attempts    INTEGER NOT NULL DEFAULT 0,
		version              BIGINT NOT NULL,
		order_data           JSONB NOT NULL,
		tracking             JSONB,
		last_error           JSONB,
		transitions          JSONB NOT NULL,
		created_at           TIMESTAMPTZ NOT NULL,
		updated_at           TIMESTAMPTZ NOT NULL
	)`,
	`ALTER TABLE sync_records ADD COLUMN IF NOT EXISTS tracking_attempts INTEGER NOT NULL DEFAULT 0`,
	`CREATE INDEX IF NOT EXISTS idx_sync_records_status_updated ON sync_records (status, updated_at)`,
	`CREATE TABLE IF NOT EXISTS webhook_subscriptions (
		id          UUID PRIMARY KEY,
		url         TEXT NOT NULL,
		secret      TEXT NOT NULL,
		event_kinds TEXT[] NOT NULL DEFAULT '{}',
		active      BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS webhook_delivery_logs (
		id              UUID PRIMARY KEY,
		event_id        UUID NOT NULL,
		event_kind      TEXT NOT NULL,
		subscription_id UUID NOT NULL,
		order_id        TEXT NOT NULL,
		webhook_url     TEXT NOT NULL,
		payload         TEXT NOT NULL,
		http_status     INTEGER,
		attempt         INTEGER NOT NULL,
		status          TEXT NOT NULL,
		next_retry_at   TIMESTAMPTZ,
		last_error      TEXT,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_delivery_logs_order ON webhook_delivery_logs (order_id, created_at DESC)`,
}

// EnsureSchema creates the tables the repositories need.
func EnsureSchema(ctx context.Context, pool Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
