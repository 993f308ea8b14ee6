package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx pool against the given DSN and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 15 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

// Bootstrap creates the tables the service owns. Idempotent.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS availability_rules (
			id            int PRIMARY KEY,
			working_days  int[] NOT NULL,
			start_time    text NOT NULL,
			end_time      text NOT NULL,
			vacations     text[] NOT NULL DEFAULT '{}',
			calendar_id   text NOT NULL DEFAULT 'primary',
			updated_at    timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS package_credits (
			id              uuid PRIMARY KEY,
			user_id         text NOT NULL,
			package_id      text NOT NULL,
			total_hours     int NOT NULL CHECK (total_hours >= 0),
			remaining_hours int NOT NULL CHECK (remaining_hours >= 0),
			active          boolean NOT NULL DEFAULT true,
			created_at      timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS package_credits_user_idx ON package_credits (user_id)`,
		`CREATE TABLE IF NOT EXISTS google_tokens (
			id         int PRIMARY KEY,
			token      jsonb NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now()
		)`,
	}
	for _, q := range stmts {
		if _, err := pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}
