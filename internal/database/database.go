package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the documents, datasets and dataset_records tables.
// Every statement is idempotent so API, worker and CLI can all call it on
// startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS documents (
	id BIGSERIAL PRIMARY KEY,
	content TEXT NOT NULL,
	tags TEXT NOT NULL DEFAULT '',
	content_key TEXT NOT NULL DEFAULT '',
	tags_key TEXT NOT NULL DEFAULT ''
);
ALTER TABLE documents ADD COLUMN IF NOT EXISTS content_key TEXT NOT NULL DEFAULT '';
ALTER TABLE documents ADD COLUMN IF NOT EXISTS tags_key TEXT NOT NULL DEFAULT '';
CREATE TABLE IF NOT EXISTS datasets (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	data_type TEXT NOT NULL,
	total_records INTEGER NOT NULL,
	byte_size BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS dataset_records (
	id BIGSERIAL PRIMARY KEY,
	dataset_id BIGINT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	content TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	search_key TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dataset_records_dataset ON dataset_records(dataset_id, position);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
