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
	return pgxpool.NewWithConfig(ctx, cfg)
}

// EnsureSchema creates the upload/row/item tables if needed. Having the
// schema in code keeps the service self-contained so a fresh database can
// bootstrap itself on first start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS sales_uploads (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	row_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS sales_rows (
	id TEXT PRIMARY KEY,
	upload_id TEXT NOT NULL REFERENCES sales_uploads(id),
	transacted_at TIMESTAMPTZ NOT NULL,
	depot TEXT NOT NULL DEFAULT '',
	ps_code TEXT NOT NULL DEFAULT '',
	account_type TEXT NOT NULL DEFAULT '',
	buyer_raw TEXT NOT NULL DEFAULT '',
	buyer_name TEXT NOT NULL DEFAULT '',
	buyer_username TEXT NOT NULL DEFAULT '',
	items_raw TEXT NOT NULL DEFAULT '',
	amount DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS sales_items (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	row_id TEXT NOT NULL REFERENCES sales_rows(id),
	item_type TEXT NOT NULL,
	qty INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sales_rows_transacted_at ON sales_rows(transacted_at);
CREATE INDEX IF NOT EXISTS idx_sales_rows_upload_id ON sales_rows(upload_id);
CREATE INDEX IF NOT EXISTS idx_sales_items_row_id ON sales_items(row_id);`
	_, err := pool.Exec(ctx, stmt)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
