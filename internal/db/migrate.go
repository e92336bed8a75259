package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema statements are idempotent so Migrate is safe to run on every start.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS links (
		id              uuid PRIMARY KEY,
		original_url    text NOT NULL,
		code            text NOT NULL,
		expires_at      timestamptz,
		visits          bigint NOT NULL DEFAULT 0,
		last_visited_at timestamptz,
		owner_id        text,
		created_at      timestamptz NOT NULL DEFAULT now(),
		updated_at      timestamptz NOT NULL DEFAULT now(),
		CONSTRAINT links_code_unique UNIQUE (code)
	)`,
	`CREATE INDEX IF NOT EXISTS links_original_url_idx ON links (original_url)`,
	`CREATE INDEX IF NOT EXISTS links_expires_at_idx ON links (expires_at) WHERE expires_at IS NOT NULL`,
	// Archive of expired links removed by the cleanup sweep. seq is the
	// pagination key: immutable and monotonic, so pages stay stable while
	// sweeps keep inserting.
	`CREATE TABLE IF NOT EXISTS expired_links (
		seq             bigint GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		link_id         uuid NOT NULL,
		original_url    text NOT NULL,
		code            text NOT NULL,
		expires_at      timestamptz,
		visits          bigint NOT NULL,
		last_visited_at timestamptz,
		owner_id        text,
		created_at      timestamptz NOT NULL,
		updated_at      timestamptz NOT NULL,
		expired_at      timestamptz NOT NULL DEFAULT now()
	)`,
}

// Migrate applies the schema to the connected database.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
