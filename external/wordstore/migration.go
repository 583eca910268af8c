package wordstore

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS translations (
		id BIGSERIAL PRIMARY KEY,
		word TEXT NOT NULL,
		translation TEXT NOT NULL,
		anglosax TEXT NOT NULL DEFAULT '',
		picture TEXT NOT NULL DEFAULT '',
		timestamp TIMESTAMPTZ NOT NULL,
		language TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_translations_timestamp ON translations (timestamp)`,
	`CREATE TABLE IF NOT EXISTS locations (
		id BIGSERIAL PRIMARY KEY,
		place TEXT NOT NULL,
		translation TEXT NOT NULL,
		anglosax TEXT NOT NULL DEFAULT '',
		timestamp TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_locations_timestamp ON locations (timestamp)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
