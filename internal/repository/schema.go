package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Schema creates the customers and addresses tables. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS customers (
	id BIGSERIAL PRIMARY KEY,
	customer_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS addresses (
	id BIGSERIAL PRIMARY KEY,
	street TEXT NOT NULL,
	city TEXT NOT NULL,
	state TEXT NOT NULL,
	zip_code TEXT NOT NULL,
	customer_id BIGINT REFERENCES customers (id),
	popularity INTEGER NOT NULL DEFAULT 0,
	latitude DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS addresses_customer_id_idx ON addresses (customer_id);
CREATE INDEX IF NOT EXISTS addresses_popularity_idx ON addresses (popularity);
`

// OpenMigrationDB opens a database/sql handle on the lib/pq driver
func OpenMigrationDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to open database: %w", err)
	}
	return db, nil
}

// Migrate applies Schema inside a transaction
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository: failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("repository: failed to apply schema: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("repository: failed to commit migration: %w", err)
	}
	return nil
}
