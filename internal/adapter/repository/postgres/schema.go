package postgres

import (
	"context"
	"fmt"
)

// schema is applied on every start; each statement is idempotent.
// gen_random_uuid() is built in since PostgreSQL 13.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS transactions (
		id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		seq           BIGSERIAL NOT NULL,
		owner_id      BIGINT NOT NULL,
		symbol        TEXT NOT NULL,
		amount        NUMERIC NOT NULL CHECK (amount > 0),
		buy_price     NUMERIC NOT NULL CHECK (buy_price > 0),
		purchase_date DATE NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_owner_seq ON transactions (owner_id, seq)`,
	`CREATE TABLE IF NOT EXISTS snapshots (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		owner_id    BIGINT NOT NULL,
		total_value NUMERIC NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_owner_created ON snapshots (owner_id, created_at)`,
}

// EnsureSchema creates the tables and indexes if they do not exist
// Safe to call on every process start
func (db *DB) EnsureSchema(ctx context.Context) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}
