package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/simaogato/coinfolio-bot/internal/domain"
)

// snapshotRepository implements domain.SnapshotRepository
type snapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *DB) domain.SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Add appends a snapshot entry; ID and timestamp come from the database
func (r *snapshotRepository) Add(ctx context.Context, ownerID int64, totalValue decimal.Decimal) (*domain.Snapshot, error) {
	query := `
		INSERT INTO snapshots (owner_id, total_value)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	entry := &domain.Snapshot{
		OwnerID:    ownerID,
		TotalValue: totalValue,
	}

	err := r.db.QueryRowContext(ctx, query, ownerID, totalValue.String()).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return entry, nil
}

// ListByOwner retrieves the latest snapshots of an owner, oldest first
func (r *snapshotRepository) ListByOwner(ctx context.Context, ownerID int64, limit int) ([]*domain.Snapshot, error) {
	// LIMIT NULL is LIMIT ALL in PostgreSQL
	var limitArg interface{}
	if limit > 0 {
		limitArg = limit
	}

	query := `
		SELECT id, owner_id, total_value, created_at
		FROM (
			SELECT id, owner_id, total_value, created_at
			FROM snapshots
			WHERE owner_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) latest
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID, limitArg)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var entries []*domain.Snapshot
	for rows.Next() {
		var entry domain.Snapshot
		var valueStr string

		if err := rows.Scan(&entry.ID, &entry.OwnerID, &valueStr, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		// Parse total_value (NUMERIC)
		value, err := decimal.NewFromString(valueStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse total_value: %w", err)
		}
		entry.TotalValue = value

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return entries, nil
}
