package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionRepository defines the interface for transaction persistence operations
// Every read and delete is scoped to an owner
type TransactionRepository interface {
	// Create persists a new transaction and fills in the store-assigned ID
	// Duplicate identical entries are allowed and represent separate buys
	Create(ctx context.Context, tx *Transaction) error

	// ListByOwner retrieves all transactions of an owner in insertion order
	ListByOwner(ctx context.Context, ownerID int64) ([]*Transaction, error)

	// Delete removes a transaction of an owner
	// Deleting an ID that does not exist is not an error
	Delete(ctx context.Context, ownerID int64, id uuid.UUID) error

	// ListOwnerIDs returns every owner with at least one transaction
	ListOwnerIDs(ctx context.Context) ([]int64, error)
}

// SnapshotRepository defines the interface for snapshot persistence operations
type SnapshotRepository interface {
	// Add appends a snapshot; the store assigns ID and timestamp
	Add(ctx context.Context, ownerID int64, totalValue decimal.Decimal) (*Snapshot, error)

	// ListByOwner retrieves the most recent snapshots of an owner, oldest first
	// limit <= 0 returns every snapshot
	ListByOwner(ctx context.Context, ownerID int64, limit int) ([]*Snapshot, error)
}

// PriceSource resolves user-typed tickers and quotes live prices
type PriceSource interface {
	// ResolveSymbol returns a valid trading pair for raw, or ErrSymbolNotFound
	ResolveSymbol(ctx context.Context, raw string) (string, error)

	// CurrentPrice returns the positive live price of a validated symbol,
	// or an error wrapping ErrPriceUnavailable
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}
