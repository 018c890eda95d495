package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Snapshot is a point-in-time record of an owner's total portfolio value.
// Append-only: created by the periodic job, never mutated or deleted.
type Snapshot struct {
	ID         uuid.UUID
	OwnerID    int64
	TotalValue decimal.Decimal // Market value in the quote currency
	CreatedAt  time.Time       // Assigned by the store
}
