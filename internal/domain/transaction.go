package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format accepted from users and stored for purchases
const DateLayout = "2006-01-02"

// Transaction represents a single recorded buy in the domain layer
// Immutable once created; the only mutation is deletion by ID
type Transaction struct {
	ID           uuid.UUID // Assigned by the store on insert
	OwnerID      int64     // Chat the transaction belongs to
	Symbol       string    // Uppercase trading pair, e.g. BTCUSDT
	Amount       decimal.Decimal
	BuyPrice     decimal.Decimal // Quote currency per unit at purchase time
	PurchaseDate time.Time
}

// Cost returns amount * buy price
func (t *Transaction) Cost() decimal.Decimal {
	return t.Amount.Mul(t.BuyPrice)
}

// Validate ensures the transaction adheres to domain rules
// Returns an error wrapping ErrInvalidInput if validation fails
func (t *Transaction) Validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("%w: symbol cannot be empty", ErrInvalidInput)
	}
	if t.Symbol != strings.ToUpper(t.Symbol) {
		return fmt.Errorf("%w: symbol must be uppercase", ErrInvalidInput)
	}
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if t.BuyPrice.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: buy price must be positive", ErrInvalidInput)
	}
	if t.PurchaseDate.IsZero() {
		return fmt.Errorf("%w: purchase date is required", ErrInvalidInput)
	}
	return nil
}
