package domain

import "github.com/shopspring/decimal"

// Position is the derived holding of one symbol for one owner.
// It is recomputed from transactions on every read and never persisted.
type Position struct {
	Symbol      string
	TotalAmount decimal.Decimal
	AverageCost decimal.Decimal // Amount-weighted mean buy price
}

// Invested returns the cost basis: average cost * total amount
func (p Position) Invested() decimal.Decimal {
	return p.AverageCost.Mul(p.TotalAmount)
}

// Value returns the current value of the position at the given price
func (p Position) Value(price decimal.Decimal) decimal.Decimal {
	return p.TotalAmount.Mul(price)
}
