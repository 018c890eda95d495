// Package aggregator turns transaction rows and live prices into positions,
// profit/loss, allocation and summary figures. Every function is pure.
package aggregator

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/simaogato/coinfolio-bot/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Share is the portion of total current value held in one symbol
type Share struct {
	Symbol  string
	Value   decimal.Decimal
	Percent decimal.Decimal
}

// Summary holds portfolio-wide invested, current and profit figures
type Summary struct {
	Invested   decimal.Decimal
	Current    decimal.Decimal
	PnL        decimal.Decimal
	PnLPercent decimal.Decimal
}

// Positions groups transactions by symbol
// Logic:
//   - TotalAmount = sum of amounts
//   - AverageCost = sum(amount * buy price) / TotalAmount (zero when TotalAmount is zero)
func Positions(txs []*domain.Transaction) map[string]domain.Position {
	amounts := make(map[string]decimal.Decimal)
	costs := make(map[string]decimal.Decimal)

	for _, tx := range txs {
		amounts[tx.Symbol] = amounts[tx.Symbol].Add(tx.Amount)
		costs[tx.Symbol] = costs[tx.Symbol].Add(tx.Cost())
	}

	positions := make(map[string]domain.Position, len(amounts))
	for symbol, total := range amounts {
		avg := decimal.Zero
		if !total.IsZero() {
			avg = costs[symbol].Div(total)
		}
		positions[symbol] = domain.Position{
			Symbol:      symbol,
			TotalAmount: total,
			AverageCost: avg,
		}
	}
	return positions
}

// Symbols returns the position symbols in ascending order
func Symbols(positions map[string]domain.Position) []string {
	symbols := make([]string, 0, len(positions))
	for symbol := range positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// PnL returns the absolute and percentage profit of a position at the current price
// Percent is zero when the cost basis is zero
func PnL(pos domain.Position, currentPrice decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	absolute := currentPrice.Sub(pos.AverageCost).Mul(pos.TotalAmount)
	return absolute, percentOf(absolute, pos.Invested())
}

// Allocation computes each symbol's share of the total current value
// Ordered by value descending, ties broken by symbol ascending.
// Percentages are zero when the total value is zero.
func Allocation(positions map[string]domain.Position, prices map[string]decimal.Decimal) ([]Share, error) {
	shares := make([]Share, 0, len(positions))
	total := decimal.Zero

	for _, symbol := range Symbols(positions) {
		price, ok := prices[symbol]
		if !ok {
			return nil, missingPrice(symbol)
		}
		value := positions[symbol].Value(price)
		shares = append(shares, Share{Symbol: symbol, Value: value})
		total = total.Add(value)
	}

	for i := range shares {
		shares[i].Percent = percentOf(shares[i].Value, total)
	}

	sort.SliceStable(shares, func(i, j int) bool {
		if cmp := shares[i].Value.Cmp(shares[j].Value); cmp != 0 {
			return cmp > 0
		}
		return shares[i].Symbol < shares[j].Symbol
	})

	return shares, nil
}

// Summarize computes total invested, total current value and overall profit
func Summarize(positions map[string]domain.Position, prices map[string]decimal.Decimal) (Summary, error) {
	var s Summary

	for symbol, pos := range positions {
		price, ok := prices[symbol]
		if !ok {
			return Summary{}, missingPrice(symbol)
		}
		s.Invested = s.Invested.Add(pos.Invested())
		s.Current = s.Current.Add(pos.Value(price))
	}

	s.PnL = s.Current.Sub(s.Invested)
	if s.Invested.GreaterThan(decimal.Zero) {
		s.PnLPercent = s.PnL.Div(s.Invested).Mul(hundred)
	}
	return s, nil
}

// TotalValue returns the sum of current values of all positions
func TotalValue(positions map[string]domain.Position, prices map[string]decimal.Decimal) (decimal.Decimal, error) {
	s, err := Summarize(positions, prices)
	if err != nil {
		return decimal.Zero, err
	}
	return s.Current, nil
}

func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

func missingPrice(symbol string) error {
	return fmt.Errorf("%w: no price for %s", domain.ErrPriceUnavailable, symbol)
}
