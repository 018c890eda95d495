package report

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/simaogato/coinfolio-bot/internal/domain"
)

// PriceBook remembers prices fetched while building one report
// It is not safe for concurrent use and must not outlive the render.
type PriceBook struct {
	source domain.PriceSource
	prices map[string]decimal.Decimal
}

// NewPriceBook creates an empty PriceBook backed by source
func NewPriceBook(source domain.PriceSource) *PriceBook {
	return &PriceBook{
		source: source,
		prices: make(map[string]decimal.Decimal),
	}
}

// Price returns the current price of symbol, asking the source at most once
func (b *PriceBook) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if p, ok := b.prices[symbol]; ok {
		return p, nil
	}

	p, err := b.source.CurrentPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get price for %s: %w", symbol, err)
	}

	b.prices[symbol] = p
	return p, nil
}

// Prices returns a price for every symbol, failing on the first unavailable one
func (b *PriceBook) Prices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(symbols))
	for _, symbol := range symbols {
		p, err := b.Price(ctx, symbol)
		if err != nil {
			return nil, err
		}
		out[symbol] = p
	}
	return out, nil
}
