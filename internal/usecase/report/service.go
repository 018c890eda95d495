package report

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/simaogato/coinfolio-bot/internal/domain"
	"github.com/simaogato/coinfolio-bot/internal/logging"
	"github.com/simaogato/coinfolio-bot/internal/usecase/aggregator"
)

// Holding is one position valued at the current price
type Holding struct {
	Position     domain.Position
	CurrentPrice decimal.Decimal
	Value        decimal.Decimal
	PnL          decimal.Decimal
	PnLPercent   decimal.Decimal
}

// Portfolio is the per-symbol view of an owner's holdings
type Portfolio struct {
	Holdings []Holding // Ordered by symbol
	TotalPnL decimal.Decimal
}

// Empty reports whether the owner holds nothing
func (p *Portfolio) Empty() bool {
	return len(p.Holdings) == 0
}

// SymbolTotals is the invested and current value of one symbol
type SymbolTotals struct {
	Symbol   string
	Invested decimal.Decimal
	Current  decimal.Decimal
}

// SummaryReport holds per-symbol totals and the portfolio-wide summary
type SummaryReport struct {
	Symbols []SymbolTotals // Ordered by symbol
	Totals  aggregator.Summary
}

// ReportService builds read-only views of an owner's portfolio at live prices
type ReportService struct {
	TransactionRepo domain.TransactionRepository
	Prices          domain.PriceSource
	Logger          *logging.Logger
}

// NewReportService creates a new ReportService instance
func NewReportService(transactionRepo domain.TransactionRepository, prices domain.PriceSource, logger *logging.Logger) *ReportService {
	if logger == nil {
		logger = logging.NewSilentLogger()
	}
	return &ReportService{
		TransactionRepo: transactionRepo,
		Prices:          prices,
		Logger:          logger,
	}
}

// Portfolio values every position of the owner
// Logic:
//   - Positions are derived from the full transaction list
//   - Each symbol is priced once
//   - TotalPnL is the sum of per-position PnL
func (s *ReportService) Portfolio(ctx context.Context, ownerID int64) (*Portfolio, error) {
	positions, prices, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	result := &Portfolio{Holdings: make([]Holding, 0, len(positions))}
	for _, symbol := range aggregator.Symbols(positions) {
		pos := positions[symbol]
		price := prices[symbol]
		pnl, pct := aggregator.PnL(pos, price)

		result.Holdings = append(result.Holdings, Holding{
			Position:     pos,
			CurrentPrice: price,
			Value:        pos.Value(price),
			PnL:          pnl,
			PnLPercent:   pct,
		})
		result.TotalPnL = result.TotalPnL.Add(pnl)
	}

	return result, nil
}

// Allocation returns each symbol's share of the owner's current value
func (s *ReportService) Allocation(ctx context.Context, ownerID int64) ([]aggregator.Share, error) {
	positions, prices, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return aggregator.Allocation(positions, prices)
}

// Summary returns invested and current value per symbol plus overall totals
func (s *ReportService) Summary(ctx context.Context, ownerID int64) (*SummaryReport, error) {
	positions, prices, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	totals, err := aggregator.Summarize(positions, prices)
	if err != nil {
		return nil, err
	}

	result := &SummaryReport{Totals: totals}
	for _, symbol := range aggregator.Symbols(positions) {
		pos := positions[symbol]
		result.Symbols = append(result.Symbols, SymbolTotals{
			Symbol:   symbol,
			Invested: pos.Invested(),
			Current:  pos.Value(prices[symbol]),
		})
	}

	return result, nil
}

// TotalValue returns the owner's total current value
func (s *ReportService) TotalValue(ctx context.Context, ownerID int64) (decimal.Decimal, error) {
	positions, prices, err := s.load(ctx, ownerID)
	if err != nil {
		return decimal.Zero, err
	}
	return aggregator.TotalValue(positions, prices)
}

// load reads the owner's transactions and prices each held symbol once
func (s *ReportService) load(ctx context.Context, ownerID int64) (map[string]domain.Position, map[string]decimal.Decimal, error) {
	txs, err := s.TransactionRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	positions := aggregator.Positions(txs)
	prices, err := NewPriceBook(s.Prices).Prices(ctx, aggregator.Symbols(positions))
	if err != nil {
		s.Logger.Warn().Err(err).Int64("owner", ownerID).Msg("Report aborted, price unavailable")
		return nil, nil, err
	}

	return positions, prices, nil
}
