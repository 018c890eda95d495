// Package export writes an owner's ledger to a spreadsheet.
package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/simaogato/coinfolio-bot/internal/domain"
	"github.com/simaogato/coinfolio-bot/internal/logging"
	"github.com/simaogato/coinfolio-bot/internal/usecase/aggregator"
)

const (
	TransactionsSheet = "Transactions"
	PositionsSheet    = "Positions"
)

// ErrNothingToExport is returned when the owner has no transactions
var ErrNothingToExport = errors.New("nothing to export")

// ExportService builds XLSX workbooks of an owner's transactions
type ExportService struct {
	TransactionRepo domain.TransactionRepository
	Logger          *logging.Logger
}

// NewExportService creates a new ExportService instance
func NewExportService(transactionRepo domain.TransactionRepository, logger *logging.Logger) *ExportService {
	if logger == nil {
		logger = logging.NewSilentLogger()
	}
	return &ExportService{
		TransactionRepo: transactionRepo,
		Logger:          logger,
	}
}

// Export returns an XLSX workbook with one sheet of transactions in insertion
// order and one sheet of positions by symbol. No prices are fetched.
func (s *ExportService) Export(ctx context.Context, ownerID int64) ([]byte, error) {
	txs, err := s.TransactionRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	if len(txs) == 0 {
		return nil, ErrNothingToExport
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TransactionsSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(PositionsSheet); err != nil {
		return nil, fmt.Errorf("failed to add sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	rows := [][]interface{}{{"Date", "Symbol", "Amount", "Buy price", "Cost"}}
	for _, tx := range txs {
		rows = append(rows, []interface{}{
			tx.PurchaseDate.Format(domain.DateLayout),
			tx.Symbol,
			tx.Amount.InexactFloat64(),
			tx.BuyPrice.InexactFloat64(),
			tx.Cost().InexactFloat64(),
		})
	}
	if err := writeRows(f, TransactionsSheet, rows, header); err != nil {
		return nil, err
	}

	positions := aggregator.Positions(txs)
	rows = [][]interface{}{{"Symbol", "Amount", "Average cost", "Invested"}}
	for _, symbol := range aggregator.Symbols(positions) {
		pos := positions[symbol]
		rows = append(rows, []interface{}{
			symbol,
			pos.TotalAmount.InexactFloat64(),
			pos.AverageCost.Round(8).InexactFloat64(),
			pos.Invested().Round(8).InexactFloat64(),
		})
	}
	if err := writeRows(f, PositionsSheet, rows, header); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	s.Logger.Info().Int64("owner", ownerID).Int("transactions", len(txs)).Msg("Ledger exported")
	return buf.Bytes(), nil
}

// writeRows writes rows from A1 down and styles the first one
func writeRows(f *excelize.File, sheet string, rows [][]interface{}, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}

	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, headerStyle)
}
