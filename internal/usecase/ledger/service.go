package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/coinfolio-bot/internal/domain"
	"github.com/simaogato/coinfolio-bot/internal/logging"
)

// AddTransactionInput represents the input for recording a buy
type AddTransactionInput struct {
	OwnerID      int64
	RawSymbol    string // As typed by the user; resolved before storing
	Amount       decimal.Decimal
	BuyPrice     decimal.Decimal
	PurchaseDate time.Time
}

// LedgerService handles recording, listing and deleting transactions
type LedgerService struct {
	TransactionRepo domain.TransactionRepository
	Prices          domain.PriceSource
	Logger          *logging.Logger
}

// NewLedgerService creates a new LedgerService instance
func NewLedgerService(transactionRepo domain.TransactionRepository, prices domain.PriceSource, logger *logging.Logger) *LedgerService {
	if logger == nil {
		logger = logging.NewSilentLogger()
	}
	return &LedgerService{
		TransactionRepo: transactionRepo,
		Prices:          prices,
		Logger:          logger,
	}
}

// AddTransaction records a buy
// Logic:
//  1. Validate amount and price before any network call
//  2. Resolve the ticker into a trading pair; failure aborts the write
//  3. Validate the full transaction and persist it
func (s *LedgerService) AddTransaction(ctx context.Context, input AddTransactionInput) (*domain.Transaction, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}
	if input.BuyPrice.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: buy price must be positive", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(input.RawSymbol) == "" {
		return nil, fmt.Errorf("%w: symbol cannot be empty", domain.ErrInvalidInput)
	}

	symbol, err := s.Prices.ResolveSymbol(ctx, input.RawSymbol)
	if err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		OwnerID:      input.OwnerID,
		Symbol:       symbol,
		Amount:       input.Amount,
		BuyPrice:     input.BuyPrice,
		PurchaseDate: input.PurchaseDate,
	}

	if err := tx.Validate(); err != nil {
		return nil, err
	}

	if err := s.TransactionRepo.Create(ctx, tx); err != nil {
		return nil, err
	}

	s.Logger.Info().
		Int64("owner", tx.OwnerID).
		Str("symbol", tx.Symbol).
		Str("id", tx.ID.String()).
		Msg("Transaction recorded")

	return tx, nil
}

// ListTransactions returns every transaction of the owner in insertion order
func (s *LedgerService) ListTransactions(ctx context.Context, ownerID int64) ([]*domain.Transaction, error) {
	return s.TransactionRepo.ListByOwner(ctx, ownerID)
}

// DeleteTransaction removes one transaction of the owner
// Deleting an unknown ID succeeds and changes nothing
func (s *LedgerService) DeleteTransaction(ctx context.Context, ownerID int64, id uuid.UUID) error {
	if err := s.TransactionRepo.Delete(ctx, ownerID, id); err != nil {
		return err
	}

	s.Logger.Info().Int64("owner", ownerID).Str("id", id.String()).Msg("Transaction deleted")
	return nil
}
