package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/coinfolio-bot/internal/domain"
)

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) domain.TransactionRepository {
	return &transactionRepository{db: db}
}

// Create inserts a transaction and stores the generated ID on tx
func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (owner_id, symbol, amount, buy_price, purchase_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		tx.OwnerID,
		tx.Symbol,
		tx.Amount.String(),
		tx.BuyPrice.String(),
		tx.PurchaseDate.Format(domain.DateLayout),
	).Scan(&tx.ID)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// ListByOwner retrieves every transaction of an owner in insertion order
func (r *transactionRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Transaction, error) {
	query := `
		SELECT id, owner_id, symbol, amount, buy_price, purchase_date
		FROM transactions
		WHERE owner_id = $1
		ORDER BY seq ASC
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var amountStr, priceStr string

		err := rows.Scan(
			&tx.ID,
			&tx.OwnerID,
			&tx.Symbol,
			&amountStr,
			&priceStr,
			&tx.PurchaseDate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		// Parse amount and buy_price (NUMERIC)
		if tx.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("failed to parse amount: %w", err)
		}
		if tx.BuyPrice, err = decimal.NewFromString(priceStr); err != nil {
			return nil, fmt.Errorf("failed to parse buy_price: %w", err)
		}

		txs = append(txs, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}

// Delete removes one transaction of an owner; a missing row is not an error
func (r *transactionRepository) Delete(ctx context.Context, ownerID int64, id uuid.UUID) error {
	query := `DELETE FROM transactions WHERE id = $1 AND owner_id = $2`

	if _, err := r.db.ExecContext(ctx, query, id, ownerID); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	return nil
}

// ListOwnerIDs returns the owners that hold at least one transaction
func (r *transactionRepository) ListOwnerIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT owner_id FROM transactions ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query owner ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan owner id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating owner ids: %w", err)
	}

	return ids, nil
}
