package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/coinfolio-bot/internal/domain"
	"github.com/simaogato/coinfolio-bot/internal/logging"
	"github.com/simaogato/coinfolio-bot/internal/usecase/aggregator"
	"github.com/simaogato/coinfolio-bot/internal/usecase/report"
)

// DefaultOwnerTimeout bounds the work spent valuing a single owner
const DefaultOwnerTimeout = 30 * time.Second

// RunResult describes one pass of the snapshot job
type RunResult struct {
	Owners   int
	Recorded int
	Failed   int
}

// SnapshotService records the total portfolio value of every owner
type SnapshotService struct {
	TransactionRepo domain.TransactionRepository
	SnapshotRepo    domain.SnapshotRepository
	Prices          domain.PriceSource
	Logger          *logging.Logger
	OwnerTimeout    time.Duration
}

// NewSnapshotService creates a new SnapshotService instance
func NewSnapshotService(
	transactionRepo domain.TransactionRepository,
	snapshotRepo domain.SnapshotRepository,
	prices domain.PriceSource,
	logger *logging.Logger,
) *SnapshotService {
	if logger == nil {
		logger = logging.NewSilentLogger()
	}
	return &SnapshotService{
		TransactionRepo: transactionRepo,
		SnapshotRepo:    snapshotRepo,
		Prices:          prices,
		Logger:          logger.WithComponent("snapshot"),
		OwnerTimeout:    DefaultOwnerTimeout,
	}
}

// TakeSnapshots values every owner with at least one transaction and appends a snapshot
// Logic:
//  1. List owner ids; failure aborts the pass
//  2. For each owner: value positions at live prices, append a snapshot
//  3. A failing owner is logged and skipped; the rest still get a snapshot
//
// Prices are shared across owners within one pass.
// The returned error joins every per-owner failure.
func (s *SnapshotService) TakeSnapshots(ctx context.Context) (RunResult, error) {
	owners, err := s.TransactionRepo.ListOwnerIDs(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to list owners: %w", err)
	}

	result := RunResult{Owners: len(owners)}
	book := report.NewPriceBook(s.Prices)
	var errs []error

	for _, ownerID := range owners {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			result.Failed += result.Owners - result.Recorded - result.Failed
			break
		}

		total, err := s.snapshotOwner(ctx, book, ownerID)
		if err != nil {
			result.Failed++
			errs = append(errs, fmt.Errorf("owner %d: %w", ownerID, err))
			s.Logger.Warn().Err(err).Int64("owner", ownerID).Msg("Snapshot skipped")
			continue
		}

		result.Recorded++
		s.Logger.Debug().Int64("owner", ownerID).Str("total", total.String()).Msg("Snapshot recorded")
	}

	return result, errors.Join(errs...)
}

func (s *SnapshotService) snapshotOwner(ctx context.Context, book *report.PriceBook, ownerID int64) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.OwnerTimeout)
	defer cancel()

	txs, err := s.TransactionRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list transactions: %w", err)
	}

	positions := aggregator.Positions(txs)
	prices, err := book.Prices(ctx, aggregator.Symbols(positions))
	if err != nil {
		return decimal.Zero, err
	}

	total, err := aggregator.TotalValue(positions, prices)
	if err != nil {
		return decimal.Zero, err
	}

	if _, err := s.SnapshotRepo.Add(ctx, ownerID, total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to add snapshot: %w", err)
	}

	return total, nil
}

// Run takes snapshots every interval until ctx is cancelled
func (s *SnapshotService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Logger.Info().Dur("interval", interval).Msg("Snapshot scheduler: started")

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info().Msg("Snapshot scheduler: stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *SnapshotService) runOnce(ctx context.Context) {
	start := time.Now()

	result, err := s.TakeSnapshots(ctx)
	event := s.Logger.Info()
	if err != nil {
		event = s.Logger.Warn().Err(err)
	}

	event.
		Int("owners", result.Owners).
		Int("recorded", result.Recorded).
		Int("failed", result.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("Snapshot pass: complete")
}
