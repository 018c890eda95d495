package history

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/simaogato/coinfolio-bot/internal/domain"
	"github.com/simaogato/coinfolio-bot/internal/logging"
)

// DefaultLimit is the number of snapshots shown in a history
const DefaultLimit = 10

var hundred = decimal.NewFromInt(100)

// History is the recent value trail of one owner
type History struct {
	Points        []*domain.Snapshot // Oldest first
	Change        decimal.Decimal    // Last minus first value
	ChangePercent decimal.Decimal    // Zero when the first value is zero
	Chart         []byte             // PNG, nil with fewer than 2 points
}

// Empty reports whether no snapshot has been taken yet
func (h *History) Empty() bool {
	return len(h.Points) == 0
}

// HistoryService reads snapshots back for display
type HistoryService struct {
	SnapshotRepo domain.SnapshotRepository
	Logger       *logging.Logger
	QuoteAsset   string
	Limit        int
}

// NewHistoryService creates a new HistoryService instance
func NewHistoryService(snapshotRepo domain.SnapshotRepository, quoteAsset string, logger *logging.Logger) *HistoryService {
	if logger == nil {
		logger = logging.NewSilentLogger()
	}
	return &HistoryService{
		SnapshotRepo: snapshotRepo,
		Logger:       logger,
		QuoteAsset:   quoteAsset,
		Limit:        DefaultLimit,
	}
}

// History returns the owner's latest snapshots, their overall change and a chart
// A chart that fails to render is logged and left out.
func (s *HistoryService) History(ctx context.Context, ownerID int64) (*History, error) {
	points, err := s.SnapshotRepo.ListByOwner(ctx, ownerID, s.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	h := &History{Points: points}
	if len(points) < 2 {
		return h, nil
	}

	first, last := points[0].TotalValue, points[len(points)-1].TotalValue
	h.Change = last.Sub(first)
	if !first.IsZero() {
		h.ChangePercent = h.Change.Div(first).Mul(hundred)
	}

	png, err := RenderChart(points, s.QuoteAsset)
	if err != nil {
		s.Logger.Warn().Err(err).Int64("owner", ownerID).Msg("History chart skipped")
		return h, nil
	}
	h.Chart = png

	return h, nil
}
