package report

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/coinfolio-bot/internal/domain"
)

// MockTransactionRepository is a mock implementation of TransactionRepository for testing
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Transaction, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Delete(ctx context.Context, ownerID int64, id uuid.UUID) error {
	args := m.Called(ctx, ownerID, id)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListOwnerIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// MockPriceSource is a mock implementation of PriceSource for testing
type MockPriceSource struct {
	mock.Mock
}

func (m *MockPriceSource) ResolveSymbol(ctx context.Context, raw string) (string, error) {
	args := m.Called(ctx, raw)
	return args.String(0), args.Error(1)
}

func (m *MockPriceSource) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func buy(symbol, amount, price string) *domain.Transaction {
	return &domain.Transaction{ID: uuid.New(), OwnerID: 1, Symbol: symbol, Amount: d(amount), BuyPrice: d(price)}
}

func TestPortfolio_ValuesEachPosition(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTransactionRepository)
	mockPrices := new(MockPriceSource)
	service := NewReportService(mockRepo, mockPrices, nil)

	mockRepo.On("ListByOwner", ctx, int64(1)).Return([]*domain.Transaction{
		buy("BTCUSDT", "0.02", "50000"),
		buy("ETHUSDT", "2", "2000"),
		buy("BTCUSDT", "0.01", "60000"),
	}, nil)
	mockPrices.On("CurrentPrice", ctx, "BTCUSDT").Return(d("70000"), nil).Once()
	mockPrices.On("CurrentPrice", ctx, "ETHUSDT").Return(d("1500"), nil).Once()

	p, err := service.Portfolio(ctx, 1)

	require.NoError(t, err)
	require.Len(t, p.Holdings, 2)

	btc := p.Holdings[0]
	assert.Equal(t, "BTCUSDT", btc.Position.Symbol)
	assert.True(t, btc.Position.TotalAmount.Equal(d("0.03")))
	assert.True(t, btc.Value.Equal(d("2100")))
	// 2100 - 1600; the average cost is a repeating decimal
	assert.True(t, btc.PnL.Round(8).Equal(d("500")), "got %s", btc.PnL)
	assert.True(t, btc.PnLPercent.Round(8).Equal(d("31.25")), "got %s", btc.PnLPercent)

	eth := p.Holdings[1]
	assert.True(t, eth.PnL.Equal(d("-1000")))
	assert.True(t, eth.PnLPercent.Equal(d("-25")))

	assert.True(t, p.TotalPnL.Round(8).Equal(d("-500")))
	mockPrices.AssertNumberOfCalls(t, "CurrentPrice", 2)
}

func TestPortfolio_EmptyLedger(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTransactionRepository)
	mockPrices := new(MockPriceSource)
	service := NewReportService(mockRepo, mockPrices, nil)

	mockRepo.On("ListByOwner", ctx, int64(1)).Return([]*domain.Transaction{}, nil)

	p, err := service.Portfolio(ctx, 1)

	require.NoError(t, err)
	assert.True(t, p.Empty())
	assert.True(t, p.TotalPnL.IsZero())
	mockPrices.AssertNotCalled(t, "CurrentPrice")
}

func TestPortfolio_PriceUnavailableFailsReport(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTransactionRepository)
	mockPrices := new(MockPriceSource)
	service := NewReportService(mockRepo, mockPrices, nil)

	mockRepo.On("ListByOwner", ctx, int64(1)).Return([]*domain.Transaction{
		buy("BTCUSDT", "1", "100"),
	}, nil)
	mockPrices.On("CurrentPrice", ctx, "BTCUSDT").
		Return(decimal.Zero, fmt.Errorf("%w: status 503", domain.ErrPriceUnavailable))

	p, err := service.Portfolio(ctx, 1)

	assert.Nil(t, p)
	assert.True(t, errors.Is(err, domain.ErrPriceUnavailable))
}

func TestPortfolio_StoreFailure(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTransactionRepository)
	service := NewReportService(mockRepo, new(MockPriceSource), nil)

	mockRepo.On("ListByOwner", ctx, int64(1)).Return(nil, errors.New("connection refused"))

	_, err := service.Portfolio(ctx, 1)

	assert.ErrorContains(t, err, "failed to list transactions")
}

func TestAllocation_SixtyForty(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTransactionRepository)
	mockPrices := new(MockPriceSource)
	service := NewReportService(mockRepo, mockPrices, nil)

	mockRepo.On("ListByOwner", ctx, int64(1)).Return([]*domain.Transaction{
		buy("ETHUSDT", "2", "150"),
		buy("BTCUSDT", "3", "100"),
	}, nil)
	mockPrices.On("CurrentPrice", ctx, "BTCUSDT").Return(d("200"), nil)
	mockPrices.On("CurrentPrice", ctx, "ETHUSDT").Return(d("200"), nil)

	shares, err := service.Allocation(ctx, 1)

	require.NoError(t, err)
	require.Len(t, shares, 2)
	assert.Equal(t, "BTCUSDT", shares[0].Symbol)
	assert.True(t, shares[0].Percent.Equal(d("60")))
	assert.Equal(t, "ETHUSDT", shares[1].Symbol)
	assert.True(t, shares[1].Percent.Equal(d("40")))
}

func TestSummary_PerSymbolAndTotals(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTransactionRepository)
	mockPrices := new(MockPriceSource)
	service := NewReportService(mockRepo, mockPrices, nil)

	mockRepo.On("ListByOwner", ctx, int64(1)).Return([]*domain.Transaction{
		buy("SOLUSDT", "10", "100"),
		buy("ADAUSDT", "1000", "0.5"),
	}, nil)
	mockPrices.On("CurrentPrice", ctx, "SOLUSDT").Return(d("150"), nil)
	mockPrices.On("CurrentPrice", ctx, "ADAUSDT").Return(d("0.25"), nil)

	s, err := service.Summary(ctx, 1)

	require.NoError(t, err)
	require.Len(t, s.Symbols, 2)
	assert.Equal(t, "ADAUSDT", s.Symbols[0].Symbol)
	assert.True(t, s.Symbols[0].Invested.Equal(d("500")))
	assert.True(t, s.Symbols[0].Current.Equal(d("250")))
	assert.True(t, s.Totals.Invested.Equal(d("1500")))
	assert.True(t, s.Totals.Current.Equal(d("1750")))
	assert.True(t, s.Totals.PnL.Equal(d("250")))
}

func TestTotalValue(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTransactionRepository)
	mockPrices := new(MockPriceSource)
	service := NewReportService(mockRepo, mockPrices, nil)

	mockRepo.On("ListByOwner", ctx, int64(1)).Return([]*domain.Transaction{
		buy("BTCUSDT", "0.5", "10000"),
	}, nil)
	mockPrices.On("CurrentPrice", ctx, "BTCUSDT").Return(d("30000"), nil)

	total, err := service.TotalValue(ctx, 1)

	require.NoError(t, err)
	assert.True(t, total.Equal(d("15000")))
}

func TestPriceBook_FetchesOncePerSymbol(t *testing.T) {
	ctx := context.Background()
	mockPrices := new(MockPriceSource)
	mockPrices.On("CurrentPrice", ctx, "BTCUSDT").Return(d("1"), nil).Once()

	book := NewPriceBook(mockPrices)
	for i := 0; i < 3; i++ {
		p, err := book.Price(ctx, "BTCUSDT")
		require.NoError(t, err)
		assert.True(t, p.Equal(d("1")))
	}

	mockPrices.AssertExpectations(t)
}

func TestPriceBook_DoesNotRememberFailures(t *testing.T) {
	ctx := context.Background()
	mockPrices := new(MockPriceSource)
	mockPrices.On("CurrentPrice", ctx, "BTCUSDT").Return(decimal.Zero, domain.ErrPriceUnavailable).Once()
	mockPrices.On("CurrentPrice", ctx, "BTCUSDT").Return(d("2"), nil).Once()

	book := NewPriceBook(mockPrices)
	_, err := book.Price(ctx, "BTCUSDT")
	require.Error(t, err)

	p, err := book.Price(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.True(t, p.Equal(d("2")))
}
