package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tradebot-go/internal/config"
	"tradebot-go/internal/database"
	"tradebot-go/internal/ledger"
	"tradebot-go/internal/models"
)

// MockStore is a mock implementation of ledger.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Initialize(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockStore) InsertOpenTrade(ctx context.Context, ticker string, buyPrice decimal.Decimal) (uint, error) {
	args := m.Called(ctx, ticker, buyPrice)
	return args.Get(0).(uint), args.Error(1)
}

func (m *MockStore) FindOldestOpenTrade(ctx context.Context, ticker string) (*models.Trade, error) {
	args := m.Called(ctx, ticker)
	trade, _ := args.Get(0).(*models.Trade)
	return trade, args.Error(1)
}

func (m *MockStore) CloseTrade(ctx context.Context, id uint, sellPrice decimal.Decimal) error {
	return m.Called(ctx, id, sellPrice).Error(0)
}

func (m *MockStore) ListClosedTrades(ctx context.Context) ([]models.Trade, error) {
	args := m.Called(ctx)
	trades, _ := args.Get(0).([]models.Trade)
	return trades, args.Error(1)
}

func (m *MockStore) ListOpenTrades(ctx context.Context) ([]models.Trade, error) {
	args := m.Called(ctx)
	trades, _ := args.Get(0).([]models.Trade)
	return trades, args.Error(1)
}

// setupProcessor wires a processor to a fresh in-memory ledger.
func setupProcessor(t *testing.T) (*Processor, ledger.Store) {
	t.Helper()
	db, err := database.NewDatabase(config.Database{Driver: database.DriverSQLite, DSN: "file::memory:"})
	require.NoError(t, err)

	store := ledger.NewGormStore(db, zap.NewNop())
	require.NoError(t, store.Initialize(context.Background()))

	return NewProcessor(store, zap.NewNop()), store
}

func run(p *Processor, name string, args ...string) Reply {
	return p.Handle(context.Background(), Command{Name: name, Args: args})
}

func TestProcessor_Start(t *testing.T) {
	p, _ := setupProcessor(t)

	for _, name := range []string{"start", "help", "/START"} {
		reply := run(p, name)
		assert.NoError(t, reply.Err)
		assert.Contains(t, reply.Text, "/buy {ticker} {price}")
		assert.Contains(t, reply.Text, "/sell {ticker} {price}")
		assert.Contains(t, reply.Text, "/profit")
		assert.Contains(t, reply.Text, "/trades")
	}
}

func TestProcessor_UnknownCommand(t *testing.T) {
	p, _ := setupProcessor(t)

	reply := run(p, "short", "AAPL")

	assert.ErrorIs(t, reply.Err, ErrUnknownCommand)
	assert.Contains(t, reply.Text, "/start")
}

func TestProcessor_Buy(t *testing.T) {
	p, store := setupProcessor(t)

	reply := run(p, "buy", "AAPL", "150.5")

	require.NoError(t, reply.Err)
	assert.Equal(t, "✅ Buy order added:\nTicker: AAPL\nPrice: $150.50", reply.Text)

	trade, err := store.FindOldestOpenTrade(context.Background(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.True(t, trade.BuyPrice.Equal(decimal.RequireFromString("150.5")))
	assert.Equal(t, models.TradeStatusOpen, trade.Status)
}

func TestProcessor_BuyValidation(t *testing.T) {
	testCases := []struct {
		name     string
		args     []string
		contains string
	}{
		{name: "Missing price", args: []string{"AAPL"}, contains: "Usage: /buy {ticker} {price}"},
		{name: "No args", args: nil, contains: "Usage: /buy {ticker} {price}"},
		{name: "Too many args", args: []string{"AAPL", "10", "5"}, contains: "Usage: /buy {ticker} {price}"},
		{name: "Malformed price", args: []string{"AAPL", "abc"}, contains: "Usage: /buy {ticker} {price}"},
		{name: "Zero price", args: []string{"AAPL", "0"}, contains: "Price must be greater than 0"},
		{name: "Negative price", args: []string{"AAPL", "-3"}, contains: "Price must be greater than 0"},
		{name: "Huge exponent", args: []string{"AAPL", "1e400"}, contains: "Price must be below $1,000,000,000,000."},
		{name: "Integer part too long", args: []string{"AAPL", "12345678901234567890.5"}, contains: "Price must be below"},
		{name: "Tiny exponent", args: []string{"AAPL", "1e-20000000"}, contains: "at most 8 decimal places"},
		{name: "Nine decimal places", args: []string{"AAPL", "0.000000001"}, contains: "at most 8 decimal places"},
		{name: "Too many significant digits", args: []string{"AAPL", "150.123456789012345"}, contains: "15 significant digits"},
		{name: "Oversized input", args: []string{"AAPL", strings.Repeat("9", 40)}, contains: "Invalid price format"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, store := setupProcessor(t)

			reply := run(p, "buy", tc.args...)

			var vErr *ValidationError
			require.ErrorAs(t, reply.Err, &vErr)
			assert.Equal(t, "buy", vErr.Command)
			assert.Contains(t, reply.Text, tc.contains)

			open, err := store.ListOpenTrades(context.Background())
			require.NoError(t, err)
			assert.Empty(t, open, "invalid input must not touch the ledger")
		})
	}
}

func TestProcessor_BuyKeepsExactPrice(t *testing.T) {
	for _, raw := range []string{"1234567.12345678", "0.00000001", "999999999999", "1.500000000"} {
		t.Run(raw, func(t *testing.T) {
			p, store := setupProcessor(t)

			reply := run(p, "buy", "AAPL", raw)
			require.NoError(t, reply.Err)

			trade, err := store.FindOldestOpenTrade(context.Background(), "AAPL")
			require.NoError(t, err)
			require.NotNil(t, trade)
			assert.True(t, trade.BuyPrice.Equal(decimal.RequireFromString(raw)), "stored %s", trade.BuyPrice)

			open := run(p, "trades")
			require.NoError(t, open.Err)
			assert.Contains(t, open.Text, "*AAPL*")
		})
	}
}

func TestProcessor_SellRejectsUnstorablePrice(t *testing.T) {
	p, store := setupProcessor(t)
	require.NoError(t, run(p, "buy", "AAPL", "10").Err)

	reply := run(p, "sell", "AAPL", "1e400")

	var vErr *ValidationError
	require.ErrorAs(t, reply.Err, &vErr)
	assert.Equal(t, "sell", vErr.Command)

	open, err := store.ListOpenTrades(context.Background())
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestProcessor_RecoversFromPanic(t *testing.T) {
	store := new(MockStore)
	store.On("ListOpenTrades", mock.Anything).Run(func(mock.Arguments) {
		panic("Cannot create a Decimal from +Inf")
	})
	p := NewProcessor(store, zap.NewNop())

	var reply Reply
	require.NotPanics(t, func() { reply = run(p, "trades") })

	assert.Equal(t, "An error occurred. Please try again.", reply.Text)
	require.Error(t, reply.Err)
	assert.Contains(t, reply.Err.Error(), "trades")
}

func TestProcessor_BuyThenSell_Formatting(t *testing.T) {
	p, _ := setupProcessor(t)

	require.NoError(t, run(p, "buy", "AAPL", "100").Err)
	reply := run(p, "sell", "AAPL", "110")

	require.NoError(t, reply.Err)
	assert.Equal(t,
		"📈 Trade closed:\nTicker: AAPL\nBuy Price: $100.00\nSell Price: $110.00\nProfit: $10.00 (+10.00%)",
		reply.Text)
}

func TestProcessor_SellAtLoss(t *testing.T) {
	p, _ := setupProcessor(t)

	require.NoError(t, run(p, "buy", "TSLA", "200").Err)
	reply := run(p, "sell", "TSLA", "150")

	require.NoError(t, reply.Err)
	assert.Contains(t, reply.Text, "📉 Trade closed:")
	assert.Contains(t, reply.Text, "Profit: $-50.00 (-25.00%)")
}

func TestProcessor_SellFIFO(t *testing.T) {
	p, store := setupProcessor(t)
	ctx := context.Background()

	require.NoError(t, run(p, "buy", "AAPL", "10").Err)
	require.NoError(t, run(p, "buy", "AAPL", "20").Err)

	reply := run(p, "sell", "AAPL", "15")
	require.NoError(t, reply.Err)
	assert.Contains(t, reply.Text, "Buy Price: $10.00")

	closed, err := store.ListClosedTrades(ctx)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.True(t, closed[0].BuyPrice.Equal(decimal.NewFromInt(10)))

	open, err := store.ListOpenTrades(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.True(t, open[0].BuyPrice.Equal(decimal.NewFromInt(20)))
}

func TestProcessor_SellCaseInsensitiveTicker(t *testing.T) {
	p, store := setupProcessor(t)

	require.NoError(t, run(p, "buy", "aapl", "10").Err)
	reply := run(p, "sell", "AAPL", "20")

	require.NoError(t, reply.Err)
	assert.Contains(t, reply.Text, "Ticker: AAPL")

	open, err := store.ListOpenTrades(context.Background())
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestProcessor_SellWithoutPosition(t *testing.T) {
	p, store := setupProcessor(t)
	ctx := context.Background()

	require.NoError(t, run(p, "buy", "MSFT", "10").Err)
	reply := run(p, "sell", "AAPL", "20")

	var nfErr *NotFoundError
	require.ErrorAs(t, reply.Err, &nfErr)
	assert.Equal(t, "AAPL", nfErr.Ticker)
	assert.Equal(t, "No open position found for AAPL", reply.Text)

	closed, err := store.ListClosedTrades(ctx)
	require.NoError(t, err)
	assert.Empty(t, closed)
	open, err := store.ListOpenTrades(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestProcessor_SellValidation(t *testing.T) {
	p, store := setupProcessor(t)
	require.NoError(t, run(p, "buy", "AAPL", "10").Err)

	for _, args := range [][]string{{"AAPL"}, {"AAPL", "x1"}, {"AAPL", "0"}} {
		reply := run(p, "sell", args...)
		var vErr *ValidationError
		assert.ErrorAs(t, reply.Err, &vErr, "args %v", args)
	}

	open, err := store.ListOpenTrades(context.Background())
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestProcessor_Profit(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		p, store := setupProcessor(t)

		reply := run(p, "profit")

		assert.NoError(t, reply.Err)
		assert.Equal(t, "No completed trades found.", reply.Text)

		closed, err := store.ListClosedTrades(context.Background())
		require.NoError(t, err)
		assert.True(t, ledger.TotalProfit(closed).IsZero())
	})

	t.Run("Breakdown and total", func(t *testing.T) {
		p, _ := setupProcessor(t)
		require.NoError(t, run(p, "buy", "AAPL", "100").Err)
		require.NoError(t, run(p, "buy", "TSLA", "50").Err)
		require.NoError(t, run(p, "sell", "AAPL", "110").Err)
		require.NoError(t, run(p, "sell", "TSLA", "45").Err)

		reply := run(p, "profit")

		require.NoError(t, reply.Err)
		assert.Equal(t, ParseModeMarkdown, reply.ParseMode)
		assert.Contains(t, reply.Text, "📈 *AAPL*")
		assert.Contains(t, reply.Text, "Buy: $100.00 → Sell: $110.00")
		assert.Contains(t, reply.Text, "Profit: $10.00 (+10.00%)")
		assert.Contains(t, reply.Text, "📉 *TSLA*")
		assert.Contains(t, reply.Text, "Profit: $-5.00 (-10.00%)")
		assert.Contains(t, reply.Text, "🎉 *Total Profit: $5.00*")
		assert.Contains(t, reply.Text, "Closed: ")
	})
}

func TestProcessor_Trades(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		p, _ := setupProcessor(t)

		reply := run(p, "trades")

		assert.NoError(t, reply.Err)
		assert.Equal(t, "No open positions found.", reply.Text)
	})

	t.Run("Listing newest first", func(t *testing.T) {
		p, _ := setupProcessor(t)
		require.NoError(t, run(p, "buy", "AAPL", "10").Err)
		require.NoError(t, run(p, "buy", "MSFT", "20.25").Err)

		reply := run(p, "trades")

		require.NoError(t, reply.Err)
		assert.Equal(t, ParseModeMarkdown, reply.ParseMode)
		assert.Contains(t, reply.Text, "📋 *Open Positions:*")
		assert.Contains(t, reply.Text, "Buy Price: $20.25")
		assert.Contains(t, reply.Text, "Opened: ")
		assert.Less(t, strings.Index(reply.Text, "*MSFT*"), strings.Index(reply.Text, "*AAPL*"))
	})
}

func TestProcessor_PersistenceFailures(t *testing.T) {
	dbErr := &ledger.PersistenceError{Op: "insert open trade", Err: errors.New("database is locked")}

	t.Run("Buy", func(t *testing.T) {
		store := new(MockStore)
		store.On("InsertOpenTrade", mock.Anything, "AAPL", mock.AnythingOfType("decimal.Decimal")).
			Return(uint(0), dbErr)
		p := NewProcessor(store, zap.NewNop())

		reply := run(p, "buy", "AAPL", "10")

		assert.ErrorIs(t, reply.Err, dbErr)
		assert.Equal(t, "An error occurred. Please try again.", reply.Text)
		assert.NotContains(t, reply.Text, "locked")
		store.AssertExpectations(t)
	})

	t.Run("Sell lookup", func(t *testing.T) {
		store := new(MockStore)
		store.On("FindOldestOpenTrade", mock.Anything, "AAPL").Return(nil, dbErr)
		p := NewProcessor(store, zap.NewNop())

		reply := run(p, "sell", "AAPL", "10")

		var pErr *ledger.PersistenceError
		assert.ErrorAs(t, reply.Err, &pErr)
		assert.Equal(t, "An error occurred. Please try again.", reply.Text)
		store.AssertNotCalled(t, "CloseTrade", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Profit and trades", func(t *testing.T) {
		store := new(MockStore)
		store.On("ListClosedTrades", mock.Anything).Return(nil, dbErr)
		store.On("ListOpenTrades", mock.Anything).Return(nil, dbErr)
		p := NewProcessor(store, zap.NewNop())

		assert.Equal(t, "An error occurred. Please try again.", run(p, "profit").Text)
		assert.Equal(t, "An error occurred. Please try again.", run(p, "trades").Text)
		store.AssertExpectations(t)
	})
}

func TestProcessor_SellLosesCloseRace(t *testing.T) {
	store := new(MockStore)
	trade := &models.Trade{
		ID:        7,
		Ticker:    "AAPL",
		BuyPrice:  decimal.NewFromInt(10),
		Status:    models.TradeStatusOpen,
		CreatedAt: time.Now(),
	}
	store.On("FindOldestOpenTrade", mock.Anything, "AAPL").Return(trade, nil)
	store.On("CloseTrade", mock.Anything, uint(7), mock.AnythingOfType("decimal.Decimal")).
		Return(ledger.ErrTradeNotOpen)
	p := NewProcessor(store, zap.NewNop())

	reply := run(p, "sell", "aapl", "12")

	var nfErr *NotFoundError
	assert.ErrorAs(t, reply.Err, &nfErr)
	assert.Equal(t, "No open position found for AAPL", reply.Text)
	store.AssertExpectations(t)
}
