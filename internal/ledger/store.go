package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tradebot-go/internal/database"
	"tradebot-go/internal/models"
)

// Store is the durable record of trades.
type Store interface {
	// Initialize ensures the backing table exists. Repeated calls are no-ops.
	Initialize(ctx context.Context) error
	// InsertOpenTrade appends a new open trade and returns its id.
	InsertOpenTrade(ctx context.Context, ticker string, buyPrice decimal.Decimal) (uint, error)
	// FindOldestOpenTrade returns the earliest opened trade for ticker, or nil if there is none.
	FindOldestOpenTrade(ctx context.Context, ticker string) (*models.Trade, error)
	// CloseTrade records the sell of an open trade.
	CloseTrade(ctx context.Context, id uint, sellPrice decimal.Decimal) error
	// ListClosedTrades returns closed trades, most recently closed first.
	ListClosedTrades(ctx context.Context) ([]models.Trade, error)
	// ListOpenTrades returns open trades, most recently opened first.
	ListOpenTrades(ctx context.Context) ([]models.Trade, error)
}

// GormStore implements Store on top of gorm.
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time

	mu          sync.Mutex
	initialized bool
}

// ensure GormStore implements the interface
var _ Store = (*GormStore)(nil)

// NewGormStore creates a store backed by db.
func NewGormStore(db *gorm.DB, logger *zap.Logger) *GormStore {
	return &GormStore{
		db:     db,
		logger: logger.Named("ledger"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Initialize runs the schema migration the first time it is called.
func (s *GormStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	if err := database.AutoMigrate(s.db.WithContext(ctx)); err != nil {
		return persistenceError("initialize", err)
	}
	s.initialized = true
	s.logger.Info("Trade ledger schema ready")
	return nil
}

func (s *GormStore) InsertOpenTrade(ctx context.Context, ticker string, buyPrice decimal.Decimal) (uint, error) {
	if err := ValidatePrice(buyPrice); err != nil {
		return 0, fmt.Errorf("insert %s: %w", ticker, err)
	}

	trade := models.Trade{
		Ticker:    ticker,
		BuyPrice:  buyPrice,
		Quantity:  decimal.NewFromInt(1),
		Status:    models.TradeStatusOpen,
		CreatedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&trade).Error; err != nil {
		return 0, persistenceError("insert open trade", err)
	}

	s.logger.Debug("Opened trade",
		zap.Uint("trade_id", trade.ID),
		zap.String("ticker", ticker),
		zap.Stringer("buy_price", buyPrice),
	)
	return trade.ID, nil
}

func (s *GormStore) FindOldestOpenTrade(ctx context.Context, ticker string) (*models.Trade, error) {
	var trade models.Trade
	res := s.db.WithContext(ctx).
		Where("ticker = ? AND status = ?", ticker, models.TradeStatusOpen).
		Order("created_at ASC").
		Order("id ASC").
		Limit(1).
		Find(&trade)
	if res.Error != nil {
		return nil, persistenceError("find oldest open trade", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &trade, nil
}

// CloseTrade only updates a row that is still open, so a trade can never be
// closed twice or re-priced after closing.
func (s *GormStore) CloseTrade(ctx context.Context, id uint, sellPrice decimal.Decimal) error {
	if err := ValidatePrice(sellPrice); err != nil {
		return fmt.Errorf("close trade %d: %w", id, err)
	}

	res := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("id = ? AND status = ?", id, models.TradeStatusOpen).
		Updates(map[string]interface{}{
			"status":     models.TradeStatusClosed,
			"sell_price": sellPrice,
			"closed_at":  s.now(),
		})
	if res.Error != nil {
		return persistenceError("close trade", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("close trade %d: %w", id, ErrTradeNotOpen)
	}

	s.logger.Debug("Closed trade", zap.Uint("trade_id", id), zap.Stringer("sell_price", sellPrice))
	return nil
}

func (s *GormStore) ListClosedTrades(ctx context.Context) ([]models.Trade, error) {
	var trades []models.Trade
	err := s.db.WithContext(ctx).
		Where("status = ?", models.TradeStatusClosed).
		Order("closed_at DESC").
		Order("id DESC").
		Find(&trades).Error
	if err != nil {
		return nil, persistenceError("list closed trades", err)
	}
	return trades, nil
}

func (s *GormStore) ListOpenTrades(ctx context.Context) ([]models.Trade, error) {
	var trades []models.Trade
	err := s.db.WithContext(ctx).
		Where("status = ?", models.TradeStatusOpen).
		Order("created_at DESC").
		Order("id DESC").
		Find(&trades).Error
	if err != nil {
		return nil, persistenceError("list open trades", err)
	}
	return trades, nil
}
