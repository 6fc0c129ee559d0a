package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeStatus is the lifecycle state of a trade.
type TradeStatus string

const (
	TradeStatusOpen   TradeStatus = "open"
	TradeStatusClosed TradeStatus = "closed"
)

// Trade is one manual buy, optionally paired with the sell that closed it.
// A trade is closed if and only if SellPrice and ClosedAt are both set.
type Trade struct {
	ID        uint                `gorm:"primaryKey;autoIncrement" json:"id"`
	Ticker    string              `gorm:"not null;index:idx_trades_ticker_status" json:"ticker"`
	BuyPrice  decimal.Decimal     `gorm:"type:decimal(20,8);not null" json:"buy_price"`
	SellPrice decimal.NullDecimal `gorm:"type:decimal(20,8)" json:"sell_price"`
	Quantity  decimal.Decimal     `gorm:"type:decimal(20,8);not null;default:1" json:"quantity"`
	Status    TradeStatus         `gorm:"type:varchar(10);not null;index:idx_trades_ticker_status" json:"status"`
	CreatedAt time.Time           `gorm:"not null" json:"created_at"`
	ClosedAt  *time.Time          `json:"closed_at,omitempty"`
}

// IsClosed reports whether the trade has been paired with a sell.
func (t Trade) IsClosed() bool {
	return t.Status == TradeStatusClosed && t.SellPrice.Valid && t.ClosedAt != nil
}

// Profit returns sell minus buy price, or zero for an open trade.
func (t Trade) Profit() decimal.Decimal {
	if !t.SellPrice.Valid {
		return decimal.Zero
	}
	return t.SellPrice.Decimal.Sub(t.BuyPrice)
}

// ProfitPercent returns the profit relative to the buy price, in percent.
func (t Trade) ProfitPercent() decimal.Decimal {
	if t.BuyPrice.IsZero() {
		return decimal.Zero
	}
	return t.Profit().Div(t.BuyPrice).Mul(decimal.NewFromInt(100))
}
