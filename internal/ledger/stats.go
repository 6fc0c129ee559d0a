package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"tradebot-go/internal/models"
)

// StatsDetail holds closed-trade statistics for a given period.
type StatsDetail struct {
	TotalTrades      int64           `json:"total_trades"`
	ProfitableTrades int64           `json:"profitable_trades"`
	WinRate          float64         `json:"win_rate"`
	TotalProfit      decimal.Decimal `json:"total_profit"`
}

// Statistics groups all-time figures with those of the last 24 hours.
type Statistics struct {
	Since24h StatsDetail `json:"since_24h"`
	AllTime  StatsDetail `json:"all_time"`
}

// TotalProfit sums the profit of every closed trade in trades.
func TotalProfit(trades []models.Trade) decimal.Decimal {
	total := decimal.Zero
	for _, t := range trades {
		if t.IsClosed() {
			total = total.Add(t.Profit())
		}
	}
	return total
}

// Summarize computes statistics over closed trades as of now.
// Open trades in the input are ignored.
func Summarize(trades []models.Trade, now time.Time) Statistics {
	since24h := now.Add(-24 * time.Hour)

	stats24h := StatsDetail{TotalProfit: decimal.Zero}
	statsAllTime := StatsDetail{TotalProfit: decimal.Zero}

	for _, trade := range trades {
		if !trade.IsClosed() {
			continue
		}
		profit := trade.Profit()

		statsAllTime.add(profit)
		if trade.ClosedAt.After(since24h) {
			stats24h.add(profit)
		}
	}

	statsAllTime.finish()
	stats24h.finish()

	return Statistics{Since24h: stats24h, AllTime: statsAllTime}
}

func (d *StatsDetail) add(profit decimal.Decimal) {
	d.TotalTrades++
	if profit.IsPositive() {
		d.ProfitableTrades++
	}
	d.TotalProfit = d.TotalProfit.Add(profit)
}

func (d *StatsDetail) finish() {
	if d.TotalTrades > 0 {
		d.WinRate = float64(d.ProfitableTrades) / float64(d.TotalTrades)
	}
}
