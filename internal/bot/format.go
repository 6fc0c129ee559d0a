package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradebot-go/internal/ledger"
	"tradebot-go/internal/models"
)

const timestampLayout = "2006-01-02 15:04:05"

const helpText = "Welcome to TradeBot! 📈\n\n" +
	"Available commands:\n" +
	"/buy {ticker} {price} - Add a buy trade\n" +
	"/sell {ticker} {price} - Close a trade\n" +
	"/profit - Show profit from completed trades\n" +
	"/trades - Show all open positions"

const (
	genericFailureText = "An error occurred. Please try again."
	unknownCommandText = "Unknown command. Send /start to see the available commands."
	noClosedTradesText = "No completed trades found."
	noOpenTradesText   = "No open positions found."
)

// maxPriceInputLen rejects oversized price arguments before they are parsed.
const maxPriceInputLen = 32

const priceTooLargeText = "Price must be below $1,000,000,000,000."

var priceTooPreciseText = fmt.Sprintf("Price can have at most %d decimal places and %d significant digits.",
	ledger.MaxPriceScale, ledger.MaxPriceDigits)

// money formats v as a dollar amount with two decimals, e.g. $10.00 or $-5.00.
func money(v decimal.Decimal) string {
	return "$" + v.StringFixed(2)
}

// percent formats v with an explicit sign, e.g. +10.00% or -3.25%.
func percent(v decimal.Decimal) string {
	rounded := v.Round(2)
	sign := ""
	if rounded.Sign() >= 0 {
		sign = "+"
	}
	return sign + rounded.StringFixed(2) + "%"
}

func profitIndicator(profit decimal.Decimal) string {
	if profit.Sign() >= 0 {
		return "📈"
	}
	return "📉"
}

func totalIndicator(total decimal.Decimal) string {
	if total.Sign() >= 0 {
		return "🎉"
	}
	return "😞"
}

func timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func usage(command, example string) string {
	return fmt.Sprintf("Usage: /%s {ticker} {price}\nExample: /%s %s", command, command, example)
}

func formatBuy(ticker string, price decimal.Decimal) string {
	return fmt.Sprintf("✅ Buy order added:\nTicker: %s\nPrice: %s", ticker, money(price))
}

func formatSell(trade models.Trade) string {
	profit := trade.Profit()
	return fmt.Sprintf("%s Trade closed:\nTicker: %s\nBuy Price: %s\nSell Price: %s\nProfit: %s (%s)",
		profitIndicator(profit),
		trade.Ticker,
		money(trade.BuyPrice),
		money(trade.SellPrice.Decimal),
		money(profit),
		percent(trade.ProfitPercent()),
	)
}

func formatProfit(trades []models.Trade, total decimal.Decimal) string {
	var b strings.Builder
	b.WriteString("📊 *Completed Trades & Profits:*\n\n")

	for _, t := range trades {
		profit := t.Profit()
		fmt.Fprintf(&b, "%s *%s*\n", profitIndicator(profit), t.Ticker)
		fmt.Fprintf(&b, "   Buy: %s → Sell: %s\n", money(t.BuyPrice), money(t.SellPrice.Decimal))
		fmt.Fprintf(&b, "   Profit: %s (%s)\n", money(profit), percent(t.ProfitPercent()))
		if t.ClosedAt != nil {
			fmt.Fprintf(&b, "   Closed: %s\n", timestamp(*t.ClosedAt))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s *Total Profit: %s*", totalIndicator(total), money(total))
	return b.String()
}

func formatOpenTrades(trades []models.Trade) string {
	var b strings.Builder
	b.WriteString("📋 *Open Positions:*\n\n")

	for i, t := range trades {
		fmt.Fprintf(&b, "📈 *%s*\n", t.Ticker)
		fmt.Fprintf(&b, "   Buy Price: %s\n", money(t.BuyPrice))
		fmt.Fprintf(&b, "   Opened: %s", timestamp(t.CreatedAt))
		if i < len(trades)-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}
