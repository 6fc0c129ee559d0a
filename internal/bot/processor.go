package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradebot-go/internal/ledger"
)

// ParseModeMarkdown asks the chat transport to render *bold* markers.
const ParseModeMarkdown = "Markdown"

// Command is an already tokenized chat command, e.g. {"buy", ["AAPL", "150.50"]}.
type Command struct {
	Name string
	Args []string
}

// Reply is the outcome of one command. Text is always safe to show to the user;
// Err carries the failure variant (ValidationError, NotFoundError,
// ledger.PersistenceError, ErrUnknownCommand) for the caller to inspect or log.
type Reply struct {
	Text      string
	ParseMode string
	Err       error
}

type handlerFunc func(ctx context.Context, args []string) (Reply, error)

// Processor validates chat commands, applies them to the ledger and formats the replies.
type Processor struct {
	store    ledger.Store
	logger   *zap.Logger
	handlers map[string]handlerFunc
}

// NewProcessor creates a Processor backed by store.
func NewProcessor(store ledger.Store, logger *zap.Logger) *Processor {
	p := &Processor{
		store:  store,
		logger: logger.Named("processor"),
	}
	p.handlers = map[string]handlerFunc{
		"start":  p.start,
		"help":   p.start,
		"buy":    p.buy,
		"sell":   p.sell,
		"profit": p.profit,
		"trades": p.trades,
	}
	return p
}

// Handle runs cmd and always produces a reply; no error escapes as a panic or
// a missing message.
func (p *Processor) Handle(ctx context.Context, cmd Command) (reply Reply) {
	name := strings.ToLower(strings.TrimPrefix(cmd.Name, "/"))
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Command panicked", zap.String("command", name), zap.Any("panic", r))
			reply = Reply{Text: genericFailureText, Err: fmt.Errorf("command %s panicked: %v", name, r)}
		}
	}()

	handler, ok := p.handlers[name]
	if !ok {
		return Reply{Text: unknownCommandText, Err: ErrUnknownCommand}
	}

	out, err := handler(ctx, cmd.Args)
	if err != nil {
		return p.replyForError(name, err)
	}
	return out
}

func (p *Processor) replyForError(command string, err error) Reply {
	var validationErr *ValidationError
	var notFoundErr *NotFoundError

	switch {
	case errors.As(err, &validationErr):
		return Reply{Text: validationErr.Message, Err: err}
	case errors.As(err, &notFoundErr):
		return Reply{Text: "No open position found for " + notFoundErr.Ticker, Err: err}
	default:
		p.logger.Error("Command failed", zap.String("command", command), zap.Error(err))
		return Reply{Text: genericFailureText, Err: err}
	}
}

func (p *Processor) start(_ context.Context, _ []string) (Reply, error) {
	return Reply{Text: helpText}, nil
}

func (p *Processor) buy(ctx context.Context, args []string) (Reply, error) {
	ticker, price, err := parseTickerAndPrice("buy", "AAPL 150.50", args)
	if err != nil {
		return Reply{}, err
	}

	id, err := p.store.InsertOpenTrade(ctx, ticker, price)
	if err != nil {
		return Reply{}, err
	}

	p.logger.Info("Buy recorded",
		zap.Uint("trade_id", id),
		zap.String("ticker", ticker),
		zap.Stringer("price", price),
	)
	return Reply{Text: formatBuy(ticker, price)}, nil
}

func (p *Processor) sell(ctx context.Context, args []string) (Reply, error) {
	ticker, price, err := parseTickerAndPrice("sell", "AAPL 155.75", args)
	if err != nil {
		return Reply{}, err
	}

	trade, err := p.store.FindOldestOpenTrade(ctx, ticker)
	if err != nil {
		return Reply{}, err
	}
	if trade == nil {
		return Reply{}, &NotFoundError{Ticker: ticker}
	}

	if err := p.store.CloseTrade(ctx, trade.ID, price); err != nil {
		if errors.Is(err, ledger.ErrTradeNotOpen) {
			return Reply{}, &NotFoundError{Ticker: ticker}
		}
		return Reply{}, err
	}

	closed := *trade
	closed.SellPrice = decimal.NewNullDecimal(price)

	p.logger.Info("Sell recorded",
		zap.Uint("trade_id", trade.ID),
		zap.String("ticker", ticker),
		zap.Stringer("profit", closed.Profit()),
	)
	return Reply{Text: formatSell(closed)}, nil
}

func (p *Processor) profit(ctx context.Context, _ []string) (Reply, error) {
	trades, err := p.store.ListClosedTrades(ctx)
	if err != nil {
		return Reply{}, err
	}
	if len(trades) == 0 {
		return Reply{Text: noClosedTradesText}, nil
	}

	total := ledger.TotalProfit(trades)
	return Reply{Text: formatProfit(trades, total), ParseMode: ParseModeMarkdown}, nil
}

func (p *Processor) trades(ctx context.Context, _ []string) (Reply, error) {
	trades, err := p.store.ListOpenTrades(ctx)
	if err != nil {
		return Reply{}, err
	}
	if len(trades) == 0 {
		return Reply{Text: noOpenTradesText}, nil
	}
	return Reply{Text: formatOpenTrades(trades), ParseMode: ParseModeMarkdown}, nil
}

// parseTickerAndPrice validates the {ticker} {price} argument pair shared by buy and sell.
func parseTickerAndPrice(command, example string, args []string) (string, decimal.Decimal, error) {
	if len(args) != 2 {
		return "", decimal.Zero, &ValidationError{Command: command, Message: usage(command, example)}
	}

	ticker := strings.ToUpper(strings.TrimSpace(args[0]))
	if ticker == "" {
		return "", decimal.Zero, &ValidationError{Command: command, Message: usage(command, example)}
	}

	raw := strings.TrimSpace(args[1])
	invalidFormat := &ValidationError{
		Command: command,
		Message: "Invalid price format. Please use numbers only.\n" + usage(command, example),
	}
	if len(raw) > maxPriceInputLen {
		return "", decimal.Zero, invalidFormat
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return "", decimal.Zero, invalidFormat
	}

	switch err := ledger.ValidatePrice(price); {
	case errors.Is(err, ledger.ErrInvalidPrice):
		return "", decimal.Zero, &ValidationError{Command: command, Message: "Price must be greater than 0"}
	case errors.Is(err, ledger.ErrPriceTooLarge):
		return "", decimal.Zero, &ValidationError{Command: command, Message: priceTooLargeText}
	case err != nil:
		return "", decimal.Zero, &ValidationError{Command: command, Message: priceTooPreciseText}
	}

	return ticker, price, nil
}
