package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"tradebot-go/internal/bot"
	"tradebot-go/internal/config"
	"tradebot-go/internal/ledger"
	"tradebot-go/internal/models"
)

// CommandHandler processes one chat command.
type CommandHandler interface {
	Handle(ctx context.Context, cmd bot.Command) bot.Reply
}

// ReplySender delivers a reply to a chat.
type ReplySender interface {
	SendMessage(ctx context.Context, chatID int64, text, parseMode string) error
}

// TradeLister is the read side of the ledger used by the JSON API.
type TradeLister interface {
	ListOpenTrades(ctx context.Context) ([]models.Trade, error)
	ListClosedTrades(ctx context.Context) ([]models.Trade, error)
}

// Server receives Telegram webhook updates and exposes a read-only trade API.
type Server struct {
	server      *http.Server
	cfg         config.Server
	logger      *zap.Logger
	botUsername string
	commands    CommandHandler
	sender      ReplySender
	trades      TradeLister
	now         func() time.Time

	// mu serializes command processing: the ledger assumes one writer at a time.
	mu sync.Mutex
}

// NewServer creates a new Server. Nothing listens until Start is called.
// botUsername filters group-chat commands of the form /cmd@botname.
func NewServer(cfg config.Server, logger *zap.Logger, botUsername string, commands CommandHandler, sender ReplySender, trades TradeLister) *Server {
	if cfg.WebhookPath == "" {
		cfg.WebhookPath = "/webhook"
	}

	s := &Server{
		cfg:         cfg,
		logger:      logger.Named("server"),
		botUsername: botUsername,
		commands:    commands,
		sender:      sender,
		trades:      trades,
		now:         time.Now,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes builds the HTTP router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/", s.healthHandler)
	r.Get("/healthz", s.healthHandler)
	r.Post(s.cfg.WebhookPath, s.webhookHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/trades", s.tradesHandler)
		r.Get("/statistics", s.statisticsHandler)
	})

	return r
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting webhook server",
		zap.String("address", s.server.Addr),
		zap.String("webhook_path", s.cfg.WebhookPath),
	)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Webhook server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping webhook server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "TradeBot is running"})
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}

// the ledger store satisfies the read API
var _ TradeLister = ledger.Store(nil)
