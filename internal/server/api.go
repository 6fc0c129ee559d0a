package server

import (
	"net/http"

	"go.uber.org/zap"

	"tradebot-go/internal/ledger"
	"tradebot-go/internal/models"
)

// tradesHandler returns open trades, or closed ones with ?status=closed.
func (s *Server) tradesHandler(w http.ResponseWriter, r *http.Request) {
	status := models.TradeStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.TradeStatusOpen
	}

	var trades []models.Trade
	var err error
	switch status {
	case models.TradeStatusOpen:
		trades, err = s.trades.ListOpenTrades(r.Context())
	case models.TradeStatusClosed:
		trades, err = s.trades.ListClosedTrades(r.Context())
	default:
		writeJSON(w, s.logger, http.StatusBadRequest, map[string]string{"error": "status must be open or closed"})
		return
	}
	if err != nil {
		s.logger.Error("Failed to get trades from ledger", zap.Error(err))
		writeJSON(w, s.logger, http.StatusInternalServerError, map[string]string{"error": "failed to get trades"})
		return
	}

	if trades == nil {
		trades = []models.Trade{}
	}
	writeJSON(w, s.logger, http.StatusOK, trades)
}

// statisticsHandler calculates and returns closed-trade statistics.
func (s *Server) statisticsHandler(w http.ResponseWriter, r *http.Request) {
	closed, err := s.trades.ListClosedTrades(r.Context())
	if err != nil {
		s.logger.Error("Failed to get trades for statistics", zap.Error(err))
		writeJSON(w, s.logger, http.StatusInternalServerError, map[string]string{"error": "failed to calculate statistics"})
		return
	}

	writeJSON(w, s.logger, http.StatusOK, ledger.Summarize(closed, s.now()))
}
