package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"tradebot-go/internal/ledger"
	"tradebot-go/internal/telegram"
)

// webhookHandler processes one Telegram update. Once a command has run the
// update is acknowledged with 200, even if the reply could not be sent.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.logger.Warn("Malformed webhook payload", zap.Error(err))
		writeJSON(w, s.logger, http.StatusBadRequest, map[string]string{"error": "malformed update"})
		return
	}

	msg := update.EffectiveMessage()
	if msg == nil {
		writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	cmd, ok := telegram.ParseCommand(msg.Text, s.botUsername)
	if !ok {
		writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	l := s.logger.With(
		zap.Int64("update_id", update.UpdateID),
		zap.Int64("chat_id", msg.Chat.ID),
		zap.String("command", cmd.Name),
	)

	s.mu.Lock()
	reply := s.commands.Handle(r.Context(), cmd)
	s.mu.Unlock()

	var persistenceErr *ledger.PersistenceError
	if errors.As(reply.Err, &persistenceErr) {
		l.Error("Ledger operation failed", zap.Error(reply.Err))
	} else if reply.Err != nil {
		l.Debug("Command rejected", zap.Error(reply.Err))
	}

	if err := s.sender.SendMessage(r.Context(), msg.Chat.ID, reply.Text, reply.ParseMode); err != nil {
		l.Error("Failed to send reply", zap.Error(err))
	}

	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}
