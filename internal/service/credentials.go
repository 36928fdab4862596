package service

import (
	"context"

	"reydbot/internal/account"
	"reydbot/internal/domain"
	"reydbot/internal/metrics"
	"reydbot/internal/repository"
	"reydbot/internal/session"

	"go.uber.org/zap"
)

// sessionReset forgets an account session Telegram no longer accepts
type sessionReset struct {
	users    repository.UserRepository
	registry *session.Registry
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// reset clears the stored credential, drops and disconnects client and asks
// the user to log in again. client is nil when no handle was registered.
// A client already replaced by a newer login is left alone.
func (s sessionReset) reset(ctx context.Context, chatID int64, client account.Client) {
	if client != nil {
		if !s.registry.DropClient(chatID, client) {
			return
		}
		_ = client.Disconnect()
		s.metrics.ActiveClients.Set(float64(s.registry.ClientCount()))
	}

	if err := s.users.ClearCredential(ctx, chatID); err != nil {
		s.logger.Error("Failed to clear credential", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	s.logger.Warn("Account session invalidated", zap.Int64("chat_id", chatID))
	notify(ctx, s.notifier, s.logger, chatID, domain.Text(msgSessionReset))
}
