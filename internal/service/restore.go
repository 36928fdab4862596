package service

import (
	"context"
	"fmt"

	"reydbot/internal/account"
	"reydbot/internal/domain"
	"reydbot/internal/metrics"
	"reydbot/internal/repository"
	"reydbot/internal/session"

	"go.uber.org/zap"
)

// Restorer reconnects stored account sessions
type Restorer struct {
	users    repository.UserRepository
	registry *session.Registry
	dialer   account.Dialer
	notifier Notifier
	watcher  *Watcher
	metrics  *metrics.Metrics
	logger   *zap.Logger
	sessions sessionReset
}

// NewRestorer creates a new session restorer
func NewRestorer(
	users repository.UserRepository,
	registry *session.Registry,
	dialer account.Dialer,
	notifier Notifier,
	watcher *Watcher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Restorer {
	return &Restorer{
		users:    users,
		registry: registry,
		dialer:   dialer,
		notifier: notifier,
		watcher:  watcher,
		metrics:  m,
		logger:   logger,
		sessions: sessionReset{users: users, registry: registry, notifier: notifier, metrics: m, logger: logger},
	}
}

// RestoreAll connects every approved user with a stored credential and
// returns how many handles are live afterwards
func (r *Restorer) RestoreAll(ctx context.Context) (int, error) {
	users, err := r.users.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore sessions: %w", err)
	}

	restored := 0
	for i := range users {
		u := &users[i]
		if !u.IsApproved() || !u.HasCredential() {
			continue
		}
		if ctx.Err() != nil {
			return restored, ctx.Err()
		}
		if err := r.Restore(ctx, u); err != nil {
			r.logger.Warn("Failed to restore session", zap.Int64("chat_id", u.ChatID), zap.Error(err))
			continue
		}
		restored++
	}
	r.logger.Info("Sessions restored", zap.Int("restored", restored))
	return restored, nil
}

// Restore connects one user's stored credential. An invalid session is
// cleared and the user is told to log in again.
func (r *Restorer) Restore(ctx context.Context, user *domain.User) error {
	if _, ok := r.registry.Client(user.ChatID); ok {
		return nil
	}

	client, err := r.dialer.Connect(ctx, user.Credential)
	if err != nil {
		if domain.IsKind(err, domain.ErrSessionInvalid) {
			r.sessions.reset(ctx, user.ChatID, nil)
		}
		return fmt.Errorf("restore %d: %w", user.ChatID, err)
	}

	if old := r.registry.SetClient(user.ChatID, client); old != nil && old != client {
		_ = old.Disconnect()
	}
	r.watcher.Attach(user.ChatID, client)
	r.metrics.ActiveClients.Set(float64(r.registry.ClientCount()))
	r.logger.Info("Session restored", zap.Int64("chat_id", user.ChatID))
	return nil
}

// EnsureClient restores the handle of an approved user on demand. It
// reports whether a live handle exists afterwards.
func (r *Restorer) EnsureClient(ctx context.Context, user *domain.User) bool {
	if _, ok := r.registry.Client(user.ChatID); ok {
		return true
	}
	if !user.IsApproved() || !user.HasCredential() {
		return false
	}
	if err := r.Restore(ctx, user); err != nil {
		r.logger.Warn("Failed to restore session", zap.Int64("chat_id", user.ChatID), zap.Error(err))
		return false
	}
	return true
}
