package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"reydbot/internal/account"
	"reydbot/internal/domain"
	"reydbot/internal/metrics"
	"reydbot/internal/repository"
	"reydbot/internal/session"

	"go.uber.org/zap"
)

// Watcher auto-clicks reward buttons in chats seen by user accounts
type Watcher struct {
	users    repository.UserRepository
	registry *session.Registry
	notifier Notifier
	metrics  *metrics.Metrics
	labels   []string
	logger   *zap.Logger
	sessions sessionReset

	mu       sync.Mutex
	attached map[int64]account.Client
}

// NewWatcher creates a watcher matching the given button labels
func NewWatcher(
	users repository.UserRepository,
	registry *session.Registry,
	notifier Notifier,
	m *metrics.Metrics,
	labels []string,
	logger *zap.Logger,
) *Watcher {
	normalized := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
			normalized = append(normalized, l)
		}
	}
	return &Watcher{
		users:    users,
		registry: registry,
		notifier: notifier,
		metrics:  m,
		labels:   normalized,
		logger:   logger,
		sessions: sessionReset{users: users, registry: registry, notifier: notifier, metrics: m, logger: logger},
		attached: make(map[int64]account.Client),
	}
}

// Attach subscribes to client messages. Attaching the same client twice
// is a no-op; a new client replaces the previous one of the chat.
func (w *Watcher) Attach(chatID int64, client account.Client) {
	w.mu.Lock()
	if w.attached[chatID] == client {
		w.mu.Unlock()
		return
	}
	w.attached[chatID] = client
	w.mu.Unlock()

	client.OnMessage(func(ctx context.Context, msg account.Message) {
		w.handle(ctx, chatID, client, msg)
	})
}

// Match returns the first button whose label equals a watched label
func (w *Watcher) Match(buttons [][]account.Button) (row, col int, ok bool) {
	for i, r := range buttons {
		for j, b := range r {
			text := strings.ToLower(strings.TrimSpace(b.Text))
			for _, label := range w.labels {
				if text == label {
					return i, j, true
				}
			}
		}
	}
	return 0, 0, false
}

func (w *Watcher) handle(ctx context.Context, chatID int64, client account.Client, msg account.Message) {
	if msg.Out || len(msg.Buttons) == 0 || !w.registry.WatchEnabled(chatID) {
		return
	}
	if current, ok := w.registry.Client(chatID); !ok || current != client {
		// updates of a replaced or dropped handle
		w.detach(chatID, client)
		return
	}
	row, col, ok := w.Match(msg.Buttons)
	if !ok {
		return
	}

	if err := client.Click(ctx, msg, row, col); err != nil {
		if domain.IsKind(err, domain.ErrSessionInvalid) {
			w.detach(chatID, client)
			w.sessions.reset(ctx, chatID, client)
			return
		}
		w.logger.Warn("Failed to click button",
			zap.Int64("chat_id", chatID),
			zap.String("chat", msg.Chat.Title),
			zap.Error(err),
		)
		return
	}
	w.metrics.Clicks.Inc()

	total, err := w.users.IncrementCounter(ctx, chatID, domain.CounterClicks, 1)
	if err != nil {
		w.logger.Error("Failed to count click", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	notify(ctx, w.notifier, w.logger, chatID, domain.Markdown(
		fmt.Sprintf("💎 *%d-almaz*\n📂 Guruh: *%s*", total, msg.Chat.Title),
	))
}

func (w *Watcher) detach(chatID int64, client account.Client) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.attached[chatID] == client {
		delete(w.attached, chatID)
	}
}

// Toggle flips auto-click for the chat and returns the new value
func (w *Watcher) Toggle(chatID int64) bool {
	enabled := w.registry.ToggleWatch(chatID)
	w.logger.Info("Watcher toggled", zap.Int64("chat_id", chatID), zap.Bool("enabled", enabled))
	return enabled
}

// Screen renders the Avto Almaz status with its toggle button
func (w *Watcher) Screen(ctx context.Context, chatID int64) (domain.Message, error) {
	user, err := w.users.GetUser(ctx, chatID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("watcher screen: %w", err)
	}
	if user == nil {
		return domain.Message{}, ErrUserNotFound
	}

	status, button := "✅ Faol", "⏸ O'chirish"
	if !w.registry.WatchEnabled(chatID) {
		status, button = "⏸ O'chirilgan", "▶️ Yoqish"
	}
	text := fmt.Sprintf(
		"💎 *Avto Almaz*\n\n*Holat:* %s\n💎 *Jami to'plangan:* %d ta\n\nBot avtomatik ravishda guruhlardagi 💎 tugmalarini bosib almaz yig'adi.",
		status, user.Clicks,
	)
	return domain.Message{
		Text:     text,
		Markdown: true,
		Inline:   [][]domain.Button{{{Text: button, Unique: CallbackWatchToggle}}},
	}, nil
}
