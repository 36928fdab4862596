package service

import (
	"context"
	"fmt"
	"strings"

	"reydbot/internal/domain"
	"reydbot/internal/repository"
	"reydbot/internal/session"

	"go.uber.org/zap"
)

// StatsService renders usage reports
type StatsService struct {
	users      repository.UserRepository
	registry   *session.Registry
	operatorID int64
	logger     *zap.Logger
}

// NewStatsService creates a new stats service
func NewStatsService(users repository.UserRepository, registry *session.Registry, operatorID int64, logger *zap.Logger) *StatsService {
	return &StatsService{
		users:      users,
		registry:   registry,
		operatorID: operatorID,
		logger:     logger,
	}
}

// Report lists every user with status and clicks. Operator only.
func (s *StatsService) Report(ctx context.Context, actorID int64) (domain.Message, error) {
	if actorID != s.operatorID {
		return domain.Message{}, ErrNotOperator
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return domain.Message{}, fmt.Errorf("stats report: %w", err)
	}

	var b strings.Builder
	b.WriteString("📊 Statistika\n\n")
	var approved, pending, blocked, clicks int
	for _, u := range users {
		switch u.Status {
		case domain.StatusApproved:
			approved++
		case domain.StatusBlocked:
			blocked++
		default:
			pending++
		}
		clicks += u.Clicks

		online := ""
		if _, ok := s.registry.Client(u.ChatID); ok {
			online = " 🟢"
		}
		fmt.Fprintf(&b, "%s %s (%d)%s: 💎 %d\n", u.Status.Icon(), u.Name, u.ChatID, online, u.Clicks)
	}
	fmt.Fprintf(&b, "\nJami: %d | ✅ %d | ⏳ %d | ⛔️ %d\n💎 Jami almaz: %d\n🟢 Ulangan: %d",
		len(users), approved, pending, blocked, clicks, s.registry.ClientCount())

	return domain.Text(b.String()), nil
}

// Profile renders the user's own counters with a reset button
func (s *StatsService) Profile(ctx context.Context, chatID int64) (domain.Message, error) {
	user, err := s.users.GetUser(ctx, chatID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("profile %d: %w", chatID, err)
	}
	if user == nil {
		return domain.Message{}, ErrUserNotFound
	}

	text := fmt.Sprintf(
		"📊 *Profil*\n\n👤 Ism: %s\n🆔 ID: `%d`\n📌 Holat: %s\n\n💎 Almazlar: %d\n⚔️ Reydlar: %d\n👥 Yig'ilgan userlar: %d\n📣 Reklamalar: %d\n\n📅 Qo'shilgan: %s",
		escapeMarkdown(user.Name), user.ChatID, user.Status.Label(),
		user.Clicks, user.ReydCount, user.UsersGathered, user.AdsCount,
		user.JoinedAt.Format("2006-01-02"),
	)
	return domain.Message{
		Text:     text,
		Markdown: true,
		Inline:   [][]domain.Button{{{Text: "♻️ Statistikani tozalash", Unique: CallbackResetStats}}},
	}, nil
}

// ResetCounters zeroes the user's counters
func (s *StatsService) ResetCounters(ctx context.Context, chatID int64) error {
	if err := s.users.ResetCounters(ctx, chatID); err != nil {
		return fmt.Errorf("reset counters %d: %w", chatID, err)
	}
	s.logger.Info("Counters reset", zap.Int64("chat_id", chatID))
	return nil
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
