package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"reydbot/internal/domain"
	"reydbot/internal/repository"
	"reydbot/internal/session"

	"go.uber.org/zap"
)

var (
	ErrNotOperator  = errors.New("only the operator can do this")
	ErrUserNotFound = errors.New("user not found")
	ErrNotApproved  = errors.New("user is not approved")
	ErrNotLoggedIn  = errors.New("account is not connected")
	// ErrOperatorTarget is returned when blocking the operator
	ErrOperatorTarget = errors.New("operator cannot be blocked")
)

// AdmissionService handles user admission and access checks
type AdmissionService struct {
	users      repository.UserRepository
	registry   *session.Registry
	notifier   Notifier
	operatorID int64
	logger     *zap.Logger
}

// NewAdmissionService creates a new admission service
func NewAdmissionService(
	users repository.UserRepository,
	registry *session.Registry,
	notifier Notifier,
	operatorID int64,
	logger *zap.Logger,
) *AdmissionService {
	return &AdmissionService{
		users:      users,
		registry:   registry,
		notifier:   notifier,
		operatorID: operatorID,
		logger:     logger,
	}
}

// IsOperator reports whether chatID is the bot operator
func (s *AdmissionService) IsOperator(chatID int64) bool {
	return chatID == s.operatorID
}

// Admit registers first contact and sends the notices the status calls for.
// The returned user is approved only when the caller may continue.
func (s *AdmissionService) Admit(ctx context.Context, chatID int64, name string) (*domain.User, error) {
	user, err := s.users.GetUser(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("admit %d: %w", chatID, err)
	}

	if s.IsOperator(chatID) {
		return s.admitOperator(ctx, chatID, name, user)
	}

	if user == nil {
		user, err = s.users.CreateUser(ctx, chatID, name, domain.StatusPending)
		if err != nil {
			return nil, fmt.Errorf("admit %d: %w", chatID, err)
		}
		s.logger.Info("New user registered", zap.Int64("chat_id", chatID), zap.String("name", name))
		s.send(ctx, chatID, pendingMessage(user.Name))
		s.notifyOperator(ctx, user, "🆕 *Yangi foydalanuvchi ro'yxatdan o'tdi!*")
		return user, nil
	}

	switch user.Status {
	case domain.StatusPending:
		s.send(ctx, chatID, pendingMessage(user.Name))
		s.notifyOperator(ctx, user, "⏳ *Foydalanuvchi hali ham kutmoqda!*")
	case domain.StatusBlocked:
		s.send(ctx, chatID, pendingMessage(user.Name))
	}
	return user, nil
}

func (s *AdmissionService) admitOperator(ctx context.Context, chatID int64, name string, user *domain.User) (*domain.User, error) {
	if user == nil {
		created, err := s.users.CreateUser(ctx, chatID, name, domain.StatusApproved)
		if err != nil {
			return nil, fmt.Errorf("admit operator: %w", err)
		}
		s.send(ctx, chatID, domain.Text(msgAdminWelcome))
		return created, nil
	}
	if user.Status != domain.StatusApproved {
		if err := s.users.SetStatus(ctx, chatID, domain.StatusApproved); err != nil {
			return nil, fmt.Errorf("restore operator: %w", err)
		}
		user.Status = domain.StatusApproved
		s.send(ctx, chatID, domain.Text(msgAdminRestore))
	}
	return user, nil
}

func (s *AdmissionService) notifyOperator(ctx context.Context, user *domain.User, title string) {
	id := strconv.FormatInt(user.ChatID, 10)
	text := fmt.Sprintf(
		"%s\n👤 Ism: %s\n🆔 ID: `%d`\nStatus: Pending\n/approve %d - Tasdiqlash\n/block %d - Bloklash",
		title, escapeMarkdown(user.Name), user.ChatID, user.ChatID, user.ChatID,
	)
	s.send(ctx, s.operatorID, domain.Message{
		Text:     text,
		Markdown: true,
		Inline: [][]domain.Button{{
			{Text: "✅ Tasdiqlash", Unique: CallbackApprove, Data: id},
			{Text: "⛔️ Bloklash", Unique: CallbackBlock, Data: id},
		}},
	})
}

// Approve lets a pending user in
func (s *AdmissionService) Approve(ctx context.Context, actorID, targetID int64) error {
	user, err := s.target(ctx, actorID, targetID)
	if err != nil {
		return err
	}
	if user.Status == domain.StatusApproved {
		return nil
	}
	if !user.Status.CanTransitionTo(domain.StatusApproved) {
		return domain.ErrInvalidTransition
	}

	if err := s.users.SetStatus(ctx, targetID, domain.StatusApproved); err != nil {
		return fmt.Errorf("approve %d: %w", targetID, err)
	}
	s.logger.Info("User approved", zap.Int64("chat_id", targetID))
	s.send(ctx, targetID, domain.Markdown(msgApproved))
	return nil
}

// Block removes access and tears down everything held for the user
func (s *AdmissionService) Block(ctx context.Context, actorID, targetID int64) error {
	if s.IsOperator(targetID) {
		return ErrOperatorTarget
	}
	user, err := s.target(ctx, actorID, targetID)
	if err != nil {
		return err
	}
	if user.Status == domain.StatusBlocked {
		return nil
	}
	if !user.Status.CanTransitionTo(domain.StatusBlocked) {
		return domain.ErrInvalidTransition
	}

	if err := s.users.BlockUser(ctx, targetID); err != nil {
		return fmt.Errorf("block %d: %w", targetID, err)
	}
	s.registry.Purge(targetID)
	s.logger.Info("User blocked", zap.Int64("chat_id", targetID))
	s.send(ctx, targetID, pendingMessage(user.Name))
	return nil
}

func (s *AdmissionService) target(ctx context.Context, actorID, targetID int64) (*domain.User, error) {
	if !s.IsOperator(actorID) {
		return nil, ErrNotOperator
	}
	user, err := s.users.GetUser(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("get target %d: %w", targetID, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Authorize returns the user if approved. With needClient it also
// requires a live account connection.
func (s *AdmissionService) Authorize(ctx context.Context, chatID int64, needClient bool) (*domain.User, error) {
	user, err := s.users.GetUser(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("authorize %d: %w", chatID, err)
	}
	if !user.IsApproved() {
		return nil, ErrNotApproved
	}
	if needClient {
		if _, ok := s.registry.Client(chatID); !ok {
			return user, ErrNotLoggedIn
		}
	}
	return user, nil
}

// Logout drops the stored credential and all in-memory state
func (s *AdmissionService) Logout(ctx context.Context, chatID int64) error {
	user, err := s.users.GetUser(ctx, chatID)
	if err != nil {
		return fmt.Errorf("logout %d: %w", chatID, err)
	}
	_, connected := s.registry.Client(chatID)
	if user == nil || (!user.HasCredential() && !connected) {
		s.send(ctx, chatID, domain.Text(msgNotLoggedOut))
		return nil
	}

	if err := s.users.ClearCredential(ctx, chatID); err != nil {
		return fmt.Errorf("logout %d: %w", chatID, err)
	}
	s.registry.Purge(chatID)
	s.logger.Info("User logged out", zap.Int64("chat_id", chatID))
	s.send(ctx, chatID, domain.Message{Text: msgLoggedOut, Markdown: true, RemoveKeyboard: true})
	return nil
}

func (s *AdmissionService) send(ctx context.Context, chatID int64, msg domain.Message) {
	notify(ctx, s.notifier, s.logger, chatID, msg)
}
