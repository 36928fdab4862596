package service

import (
	"context"

	"reydbot/internal/domain"
	"reydbot/internal/session"

	"go.uber.org/zap"
)

// EntryService handles /start and the static screens
type EntryService struct {
	admission *AdmissionService
	restorer  *Restorer
	login     *LoginService
	registry  *session.Registry
	notifier  Notifier
	logger    *zap.Logger
}

// NewEntryService creates a new entry service
func NewEntryService(
	admission *AdmissionService,
	restorer *Restorer,
	login *LoginService,
	registry *session.Registry,
	notifier Notifier,
	logger *zap.Logger,
) *EntryService {
	return &EntryService{
		admission: admission,
		restorer:  restorer,
		login:     login,
		registry:  registry,
		notifier:  notifier,
		logger:    logger,
	}
}

// Start admits the chat and either shows the menu or begins a login.
// Any flow in progress is abandoned.
func (s *EntryService) Start(ctx context.Context, chatID int64, name string) {
	user, err := s.admission.Admit(ctx, chatID, name)
	if err != nil {
		s.logger.Error("Failed to admit user", zap.Int64("chat_id", chatID), zap.Error(err))
		s.send(ctx, chatID, domain.Text(msgGenericError))
		return
	}
	if !user.IsApproved() {
		return
	}

	s.registry.DiscardState(chatID)
	if s.restorer.EnsureClient(ctx, user) {
		s.send(ctx, chatID, menuMessage(msgWelcome))
		return
	}
	s.login.Begin(ctx, chatID)
}

// Menu shows the main keyboard to a connected user
func (s *EntryService) Menu(ctx context.Context, chatID int64) {
	if _, err := s.admission.Authorize(ctx, chatID, true); err != nil {
		s.send(ctx, chatID, domain.Text(ErrorText(err)))
		return
	}
	s.send(ctx, chatID, menuMessage(msgMenu))
}

// Help describes the menu items
func (s *EntryService) Help(ctx context.Context, chatID int64) {
	s.send(ctx, chatID, domain.Markdown(msgHelp))
}

func (s *EntryService) send(ctx context.Context, chatID int64, msg domain.Message) {
	notify(ctx, s.notifier, s.logger, chatID, msg)
}
