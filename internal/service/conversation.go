package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"reydbot/internal/account"
	"reydbot/internal/domain"
	"reydbot/internal/session"

	"go.uber.org/zap"
)

// ConversationService routes free text and media through the active
// multi-step flow of a chat
type ConversationService struct {
	registry  *session.Registry
	admission *AdmissionService
	login     *LoginService
	jobs      *JobRunner
	notifier  Notifier
	logger    *zap.Logger
}

// NewConversationService creates a new conversation service
func NewConversationService(
	registry *session.Registry,
	admission *AdmissionService,
	login *LoginService,
	jobs *JobRunner,
	notifier Notifier,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		registry:  registry,
		admission: admission,
		login:     login,
		jobs:      jobs,
		notifier:  notifier,
		logger:    logger,
	}
}

// BeginBroadcast asks for the recipient handles
func (s *ConversationService) BeginBroadcast(ctx context.Context, chatID int64) {
	if s.begin(ctx, chatID, domain.JobBroadcast, domain.StepBroadcastRecipients) {
		s.send(ctx, chatID, promptMessage(msgAskRecipients))
	}
}

// BeginRaid asks for the raid target
func (s *ConversationService) BeginRaid(ctx context.Context, chatID int64) {
	if s.begin(ctx, chatID, domain.JobRaid, domain.StepRaidTarget) {
		s.send(ctx, chatID, promptMessage(msgAskRaidTarget))
	}
}

// BeginScrape asks for the group to collect usernames from
func (s *ConversationService) BeginScrape(ctx context.Context, chatID int64, adminsOnly bool) {
	if !s.begin(ctx, chatID, domain.JobScrape, domain.StepScrapeTarget) {
		return
	}
	prompt := msgAskScrape
	if adminsOnly {
		prompt = msgAskAdmins
		state, _ := s.registry.State(chatID)
		state.AdminsOnly = true
		s.registry.SetState(chatID, state)
	}
	s.send(ctx, chatID, promptMessage(prompt))
}

func (s *ConversationService) begin(ctx context.Context, chatID int64, kind domain.JobKind, step domain.Step) bool {
	if _, err := s.admission.Authorize(ctx, chatID, true); err != nil {
		s.reportStartError(ctx, chatID, kind, err)
		return false
	}
	if _, running := s.registry.ActiveJob(chatID, kind); running {
		s.send(ctx, chatID, domain.Text(fmt.Sprintf(msgJobRunning, kind.Title())))
		return false
	}
	s.registry.BeginFlow(chatID, step)
	return true
}

// HandleText advances the active flow with a text message. It reports
// false when the chat has no flow.
func (s *ConversationService) HandleText(ctx context.Context, chatID int64, text string, spans []domain.TextSpan) bool {
	state, ok := s.registry.State(chatID)
	if !ok {
		return false
	}

	switch state.Step {
	case domain.StepAwaitingPhone:
		s.login.SubmitPhone(ctx, chatID, text)
	case domain.StepAwaitingCode:
		s.login.SubmitCode(ctx, chatID, text)
	case domain.StepAwaitingPassword:
		s.login.SubmitPassword(ctx, chatID, text)
	case domain.StepLoginPending:
		s.send(ctx, chatID, domain.Text(msgLoginWait))

	case domain.StepBroadcastRecipients:
		s.setRecipients(ctx, chatID, state, text)
	case domain.StepBroadcastConfirm:
		switch strings.TrimSpace(text) {
		case answerYes:
			s.Confirm(ctx, chatID)
		case answerNo:
			s.Cancel(ctx, chatID)
		default:
			s.send(ctx, chatID, domain.Text(msgConfirmAgain))
		}

	case domain.StepRaidTarget, domain.StepScrapeTarget:
		s.setTarget(ctx, chatID, state, text)
	case domain.StepRaidCount:
		count, ok := parseBounded(text, MaxRaidCount)
		if !ok {
			s.send(ctx, chatID, domain.Text(fmt.Sprintf(msgBadCount, MaxRaidCount)))
			return true
		}
		state.Count = count
		state.Step = domain.StepRaidPayload
		s.registry.SetState(chatID, state)
		s.send(ctx, chatID, domain.Text(msgAskRaidText))
	case domain.StepScrapeLimit:
		limit, ok := parseBounded(text, s.jobs.cfg.ScrapeMaxLimit)
		if !ok {
			s.send(ctx, chatID, domain.Text(fmt.Sprintf(msgBadCount, s.jobs.cfg.ScrapeMaxLimit)))
			return true
		}
		s.startScrape(ctx, chatID, state, limit)

	case domain.StepBroadcastPayload, domain.StepRaidPayload:
		if strings.TrimSpace(text) == "" {
			s.send(ctx, chatID, domain.Text(msgEmptyPayload))
			return true
		}
		s.setPayload(ctx, chatID, state, &domain.Payload{Text: text, Spans: spans})
	default:
		return false
	}
	return true
}

// HandleMedia accepts a downloaded sticker or photo as the payload. The
// file is removed when no flow wants it.
func (s *ConversationService) HandleMedia(ctx context.Context, chatID int64, payload *domain.Payload) bool {
	state, ok := s.registry.State(chatID)
	if !ok || (state.Step != domain.StepBroadcastPayload && state.Step != domain.StepRaidPayload) {
		_ = payload.Cleanup()
		return false
	}
	s.setPayload(ctx, chatID, state, payload)
	return true
}

// WantsMedia reports whether the chat is waiting for a payload
func (s *ConversationService) WantsMedia(chatID int64) bool {
	state, ok := s.registry.State(chatID)
	return ok && (state.Step == domain.StepBroadcastPayload || state.Step == domain.StepRaidPayload)
}

func (s *ConversationService) setRecipients(ctx context.Context, chatID int64, state domain.ConversationState, text string) {
	handles := account.ParseHandles(text, 0)
	switch {
	case len(handles) == 0:
		s.send(ctx, chatID, domain.Text(msgNoRecipients))
		return
	case len(handles) > MaxRecipients:
		s.send(ctx, chatID, domain.Text(fmt.Sprintf(msgTooMany, MaxRecipients, len(handles))))
		return
	}

	state.Recipients = handles
	state.Step = domain.StepBroadcastPayload
	s.registry.SetState(chatID, state)
	s.send(ctx, chatID, domain.Markdown(fmt.Sprintf(msgRecipientsOK, len(handles))))
}

func (s *ConversationService) setTarget(ctx context.Context, chatID int64, state domain.ConversationState, text string) {
	target, err := account.ParseTarget(text)
	if err != nil {
		s.send(ctx, chatID, domain.Text(msgBadTarget))
		return
	}

	state.Target = target.String()
	if state.Step == domain.StepRaidTarget {
		state.Step = domain.StepRaidCount
		s.registry.SetState(chatID, state)
		s.send(ctx, chatID, domain.Text(fmt.Sprintf(msgAskRaidCount, MaxRaidCount)))
		return
	}
	state.Step = domain.StepScrapeLimit
	s.registry.SetState(chatID, state)
	s.send(ctx, chatID, domain.Text(fmt.Sprintf(msgAskLimit, s.jobs.cfg.ScrapeMaxLimit)))
}

func (s *ConversationService) setPayload(ctx context.Context, chatID int64, state domain.ConversationState, payload *domain.Payload) {
	if state.Payload != nil && state.Payload != payload {
		_ = state.Payload.Cleanup()
	}
	state.Payload = payload

	if state.Step == domain.StepRaidPayload {
		s.registry.SetState(chatID, state)
		s.startRaid(ctx, chatID, state)
		return
	}

	state.Step = domain.StepBroadcastConfirm
	s.registry.SetState(chatID, state)
	s.send(ctx, chatID, confirmMessage(fmt.Sprintf(msgConfirmAd, payload.Describe(), len(state.Recipients))))
}

// Confirm starts the broadcast waiting for confirmation
func (s *ConversationService) Confirm(ctx context.Context, chatID int64) {
	state, ok := s.registry.State(chatID)
	if !ok || state.Step != domain.StepBroadcastConfirm {
		s.send(ctx, chatID, domain.Text(msgNoConfirm))
		return
	}
	_, err := s.jobs.StartBroadcast(ctx, chatID, state.Recipients, state.Payload)
	s.started(ctx, chatID, domain.JobBroadcast, err)
}

// Cancel drops the active flow of the chat
func (s *ConversationService) Cancel(ctx context.Context, chatID int64) {
	if _, ok := s.registry.State(chatID); !ok {
		s.send(ctx, chatID, domain.Text(msgNothingToStop))
		return
	}
	s.registry.DiscardState(chatID)
	s.send(ctx, chatID, menuMessage(msgCancelled))
}

func (s *ConversationService) startRaid(ctx context.Context, chatID int64, state domain.ConversationState) {
	target, err := account.ParseTarget(state.Target)
	if err == nil {
		_, err = s.jobs.StartRaid(ctx, chatID, target, state.Count, state.Payload)
	}
	s.started(ctx, chatID, domain.JobRaid, err)
}

func (s *ConversationService) startScrape(ctx context.Context, chatID int64, state domain.ConversationState, limit int) {
	target, err := account.ParseTarget(state.Target)
	if err == nil {
		_, err = s.jobs.StartScrape(ctx, chatID, target, limit, state.AdminsOnly)
	}
	s.started(ctx, chatID, domain.JobScrape, err)
}

// started ends the flow after a job start. The job owns the payload on
// success; on failure it is discarded with the state.
func (s *ConversationService) started(ctx context.Context, chatID int64, kind domain.JobKind, err error) {
	if err != nil {
		s.registry.DiscardState(chatID)
		s.reportStartError(ctx, chatID, kind, err)
		return
	}
	s.registry.ClearState(chatID)
}

func (s *ConversationService) reportStartError(ctx context.Context, chatID int64, kind domain.JobKind, err error) {
	var msg string
	switch {
	case errors.Is(err, session.ErrJobRunning):
		msg = fmt.Sprintf(msgJobRunning, kind.Title())
	case errors.Is(err, ErrNotApproved):
		msg = msgNotApproved
	case errors.Is(err, ErrNotLoggedIn):
		msg = msgNotLoggedIn
	case errors.Is(err, account.ErrBadTarget):
		msg = msgBadTarget
	default:
		s.logger.Error("Failed to start job", zap.Int64("chat_id", chatID), zap.String("kind", string(kind)), zap.Error(err))
		msg = msgGenericError
	}
	s.send(ctx, chatID, domain.Text(msg))
}

func (s *ConversationService) send(ctx context.Context, chatID int64, msg domain.Message) {
	notify(ctx, s.notifier, s.logger, chatID, msg)
}

// parseBounded parses an integer in 1..max
func parseBounded(text string, max int) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > max {
		return 0, false
	}
	return n, true
}
