package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"reydbot/internal/account"
	"reydbot/internal/domain"
	"reydbot/internal/metrics"
	"reydbot/internal/repository"
	"reydbot/internal/session"

	"go.uber.org/zap"
)

const minPhoneDigits = 7

// LoginService drives the interactive account sign-in
type LoginService struct {
	users    repository.UserRepository
	registry *session.Registry
	dialer   account.Dialer
	notifier Notifier
	watcher  *Watcher
	metrics  *metrics.Metrics
	timeout  time.Duration
	logger   *zap.Logger
}

// NewLoginService creates a new login service
func NewLoginService(
	users repository.UserRepository,
	registry *session.Registry,
	dialer account.Dialer,
	notifier Notifier,
	watcher *Watcher,
	m *metrics.Metrics,
	timeout time.Duration,
	logger *zap.Logger,
) *LoginService {
	return &LoginService{
		users:    users,
		registry: registry,
		dialer:   dialer,
		notifier: notifier,
		watcher:  watcher,
		metrics:  m,
		timeout:  timeout,
		logger:   logger,
	}
}

// NormalizePhone strips spaces, dashes and parentheses and forces a
// leading plus. It fails for fewer than seven digits.
func NormalizePhone(text string) (string, bool) {
	var b strings.Builder
	digits := 0
	for _, r := range strings.TrimSpace(text) {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
			digits++
		case r == '+' || unicode.IsSpace(r) || r == '(' || r == ')' || r == '-':
		default:
			return "", false
		}
	}
	if digits < minPhoneDigits {
		return "", false
	}
	return "+" + b.String(), true
}

// Begin asks for the phone number
func (s *LoginService) Begin(ctx context.Context, chatID int64) {
	s.registry.BeginFlow(chatID, domain.StepAwaitingPhone)
	s.send(ctx, chatID, promptMessage(msgAskPhone))
}

// SubmitPhone starts the sign-in for the given number
func (s *LoginService) SubmitPhone(ctx context.Context, chatID int64, text string) {
	phone, ok := NormalizePhone(text)
	if !ok {
		s.send(ctx, chatID, domain.Text(msgBadPhone))
		return
	}

	state, _ := s.registry.State(chatID)
	state.Step = domain.StepLoginPending
	state.Phone = phone
	s.registry.SetState(chatID, state)

	login := session.NewLoginSession(chatID, phone, s.timeout)
	s.registry.SetLogin(chatID, login)

	s.send(ctx, chatID, domain.Text(fmt.Sprintf(msgConnecting, phone)))
	go s.run(login)
}

// SubmitCode forwards the login code to the waiting sign-in
func (s *LoginService) SubmitCode(ctx context.Context, chatID int64, text string) {
	code := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, text)
	if code == "" {
		s.send(ctx, chatID, domain.Text(msgBadCode))
		return
	}
	s.resolve(ctx, chatID, session.ChallengeCode, code, msgCheckingCode)
}

// SubmitPassword forwards the two-step password to the waiting sign-in
func (s *LoginService) SubmitPassword(ctx context.Context, chatID int64, text string) {
	s.resolve(ctx, chatID, session.ChallengePassword, strings.TrimSpace(text), msgCheckingPass)
}

func (s *LoginService) resolve(ctx context.Context, chatID int64, ch session.Challenge, value, ack string) {
	login, ok := s.registry.Login(chatID)
	if ok && login.Waiting(ch) {
		// step and ack go out first so a quick failure notice follows them
		s.registry.SetStep(chatID, domain.StepLoginPending)
		s.send(ctx, chatID, domain.Text(ack))
		if err := login.Resolve(ch, value); err == nil {
			return
		}
	}
	s.registry.DiscardState(chatID)
	s.send(ctx, chatID, domain.Text(msgStaleLogin))
}

func (s *LoginService) run(login *session.LoginSession) {
	chatID := login.ChatID
	log := s.logger.With(zap.Int64("chat_id", chatID))
	defer func() {
		if r := recover(); r != nil {
			log.Error("Login panicked", zap.Any("panic", r))
			login.Fail()
			s.finish(login)
		}
	}()

	ctx := login.Context()
	client, credential, err := s.dialer.Login(ctx, login.Phone, &prompter{service: s, login: login})
	if err != nil {
		login.Fail()
		if !s.finish(login) {
			return
		}
		log.Info("Login failed", zap.Error(err))
		s.metrics.Logins.WithLabelValues(loginResult(ctx, err)).Inc()
		if msg := loginFailureMessage(ctx, err); msg != "" {
			s.send(context.Background(), chatID, promptMessage(msg))
		}
		return
	}

	if !s.finish(login) {
		// superseded by another flow
		_ = client.Disconnect()
		return
	}
	bg := context.Background()
	if err := s.users.SetCredential(bg, chatID, credential); err != nil {
		_ = client.Disconnect()
		login.Fail()
		log.Error("Failed to store credential", zap.Error(err))
		if errors.Is(err, repository.ErrNotApproved) {
			s.send(bg, chatID, domain.Text(msgNotApproved))
		} else {
			s.send(bg, chatID, domain.Text(msgGenericError))
		}
		return
	}
	login.Succeed()

	if old := s.registry.SetClient(chatID, client); old != nil && old != client {
		_ = old.Disconnect()
	}
	s.watcher.Attach(chatID, client)
	s.metrics.Logins.WithLabelValues("ok").Inc()
	s.metrics.ActiveClients.Set(float64(s.registry.ClientCount()))
	log.Info("User logged in")
	s.send(bg, chatID, menuMessage(msgLoggedIn))
}

// finish detaches login from the chat. It reports false when the login was
// already replaced or cancelled by another flow.
func (s *LoginService) finish(login *session.LoginSession) bool {
	if !s.registry.RemoveLogin(login.ChatID, login) {
		return false
	}
	if state, ok := s.registry.State(login.ChatID); ok && state.Step.IsLogin() {
		s.registry.ClearState(login.ChatID)
	}
	return true
}

func loginResult(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	return domain.KindOf(err).String()
}

func loginFailureMessage(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return msgLoginTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ""
	}
	if wait, ok := domain.FloodWait(err); ok {
		return fmt.Sprintf(msgLoginFlood, int(wait.Seconds()))
	}
	switch domain.KindOf(err) {
	case domain.ErrInvalidCode:
		return msgInvalidCode
	case domain.ErrCodeExpired:
		return msgCodeExpired
	case domain.ErrInvalidPhone:
		return msgInvalidPhone
	case domain.ErrInvalidPassword:
		return msgInvalidPass
	}
	return msgLoginFailed
}

func (s *LoginService) send(ctx context.Context, chatID int64, msg domain.Message) {
	notify(ctx, s.notifier, s.logger, chatID, msg)
}

// prompter asks the user for login input through the bot
type prompter struct {
	service *LoginService
	login   *session.LoginSession
}

func (p *prompter) Code(_ context.Context) (string, error) {
	return p.ask(session.ChallengeCode, domain.StepAwaitingCode, msgAskCode)
}

func (p *prompter) Password(_ context.Context) (string, error) {
	return p.ask(session.ChallengePassword, domain.StepAwaitingPassword, msgAskPassword)
}

func (p *prompter) ask(ch session.Challenge, step domain.Step, prompt string) (string, error) {
	chatID := p.login.ChatID
	return p.login.Await(ch, func() {
		if p.service.registry.SetLoginStep(chatID, p.login, step) {
			p.service.send(p.login.Context(), chatID, domain.Markdown(prompt))
		}
	})
}
