package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/looplab/fsm"
)

// ErrStaleLogin is returned when input arrives with no challenge waiting
var ErrStaleLogin = errors.New("no login step is waiting for input")

// Challenge is a kind of login input
type Challenge string

const (
	ChallengeCode     Challenge = "code"
	ChallengePassword Challenge = "password"
)

const (
	LoginAwaitingPhone    = "awaiting_phone"
	LoginAwaitingCode     = "awaiting_code"
	LoginAwaitingPassword = "awaiting_password"
	LoginLoggedIn         = "logged_in"
	LoginFailed           = "failed"
)

// LoginSession tracks one interactive sign-in
type LoginSession struct {
	ChatID int64
	Phone  string

	state  *fsm.FSM
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	waiters map[Challenge]chan string
}

// NewLoginSession starts a login window that expires after timeout
func NewLoginSession(chatID int64, phone string, timeout time.Duration) *LoginSession {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	pending := []string{LoginAwaitingPhone, LoginAwaitingCode, LoginAwaitingPassword}
	return &LoginSession{
		ChatID: chatID,
		Phone:  phone,
		state: fsm.NewFSM(
			LoginAwaitingPhone,
			fsm.Events{
				{Name: string(ChallengeCode), Src: []string{LoginAwaitingPhone}, Dst: LoginAwaitingCode},
				{Name: string(ChallengePassword), Src: []string{LoginAwaitingPhone, LoginAwaitingCode}, Dst: LoginAwaitingPassword},
				{Name: "succeed", Src: pending, Dst: LoginLoggedIn},
				{Name: "fail", Src: pending, Dst: LoginFailed},
			},
			fsm.Callbacks{},
		),
		ctx:     ctx,
		cancel:  cancel,
		waiters: make(map[Challenge]chan string),
	}
}

// Context bounds every step of the login
func (l *LoginSession) Context() context.Context {
	return l.ctx
}

// State returns the current login state
func (l *LoginSession) State() string {
	return l.state.Current()
}

// Await registers a waiter for challenge and blocks until Resolve or
// until the session ends. ready, if set, runs once the waiter is in place.
func (l *LoginSession) Await(ch Challenge, ready func()) (string, error) {
	reply := make(chan string, 1)

	l.mu.Lock()
	if l.state.Can(string(ch)) {
		if err := l.state.Event(context.Background(), string(ch)); err != nil {
			l.mu.Unlock()
			return "", err
		}
	}
	l.waiters[ch] = reply
	l.mu.Unlock()

	if ready != nil {
		ready()
	}

	defer func() {
		l.mu.Lock()
		if l.waiters[ch] == reply {
			delete(l.waiters, ch)
		}
		l.mu.Unlock()
	}()

	select {
	case value := <-reply:
		return value, nil
	case <-l.ctx.Done():
		return "", l.ctx.Err()
	}
}

// Waiting reports whether a challenge waiter is registered
func (l *LoginSession) Waiting(ch Challenge) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.waiters[ch]
	return ok
}

// Resolve hands value to the waiter of challenge
func (l *LoginSession) Resolve(ch Challenge, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	reply, ok := l.waiters[ch]
	if !ok || l.ctx.Err() != nil {
		return ErrStaleLogin
	}
	delete(l.waiters, ch)
	reply <- value
	return nil
}

// Succeed marks the login as finished
func (l *LoginSession) Succeed() {
	l.finish("succeed")
}

// Fail marks the login as failed and releases any waiter
func (l *LoginSession) Fail() {
	l.finish("fail")
}

// Cancel aborts the login window
func (l *LoginSession) Cancel() {
	l.Fail()
}

func (l *LoginSession) finish(event string) {
	l.mu.Lock()
	if l.state.Can(event) {
		_ = l.state.Event(context.Background(), event)
	}
	l.mu.Unlock()
	l.cancel()
}
