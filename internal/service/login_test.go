package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"reydbot/internal/account"
	"reydbot/internal/domain"
	"reydbot/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		ok       bool
	}{
		{input: "+998 90 123 45 67", expected: "+998901234567", ok: true},
		{input: "998(90)1234567", expected: "+998901234567", ok: true},
		{input: "+1-555-123-4567", expected: "+15551234567", ok: true},
		{input: " +15551234567 ", expected: "+15551234567", ok: true},
		{input: "12345", ok: false},
		{input: "+99890abc4567", ok: false},
		{input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			phone, ok := NormalizePhone(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, phone)
		})
	}
}

func TestLoginService_CodeFlow(t *testing.T) {
	e := newEnv(t)
	e.user(t, 123, domain.StatusApproved)
	ctx := context.Background()

	e.login.Begin(ctx, 123)
	assert.Equal(t, domain.StepAwaitingPhone, e.step(123))

	e.conv.HandleText(ctx, 123, "+1 555 123 4567", nil)
	require.True(t, testutil.Eventually(waitTimeout, func() bool {
		return e.step(123) == domain.StepAwaitingCode
	}))
	assert.True(t, e.notifier.Contains(123, "Kod yuborildi"))

	e.conv.HandleText(ctx, 123, "12345", nil)
	require.True(t, testutil.Eventually(waitTimeout, func() bool {
		_, ok := e.registry.Client(123)
		return ok
	}))

	require.True(t, testutil.Eventually(waitTimeout, func() bool {
		return e.notifier.Contains(123, "Muvaffaqiyatli kirdingiz")
	}))

	assert.Equal(t, "cred:+15551234567", e.stored(t, 123).Credential)
	_, hasState := e.registry.State(123)
	assert.False(t, hasState)
	assert.Equal(t, 1, e.client.Handlers(), "watcher attached")
}

func TestLoginService_PasswordFlow(t *testing.T) {
	e := newEnv(t)
	e.user(t, 123, domain.StatusApproved)
	ctx := context.Background()

	var gotCode, gotPassword string
	e.dialer.LoginFunc = func(ctx context.Context, phone string, p account.Prompter) (account.Client, string, error) {
		var err error
		if gotCode, err = p.Code(ctx); err != nil {
			return nil, "", err
		}
		if gotPassword, err = p.Password(ctx); err != nil {
			return nil, "", err
		}
		return e.client, "cred", nil
	}

	e.login.Begin(ctx, 123)
	e.conv.HandleText(ctx, 123, "+15551234567", nil)
	require.True(t, testutil.Eventually(waitTimeout, func() bool { return e.step(123) == domain.StepAwaitingCode }))

	e.conv.HandleText(ctx, 123, "1 2 3 4 5", nil)
	require.True(t, testutil.Eventually(waitTimeout, func() bool { return e.step(123) == domain.StepAwaitingPassword }))

	e.conv.HandleText(ctx, 123, "  secret  ", nil)
	require.True(t, testutil.Eventually(waitTimeout, func() bool {
		_, ok := e.registry.Client(123)
		return ok
	}))
	assert.Equal(t, "12345", gotCode)
	assert.Equal(t, "secret", gotPassword)
}

func TestLoginService_BadPhone(t *testing.T) {
	e := newEnv(t)
	e.user(t, 123, domain.StatusApproved)

	e.login.Begin(context.Background(), 123)
	e.conv.HandleText(context.Background(), 123, "123", nil)

	assert.Equal(t, domain.StepAwaitingPhone, e.step(123), "does not advance")
	assert.True(t, e.notifier.Contains(123, "noto'g'ri formatda"))
	_, ok := e.registry.Login(123)
	assert.False(t, ok)
}

func TestLoginService_Timeout(t *testing.T) {
	e := newEnv(t)
	e.user(t, 123, domain.StatusApproved)
	e.login.timeout = 30 * time.Millisecond
	ctx := context.Background()

	e.login.Begin(ctx, 123)
	e.conv.HandleText(ctx, 123, "+15551234567", nil)

	require.True(t, testutil.Eventually(waitTimeout, func() bool {
		return e.notifier.Contains(123, "Vaqt tugadi")
	}))
	_, hasState := e.registry.State(123)
	assert.False(t, hasState)
	_, hasLogin := e.registry.Login(123)
	assert.False(t, hasLogin)

	// a retry starts from a clean slate
	e.login.timeout = time.Second
	e.login.Begin(ctx, 123)
	e.conv.HandleText(ctx, 123, "+15551234567", nil)
	require.True(t, testutil.Eventually(waitTimeout, func() bool { return e.step(123) == domain.StepAwaitingCode }))
	e.conv.HandleText(ctx, 123, "12345", nil)
	assert.True(t, testutil.Eventually(waitTimeout, func() bool {
		_, ok := e.registry.Client(123)
		return ok
	}))
}

func TestLoginService_StaleCode(t *testing.T) {
	e := newEnv(t)
	e.user(t, 123, domain.StatusApproved)
	e.registry.BeginFlow(123, domain.StepAwaitingCode)

	e.conv.HandleText(context.Background(), 123, "12345", nil)

	assert.True(t, e.notifier.Contains(123, "Sessiya topilmadi"))
	_, hasState := e.registry.State(123)
	assert.False(t, hasState)
}

func TestLoginService_CheckingNoticePrecedesFailure(t *testing.T) {
	e := newEnv(t)
	e.user(t, 123, domain.StatusApproved)
	ctx := context.Background()
	e.dialer.LoginFunc = func(ctx context.Context, phone string, p account.Prompter) (account.Client, string, error) {
		if _, err := p.Code(ctx); err != nil {
			return nil, "", err
		}
		return nil, "", domain.NewAccountError(domain.ErrInvalidCode, nil)
	}

	e.login.Begin(ctx, 123)
	e.conv.HandleText(ctx, 123, "+15551234567", nil)
	require.True(t, testutil.Eventually(waitTimeout, func() bool { return e.step(123) == domain.StepAwaitingCode }))

	e.conv.HandleText(ctx, 123, "12345", nil)
	require.True(t, testutil.Eventually(waitTimeout, func() bool {
		return e.notifier.Contains(123, "Kod noto'g'ri")
	}))

	checking, failed := -1, -1
	for i, m := range e.notifier.Messages(123) {
		switch {
		case strings.Contains(m.Text, "Kod tekshirilmoqda"):
			checking = i
		case strings.Contains(m.Text, "Kod noto'g'ri"):
			failed = i
		}
	}
	require.NotEqual(t, -1, checking)
	assert.Less(t, checking, failed)
}

func TestLoginService_Failures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "invalid code", err: domain.NewAccountError(domain.ErrInvalidCode, nil), expected: "Kod noto'g'ri"},
		{name: "code expired", err: domain.NewAccountError(domain.ErrCodeExpired, nil), expected: "muddati tugagan"},
		{name: "invalid phone", err: domain.NewAccountError(domain.ErrInvalidPhone, nil), expected: "Telefon raqam noto'g'ri"},
		{name: "invalid password", err: domain.NewAccountError(domain.ErrInvalidPassword, nil), expected: "Parol noto'g'ri"},
		{name: "flood wait", err: domain.FloodWaitError(42*time.Second, nil), expected: "42 soniya"},
		{name: "other", err: errors.New("boom"), expected: "Kirishda xatolik"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.user(t, 123, domain.StatusApproved)
			e.dialer.LoginFunc = func(ctx context.Context, phone string, p account.Prompter) (account.Client, string, error) {
				return nil, "", tt.err
			}

			e.login.Begin(context.Background(), 123)
			e.conv.HandleText(context.Background(), 123, "+15551234567", nil)

			require.True(t, testutil.Eventually(waitTimeout, func() bool {
				return e.notifier.Contains(123, tt.expected)
			}))
			_, hasState := e.registry.State(123)
			assert.False(t, hasState)
			assert.Empty(t, e.stored(t, 123).Credential)
		})
	}
}

func TestLoginService_SupersededLoginIsSilent(t *testing.T) {
	e := newEnv(t)
	e.online(t, 123)
	ctx := context.Background()

	e.login.Begin(ctx, 123)
	e.conv.HandleText(ctx, 123, "+15551234567", nil)
	require.True(t, testutil.Eventually(waitTimeout, func() bool { return e.step(123) == domain.StepAwaitingCode }))

	// a new flow cancels the pending login
	e.conv.BeginRaid(ctx, 123)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, domain.StepRaidTarget, e.step(123))
	assert.False(t, e.notifier.Contains(123, "Kirishda xatolik"))
	_, hasLogin := e.registry.Login(123)
	assert.False(t, hasLogin)
}
