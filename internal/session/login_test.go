package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reydbot/internal/testutil"
)

func TestLoginSession_AwaitResolve(t *testing.T) {
	l := NewLoginSession(1, "+998901234567", time.Second)

	result := make(chan string, 1)
	go func() {
		code, err := l.Await(ChallengeCode, nil)
		assert.NoError(t, err)
		result <- code
	}()

	require.True(t, testutil.Eventually(time.Second, func() bool { return l.Waiting(ChallengeCode) }))
	assert.Equal(t, LoginAwaitingCode, l.State())
	require.NoError(t, l.Resolve(ChallengeCode, "12345"))
	assert.Equal(t, "12345", <-result)

	// the waiter is consumed
	assert.ErrorIs(t, l.Resolve(ChallengeCode, "12345"), ErrStaleLogin)
}

func TestLoginSession_PasswordStep(t *testing.T) {
	l := NewLoginSession(1, "+998901234567", time.Second)

	go func() { _, _ = l.Await(ChallengePassword, nil) }()
	require.True(t, testutil.Eventually(time.Second, func() bool { return l.Waiting(ChallengePassword) }))
	assert.Equal(t, LoginAwaitingPassword, l.State())

	assert.ErrorIs(t, l.Resolve(ChallengeCode, "1"), ErrStaleLogin)
	require.NoError(t, l.Resolve(ChallengePassword, "secret"))
}

func TestLoginSession_Timeout(t *testing.T) {
	l := NewLoginSession(1, "+998901234567", 20*time.Millisecond)

	_, err := l.Await(ChallengeCode, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, l.Resolve(ChallengeCode, "1"), ErrStaleLogin)
}

func TestLoginSession_CancelReleasesWaiter(t *testing.T) {
	l := NewLoginSession(1, "+998901234567", time.Minute)

	done := make(chan error, 1)
	go func() {
		_, err := l.Await(ChallengeCode, nil)
		done <- err
	}()
	require.True(t, testutil.Eventually(time.Second, func() bool { return l.Waiting(ChallengeCode) }))

	l.Cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, LoginFailed, l.State())
}

func TestLoginSession_Succeed(t *testing.T) {
	l := NewLoginSession(1, "+998901234567", time.Minute)
	l.Succeed()
	l.Fail()

	assert.Equal(t, LoginLoggedIn, l.State())
	assert.Error(t, l.Context().Err())
}
