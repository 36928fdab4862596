package testutil

import (
	"time"

	"reydbot/internal/domain"

	"go.uber.org/zap"
)

// NewTestLogger creates a no-op logger for tests
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}

// NewTestUser creates a test user
func NewTestUser(chatID int64, status domain.UserStatus) *domain.User {
	return &domain.User{
		ChatID:   chatID,
		Name:     "Test",
		Status:   status,
		JoinedAt: time.Now(),
	}
}

// Eventually polls cond until it holds or timeout passes
func Eventually(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
