package repository

import (
	"context"
	"errors"

	"reydbot/internal/domain"
)

var (
	// ErrNotFound is returned when the user record does not exist
	ErrNotFound = errors.New("user not found")
	// ErrNotApproved is returned when a credential is stored for a non-approved user
	ErrNotApproved = errors.New("user is not approved")
)

// UserRepository defines user data operations
type UserRepository interface {
	// GetUser returns nil, nil when the user does not exist
	GetUser(ctx context.Context, chatID int64) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	// CreateUser inserts the user if missing and returns the stored record
	CreateUser(ctx context.Context, chatID int64, name string, status domain.UserStatus) (*domain.User, error)
	SetStatus(ctx context.Context, chatID int64, status domain.UserStatus) error
	// SetCredential stores the credential only for approved users
	SetCredential(ctx context.Context, chatID int64, credential string) error
	ClearCredential(ctx context.Context, chatID int64) error
	// BlockUser sets status blocked and clears the credential in one write
	BlockUser(ctx context.Context, chatID int64) error
	// IncrementCounter adds amount and returns the new value
	IncrementCounter(ctx context.Context, chatID int64, counter domain.Counter, amount int) (int, error)
	ResetCounters(ctx context.Context, chatID int64) error
}
