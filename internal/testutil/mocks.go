package testutil

import (
	"context"

	"reydbot/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock for UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetUser(ctx context.Context, chatID int64) (*domain.User, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserRepository) CreateUser(ctx context.Context, chatID int64, name string, status domain.UserStatus) (*domain.User, error) {
	args := m.Called(ctx, chatID, name, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) SetStatus(ctx context.Context, chatID int64, status domain.UserStatus) error {
	args := m.Called(ctx, chatID, status)
	return args.Error(0)
}

func (m *MockUserRepository) SetCredential(ctx context.Context, chatID int64, credential string) error {
	args := m.Called(ctx, chatID, credential)
	return args.Error(0)
}

func (m *MockUserRepository) ClearCredential(ctx context.Context, chatID int64) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

func (m *MockUserRepository) BlockUser(ctx context.Context, chatID int64) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

func (m *MockUserRepository) IncrementCounter(ctx context.Context, chatID int64, counter domain.Counter, amount int) (int, error) {
	args := m.Called(ctx, chatID, counter, amount)
	return args.Int(0), args.Error(1)
}

func (m *MockUserRepository) ResetCounters(ctx context.Context, chatID int64) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}
