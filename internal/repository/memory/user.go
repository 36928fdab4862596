package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"reydbot/internal/domain"
	"reydbot/internal/repository"
)

// UserRepo is a process-local repository.UserRepository.
// It backs USE_MEMORY_STORE runs and service tests.
type UserRepo struct {
	mu    sync.RWMutex
	users map[int64]*domain.User
	now   func() time.Time
}

// NewUserRepo creates an empty memory repository
func NewUserRepo() *UserRepo {
	return &UserRepo{
		users: make(map[int64]*domain.User),
		now:   time.Now,
	}
}

func (r *UserRepo) GetUser(_ context.Context, chatID int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[chatID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) ListUsers(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].JoinedAt.Equal(users[j].JoinedAt) {
			return users[i].ChatID < users[j].ChatID
		}
		return users[i].JoinedAt.Before(users[j].JoinedAt)
	})
	return users, nil
}

func (r *UserRepo) CreateUser(_ context.Context, chatID int64, name string, status domain.UserStatus) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[chatID]
	if !ok {
		u = &domain.User{ChatID: chatID, Name: name, Status: status, JoinedAt: r.now()}
		r.users[chatID] = u
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) SetStatus(_ context.Context, chatID int64, status domain.UserStatus) error {
	return r.update(chatID, func(u *domain.User) error {
		u.Status = status
		if status != domain.StatusApproved {
			u.Credential = ""
		}
		return nil
	})
}

func (r *UserRepo) SetCredential(_ context.Context, chatID int64, credential string) error {
	return r.update(chatID, func(u *domain.User) error {
		if u.Status != domain.StatusApproved {
			return repository.ErrNotApproved
		}
		u.Credential = credential
		return nil
	})
}

func (r *UserRepo) ClearCredential(_ context.Context, chatID int64) error {
	return r.update(chatID, func(u *domain.User) error {
		u.Credential = ""
		return nil
	})
}

func (r *UserRepo) BlockUser(_ context.Context, chatID int64) error {
	return r.update(chatID, func(u *domain.User) error {
		u.Status = domain.StatusBlocked
		u.Credential = ""
		return nil
	})
}

func (r *UserRepo) IncrementCounter(_ context.Context, chatID int64, counter domain.Counter, amount int) (int, error) {
	if !counter.Valid() {
		return 0, fmt.Errorf("unknown counter %q", counter)
	}
	var value int
	err := r.update(chatID, func(u *domain.User) error {
		switch counter {
		case domain.CounterClicks:
			u.Clicks += amount
		case domain.CounterReyd:
			u.ReydCount += amount
		case domain.CounterUsersGathered:
			u.UsersGathered += amount
		case domain.CounterAds:
			u.AdsCount += amount
		}
		value = u.CounterValue(counter)
		return nil
	})
	return value, err
}

func (r *UserRepo) ResetCounters(_ context.Context, chatID int64) error {
	return r.update(chatID, func(u *domain.User) error {
		u.Clicks, u.ReydCount, u.UsersGathered, u.AdsCount = 0, 0, 0, 0
		return nil
	})
}

func (r *UserRepo) update(chatID int64, fn func(u *domain.User) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[chatID]
	if !ok {
		return repository.ErrNotFound
	}
	return fn(u)
}
