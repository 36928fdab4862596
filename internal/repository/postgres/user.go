package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"reydbot/internal/domain"
	"reydbot/internal/repository"
)

const userColumns = `chat_id, name, status, credential, clicks, reyd_count, users_gathered, ads_count, joined_at`

// UserRepo implements repository.UserRepository
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*domain.User, error) {
	var u domain.User
	var status string
	var credential sql.NullString
	err := row.Scan(
		&u.ChatID, &u.Name, &status, &credential,
		&u.Clicks, &u.ReydCount, &u.UsersGathered, &u.AdsCount, &u.JoinedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Status = domain.UserStatus(status)
	if credential.Valid {
		u.Credential = credential.String
	}
	return &u, nil
}

// GetUser returns the user record or nil if it does not exist
func (r *UserRepo) GetUser(ctx context.Context, chatID int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE chat_id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, chatID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", chatID, err)
	}
	return u, nil
}

// ListUsers returns every user ordered by join date
func (r *UserRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY joined_at, chat_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CreateUser creates user if not exists and returns the stored record
func (r *UserRepo) CreateUser(ctx context.Context, chatID int64, name string, status domain.UserStatus) (*domain.User, error) {
	query := `
		INSERT INTO users (chat_id, name, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (chat_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, chatID, name, string(status)); err != nil {
		return nil, fmt.Errorf("create user %d: %w", chatID, err)
	}
	u, err := r.GetUser(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

// SetStatus updates the admission status
func (r *UserRepo) SetStatus(ctx context.Context, chatID int64, status domain.UserStatus) error {
	query := `UPDATE users SET status = $2 WHERE chat_id = $1`
	return r.execOne(ctx, query, chatID, string(status))
}

// SetCredential stores the login session of an approved user
func (r *UserRepo) SetCredential(ctx context.Context, chatID int64, credential string) error {
	query := `UPDATE users SET credential = $2 WHERE chat_id = $1 AND status = 'approved'`
	err := r.execOne(ctx, query, chatID, credential)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.ErrNotApproved
	}
	return err
}

// ClearCredential removes the stored login session
func (r *UserRepo) ClearCredential(ctx context.Context, chatID int64) error {
	query := `UPDATE users SET credential = NULL WHERE chat_id = $1`
	return r.execOne(ctx, query, chatID)
}

// BlockUser marks user as blocked and drops the credential
func (r *UserRepo) BlockUser(ctx context.Context, chatID int64) error {
	query := `UPDATE users SET status = 'blocked', credential = NULL WHERE chat_id = $1`
	return r.execOne(ctx, query, chatID)
}

// IncrementCounter atomically adds amount to a counter column
func (r *UserRepo) IncrementCounter(ctx context.Context, chatID int64, counter domain.Counter, amount int) (int, error) {
	if !counter.Valid() {
		return 0, fmt.Errorf("unknown counter %q", counter)
	}
	// column name comes from the validated enum
	query := fmt.Sprintf(`UPDATE users SET %[1]s = %[1]s + $2 WHERE chat_id = $1 RETURNING %[1]s`, counter)

	var value int
	err := r.db.QueryRowContext(ctx, query, chatID, amount).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, repository.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment %s for %d: %w", counter, chatID, err)
	}
	return value, nil
}

// ResetCounters sets all usage counters to zero
func (r *UserRepo) ResetCounters(ctx context.Context, chatID int64) error {
	query := `
		UPDATE users
		SET clicks = 0, reyd_count = 0, users_gathered = 0, ads_count = 0
		WHERE chat_id = $1
	`
	return r.execOne(ctx, query, chatID)
}

func (r *UserRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
