package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"personavault/api/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, username, email, password_hash, role, theme, is_active,
	failed_attempts, locked_until, last_login_at, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Theme,
		&user.IsActive,
		&user.FailedAttempts,
		&user.LockedUntil,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, username, email, password_hash, role, theme, is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Theme,
		user.IsActive,
	)
	return err
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.pool.QueryRow(ctx, query, username))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// UsernameOrEmailTaken reports whether another account already claims the
// username, or the email when one is given.
func (r *UserRepository) UsernameOrEmailTaken(ctx context.Context, username, email string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM users WHERE username = $1 OR ($2 <> '' AND email = $2)
		)
	`
	var taken bool
	if err := r.pool.QueryRow(ctx, query, username, email).Scan(&taken); err != nil {
		return false, err
	}
	return taken, nil
}

// RecordLoginFailure bumps the failed-attempt counter and starts a lockout
// window once the counter reaches the threshold. A single statement so the
// write is durable regardless of what the surrounding request does next.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, userID string, threshold int, lockFor time.Duration) error {
	const query = `
		UPDATE users
		SET failed_attempts = failed_attempts + 1,
		    locked_until = CASE
		        WHEN failed_attempts + 1 >= $2 THEN NOW() + $3
		        ELSE locked_until
		    END,
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, userID, threshold, lockFor)
	return err
}

// RecordLoginSuccess resets the failed-attempt counter and stamps the last
// login. Lockout state is left alone; an active window runs its course.
func (r *UserRepository) RecordLoginSuccess(ctx context.Context, userID string) error {
	const query = `
		UPDATE users
		SET failed_attempts = 0, last_login_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}

func (r *UserRepository) UpdateTheme(ctx context.Context, userID, theme string) error {
	const query = `UPDATE users SET theme = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, userID, theme)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ClearElapsedLockouts nulls out lockout windows that are already in the
// past. Run by the cleanup job; validation never depends on it.
func (r *UserRepository) ClearElapsedLockouts(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		UPDATE users
		SET locked_until = NULL, updated_at = NOW()
		WHERE locked_until IS NOT NULL AND locked_until < $1
	`
	cmd, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
