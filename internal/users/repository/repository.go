package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qapp_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userNotFoundMsg = "user not found"

// User is a synced account.
type User struct {
	ID          uuid.UUID
	Email       string
	DisplayName string
	AvatarURL   *string
	Provider    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UpsertParams contains the identity data copied from the auth token.
type UpsertParams struct {
	ID          uuid.UUID
	Email       string
	DisplayName string
	AvatarURL   *string
	Provider    string
}

// Repository provides user persistence.
type Repository interface {
	Upsert(ctx context.Context, params UpsertParams) (User, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string) (User, error)
}

// Repo implements Repository on Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new users repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

const userColumns = `id, email, display_name, avatar_url, provider, created_at, updated_at`

func scanUser(row pgx.Row, extra ...any) (User, error) {
	var u User
	dest := []any{&u.ID, &u.Email, &u.DisplayName, &u.AvatarURL, &u.Provider, &u.CreatedAt, &u.UpdatedAt}
	err := row.Scan(append(dest, extra...)...)
	return u, err
}

// Upsert inserts the user or refreshes email and avatar of an existing one.
// A display name the user edited is never overwritten. The bool reports
// whether a row was inserted.
func (r *Repo) Upsert(ctx context.Context, params UpsertParams) (User, bool, error) {
	query := `
		INSERT INTO users (id, email, display_name, avatar_url, provider)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = now()
		RETURNING ` + userColumns + `, (xmax = 0) AS inserted`

	var inserted bool
	u, err := scanUser(r.pool.QueryRow(ctx, query,
		params.ID, params.Email, params.DisplayName, params.AvatarURL, params.Provider,
	), &inserted)
	if err != nil {
		return User{}, false, fmt.Errorf("upsert user: %w", err)
	}
	return u, inserted, nil
}

// GetByID returns a user.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.NotFound(userNotFoundMsg)
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UpdateDisplayName changes the public name of a user.
func (r *Repo) UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string) (User, error) {
	query := `UPDATE users SET display_name = $2, updated_at = now() WHERE id = $1 RETURNING ` + userColumns
	u, err := scanUser(r.pool.QueryRow(ctx, query, id, displayName))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.NotFound(userNotFoundMsg)
	}
	if err != nil {
		return User{}, fmt.Errorf("update display name: %w", err)
	}
	return u, nil
}
