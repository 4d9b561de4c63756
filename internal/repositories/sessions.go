package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/db"
)

// PostgresSessionStore persists the single active refresh token of each user on
// the users row.
type PostgresSessionStore struct {
	pool db.Pool
}

// NewPostgresSessionStore constructs a session store backed by PostgreSQL.
func NewPostgresSessionStore(pool db.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

// Save replaces the refresh token of the session's user.
func (s *PostgresSessionStore) Save(ctx context.Context, session auth.Session) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = $2, refresh_expires_at = $3
        WHERE id = $1
    `, session.UserID, session.RefreshToken, session.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Rotate swaps previous for next.RefreshToken in one conditional update, so
// only one of several concurrent rotations of the same token wins.
func (s *PostgresSessionStore) Rotate(ctx context.Context, previous string, next auth.Session) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = $3, refresh_expires_at = $4
        WHERE id = $1 AND refresh_token = $2
    `, next.UserID, previous, next.RefreshToken, next.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}

// Find loads a session by its refresh token.
func (s *PostgresSessionStore) Find(ctx context.Context, refreshToken string) (auth.Session, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return auth.Session{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, refresh_expires_at
        FROM users
        WHERE refresh_token = $1
    `, refreshToken)

	session := auth.Session{RefreshToken: refreshToken}
	var expiresAt time.Time
	if err := row.Scan(&session.UserID, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.Session{}, auth.ErrSessionNotFound
		}
		return auth.Session{}, fmt.Errorf("select session: %w", err)
	}

	session.ExpiresAt = expiresAt.UTC()
	return session, nil
}

// DeleteForUser clears whatever refresh token the user currently holds.
func (s *PostgresSessionStore) DeleteForUser(ctx context.Context, userID string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = NULL, refresh_expires_at = NULL
        WHERE id = $1 AND refresh_token IS NOT NULL
    `, userID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrSessionNotFound
	}

	return nil
}
