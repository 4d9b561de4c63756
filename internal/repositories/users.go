package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

const userColumns = `id, handle, display_name, email, password_hash,
        avatar_url, avatar_storage_id, cover_url, cover_storage_id, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Handle, &user.DisplayName, &user.Email, &user.PasswordHash,
		&user.Avatar.URL, &user.Avatar.StorageID, &user.Cover.URL, &user.Cover.StorageID,
		&user.CreatedAt, &user.UpdatedAt,
	)
	return user, err
}

// MediaSlot names a replaceable image on a user.
type MediaSlot string

const (
	SlotAvatar MediaSlot = "avatar"
	SlotCover  MediaSlot = "cover"
)

func (s MediaSlot) columns() (string, string, bool) {
	switch s {
	case SlotAvatar:
		return "avatar_url", "avatar_storage_id", true
	case SlotCover:
		return "cover_url", "cover_storage_id", true
	}
	return "", "", false
}

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, handle, display_name, email, password_hash,
            avatar_url, avatar_storage_id, cover_url, cover_storage_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, user.ID, user.Handle, user.DisplayName, user.Email, user.PasswordHash,
		user.Avatar.URL, user.Avatar.StorageID, user.Cover.URL, user.Cover.StorageID,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return mapWriteError("insert user", err)
	}

	return nil
}

// FindByID fetches a user by identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, "select user by id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByHandle fetches a user by their lower-cased handle.
func (r *PostgresUserRepository) FindByHandle(ctx context.Context, handle string) (models.User, error) {
	return r.findOne(ctx, "select user by handle", `SELECT `+userColumns+` FROM users WHERE handle = $1`, handle)
}

// FindByEmail fetches a user by their lower-cased email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, "select user by email", `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindByLogin fetches the first user whose handle or email matches.
func (r *PostgresUserRepository) FindByLogin(ctx context.Context, handle, email string) (models.User, error) {
	return r.findOne(ctx, "select user by login", `
        SELECT `+userColumns+`
        FROM users
        WHERE handle = $1 OR email = $2
        ORDER BY created_at
        LIMIT 1
    `, handle, email)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, op, query string, args ...any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// UpdateAccount changes the display name and email of a user.
func (r *PostgresUserRepository) UpdateAccount(ctx context.Context, id, displayName, email string, updatedAt time.Time) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `
        UPDATE users
        SET display_name = $2, email = $3, updated_at = $4
        WHERE id = $1
        RETURNING `+userColumns, id, displayName, email, updatedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, mapWriteError("update account", err)
	}
	return user, nil
}

// UpdatePassword stores a new password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET password_hash = $2, updated_at = $3
        WHERE id = $1
    `, id, passwordHash, updatedAt)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceMedia swaps the avatar or cover reference of a user and returns the
// reference it replaced alongside the updated user.
func (r *PostgresUserRepository) ReplaceMedia(ctx context.Context, id string, slot MediaSlot, ref models.MediaRef, updatedAt time.Time) (models.User, models.MediaRef, error) {
	urlCol, storageCol, ok := slot.columns()
	if !ok {
		return models.User{}, models.MediaRef{}, fmt.Errorf("unknown media slot %q", slot)
	}

	var (
		user models.User
		old  models.MediaRef
	)
	err := db.RunInTx(ctx, r.pool, db.TxOptions{}, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT `+urlCol+`, `+storageCol+` FROM users WHERE id = $1 FOR UPDATE`, id).
			Scan(&old.URL, &old.StorageID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("select %s: %w", slot, err)
		}

		user, err = scanUser(tx.QueryRow(ctx, `
            UPDATE users
            SET `+urlCol+` = $2, `+storageCol+` = $3, updated_at = $4
            WHERE id = $1
            RETURNING `+userColumns, id, ref.URL, ref.StorageID, updatedAt))
		if err != nil {
			return fmt.Errorf("update %s: %w", slot, err)
		}
		return nil
	})
	if err != nil {
		return models.User{}, models.MediaRef{}, err
	}
	return user, old, nil
}

// RecordWatch moves a video to the front of a user's watch history.
func (r *PostgresUserRepository) RecordWatch(ctx context.Context, userID, videoID string, watchedAt time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watch_history (user_id, video_id, watched_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, video_id)
        DO UPDATE SET watched_at = EXCLUDED.watched_at
    `, userID, videoID, watchedAt)
	if err != nil {
		return mapWriteError("record watch", err)
	}
	return nil
}
