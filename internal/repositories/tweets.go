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

const tweetColumns = `id, owner_id, content, created_at, updated_at`

func scanTweet(row pgx.Row) (models.Tweet, error) {
	var t models.Tweet
	err := row.Scan(&t.ID, &t.OwnerID, &t.Content, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// PostgresTweetRepository provides PostgreSQL-backed persistence for tweets.
type PostgresTweetRepository struct {
	pool db.Pool
}

// NewPostgresTweetRepository constructs a tweet repository backed by PostgreSQL.
func NewPostgresTweetRepository(pool db.Pool) *PostgresTweetRepository {
	return &PostgresTweetRepository{pool: pool}
}

// Create persists a tweet.
func (r *PostgresTweetRepository) Create(ctx context.Context, t models.Tweet) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO tweets (id, owner_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `, t.ID, t.OwnerID, t.Content, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return mapWriteError("insert tweet", err)
	}
	return nil
}

// FindByID fetches a tweet by identifier.
func (r *PostgresTweetRepository) FindByID(ctx context.Context, id string) (models.Tweet, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Tweet{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	t, err := scanTweet(conn.QueryRow(ctx, `SELECT `+tweetColumns+` FROM tweets WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Tweet{}, ErrNotFound
		}
		return models.Tweet{}, fmt.Errorf("select tweet: %w", err)
	}
	return t, nil
}

// UpdateContent rewrites a tweet owned by actorID.
func (r *PostgresTweetRepository) UpdateContent(ctx context.Context, actorID, id, content string, updatedAt time.Time) (models.Tweet, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Tweet{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	t, err := scanTweet(conn.QueryRow(ctx, `
        UPDATE tweets
        SET content = $3, updated_at = $4
        WHERE id = $1 AND owner_id = $2
        RETURNING `+tweetColumns, id, actorID, content, updatedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Tweet{}, ownershipError(ctx, conn, "tweets", id)
		}
		return models.Tweet{}, fmt.Errorf("update tweet: %w", err)
	}
	return t, nil
}

// Delete removes a tweet owned by actorID and the likes pointing at it.
func (r *PostgresTweetRepository) Delete(ctx context.Context, actorID, id string) error {
	return db.RunInTx(ctx, r.pool, db.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM tweets WHERE id = $1 AND owner_id = $2`, id, actorID)
		if err != nil {
			return fmt.Errorf("delete tweet: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ownershipError(ctx, tx, "tweets", id)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM likes WHERE target_kind = 'tweet' AND target_id = $1`, id); err != nil {
			return fmt.Errorf("delete tweet likes: %w", err)
		}
		return nil
	})
}
