package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

var likeTargetTables = map[models.TargetKind]string{
	models.TargetVideo:   "videos",
	models.TargetComment: "comments",
	models.TargetTweet:   "tweets",
}

// PostgresEdgeRepository toggles like and subscription edges.
type PostgresEdgeRepository struct {
	pool db.Pool
	now  func() time.Time
}

// NewPostgresEdgeRepository constructs an edge repository backed by PostgreSQL.
func NewPostgresEdgeRepository(pool db.Pool) *PostgresEdgeRepository {
	return &PostgresEdgeRepository{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// ToggleLike removes the like (actor, kind, target) if present and inserts it
// otherwise, returning the resulting state and the number of likes on the target.
// The whole read-modify-count runs in one serializable transaction.
func (r *PostgresEdgeRepository) ToggleLike(ctx context.Context, actorID string, kind models.TargetKind, targetID string) (bool, int64, error) {
	table, ok := likeTargetTables[kind]
	if !ok {
		return false, 0, fmt.Errorf("unknown like target kind %q", kind)
	}

	var (
		active bool
		count  int64
	)
	err := db.RunInTx(ctx, r.pool, db.TxOptions{}, func(tx pgx.Tx) error {
		if err := requireRow(ctx, tx, table, targetID); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
            DELETE FROM likes
            WHERE actor_id = $1 AND target_kind = $2 AND target_id = $3
        `, actorID, string(kind), targetID)
		if err != nil {
			return fmt.Errorf("delete like: %w", err)
		}

		active = tag.RowsAffected() == 0
		if active {
			_, err := tx.Exec(ctx, `
                INSERT INTO likes (actor_id, target_kind, target_id, created_at)
                VALUES ($1, $2, $3, $4)
            `, actorID, string(kind), targetID, r.now())
			if err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("insert like: %w", db.ErrRetry)
				}
				return mapWriteError("insert like", err)
			}
		}

		err = tx.QueryRow(ctx, `
            SELECT COUNT(*) FROM likes WHERE target_kind = $1 AND target_id = $2
        `, string(kind), targetID).Scan(&count)
		if err != nil {
			return fmt.Errorf("count likes: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return active, count, nil
}

// ToggleSubscription removes or inserts subscriber -> channel and returns the
// resulting state and the channel's subscriber count.
func (r *PostgresEdgeRepository) ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, int64, error) {
	var (
		active bool
		count  int64
	)
	err := db.RunInTx(ctx, r.pool, db.TxOptions{}, func(tx pgx.Tx) error {
		if err := requireRow(ctx, tx, "users", channelID); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
            DELETE FROM subscriptions
            WHERE subscriber_id = $1 AND channel_id = $2
        `, subscriberID, channelID)
		if err != nil {
			return fmt.Errorf("delete subscription: %w", err)
		}

		active = tag.RowsAffected() == 0
		if active {
			_, err := tx.Exec(ctx, `
                INSERT INTO subscriptions (subscriber_id, channel_id, created_at)
                VALUES ($1, $2, $3)
            `, subscriberID, channelID, r.now())
			if err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("insert subscription: %w", db.ErrRetry)
				}
				return mapWriteError("insert subscription", err)
			}
		}

		err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM subscriptions WHERE channel_id = $1`, channelID).Scan(&count)
		if err != nil {
			return fmt.Errorf("count subscribers: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return active, count, nil
}

func requireRow(ctx context.Context, q querier, table, id string) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check %s: %w", table, err)
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}
