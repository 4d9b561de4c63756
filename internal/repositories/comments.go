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

const commentColumns = `id, video_id, owner_id, content, created_at, updated_at`

func scanComment(row pgx.Row) (models.Comment, error) {
	var c models.Comment
	err := row.Scan(&c.ID, &c.VideoID, &c.OwnerID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// PostgresCommentRepository provides PostgreSQL-backed persistence for comments.
type PostgresCommentRepository struct {
	pool db.Pool
}

// NewPostgresCommentRepository constructs a comment repository backed by PostgreSQL.
func NewPostgresCommentRepository(pool db.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: pool}
}

// Create persists a comment. A missing video surfaces as ErrNotFound.
func (r *PostgresCommentRepository) Create(ctx context.Context, c models.Comment) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO comments (id, video_id, owner_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, c.ID, c.VideoID, c.OwnerID, c.Content, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return mapWriteError("insert comment", err)
	}
	return nil
}

// FindByID fetches a comment by identifier.
func (r *PostgresCommentRepository) FindByID(ctx context.Context, id string) (models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Comment{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	c, err := scanComment(conn.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Comment{}, ErrNotFound
		}
		return models.Comment{}, fmt.Errorf("select comment: %w", err)
	}
	return c, nil
}

// UpdateContent rewrites a comment owned by actorID.
func (r *PostgresCommentRepository) UpdateContent(ctx context.Context, actorID, id, content string, updatedAt time.Time) (models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Comment{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	c, err := scanComment(conn.QueryRow(ctx, `
        UPDATE comments
        SET content = $3, updated_at = $4
        WHERE id = $1 AND owner_id = $2
        RETURNING `+commentColumns, id, actorID, content, updatedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Comment{}, ownershipError(ctx, conn, "comments", id)
		}
		return models.Comment{}, fmt.Errorf("update comment: %w", err)
	}
	return c, nil
}

// Delete removes a comment owned by actorID and the likes pointing at it.
func (r *PostgresCommentRepository) Delete(ctx context.Context, actorID, id string) error {
	return db.RunInTx(ctx, r.pool, db.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM comments WHERE id = $1 AND owner_id = $2`, id, actorID)
		if err != nil {
			return fmt.Errorf("delete comment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ownershipError(ctx, tx, "comments", id)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM likes WHERE target_kind = 'comment' AND target_id = $1`, id); err != nil {
			return fmt.Errorf("delete comment likes: %w", err)
		}
		return nil
	})
}
