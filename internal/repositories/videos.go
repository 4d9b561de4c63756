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

const videoColumns = `id, owner_id, file_url, file_storage_id, thumbnail_url, thumbnail_storage_id,
        title, description, duration_seconds, views, published, created_at, updated_at`

func scanVideo(row pgx.Row) (models.Video, error) {
	var v models.Video
	err := row.Scan(
		&v.ID, &v.OwnerID, &v.File.URL, &v.File.StorageID, &v.Thumbnail.URL, &v.Thumbnail.StorageID,
		&v.Title, &v.Description, &v.DurationSeconds, &v.Views, &v.Published, &v.CreatedAt, &v.UpdatedAt,
	)
	return v, err
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create persists a new video.
func (r *PostgresVideoRepository) Create(ctx context.Context, v models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, file_url, file_storage_id, thumbnail_url, thumbnail_storage_id,
            title, description, duration_seconds, views, published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `, v.ID, v.OwnerID, v.File.URL, v.File.StorageID, v.Thumbnail.URL, v.Thumbnail.StorageID,
		v.Title, v.Description, v.DurationSeconds, v.Views, v.Published, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return mapWriteError("insert video", err)
	}
	return nil
}

// FindByID fetches a video by identifier.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	v, err := scanVideo(conn.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}
	return v, nil
}

// Update rewrites the editable fields of a video owned by actorID.
func (r *PostgresVideoRepository) Update(ctx context.Context, actorID string, v models.Video) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	updated, err := scanVideo(conn.QueryRow(ctx, `
        UPDATE videos
        SET title = $3, description = $4, thumbnail_url = $5, thumbnail_storage_id = $6, updated_at = $7
        WHERE id = $1 AND owner_id = $2
        RETURNING `+videoColumns,
		v.ID, actorID, v.Title, v.Description, v.Thumbnail.URL, v.Thumbnail.StorageID, v.UpdatedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ownershipError(ctx, conn, "videos", v.ID)
		}
		return models.Video{}, fmt.Errorf("update video: %w", err)
	}
	return updated, nil
}

// TogglePublished flips the published flag of a video owned by actorID.
func (r *PostgresVideoRepository) TogglePublished(ctx context.Context, actorID, id string, updatedAt time.Time) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var published bool
	err = conn.QueryRow(ctx, `
        UPDATE videos
        SET published = NOT published, updated_at = $3
        WHERE id = $1 AND owner_id = $2
        RETURNING published
    `, id, actorID, updatedAt).Scan(&published)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ownershipError(ctx, conn, "videos", id)
		}
		return false, fmt.Errorf("toggle published: %w", err)
	}
	return published, nil
}

// Delete removes a video owned by actorID together with its likes, its comments
// and the likes on those comments. Playlist memberships and watch history go
// with the row through ON DELETE CASCADE. The deleted video is returned so its
// media can be released.
func (r *PostgresVideoRepository) Delete(ctx context.Context, actorID, id string) (models.Video, error) {
	var deleted models.Video
	err := db.RunInTx(ctx, r.pool, db.TxOptions{}, func(tx pgx.Tx) error {
		v, err := scanVideo(tx.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("select video: %w", err)
		}
		if v.OwnerID != actorID {
			return ErrNotOwner
		}

		if _, err := tx.Exec(ctx, `
            DELETE FROM likes
            WHERE target_kind = 'comment'
              AND target_id IN (SELECT id FROM comments WHERE video_id = $1)
        `, id); err != nil {
			return fmt.Errorf("delete comment likes: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM likes WHERE target_kind = 'video' AND target_id = $1`, id); err != nil {
			return fmt.Errorf("delete video likes: %w", err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM videos WHERE id = $1 AND owner_id = $2`, id, actorID)
		if err != nil {
			return fmt.Errorf("delete video: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		deleted = v
		return nil
	})
	if err != nil {
		return models.Video{}, err
	}
	return deleted, nil
}

// IncrementViews bumps the view counter by one.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
