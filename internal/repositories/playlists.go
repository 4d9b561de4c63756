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

const playlistColumns = `id, owner_id, name, description, created_at, updated_at`

func scanPlaylist(row pgx.Row) (models.Playlist, error) {
	var p models.Playlist
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// PostgresPlaylistRepository provides PostgreSQL-backed persistence for playlists
// and their ordered membership.
type PostgresPlaylistRepository struct {
	pool db.Pool
}

// NewPostgresPlaylistRepository constructs a playlist repository backed by PostgreSQL.
func NewPostgresPlaylistRepository(pool db.Pool) *PostgresPlaylistRepository {
	return &PostgresPlaylistRepository{pool: pool}
}

// Create persists an empty playlist.
func (r *PostgresPlaylistRepository) Create(ctx context.Context, p models.Playlist) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO playlists (id, owner_id, name, description, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, p.ID, p.OwnerID, p.Name, p.Description, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return mapWriteError("insert playlist", err)
	}
	return nil
}

// FindByID fetches a playlist with its video ids in position order.
func (r *PostgresPlaylistRepository) FindByID(ctx context.Context, id string) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return findPlaylist(ctx, conn, id)
}

func findPlaylist(ctx context.Context, q querier, id string) (models.Playlist, error) {
	p, err := scanPlaylist(q.QueryRow(ctx, `SELECT `+playlistColumns+` FROM playlists WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Playlist{}, ErrNotFound
		}
		return models.Playlist{}, fmt.Errorf("select playlist: %w", err)
	}

	rows, err := q.Query(ctx, `
        SELECT video_id
        FROM playlist_videos
        WHERE playlist_id = $1
        ORDER BY position
    `, id)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("query playlist videos: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return models.Playlist{}, fmt.Errorf("collect playlist videos: %w", err)
	}
	p.VideoIDs = ids
	return p, nil
}

// Update rewrites the name and description of a playlist owned by actorID.
func (r *PostgresPlaylistRepository) Update(ctx context.Context, actorID, id, name, description string, updatedAt time.Time) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE playlists
        SET name = $3, description = $4, updated_at = $5
        WHERE id = $1 AND owner_id = $2
    `, id, actorID, name, description, updatedAt)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("update playlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Playlist{}, ownershipError(ctx, conn, "playlists", id)
	}

	return findPlaylist(ctx, conn, id)
}

// Delete removes a playlist owned by actorID. Memberships cascade.
func (r *PostgresPlaylistRepository) Delete(ctx context.Context, actorID, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM playlists WHERE id = $1 AND owner_id = $2`, id, actorID)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ownershipError(ctx, conn, "playlists", id)
	}
	return nil
}

// AddVideo appends videoID to a playlist owned by actorID. ErrConflict is
// returned when the video is already a member, ErrReferenceNotFound when the
// video does not exist and ErrNotFound when the playlist does not.
func (r *PostgresPlaylistRepository) AddVideo(ctx context.Context, actorID, playlistID, videoID string, addedAt time.Time) (models.Playlist, error) {
	var playlist models.Playlist
	err := db.RunInTx(ctx, r.pool, db.TxOptions{}, func(tx pgx.Tx) error {
		if err := lockOwnedPlaylist(ctx, tx, actorID, playlistID); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
            INSERT INTO playlist_videos (playlist_id, video_id, position, added_at)
            SELECT $1, $2, COALESCE(MAX(position), 0) + 1, $3
            FROM playlist_videos
            WHERE playlist_id = $1
        `, playlistID, videoID, addedAt)
		if err != nil {
			return mapWriteError("insert playlist video", err)
		}

		if _, err := tx.Exec(ctx, `UPDATE playlists SET updated_at = $2 WHERE id = $1`, playlistID, addedAt); err != nil {
			return fmt.Errorf("touch playlist: %w", err)
		}

		playlist, err = findPlaylist(ctx, tx, playlistID)
		return err
	})
	if err != nil {
		return models.Playlist{}, err
	}
	return playlist, nil
}

// RemoveVideo drops videoID from a playlist owned by actorID. Removing a video
// that is not a member succeeds.
func (r *PostgresPlaylistRepository) RemoveVideo(ctx context.Context, actorID, playlistID, videoID string, updatedAt time.Time) (models.Playlist, error) {
	var playlist models.Playlist
	err := db.RunInTx(ctx, r.pool, db.TxOptions{}, func(tx pgx.Tx) error {
		if err := lockOwnedPlaylist(ctx, tx, actorID, playlistID); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM playlist_videos WHERE playlist_id = $1 AND video_id = $2`, playlistID, videoID)
		if err != nil {
			return fmt.Errorf("delete playlist video: %w", err)
		}
		if tag.RowsAffected() > 0 {
			if _, err := tx.Exec(ctx, `UPDATE playlists SET updated_at = $2 WHERE id = $1`, playlistID, updatedAt); err != nil {
				return fmt.Errorf("touch playlist: %w", err)
			}
		}

		playlist, err = findPlaylist(ctx, tx, playlistID)
		return err
	})
	if err != nil {
		return models.Playlist{}, err
	}
	return playlist, nil
}

func lockOwnedPlaylist(ctx context.Context, tx pgx.Tx, actorID, playlistID string) error {
	var ownerID string
	err := tx.QueryRow(ctx, `SELECT owner_id FROM playlists WHERE id = $1 FOR UPDATE`, playlistID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock playlist: %w", err)
	}
	if ownerID != actorID {
		return ErrNotOwner
	}
	return nil
}
