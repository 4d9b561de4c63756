package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

var videoSortColumns = map[models.VideoSort]string{
	models.SortCreatedAt: "created_at",
	models.SortViews:     "views",
	models.SortDuration:  "duration_seconds",
	models.SortTitle:     "title",
}

// PostgresViewReader serves the read queries behind composed views. Batch
// lookups take id slices and return maps so callers can join in memory.
type PostgresViewReader struct {
	pool db.Pool
}

// NewPostgresViewReader constructs a read-only view query layer.
func NewPostgresViewReader(pool db.Pool) *PostgresViewReader {
	return &PostgresViewReader{pool: pool}
}

func (r *PostgresViewReader) withConn(ctx context.Context, fn func(q querier) error) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()
	return fn(conn)
}

// Video fetches a single video.
func (r *PostgresViewReader) Video(ctx context.Context, id string) (models.Video, error) {
	return NewPostgresVideoRepository(r.pool).FindByID(ctx, id)
}

// User fetches a single user.
func (r *PostgresViewReader) User(ctx context.Context, id string) (models.User, error) {
	return NewPostgresUserRepository(r.pool).FindByID(ctx, id)
}

// UserByHandle fetches a single user by handle.
func (r *PostgresViewReader) UserByHandle(ctx context.Context, handle string) (models.User, error) {
	return NewPostgresUserRepository(r.pool).FindByHandle(ctx, handle)
}

// Playlist fetches a playlist with its ordered video ids.
func (r *PostgresViewReader) Playlist(ctx context.Context, id string) (models.Playlist, error) {
	return NewPostgresPlaylistRepository(r.pool).FindByID(ctx, id)
}

// Users fetches users by id. Missing ids are absent from the map.
func (r *PostgresViewReader) Users(ctx context.Context, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	arr, err := uuidArray(ids)
	if err != nil {
		return nil, err
	}

	err = r.withConn(ctx, func(q querier) error {
		rows, err := q.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, arr)
		if err != nil {
			return fmt.Errorf("query users: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return fmt.Errorf("scan user: %w", err)
			}
			out[u.ID] = u
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Videos fetches videos by id. Missing ids are absent from the map.
func (r *PostgresViewReader) Videos(ctx context.Context, ids []string) (map[string]models.Video, error) {
	out := make(map[string]models.Video, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	arr, err := uuidArray(ids)
	if err != nil {
		return nil, err
	}

	err = r.withConn(ctx, func(q querier) error {
		rows, err := q.Query(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ANY($1)`, arr)
		if err != nil {
			return fmt.Errorf("query videos: %w", err)
		}
		videos, err := collectVideos(rows)
		if err != nil {
			return err
		}
		for _, v := range videos {
			out[v.ID] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListVideos filters, orders and windows videos, returning the page and the
// total number of matches.
func (r *PostgresViewReader) ListVideos(ctx context.Context, query models.VideoQuery) ([]models.Video, int64, error) {
	var (
		conds []string
		args  []any
	)
	if !query.IncludeUnpublished {
		conds = append(conds, "published = TRUE")
	}
	if query.OwnerID != "" {
		args = append(args, query.OwnerID)
		conds = append(conds, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if query.TitleContains != "" {
		args = append(args, "%"+escapeLike(query.TitleContains)+"%")
		conds = append(conds, fmt.Sprintf("title ILIKE $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	column, ok := videoSortColumns[query.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if query.Descending {
		direction = "DESC"
	}
	order := fmt.Sprintf("ORDER BY %s %s, id %s", column, direction, direction)

	var (
		videos []models.Video
		total  int64
	)
	err := r.withConn(ctx, func(q querier) error {
		if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM videos `+where, args...).Scan(&total); err != nil {
			return fmt.Errorf("count videos: %w", err)
		}

		pageArgs := append(append([]any{}, args...), query.Window.Limit, query.Window.Offset)
		rows, err := q.Query(ctx, fmt.Sprintf(`SELECT %s FROM videos %s %s LIMIT $%d OFFSET $%d`,
			videoColumns, where, order, len(args)+1, len(args)+2), pageArgs...)
		if err != nil {
			return fmt.Errorf("query videos: %w", err)
		}
		videos, err = collectVideos(rows)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return videos, total, nil
}

// ListComments returns the comments of a video, oldest first.
func (r *PostgresViewReader) ListComments(ctx context.Context, videoID string, window models.Window) ([]models.Comment, int64, error) {
	var (
		comments []models.Comment
		total    int64
	)
	err := r.withConn(ctx, func(q querier) error {
		if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM comments WHERE video_id = $1`, videoID).Scan(&total); err != nil {
			return fmt.Errorf("count comments: %w", err)
		}

		rows, err := q.Query(ctx, `
            SELECT `+commentColumns+`
            FROM comments
            WHERE video_id = $1
            ORDER BY created_at, id
            LIMIT $2 OFFSET $3
        `, videoID, window.Limit, window.Offset)
		if err != nil {
			return fmt.Errorf("query comments: %w", err)
		}
		comments, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Comment, error) {
			return scanComment(row)
		})
		if err != nil {
			return fmt.Errorf("collect comments: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// ListTweets returns the tweets of a channel, newest first.
func (r *PostgresViewReader) ListTweets(ctx context.Context, ownerID string, window models.Window) ([]models.Tweet, int64, error) {
	var (
		tweets []models.Tweet
		total  int64
	)
	err := r.withConn(ctx, func(q querier) error {
		if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM tweets WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
			return fmt.Errorf("count tweets: %w", err)
		}

		rows, err := q.Query(ctx, `
            SELECT `+tweetColumns+`
            FROM tweets
            WHERE owner_id = $1
            ORDER BY created_at DESC, id DESC
            LIMIT $2 OFFSET $3
        `, ownerID, window.Limit, window.Offset)
		if err != nil {
			return fmt.Errorf("query tweets: %w", err)
		}
		tweets, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Tweet, error) {
			return scanTweet(row)
		})
		if err != nil {
			return fmt.Errorf("collect tweets: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return tweets, total, nil
}

// ListPlaylists returns the playlists of a channel, newest first, each with its
// ordered video ids.
func (r *PostgresViewReader) ListPlaylists(ctx context.Context, ownerID string, window models.Window) ([]models.Playlist, int64, error) {
	var (
		playlists []models.Playlist
		total     int64
	)
	err := r.withConn(ctx, func(q querier) error {
		if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM playlists WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
			return fmt.Errorf("count playlists: %w", err)
		}

		rows, err := q.Query(ctx, `
            SELECT `+playlistColumns+`
            FROM playlists
            WHERE owner_id = $1
            ORDER BY created_at DESC, id DESC
            LIMIT $2 OFFSET $3
        `, ownerID, window.Limit, window.Offset)
		if err != nil {
			return fmt.Errorf("query playlists: %w", err)
		}
		playlists, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Playlist, error) {
			return scanPlaylist(row)
		})
		if err != nil {
			return fmt.Errorf("collect playlists: %w", err)
		}
		if len(playlists) == 0 {
			return nil
		}

		ids := make([]string, len(playlists))
		index := make(map[string]int, len(playlists))
		for i, p := range playlists {
			ids[i] = p.ID
			index[p.ID] = i
		}
		arr, err := uuidArray(ids)
		if err != nil {
			return err
		}

		memberRows, err := q.Query(ctx, `
            SELECT pv.playlist_id, pv.video_id
            FROM playlist_videos pv
            JOIN videos v ON v.id = pv.video_id
            WHERE pv.playlist_id = ANY($1)
            ORDER BY pv.playlist_id, pv.position
        `, arr)
		if err != nil {
			return fmt.Errorf("query playlist members: %w", err)
		}
		defer memberRows.Close()
		for memberRows.Next() {
			var playlistID, videoID string
			if err := memberRows.Scan(&playlistID, &videoID); err != nil {
				return fmt.Errorf("scan playlist member: %w", err)
			}
			i := index[playlistID]
			playlists[i].VideoIDs = append(playlists[i].VideoIDs, videoID)
		}
		return memberRows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return playlists, total, nil
}

// LikeCounts counts likes per target.
func (r *PostgresViewReader) LikeCounts(ctx context.Context, kind models.TargetKind, targetIDs []string) (map[string]int64, error) {
	return r.countBy(ctx, `
        SELECT target_id, COUNT(*)
        FROM likes
        WHERE target_kind = $1 AND target_id = ANY($2)
        GROUP BY target_id
    `, targetIDs, string(kind))
}

// LikedBy reports which of targetIDs actorID has liked.
func (r *PostgresViewReader) LikedBy(ctx context.Context, actorID string, kind models.TargetKind, targetIDs []string) (map[string]bool, error) {
	return r.membership(ctx, `
        SELECT target_id
        FROM likes
        WHERE actor_id = $1 AND target_kind = $2 AND target_id = ANY($3)
    `, targetIDs, actorID, string(kind))
}

// SubscriberCounts counts subscribers per channel.
func (r *PostgresViewReader) SubscriberCounts(ctx context.Context, channelIDs []string) (map[string]int64, error) {
	return r.countBy(ctx, `
        SELECT channel_id, COUNT(*)
        FROM subscriptions
        WHERE channel_id = ANY($1)
        GROUP BY channel_id
    `, channelIDs)
}

// SubscribedTo reports which of channelIDs subscriberID follows.
func (r *PostgresViewReader) SubscribedTo(ctx context.Context, subscriberID string, channelIDs []string) (map[string]bool, error) {
	return r.membership(ctx, `
        SELECT channel_id
        FROM subscriptions
        WHERE subscriber_id = $1 AND channel_id = ANY($2)
    `, channelIDs, subscriberID)
}

// SubscriptionCount counts the channels subscriberID follows.
func (r *PostgresViewReader) SubscriptionCount(ctx context.Context, subscriberID string) (int64, error) {
	var n int64
	err := r.withConn(ctx, func(q querier) error {
		if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM subscriptions WHERE subscriber_id = $1`, subscriberID).Scan(&n); err != nil {
			return fmt.Errorf("count subscriptions: %w", err)
		}
		return nil
	})
	return n, err
}

// Subscribers lists the users subscribed to a channel, newest first.
func (r *PostgresViewReader) Subscribers(ctx context.Context, channelID string, window models.Window) ([]models.User, int64, error) {
	return r.userEdgeList(ctx, `
        FROM subscriptions s
        JOIN users u ON u.id = s.subscriber_id
        WHERE s.channel_id = $1`, channelID, window)
}

// Subscriptions lists the channels a user is subscribed to, newest first.
func (r *PostgresViewReader) Subscriptions(ctx context.Context, subscriberID string, window models.Window) ([]models.User, int64, error) {
	return r.userEdgeList(ctx, `
        FROM subscriptions s
        JOIN users u ON u.id = s.channel_id
        WHERE s.subscriber_id = $1`, subscriberID, window)
}

// LikedVideos lists the videos actorID liked, most recent like first. Likes on
// videos that no longer exist, or that another channel has unpublished, are
// skipped.
func (r *PostgresViewReader) LikedVideos(ctx context.Context, actorID string, window models.Window) ([]models.Video, int64, error) {
	return r.videoEdgeList(ctx, `
        FROM likes l
        JOIN videos v ON v.id = l.target_id
        WHERE l.target_kind = 'video' AND l.actor_id = $1
            AND (v.published OR v.owner_id = $1)`, "l.created_at", actorID, window)
}

// WatchHistory lists the videos userID watched and can still see, most recent
// first.
func (r *PostgresViewReader) WatchHistory(ctx context.Context, userID string, window models.Window) ([]models.Video, int64, error) {
	return r.videoEdgeList(ctx, `
        FROM watch_history w
        JOIN videos v ON v.id = w.video_id
        WHERE w.user_id = $1
            AND (v.published OR v.owner_id = $1)`, "w.watched_at", userID, window)
}

// ChannelStats aggregates the dashboard totals of a channel.
func (r *PostgresViewReader) ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error) {
	var stats models.ChannelStats
	err := r.withConn(ctx, func(q querier) error {
		err := q.QueryRow(ctx, `
            SELECT
                (SELECT COALESCE(SUM(views), 0)::BIGINT FROM videos WHERE owner_id = $1),
                (SELECT COUNT(*) FROM likes l JOIN videos v ON v.id = l.target_id
                    WHERE l.target_kind = 'video' AND v.owner_id = $1),
                (SELECT COUNT(*) FROM subscriptions WHERE channel_id = $1),
                (SELECT COUNT(*) FROM videos WHERE owner_id = $1)
        `, ownerID).Scan(&stats.TotalViews, &stats.TotalLikes, &stats.TotalSubscribers, &stats.TotalVideos)
		if err != nil {
			return fmt.Errorf("channel stats: %w", err)
		}
		return nil
	})
	return stats, err
}

func (r *PostgresViewReader) countBy(ctx context.Context, query string, ids []string, leading ...any) (map[string]int64, error) {
	out := make(map[string]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	arr, err := uuidArray(ids)
	if err != nil {
		return nil, err
	}

	err = r.withConn(ctx, func(q querier) error {
		rows, err := q.Query(ctx, query, append(leading, arr)...)
		if err != nil {
			return fmt.Errorf("count query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				id string
				n  int64
			)
			if err := rows.Scan(&id, &n); err != nil {
				return fmt.Errorf("scan count: %w", err)
			}
			out[id] = n
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresViewReader) membership(ctx context.Context, query string, ids []string, leading ...any) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	arr, err := uuidArray(ids)
	if err != nil {
		return nil, err
	}

	err = r.withConn(ctx, func(q querier) error {
		rows, err := q.Query(ctx, query, append(leading, arr)...)
		if err != nil {
			return fmt.Errorf("membership query: %w", err)
		}
		ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("collect membership: %w", err)
		}
		for _, id := range ids {
			out[id] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresViewReader) userEdgeList(ctx context.Context, from, anchor string, window models.Window) ([]models.User, int64, error) {
	var (
		users []models.User
		total int64
	)
	err := r.withConn(ctx, func(q querier) error {
		if err := q.QueryRow(ctx, `SELECT COUNT(*) `+from, anchor).Scan(&total); err != nil {
			return fmt.Errorf("count users: %w", err)
		}

		rows, err := q.Query(ctx, `SELECT `+prefixColumns("u", userColumns)+` `+from+`
            ORDER BY s.created_at DESC, u.id
            LIMIT $2 OFFSET $3`, anchor, window.Limit, window.Offset)
		if err != nil {
			return fmt.Errorf("query users: %w", err)
		}
		users, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.User, error) {
			return scanUser(row)
		})
		if err != nil {
			return fmt.Errorf("collect users: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *PostgresViewReader) videoEdgeList(ctx context.Context, from, orderColumn, anchor string, window models.Window) ([]models.Video, int64, error) {
	var (
		videos []models.Video
		total  int64
	)
	err := r.withConn(ctx, func(q querier) error {
		if err := q.QueryRow(ctx, `SELECT COUNT(*) `+from, anchor).Scan(&total); err != nil {
			return fmt.Errorf("count videos: %w", err)
		}

		rows, err := q.Query(ctx, `SELECT `+prefixColumns("v", videoColumns)+` `+from+`
            ORDER BY `+orderColumn+` DESC, v.id
            LIMIT $2 OFFSET $3`, anchor, window.Limit, window.Offset)
		if err != nil {
			return fmt.Errorf("query videos: %w", err)
		}
		videos, err = collectVideos(rows)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return videos, total, nil
}

func collectVideos(rows pgx.Rows) ([]models.Video, error) {
	videos, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Video, error) {
		return scanVideo(row)
	})
	if err != nil {
		return nil, fmt.Errorf("collect videos: %w", err)
	}
	return videos, nil
}

// prefixColumns qualifies a comma separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
