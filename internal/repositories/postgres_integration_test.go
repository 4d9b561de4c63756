package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := db.Migrate(ctx, pool, "up"); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresUserRepository_CreateFindAndConflicts(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	alice := createTestUser(t, "alice")

	dup := alice
	dup.ID = uuid.NewString()
	dup.Email = "other@example.com"
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate handle, got %v", err)
	}

	byLogin, err := repo.FindByLogin(ctx, "", "alice@example.com")
	if err != nil {
		t.Fatalf("find by login: %v", err)
	}
	if byLogin.ID != alice.ID || byLogin.Handle != "alice" {
		t.Fatalf("unexpected user %+v", byLogin)
	}

	bob := createTestUser(t, "bob")
	if _, err := repo.UpdateAccount(ctx, bob.ID, "Bob", alice.Email, time.Now().UTC()); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for taken email, got %v", err)
	}

	ref := models.MediaRef{URL: "https://cdn.test/new.png", StorageID: "new.png"}
	updated, old, err := repo.ReplaceMedia(ctx, bob.ID, SlotAvatar, ref, time.Now().UTC())
	if err != nil {
		t.Fatalf("replace avatar: %v", err)
	}
	if updated.Avatar != ref || old.StorageID != "bob-avatar.png" {
		t.Fatalf("unexpected replacement result %+v old %+v", updated.Avatar, old)
	}

	if _, err := repo.FindByID(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresSessionStore_OneTokenPerUser(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	store := NewPostgresSessionStore(testPool)
	user := createTestUser(t, "carol")
	expires := time.Now().UTC().Add(time.Hour).Truncate(time.Millisecond)

	if err := store.Save(ctx, auth.Session{RefreshToken: "first", UserID: user.ID, ExpiresAt: expires}); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := store.Save(ctx, auth.Session{RefreshToken: "second", UserID: user.ID, ExpiresAt: expires}); err != nil {
		t.Fatalf("save second: %v", err)
	}

	if _, err := store.Find(ctx, "first"); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected replaced token to be gone, got %v", err)
	}
	session, err := store.Find(ctx, "second")
	if err != nil {
		t.Fatalf("find second: %v", err)
	}
	if session.UserID != user.ID || !session.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected session %+v", session)
	}

	next := auth.Session{RefreshToken: "third", UserID: user.ID, ExpiresAt: expires}
	if err := store.Rotate(ctx, "first", next); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected rotation from a replaced token to fail, got %v", err)
	}
	if err := store.Rotate(ctx, "second", next); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if err := store.Rotate(ctx, "second", auth.Session{RefreshToken: "fourth", UserID: user.ID, ExpiresAt: expires}); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected second rotation of the same token to fail, got %v", err)
	}

	if err := store.DeleteForUser(ctx, user.ID); err != nil {
		t.Fatalf("delete for user: %v", err)
	}
	if _, err := store.Find(ctx, "third"); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected session to be cleared, got %v", err)
	}
}

func TestPostgresEdgeRepository_ToggleCounts(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	edges := NewPostgresEdgeRepository(testPool)
	reader := NewPostgresViewReader(testPool)
	owner := createTestUser(t, "owner")
	video := createTestVideo(t, owner.ID, time.Now().UTC())

	fans := []models.User{createTestUser(t, "fan1"), createTestUser(t, "fan2"), createTestUser(t, "fan3")}
	for i, fan := range fans {
		active, count, err := edges.ToggleLike(ctx, fan.ID, models.TargetVideo, video.ID)
		if err != nil {
			t.Fatalf("toggle like: %v", err)
		}
		if !active || count != int64(i+1) {
			t.Fatalf("expected active with count %d, got %v %d", i+1, active, count)
		}
	}

	active, count, err := edges.ToggleLike(ctx, fans[0].ID, models.TargetVideo, video.ID)
	if err != nil {
		t.Fatalf("toggle like off: %v", err)
	}
	if active || count != 2 {
		t.Fatalf("expected inactive with count 2, got %v %d", active, count)
	}

	counts, err := reader.LikeCounts(ctx, models.TargetVideo, []string{video.ID})
	if err != nil {
		t.Fatalf("like counts: %v", err)
	}
	if counts[video.ID] != 2 {
		t.Fatalf("expected stored count 2 got %d", counts[video.ID])
	}

	if _, _, err := edges.ToggleLike(ctx, fans[0].ID, models.TargetTweet, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing tweet, got %v", err)
	}

	for _, fan := range fans {
		if _, _, err := edges.ToggleSubscription(ctx, fan.ID, owner.ID); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}
	subs, err := reader.SubscriberCounts(ctx, []string{owner.ID})
	if err != nil {
		t.Fatalf("subscriber counts: %v", err)
	}
	if subs[owner.ID] != 3 {
		t.Fatalf("expected 3 subscribers got %d", subs[owner.ID])
	}
	flags, err := reader.SubscribedTo(ctx, owner.ID, []string{owner.ID})
	if err != nil {
		t.Fatalf("subscribed to: %v", err)
	}
	if flags[owner.ID] {
		t.Fatal("owner should not be flagged as subscribed to their own channel")
	}
}

func TestPostgresEdgeRepository_ConcurrentTogglesKeepParity(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	edges := NewPostgresEdgeRepository(testPool)
	owner := createTestUser(t, "racer-owner")
	fan := createTestUser(t, "racer")
	video := createTestVideo(t, owner.ID, time.Now().UTC())

	const toggles = 9
	var wg sync.WaitGroup
	errs := make(chan error, toggles)
	for i := 0; i < toggles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := edges.ToggleLike(ctx, fan.ID, models.TargetVideo, video.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent toggle: %v", err)
	}

	counts, err := NewPostgresViewReader(testPool).LikeCounts(ctx, models.TargetVideo, []string{video.ID})
	if err != nil {
		t.Fatalf("like counts: %v", err)
	}
	if counts[video.ID] != 1 {
		t.Fatalf("odd number of toggles should leave one like, got %d", counts[video.ID])
	}
}

func TestPostgresVideoRepository_OwnershipAndCascade(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	videos := NewPostgresVideoRepository(testPool)
	edges := NewPostgresEdgeRepository(testPool)
	comments := NewPostgresCommentRepository(testPool)
	owner := createTestUser(t, "maker")
	stranger := createTestUser(t, "stranger")
	video := createTestVideo(t, owner.ID, time.Now().UTC())

	if _, _, err := edges.ToggleLike(ctx, stranger.ID, models.TargetVideo, video.ID); err != nil {
		t.Fatalf("like video: %v", err)
	}
	comment := models.Comment{ID: uuid.NewString(), VideoID: video.ID, OwnerID: stranger.ID, Content: "nice", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := comments.Create(ctx, comment); err != nil {
		t.Fatalf("create comment: %v", err)
	}

	edit := video
	edit.Title = "hijacked"
	if _, err := videos.Update(ctx, stranger.ID, edit); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner on update, got %v", err)
	}
	if _, err := videos.Delete(ctx, stranger.ID, video.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner on delete, got %v", err)
	}

	stored, err := videos.FindByID(ctx, video.ID)
	if err != nil {
		t.Fatalf("find video: %v", err)
	}
	if stored.Title != video.Title {
		t.Fatalf("expected title to be unchanged, got %q", stored.Title)
	}

	deleted, err := videos.Delete(ctx, owner.ID, video.ID)
	if err != nil {
		t.Fatalf("delete video: %v", err)
	}
	if deleted.File.StorageID != video.File.StorageID {
		t.Fatalf("expected deleted video media to be returned, got %+v", deleted.File)
	}
	if _, err := comments.FindByID(ctx, comment.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected comment to cascade, got %v", err)
	}
	counts, err := NewPostgresViewReader(testPool).LikeCounts(ctx, models.TargetVideo, []string{video.ID})
	if err != nil {
		t.Fatalf("like counts: %v", err)
	}
	if counts[video.ID] != 0 {
		t.Fatalf("expected likes to be removed with the video, got %d", counts[video.ID])
	}
}

func TestPostgresPlaylistRepository_Membership(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresPlaylistRepository(testPool)
	owner := createTestUser(t, "curator")
	first := createTestVideo(t, owner.ID, time.Now().UTC())
	second := createTestVideo(t, owner.ID, time.Now().UTC())

	playlist := models.Playlist{ID: uuid.NewString(), OwnerID: owner.ID, Name: "mix", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := repo.Create(ctx, playlist); err != nil {
		t.Fatalf("create playlist: %v", err)
	}

	if _, err := repo.AddVideo(ctx, owner.ID, playlist.ID, second.ID, time.Now().UTC()); err != nil {
		t.Fatalf("add second: %v", err)
	}
	got, err := repo.AddVideo(ctx, owner.ID, playlist.ID, first.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("add first: %v", err)
	}
	if len(got.VideoIDs) != 2 || got.VideoIDs[0] != second.ID || got.VideoIDs[1] != first.ID {
		t.Fatalf("expected insertion order, got %v", got.VideoIDs)
	}

	if _, err := repo.AddVideo(ctx, owner.ID, playlist.ID, first.ID, time.Now().UTC()); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict adding twice, got %v", err)
	}

	for i := 0; i < 2; i++ {
		got, err = repo.RemoveVideo(ctx, owner.ID, playlist.ID, second.ID, time.Now().UTC())
		if err != nil {
			t.Fatalf("remove %d: %v", i, err)
		}
	}
	if len(got.VideoIDs) != 1 || got.VideoIDs[0] != first.ID {
		t.Fatalf("expected only the first video to remain, got %v", got.VideoIDs)
	}

	if _, err := repo.AddVideo(ctx, uuid.NewString(), playlist.ID, second.ID, time.Now().UTC()); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner for a foreign actor, got %v", err)
	}
}

func TestPostgresViewReader_ListVideosWindow(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	owner := createTestUser(t, "prolific")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ids := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		ids = append(ids, createTestVideo(t, owner.ID, base.Add(time.Duration(i)*time.Minute)).ID)
	}

	reader := NewPostgresViewReader(testPool)
	page, total, err := reader.ListVideos(ctx, models.VideoQuery{
		SortBy: models.SortCreatedAt,
		Window: models.Window{Offset: 5, Limit: 5},
	})
	if err != nil {
		t.Fatalf("list videos: %v", err)
	}
	if total != 12 {
		t.Fatalf("expected total 12 got %d", total)
	}
	if len(page) != 5 {
		t.Fatalf("expected 5 videos got %d", len(page))
	}
	for i, v := range page {
		if v.ID != ids[5+i] {
			t.Fatalf("position %d: expected video %d", i, 6+i)
		}
	}
}

func TestPostgresViewReader_HidesUnpublishedEdgeVideos(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	owner := createTestUser(t, "maker")
	viewer := createTestUser(t, "watcher")
	video := createTestVideo(t, owner.ID, time.Now().UTC())

	if _, _, err := NewPostgresEdgeRepository(testPool).ToggleLike(ctx, viewer.ID, models.TargetVideo, video.ID); err != nil {
		t.Fatalf("toggle like: %v", err)
	}
	users := NewPostgresUserRepository(testPool)
	for _, id := range []string{viewer.ID, owner.ID} {
		if err := users.RecordWatch(ctx, id, video.ID, time.Now().UTC()); err != nil {
			t.Fatalf("record watch: %v", err)
		}
	}
	published, err := NewPostgresVideoRepository(testPool).TogglePublished(ctx, owner.ID, video.ID, time.Now().UTC())
	if err != nil || published {
		t.Fatalf("unpublish: published=%v err=%v", published, err)
	}

	reader := NewPostgresViewReader(testPool)
	all := models.Window{Limit: 10}
	liked, total, err := reader.LikedVideos(ctx, viewer.ID, all)
	if err != nil {
		t.Fatalf("liked videos: %v", err)
	}
	if len(liked) != 0 || total != 0 {
		t.Fatalf("expected unpublished video hidden from likes, got %d (total %d)", len(liked), total)
	}
	history, total, err := reader.WatchHistory(ctx, viewer.ID, all)
	if err != nil {
		t.Fatalf("watch history: %v", err)
	}
	if len(history) != 0 || total != 0 {
		t.Fatalf("expected unpublished video hidden from history, got %d (total %d)", len(history), total)
	}

	own, _, err := reader.WatchHistory(ctx, owner.ID, all)
	if err != nil {
		t.Fatalf("owner watch history: %v", err)
	}
	if len(own) != 1 || own[0].ID != video.ID {
		t.Fatalf("expected owner to keep seeing their video, got %+v", own)
	}
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE watch_history, subscriptions, likes, playlist_videos, playlists, tweets, comments, videos, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestUser(t *testing.T, handle string) models.User {
	t.Helper()
	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.NewString(),
		Handle:       handle,
		DisplayName:  handle,
		Email:        handle + "@example.com",
		PasswordHash: "password-hash",
		Avatar:       models.MediaRef{URL: "https://cdn.test/" + handle + "-avatar.png", StorageID: handle + "-avatar.png"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := NewPostgresUserRepository(testPool).Create(context.Background(), user); err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func createTestVideo(t *testing.T, ownerID string, createdAt time.Time) models.Video {
	t.Helper()
	id := uuid.NewString()
	video := models.Video{
		ID:              id,
		OwnerID:         ownerID,
		File:            models.MediaRef{URL: "https://cdn.test/" + id + ".mp4", StorageID: id + ".mp4"},
		Thumbnail:       models.MediaRef{URL: "https://cdn.test/" + id + ".png", StorageID: id + ".png"},
		Title:           "video " + id[:8],
		DurationSeconds: 42,
		Published:       true,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
	if err := NewPostgresVideoRepository(testPool).Create(context.Background(), video); err != nil {
		t.Fatalf("create test video: %v", err)
	}
	return video
}
