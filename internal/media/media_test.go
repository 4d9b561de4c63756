package media

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/models"
)

type fakeStore struct {
	mu       sync.Mutex
	objects  map[string]string
	deleted  []string
	storeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]string)}
}

func (f *fakeStore) Store(_ context.Context, localPath string) (models.MediaRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return models.MediaRef{}, f.storeErr
	}
	id := "obj-" + localPath
	f.objects[id] = localPath
	return models.MediaRef{URL: "https://cdn.test/" + id, StorageID: id}, nil
}

func (f *fakeStore) Delete(_ context.Context, storageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, storageID)
	f.deleted = append(f.deleted, storageID)
	return nil
}

func (f *fakeStore) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.deleted...)
	sort.Strings(out)
	return out
}

func TestBatchRollbackDeletesUploads(t *testing.T) {
	store := newFakeStore()
	batch := NewBatch(store)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := batch.Store(ctx, "video.mp4")
	require.NoError(t, err)
	_, err = batch.Store(ctx, "thumb.png")
	require.NoError(t, err)

	cancel()
	batch.Rollback(ctx)

	assert.Equal(t, []string{"obj-thumb.png", "obj-video.mp4"}, store.deletedIDs())
	assert.Empty(t, store.objects)

	batch.Rollback(context.Background())
	assert.Len(t, store.deletedIDs(), 2, "a second rollback has nothing left to delete")
}

func TestBatchStoreFailureIsExternal(t *testing.T) {
	store := newFakeStore()
	store.storeErr = errors.New("bucket offline")

	_, err := NewBatch(store).Store(context.Background(), "avatar.png")
	assert.True(t, apperror.Is(err, apperror.KindExternal))
	assert.ErrorIs(t, err, store.storeErr)

	_, err = NewBatch(nil).Store(context.Background(), "avatar.png")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestJanitorDrainsOnShutdown(t *testing.T) {
	store := newFakeStore()
	janitor := NewJanitor(store, JanitorConfig{Workers: 2, QueueSize: 8}, nil)

	janitor.Release(context.Background(),
		models.MediaRef{StorageID: "a"},
		models.MediaRef{},
		models.MediaRef{StorageID: "b"},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, janitor.Shutdown(ctx))

	assert.Equal(t, []string{"a", "b"}, store.deletedIDs())

	err := janitor.Enqueue(context.Background(), models.MediaRef{StorageID: "late"})
	assert.ErrorIs(t, err, errJanitorClosed)
	janitor.Release(context.Background(), models.MediaRef{StorageID: "late"})
	assert.Equal(t, []string{"a", "b"}, store.deletedIDs())

	require.NoError(t, janitor.Shutdown(ctx), "shutdown is idempotent")
}
