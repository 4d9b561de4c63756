// Package media tracks objects in the object store on behalf of mutations:
// uploads that must be undone when the write fails, and superseded objects
// that are deleted in the background.
package media

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/metrics"
	"github.com/vidtube/backend/internal/models"
)

// ErrStoreUnavailable indicates no object store is configured.
var ErrStoreUnavailable = errors.New("object store unavailable")

// ObjectStore persists local files and deletes stored objects.
type ObjectStore interface {
	Store(ctx context.Context, localPath string) (models.MediaRef, error)
	Delete(ctx context.Context, storageID string) error
}

// Releaser accepts objects that are no longer referenced.
type Releaser interface {
	Release(ctx context.Context, refs ...models.MediaRef)
}

const rollbackTimeout = 30 * time.Second

// Batch records the objects uploaded during one mutation so they can be
// removed if the mutation does not commit.
type Batch struct {
	store ObjectStore

	mu     sync.Mutex
	stored []models.MediaRef
}

// NewBatch starts an empty batch against store.
func NewBatch(store ObjectStore) *Batch {
	return &Batch{store: store}
}

// Store uploads localPath. Failures are reported as external service errors.
func (b *Batch) Store(ctx context.Context, localPath string) (models.MediaRef, error) {
	if b.store == nil {
		return models.MediaRef{}, apperror.External("media upload failed", ErrStoreUnavailable)
	}
	ref, err := b.store.Store(ctx, localPath)
	if err != nil {
		return models.MediaRef{}, apperror.External("media upload failed", err)
	}

	b.mu.Lock()
	b.stored = append(b.stored, ref)
	b.mu.Unlock()
	return ref, nil
}

// Rollback deletes every object stored through the batch. Deletion errors are
// logged and counted, never returned.
func (b *Batch) Rollback(ctx context.Context) {
	b.mu.Lock()
	refs := b.stored
	b.stored = nil
	b.mu.Unlock()

	if len(refs) == 0 {
		return
	}

	// The request context may already be cancelled by the failure being undone.
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	logger := logging.FromContext(ctx)
	for _, ref := range refs {
		err := b.store.Delete(cleanupCtx, ref.StorageID)
		metrics.RecordCleanup(err)
		if err != nil {
			logger.Error("media rollback failed", "storageId", ref.StorageID, "error", err)
			continue
		}
		logger.Info("media rolled back", "storageId", ref.StorageID)
	}
}
