package media

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vidtube/backend/internal/metrics"
	"github.com/vidtube/backend/internal/models"
)

// JanitorConfig controls the concurrency characteristics of the janitor.
type JanitorConfig struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

// Janitor deletes superseded objects from the store on a background worker pool.
type Janitor struct {
	store   ObjectStore
	timeout time.Duration
	logger  *slog.Logger

	jobs   chan models.MediaRef
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	once   sync.Once
}

var errJanitorClosed = errors.New("media janitor closed")

// NewJanitor starts the worker pool.
func NewJanitor(store ObjectStore, cfg JanitorConfig, logger *slog.Logger) *Janitor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	j := &Janitor{
		store:   store,
		timeout: cfg.Timeout,
		logger:  logger,
		jobs:    make(chan models.MediaRef, cfg.QueueSize),
	}

	j.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go j.worker()
	}

	return j
}

// Enqueue schedules deletion of ref, blocking while the queue is full.
func (j *Janitor) Enqueue(ctx context.Context, ref models.MediaRef) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return errJanitorClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case j.jobs <- ref:
		return nil
	}
}

// Release enqueues every non-empty reference. Objects that cannot be queued
// are logged and left in the store.
func (j *Janitor) Release(ctx context.Context, refs ...models.MediaRef) {
	for _, ref := range refs {
		if ref.StorageID == "" {
			continue
		}
		if err := j.Enqueue(ctx, ref); err != nil {
			j.logger.Warn("media release dropped", "storageId", ref.StorageID, "error", err)
		}
	}
}

// Shutdown stops accepting work and waits for queued deletions to finish.
func (j *Janitor) Shutdown(ctx context.Context) error {
	j.once.Do(func() {
		j.mu.Lock()
		j.closed = true
		close(j.jobs)
		j.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (j *Janitor) worker() {
	defer j.wg.Done()

	// Queued deletions are drained before the worker exits.
	for ref := range j.jobs {
		j.handle(ref)
	}
}

func (j *Janitor) handle(ref models.MediaRef) {
	if j.store == nil {
		j.logger.Error("media janitor missing object store", "storageId", ref.StorageID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	err := j.store.Delete(ctx, ref.StorageID)
	metrics.RecordCleanup(err)
	if err != nil {
		j.logger.Error("media cleanup failed", "storageId", ref.StorageID, "error", err)
		return
	}
	j.logger.Debug("media cleaned up", "storageId", ref.StorageID)
}
