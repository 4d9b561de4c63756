// Package edges maintains the symmetric like and subscription relations.
// A toggle deletes the edge when present and inserts it otherwise; the store
// performs the exchange atomically and the Manager additionally serializes
// toggles on the same key within this process.
package edges

import (
	"context"
	"errors"
	"fmt"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/concurrency"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/metrics"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// Store performs atomic toggles and reports the edge count at the target.
type Store interface {
	ToggleLike(ctx context.Context, actorID string, kind models.TargetKind, targetID string) (bool, int64, error)
	ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, int64, error)
}

// ToggleResult is the edge state after a toggle together with the number of
// edges now pointing at the target.
type ToggleResult struct {
	Active bool
	Count  int64
}

// Manager validates and serializes toggle requests.
type Manager struct {
	store Store
	locks *concurrency.LockManager
}

// NewManager constructs a Manager over store.
func NewManager(store Store) *Manager {
	return &Manager{store: store, locks: concurrency.NewLockManager()}
}

// ToggleLike flips the like (actorID, kind, targetID).
func (m *Manager) ToggleLike(ctx context.Context, actorID string, kind models.TargetKind, targetID string) (ToggleResult, error) {
	if actorID == "" {
		return ToggleResult{}, apperror.Unauthenticated("authentication required")
	}
	if !kind.Valid() {
		return ToggleResult{}, apperror.Validation(fmt.Sprintf("unknown like target %q", kind))
	}
	if err := apperror.RequireID(string(kind)+"Id", targetID); err != nil {
		return ToggleResult{}, err
	}

	unlock := m.locks.Lock("like:" + actorID + ":" + string(kind) + ":" + targetID)
	defer unlock()

	active, count, err := m.store.ToggleLike(ctx, actorID, kind, targetID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ToggleResult{}, apperror.NotFound(fmt.Sprintf("%s not found", kind))
		}
		return ToggleResult{}, fmt.Errorf("toggle %s like: %w", kind, err)
	}

	metrics.RecordToggle("like_"+string(kind), active)
	logging.FromContext(ctx).Debug("like toggled", "kind", kind, "targetId", targetID, "active", active, "count", count)

	return ToggleResult{Active: active, Count: count}, nil
}

// ToggleSubscription flips subscriberID -> channelID. Subscribing to yourself
// is rejected.
func (m *Manager) ToggleSubscription(ctx context.Context, subscriberID, channelID string) (ToggleResult, error) {
	if subscriberID == "" {
		return ToggleResult{}, apperror.Unauthenticated("authentication required")
	}
	if err := apperror.RequireID("channelId", channelID); err != nil {
		return ToggleResult{}, err
	}
	if subscriberID == channelID {
		return ToggleResult{}, apperror.Validation("you cannot subscribe to your own channel")
	}

	unlock := m.locks.Lock("sub:" + subscriberID + ":" + channelID)
	defer unlock()

	active, count, err := m.store.ToggleSubscription(ctx, subscriberID, channelID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ToggleResult{}, apperror.NotFound("channel not found")
		}
		return ToggleResult{}, fmt.Errorf("toggle subscription: %w", err)
	}

	metrics.RecordToggle("subscription", active)
	logging.FromContext(ctx).Debug("subscription toggled", "channelId", channelID, "active", active, "count", count)

	return ToggleResult{Active: active, Count: count}, nil
}
