// Package comments manages comments left on videos.
package comments

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/authz"
	"github.com/vidtube/backend/internal/models"
)

// Store persists comments. Owner-scoped writes report repositories.ErrNotOwner
// when actorID does not own the row.
type Store interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	UpdateContent(ctx context.Context, actorID, id, content string, updatedAt time.Time) (models.Comment, error)
	Delete(ctx context.Context, actorID, id string) error
}

// VideoFinder resolves the commented video.
type VideoFinder interface {
	FindByID(ctx context.Context, id string) (models.Video, error)
}

// Service applies ownership rules to comment mutations.
type Service struct {
	store  Store
	videos VideoFinder
	now    func() time.Time
}

// NewService constructs a comment service.
func NewService(store Store, videos VideoFinder) *Service {
	return &Service{store: store, videos: videos, now: func() time.Time { return time.Now().UTC() }}
}

// Add posts a comment under a video the actor can see.
func (s *Service) Add(ctx context.Context, actorID, videoID, content string) (models.Comment, error) {
	if actorID == "" {
		return models.Comment{}, apperror.Unauthenticated("authentication required")
	}
	if err := apperror.RequireID("videoId", videoID); err != nil {
		return models.Comment{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, apperror.Validation("content is required")
	}

	video, err := s.videos.FindByID(ctx, videoID)
	if err != nil {
		return models.Comment{}, authz.StoreError(err, "video")
	}
	if !video.Published && video.OwnerID != actorID {
		return models.Comment{}, apperror.NotFound("video not found")
	}

	now := s.now()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   actorID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, comment); err != nil {
		return models.Comment{}, authz.StoreError(err, "video")
	}
	return comment, nil
}

// Update rewrites a comment owned by actorID.
func (s *Service) Update(ctx context.Context, actorID, commentID, content string) (models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, apperror.Validation("content is required")
	}
	if _, err := s.owned(ctx, actorID, commentID); err != nil {
		return models.Comment{}, err
	}
	updated, err := s.store.UpdateContent(ctx, actorID, commentID, content, s.now())
	if err != nil {
		return models.Comment{}, authz.StoreError(err, "comment")
	}
	return updated, nil
}

// Delete removes a comment owned by actorID together with its likes.
func (s *Service) Delete(ctx context.Context, actorID, commentID string) error {
	if _, err := s.owned(ctx, actorID, commentID); err != nil {
		return err
	}
	return authz.StoreError(s.store.Delete(ctx, actorID, commentID), "comment")
}

func (s *Service) owned(ctx context.Context, actorID, commentID string) (models.Comment, error) {
	if actorID == "" {
		return models.Comment{}, apperror.Unauthenticated("authentication required")
	}
	if err := apperror.RequireID("commentId", commentID); err != nil {
		return models.Comment{}, err
	}
	comment, err := s.store.FindByID(ctx, commentID)
	if err != nil {
		return models.Comment{}, authz.StoreError(err, "comment")
	}
	if err := authz.AssertOwner(comment, actorID); err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}
