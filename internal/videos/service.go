// Package videos implements the owner-scoped video mutations: publishing,
// editing, deleting, publish toggling and view recording.
package videos

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/authz"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// Store persists videos. Owner-scoped writes report repositories.ErrNotOwner
// when actorID does not own the row.
type Store interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	Update(ctx context.Context, actorID string, video models.Video) (models.Video, error)
	TogglePublished(ctx context.Context, actorID, id string, updatedAt time.Time) (bool, error)
	Delete(ctx context.Context, actorID, id string) (models.Video, error)
	IncrementViews(ctx context.Context, id string) error
}

// HistoryRecorder pushes watched videos onto a user's history.
type HistoryRecorder interface {
	RecordWatch(ctx context.Context, userID, videoID string, watchedAt time.Time) error
}

// DurationProber measures uploaded media.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Dependencies wires a Service.
type Dependencies struct {
	Store    Store
	History  HistoryRecorder
	Prober   DurationProber
	Objects  media.ObjectStore
	Releaser media.Releaser
}

// PublishInput describes a new upload. Paths point at local temporary files.
type PublishInput struct {
	Title         string
	Description   string
	VideoPath     string
	ThumbnailPath string
}

// UpdateInput carries edits. Blank fields keep their current value.
type UpdateInput struct {
	Title         string
	Description   string
	ThumbnailPath string
}

// Service coordinates video mutations with the object store.
type Service struct {
	store    Store
	history  HistoryRecorder
	prober   DurationProber
	objects  media.ObjectStore
	releaser media.Releaser
	now      func() time.Time
}

// NewService constructs a video service.
func NewService(deps Dependencies) *Service {
	return &Service{
		store:    deps.Store,
		history:  deps.History,
		prober:   deps.Prober,
		objects:  deps.Objects,
		releaser: deps.Releaser,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Publish probes and uploads the media, then records the video as published.
// Uploaded objects are removed again when the record cannot be written.
func (s *Service) Publish(ctx context.Context, actorID string, in PublishInput) (models.Video, error) {
	if actorID == "" {
		return models.Video{}, apperror.Unauthenticated("authentication required")
	}
	title := strings.TrimSpace(in.Title)
	var details []string
	if title == "" {
		details = append(details, "title is required")
	}
	if in.VideoPath == "" {
		details = append(details, "video file is required")
	}
	if in.ThumbnailPath == "" {
		details = append(details, "thumbnail is required")
	}
	if len(details) > 0 {
		return models.Video{}, apperror.Validation("invalid video upload", details...)
	}

	ctx, span := logging.StartSpan(ctx, "videos.publish", "owner_id", actorID)
	defer span.End()

	if s.prober == nil {
		return models.Video{}, apperror.External("could not read video duration", ErrProbeUnavailable)
	}
	duration, err := s.prober.Duration(ctx, in.VideoPath)
	if err != nil {
		span.Fail(err)
		return models.Video{}, apperror.External("could not read video duration", err)
	}

	batch := media.NewBatch(s.objects)
	file, err := batch.Store(ctx, in.VideoPath)
	if err != nil {
		return models.Video{}, err
	}
	thumbnail, err := batch.Store(ctx, in.ThumbnailPath)
	if err != nil {
		batch.Rollback(ctx)
		return models.Video{}, err
	}

	now := s.now()
	video := models.Video{
		ID:              uuid.NewString(),
		OwnerID:         actorID,
		File:            file,
		Thumbnail:       thumbnail,
		Title:           title,
		Description:     strings.TrimSpace(in.Description),
		DurationSeconds: duration,
		Published:       true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Create(ctx, video); err != nil {
		span.Fail(err)
		batch.Rollback(ctx)
		return models.Video{}, authz.StoreError(err, "owner")
	}

	logging.FromContext(ctx).Info("video published", "videoId", video.ID, "duration", duration)
	return video, nil
}

// Update edits a video owned by actorID. A new thumbnail replaces the old one,
// which is released only after the update commits.
func (s *Service) Update(ctx context.Context, actorID, videoID string, in UpdateInput) (models.Video, error) {
	current, err := s.owned(ctx, actorID, videoID)
	if err != nil {
		return models.Video{}, err
	}

	next := current
	if title := strings.TrimSpace(in.Title); title != "" {
		next.Title = title
	}
	if description := strings.TrimSpace(in.Description); description != "" {
		next.Description = description
	}
	next.UpdatedAt = s.now()

	batch := media.NewBatch(s.objects)
	if in.ThumbnailPath != "" {
		thumbnail, err := batch.Store(ctx, in.ThumbnailPath)
		if err != nil {
			return models.Video{}, err
		}
		next.Thumbnail = thumbnail
	}

	updated, err := s.store.Update(ctx, actorID, next)
	if err != nil {
		batch.Rollback(ctx)
		return models.Video{}, authz.StoreError(err, "video")
	}

	if in.ThumbnailPath != "" {
		s.release(ctx, current.Thumbnail)
	}
	return updated, nil
}

// Delete removes a video owned by actorID along with its likes, comments,
// playlist memberships and history entries. Its media is released afterwards.
func (s *Service) Delete(ctx context.Context, actorID, videoID string) error {
	if _, err := s.owned(ctx, actorID, videoID); err != nil {
		return err
	}

	deleted, err := s.store.Delete(ctx, actorID, videoID)
	if err != nil {
		return authz.StoreError(err, "video")
	}

	s.release(ctx, deleted.File, deleted.Thumbnail)
	logging.FromContext(ctx).Info("video deleted", "videoId", videoID)
	return nil
}

// TogglePublish flips the published flag and returns the new value.
func (s *Service) TogglePublish(ctx context.Context, actorID, videoID string) (bool, error) {
	if _, err := s.owned(ctx, actorID, videoID); err != nil {
		return false, err
	}
	published, err := s.store.TogglePublished(ctx, actorID, videoID, s.now())
	if err != nil {
		return false, authz.StoreError(err, "video")
	}
	return published, nil
}

// RecordView counts a signed-in viewer's read and records it in their watch
// history. Anonymous reads are checked for visibility but not counted.
// Unpublished videos can only be viewed by their owner.
func (s *Service) RecordView(ctx context.Context, viewerID, videoID string) error {
	if err := apperror.RequireID("videoId", videoID); err != nil {
		return err
	}
	video, err := s.store.FindByID(ctx, videoID)
	if err != nil {
		return authz.StoreError(err, "video")
	}
	if !video.Published && video.OwnerID != viewerID {
		return apperror.NotFound("video not found")
	}

	if viewerID == "" {
		return nil
	}
	if err := s.store.IncrementViews(ctx, videoID); err != nil {
		return authz.StoreError(err, "video")
	}
	if s.history == nil {
		return nil
	}
	err = s.history.RecordWatch(ctx, viewerID, videoID, s.now())
	if errors.Is(err, repositories.ErrNotFound) {
		// The video or viewer was removed between the two writes.
		return nil
	}
	return err
}

func (s *Service) owned(ctx context.Context, actorID, videoID string) (models.Video, error) {
	if actorID == "" {
		return models.Video{}, apperror.Unauthenticated("authentication required")
	}
	if err := apperror.RequireID("videoId", videoID); err != nil {
		return models.Video{}, err
	}
	video, err := s.store.FindByID(ctx, videoID)
	if err != nil {
		return models.Video{}, authz.StoreError(err, "video")
	}
	if err := authz.AssertOwner(video, actorID); err != nil {
		return models.Video{}, err
	}
	return video, nil
}

func (s *Service) release(ctx context.Context, refs ...models.MediaRef) {
	if s.releaser == nil {
		return
	}
	s.releaser.Release(ctx, refs...)
}
