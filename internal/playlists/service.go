// Package playlists manages playlists and their ordered video membership.
package playlists

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/authz"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// Store persists playlists. Mutations are conditional on actorID owning the
// playlist and report repositories.ErrNotOwner otherwise.
type Store interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	Update(ctx context.Context, actorID, id, name, description string, updatedAt time.Time) (models.Playlist, error)
	Delete(ctx context.Context, actorID, id string) error
	AddVideo(ctx context.Context, actorID, playlistID, videoID string, addedAt time.Time) (models.Playlist, error)
	RemoveVideo(ctx context.Context, actorID, playlistID, videoID string, updatedAt time.Time) (models.Playlist, error)
}

// VideoFinder resolves membership targets.
type VideoFinder interface {
	FindByID(ctx context.Context, id string) (models.Video, error)
}

// Input carries the editable playlist fields.
type Input struct {
	Name        string
	Description string
}

// Service applies ownership rules on top of the Store.
type Service struct {
	store  Store
	videos VideoFinder
	now    func() time.Time
}

// NewService constructs a playlist service.
func NewService(store Store, videos VideoFinder) *Service {
	return &Service{
		store:  store,
		videos: videos,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create makes an empty playlist owned by actorID.
func (s *Service) Create(ctx context.Context, actorID string, in Input) (models.Playlist, error) {
	if actorID == "" {
		return models.Playlist{}, apperror.Unauthenticated("authentication required")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Playlist{}, apperror.Validation("name is required")
	}

	now := s.now()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     actorID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		VideoIDs:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, playlist); err != nil {
		return models.Playlist{}, err
	}

	logging.FromContext(ctx).Info("playlist created", "playlistId", playlist.ID)
	return playlist, nil
}

// Update renames a playlist. A blank description keeps the current one.
func (s *Service) Update(ctx context.Context, actorID, playlistID string, in Input) (models.Playlist, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Playlist{}, apperror.Validation("name is required")
	}
	current, err := s.owned(ctx, actorID, playlistID)
	if err != nil {
		return models.Playlist{}, err
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = current.Description
	}

	updated, err := s.store.Update(ctx, actorID, playlistID, name, description, s.now())
	if err != nil {
		return models.Playlist{}, authz.StoreError(err, "playlist")
	}
	return updated, nil
}

// Delete removes a playlist owned by actorID.
func (s *Service) Delete(ctx context.Context, actorID, playlistID string) error {
	if _, err := s.owned(ctx, actorID, playlistID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, actorID, playlistID); err != nil {
		return authz.StoreError(err, "playlist")
	}
	logging.FromContext(ctx).Info("playlist deleted", "playlistId", playlistID)
	return nil
}

// AddVideo appends videoID to the playlist. Adding a member twice is a
// conflict and leaves the playlist unchanged.
func (s *Service) AddVideo(ctx context.Context, actorID, playlistID, videoID string) (models.Playlist, error) {
	if err := s.checkMembership(ctx, actorID, playlistID, videoID); err != nil {
		return models.Playlist{}, err
	}

	playlist, err := s.store.AddVideo(ctx, actorID, playlistID, videoID, s.now())
	switch {
	case errors.Is(err, repositories.ErrConflict):
		return models.Playlist{}, apperror.Conflict("video is already in the playlist")
	case errors.Is(err, repositories.ErrReferenceNotFound):
		return models.Playlist{}, apperror.NotFound("video not found")
	case err != nil:
		return models.Playlist{}, authz.StoreError(err, "playlist")
	}
	return playlist, nil
}

// RemoveVideo drops videoID from the playlist. Removing a non-member succeeds.
func (s *Service) RemoveVideo(ctx context.Context, actorID, playlistID, videoID string) (models.Playlist, error) {
	if err := s.checkMembership(ctx, actorID, playlistID, videoID); err != nil {
		return models.Playlist{}, err
	}

	playlist, err := s.store.RemoveVideo(ctx, actorID, playlistID, videoID, s.now())
	if err != nil {
		return models.Playlist{}, authz.StoreError(err, "playlist")
	}
	return playlist, nil
}

func (s *Service) checkMembership(ctx context.Context, actorID, playlistID, videoID string) error {
	if err := apperror.RequireID("videoId", videoID); err != nil {
		return err
	}
	if _, err := s.owned(ctx, actorID, playlistID); err != nil {
		return err
	}
	if _, err := s.videos.FindByID(ctx, videoID); err != nil {
		return authz.StoreError(err, "video")
	}
	return nil
}

func (s *Service) owned(ctx context.Context, actorID, playlistID string) (models.Playlist, error) {
	if actorID == "" {
		return models.Playlist{}, apperror.Unauthenticated("authentication required")
	}
	if err := apperror.RequireID("playlistId", playlistID); err != nil {
		return models.Playlist{}, err
	}
	playlist, err := s.store.FindByID(ctx, playlistID)
	if err != nil {
		return models.Playlist{}, authz.StoreError(err, "playlist")
	}
	if err := authz.AssertOwner(playlist, actorID); err != nil {
		return models.Playlist{}, err
	}
	return playlist, nil
}
