// Package tweets manages short text posts on a channel.
package tweets

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/authz"
	"github.com/vidtube/backend/internal/models"
)

// MaxContentLength bounds a tweet in characters.
const MaxContentLength = 280

// Store persists tweets.
type Store interface {
	Create(ctx context.Context, tweet models.Tweet) error
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	UpdateContent(ctx context.Context, actorID, id, content string, updatedAt time.Time) (models.Tweet, error)
	Delete(ctx context.Context, actorID, id string) error
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Create posts a tweet on the actor's channel.
func (s *Service) Create(ctx context.Context, actorID, content string) (models.Tweet, error) {
	if actorID == "" {
		return models.Tweet{}, apperror.Unauthenticated("authentication required")
	}
	content, err := validContent(content)
	if err != nil {
		return models.Tweet{}, err
	}

	now := s.now()
	tweet := models.Tweet{
		ID:        uuid.NewString(),
		OwnerID:   actorID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, tweet); err != nil {
		return models.Tweet{}, authz.StoreError(err, "owner")
	}
	return tweet, nil
}

// Update rewrites a tweet owned by actorID.
func (s *Service) Update(ctx context.Context, actorID, tweetID, content string) (models.Tweet, error) {
	content, err := validContent(content)
	if err != nil {
		return models.Tweet{}, err
	}
	if _, err := s.owned(ctx, actorID, tweetID); err != nil {
		return models.Tweet{}, err
	}
	updated, err := s.store.UpdateContent(ctx, actorID, tweetID, content, s.now())
	if err != nil {
		return models.Tweet{}, authz.StoreError(err, "tweet")
	}
	return updated, nil
}

// Delete removes a tweet owned by actorID together with its likes.
func (s *Service) Delete(ctx context.Context, actorID, tweetID string) error {
	if _, err := s.owned(ctx, actorID, tweetID); err != nil {
		return err
	}
	return authz.StoreError(s.store.Delete(ctx, actorID, tweetID), "tweet")
}

func (s *Service) owned(ctx context.Context, actorID, tweetID string) (models.Tweet, error) {
	if actorID == "" {
		return models.Tweet{}, apperror.Unauthenticated("authentication required")
	}
	if err := apperror.RequireID("tweetId", tweetID); err != nil {
		return models.Tweet{}, err
	}
	tweet, err := s.store.FindByID(ctx, tweetID)
	if err != nil {
		return models.Tweet{}, authz.StoreError(err, "tweet")
	}
	if err := authz.AssertOwner(tweet, actorID); err != nil {
		return models.Tweet{}, err
	}
	return tweet, nil
}

func validContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	switch {
	case content == "":
		return "", apperror.Validation("content is required")
	case len([]rune(content)) > MaxContentLength:
		return "", apperror.Validation("content is too long", "tweets are limited to 280 characters")
	}
	return content, nil
}
