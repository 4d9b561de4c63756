package handlers

import (
	"time"

	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/views"
)

// Mutation responses echo the stored record; the personalized shapes come
// from the view endpoints.

type videoRecord struct {
	views.VideoFields
	OwnerID string `json:"ownerId"`
}

func newVideoRecord(v models.Video) videoRecord {
	return videoRecord{VideoFields: views.NewVideoFields(v), OwnerID: v.OwnerID}
}

type commentRecord struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newCommentRecord(c models.Comment) commentRecord {
	return commentRecord{
		ID:        c.ID,
		VideoID:   c.VideoID,
		OwnerID:   c.OwnerID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type tweetRecord struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newTweetRecord(t models.Tweet) tweetRecord {
	return tweetRecord{ID: t.ID, OwnerID: t.OwnerID, Content: t.Content, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt}
}

type playlistRecord struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Videos      []string  `json:"videos"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newPlaylistRecord(p models.Playlist) playlistRecord {
	videoIDs := p.VideoIDs
	if videoIDs == nil {
		videoIDs = []string{}
	}
	return playlistRecord{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		Name:        p.Name,
		Description: p.Description,
		Videos:      videoIDs,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
