package models

import "time"

// MediaRef points at an object persisted in the object store.
type MediaRef struct {
	URL       string
	StorageID string
}

// IsZero reports whether the reference is unset.
func (m MediaRef) IsZero() bool {
	return m.URL == "" && m.StorageID == ""
}

// User represents a channel account. Handle and Email are stored lower-cased.
type User struct {
	ID           string
	Handle       string
	DisplayName  string
	Email        string
	PasswordHash string
	Avatar       MediaRef
	Cover        MediaRef
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Video is an uploaded video owned by a channel.
type Video struct {
	ID              string
	OwnerID         string
	File            MediaRef
	Thumbnail       MediaRef
	Title           string
	Description     string
	DurationSeconds float64
	Views           int64
	Published       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OwnedBy returns the owning user id.
func (v Video) OwnedBy() string { return v.OwnerID }

// Comment is a text comment left on a video.
type Comment struct {
	ID        string
	VideoID   string
	OwnerID   string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c Comment) OwnedBy() string { return c.OwnerID }

// Tweet is a short text post published on a channel.
type Tweet struct {
	ID        string
	OwnerID   string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t Tweet) OwnedBy() string { return t.OwnerID }

// Playlist is an ordered, deduplicated collection of videos.
type Playlist struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	VideoIDs    []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p Playlist) OwnedBy() string { return p.OwnerID }

// TargetKind names the entity a Like points at.
type TargetKind string

const (
	TargetVideo   TargetKind = "video"
	TargetComment TargetKind = "comment"
	TargetTweet   TargetKind = "tweet"
)

// Valid reports whether k is a known target kind.
func (k TargetKind) Valid() bool {
	switch k {
	case TargetVideo, TargetComment, TargetTweet:
		return true
	}
	return false
}

// Like is the edge actor -> target. At most one exists per (actor, kind, target).
type Like struct {
	ActorID    string
	TargetKind TargetKind
	TargetID   string
	CreatedAt  time.Time
}

// Subscription is the edge subscriber -> channel.
type Subscription struct {
	SubscriberID string
	ChannelID    string
	CreatedAt    time.Time
}

// WatchEntry records the last time a user watched a video.
type WatchEntry struct {
	UserID    string
	VideoID   string
	WatchedAt time.Time
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
