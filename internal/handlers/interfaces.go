package handlers

import (
	"context"

	"github.com/vidtube/backend/internal/edges"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/playlists"
	"github.com/vidtube/backend/internal/users"
	"github.com/vidtube/backend/internal/videos"
	"github.com/vidtube/backend/internal/views"
)

// UserService captures the account workflows used by the user handlers.
type UserService interface {
	Register(ctx context.Context, in users.RegisterInput) (models.User, error)
	Login(ctx context.Context, handle, email, password string) (models.User, models.SessionTokens, error)
	Logout(ctx context.Context, userID string) error
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	UpdateAccount(ctx context.Context, userID, displayName, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, userID, localPath string) (models.User, error)
	UpdateCover(ctx context.Context, userID, localPath string) (models.User, error)
	Current(ctx context.Context, userID string) (models.User, error)
}

// VideoService captures owner-scoped video mutations.
type VideoService interface {
	Publish(ctx context.Context, actorID string, in videos.PublishInput) (models.Video, error)
	Update(ctx context.Context, actorID, videoID string, in videos.UpdateInput) (models.Video, error)
	Delete(ctx context.Context, actorID, videoID string) error
	TogglePublish(ctx context.Context, actorID, videoID string) (bool, error)
	RecordView(ctx context.Context, viewerID, videoID string) error
}

// CommentService captures comment mutations.
type CommentService interface {
	Add(ctx context.Context, actorID, videoID, content string) (models.Comment, error)
	Update(ctx context.Context, actorID, commentID, content string) (models.Comment, error)
	Delete(ctx context.Context, actorID, commentID string) error
}

// TweetService captures tweet mutations.
type TweetService interface {
	Create(ctx context.Context, actorID, content string) (models.Tweet, error)
	Update(ctx context.Context, actorID, tweetID, content string) (models.Tweet, error)
	Delete(ctx context.Context, actorID, tweetID string) error
}

// PlaylistService captures playlist CRUD and membership edits.
type PlaylistService interface {
	Create(ctx context.Context, actorID string, in playlists.Input) (models.Playlist, error)
	Update(ctx context.Context, actorID, playlistID string, in playlists.Input) (models.Playlist, error)
	Delete(ctx context.Context, actorID, playlistID string) error
	AddVideo(ctx context.Context, actorID, playlistID, videoID string) (models.Playlist, error)
	RemoveVideo(ctx context.Context, actorID, playlistID, videoID string) (models.Playlist, error)
}

// EdgeToggler flips like and subscription edges.
type EdgeToggler interface {
	ToggleLike(ctx context.Context, actorID string, kind models.TargetKind, targetID string) (edges.ToggleResult, error)
	ToggleSubscription(ctx context.Context, subscriberID, channelID string) (edges.ToggleResult, error)
}

// ViewComposer builds the personalized read models.
type ViewComposer interface {
	ListVideos(ctx context.Context, filter views.VideoFilter, page views.PageRequest) (views.Page[views.VideoCard], error)
	VideoDetail(ctx context.Context, viewerID, videoID string) (views.VideoDetail, error)
	VideoComments(ctx context.Context, viewerID, videoID string, page views.PageRequest) (views.Page[views.CommentView], error)
	ChannelProfile(ctx context.Context, viewerID, handle string) (views.ChannelProfile, error)
	ChannelTweets(ctx context.Context, viewerID, handle string, page views.PageRequest) (views.Page[views.TweetView], error)
	LikedVideos(ctx context.Context, viewerID string, page views.PageRequest) (views.Page[views.VideoCard], error)
	WatchHistory(ctx context.Context, viewerID string, page views.PageRequest) (views.Page[views.VideoCard], error)
	ChannelSubscribers(ctx context.Context, viewerID, channelID string, page views.PageRequest) (views.Page[views.ChannelCard], error)
	SubscribedChannels(ctx context.Context, viewerID, handle string, page views.PageRequest) (views.Page[views.ChannelCard], error)
	UserPlaylists(ctx context.Context, viewerID, handle string, page views.PageRequest) (views.Page[views.PlaylistSummary], error)
	PlaylistDetail(ctx context.Context, viewerID, playlistID string) (views.PlaylistDetail, error)
	DashboardStats(ctx context.Context, viewerID string) (views.DashboardStats, error)
	DashboardVideos(ctx context.Context, viewerID string, page views.PageRequest) (views.Page[views.DashboardVideo], error)
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
