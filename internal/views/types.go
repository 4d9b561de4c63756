package views

import (
	"time"

	"github.com/vidtube/backend/internal/models"
)

// OwnerSummary is the nested user card attached to owned entities.
type OwnerSummary struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
}

// ChannelCard is an OwnerSummary annotated with subscriber data.
type ChannelCard struct {
	OwnerSummary
	SubscribersCount int64 `json:"subscribersCount"`
	IsSubscribed     bool  `json:"isSubscribed"`
}

// ChannelProfile is the public profile of a channel.
type ChannelProfile struct {
	ID                string    `json:"id"`
	Handle            string    `json:"handle"`
	DisplayName       string    `json:"displayName"`
	Email             string    `json:"email"`
	Avatar            string    `json:"avatar"`
	CoverImage        string    `json:"coverImage"`
	SubscribersCount  int64     `json:"subscribersCount"`
	SubscribedToCount int64     `json:"channelsSubscribedToCount"`
	IsSubscribed      bool      `json:"isSubscribed"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Account is the authenticated user's own record without secrets.
type Account struct {
	ID          string    `json:"id"`
	Handle      string    `json:"handle"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	Avatar      string    `json:"avatar"`
	CoverImage  string    `json:"coverImage"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// VideoFields are the columns of a video shared by every video view.
type VideoFields struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	VideoFile   string    `json:"videoFile"`
	Thumbnail   string    `json:"thumbnail"`
	Duration    float64   `json:"duration"`
	Views       int64     `json:"views"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// VideoCard is a video listing entry.
type VideoCard struct {
	VideoFields
	Owner OwnerSummary `json:"owner"`
}

// VideoDetail is the full page of a single video.
type VideoDetail struct {
	VideoFields
	LikesCount int64             `json:"likesCount"`
	IsLiked    bool              `json:"isLiked"`
	Owner      ChannelCard       `json:"owner"`
	Comments   Page[CommentView] `json:"comments"`
}

// DashboardVideo is a video row of the owner's dashboard.
type DashboardVideo struct {
	VideoFields
	LikesCount int64 `json:"likesCount"`
}

// CommentView is a comment with its owner and like data.
type CommentView struct {
	ID         string       `json:"id"`
	VideoID    string       `json:"videoId"`
	Content    string       `json:"content"`
	Owner      OwnerSummary `json:"owner"`
	LikesCount int64        `json:"likesCount"`
	IsLiked    bool         `json:"isLiked"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// TweetView is a tweet with its owner and like data.
type TweetView struct {
	ID         string       `json:"id"`
	Content    string       `json:"content"`
	Owner      OwnerSummary `json:"owner"`
	LikesCount int64        `json:"likesCount"`
	IsLiked    bool         `json:"isLiked"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// PlaylistSummary is a playlist listing entry.
type PlaylistSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	VideosCount int       `json:"videosCount"`
	Thumbnails  []string  `json:"thumbnails"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PlaylistDetail is a playlist with its ordered videos.
type PlaylistDetail struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Owner       ChannelCard `json:"owner"`
	VideosCount int         `json:"videosCount"`
	Videos      []VideoCard `json:"videos"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// DashboardStats are the channel totals shown on the owner's dashboard.
type DashboardStats struct {
	TotalViews       int64 `json:"totalViews"`
	TotalLikes       int64 `json:"totalLikes"`
	TotalSubscribers int64 `json:"totalSubscribers"`
	TotalVideos      int64 `json:"totalVideos"`
}

// LikeState is the response of a like toggle.
type LikeState struct {
	IsLiked    bool  `json:"isLiked"`
	LikesCount int64 `json:"likesCount"`
}

// SubscriptionState is the response of a subscription toggle.
type SubscriptionState struct {
	IsSubscribed     bool  `json:"isSubscribed"`
	SubscribersCount int64 `json:"subscribersCount"`
}

// NewOwnerSummary projects a user into its card.
func NewOwnerSummary(u models.User) OwnerSummary {
	return OwnerSummary{ID: u.ID, Handle: u.Handle, DisplayName: u.DisplayName, Avatar: u.Avatar.URL}
}

// NewAccount projects a user into the account view.
func NewAccount(u models.User) Account {
	return Account{
		ID:          u.ID,
		Handle:      u.Handle,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Avatar:      u.Avatar.URL,
		CoverImage:  u.Cover.URL,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// NewVideoFields projects the shared video columns.
func NewVideoFields(v models.Video) VideoFields {
	return VideoFields{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		VideoFile:   v.File.URL,
		Thumbnail:   v.Thumbnail.URL,
		Duration:    v.DurationSeconds,
		Views:       v.Views,
		IsPublished: v.Published,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

// NewCommentView projects a comment without like data.
func NewCommentView(c models.Comment, owner models.User) CommentView {
	return CommentView{
		ID:        c.ID,
		VideoID:   c.VideoID,
		Content:   c.Content,
		Owner:     NewOwnerSummary(owner),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// NewTweetView projects a tweet without like data.
func NewTweetView(t models.Tweet, owner models.User) TweetView {
	return TweetView{
		ID:        t.ID,
		Content:   t.Content,
		Owner:     NewOwnerSummary(owner),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
