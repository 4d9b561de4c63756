// Package views joins normalized records into response-shaped projections
// annotated with derived counts and viewer-relative flags.
package views

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// Reader is the read side of the entity store.
type Reader interface {
	Video(ctx context.Context, id string) (models.Video, error)
	User(ctx context.Context, id string) (models.User, error)
	UserByHandle(ctx context.Context, handle string) (models.User, error)
	Playlist(ctx context.Context, id string) (models.Playlist, error)

	Users(ctx context.Context, ids []string) (map[string]models.User, error)
	Videos(ctx context.Context, ids []string) (map[string]models.Video, error)

	ListVideos(ctx context.Context, query models.VideoQuery) ([]models.Video, int64, error)
	ListComments(ctx context.Context, videoID string, window models.Window) ([]models.Comment, int64, error)
	ListTweets(ctx context.Context, ownerID string, window models.Window) ([]models.Tweet, int64, error)
	ListPlaylists(ctx context.Context, ownerID string, window models.Window) ([]models.Playlist, int64, error)

	LikeCounts(ctx context.Context, kind models.TargetKind, targetIDs []string) (map[string]int64, error)
	LikedBy(ctx context.Context, actorID string, kind models.TargetKind, targetIDs []string) (map[string]bool, error)
	SubscriberCounts(ctx context.Context, channelIDs []string) (map[string]int64, error)
	SubscribedTo(ctx context.Context, subscriberID string, channelIDs []string) (map[string]bool, error)
	SubscriptionCount(ctx context.Context, subscriberID string) (int64, error)

	Subscribers(ctx context.Context, channelID string, window models.Window) ([]models.User, int64, error)
	Subscriptions(ctx context.Context, subscriberID string, window models.Window) ([]models.User, int64, error)
	LikedVideos(ctx context.Context, actorID string, window models.Window) ([]models.Video, int64, error)
	WatchHistory(ctx context.Context, userID string, window models.Window) ([]models.Video, int64, error)
	ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error)
}

// Composer builds views. The viewer id is empty for anonymous requests, in
// which case every viewer flag is false.
type Composer struct {
	reader Reader
}

// NewComposer constructs a Composer over reader.
func NewComposer(reader Reader) *Composer {
	return &Composer{reader: reader}
}

// VideoFilter narrows a public video listing.
type VideoFilter struct {
	OwnerID  string
	Title    string
	SortBy   string
	SortType string
}

func (f VideoFilter) query(page PageRequest) (models.VideoQuery, error) {
	q := models.VideoQuery{
		TitleContains: strings.TrimSpace(f.Title),
		Window:        page.Window(),
	}
	if f.OwnerID != "" {
		if err := apperror.RequireID("userId", f.OwnerID); err != nil {
			return q, err
		}
		q.OwnerID = f.OwnerID
	}

	switch sortBy := models.VideoSort(f.SortBy); sortBy {
	case "":
		q.SortBy = models.SortCreatedAt
	case models.SortCreatedAt, models.SortViews, models.SortDuration, models.SortTitle:
		q.SortBy = sortBy
	default:
		return q, apperror.Validation("invalid sortBy", "sortBy must be one of createdAt, views, duration, title")
	}

	switch strings.ToLower(f.SortType) {
	case "":
		q.Descending = f.SortBy != ""
	case "asc":
	case "desc":
		q.Descending = true
	default:
		return q, apperror.Validation("invalid sortType", "sortType must be asc or desc")
	}
	return q, nil
}

// ListVideos lists published videos.
func (c *Composer) ListVideos(ctx context.Context, filter VideoFilter, page PageRequest) (Page[VideoCard], error) {
	query, err := filter.query(page)
	if err != nil {
		return Page[VideoCard]{}, err
	}
	videos, total, err := c.reader.ListVideos(ctx, query)
	if err != nil {
		return Page[VideoCard]{}, fmt.Errorf("list videos: %w", err)
	}
	cards, err := c.videoCards(ctx, videos)
	if err != nil {
		return Page[VideoCard]{}, err
	}
	return newPage(cards, page, total), nil
}

// VideoDetail composes the page of one video. Unpublished videos are only
// visible to their owner.
func (c *Composer) VideoDetail(ctx context.Context, viewerID, videoID string) (VideoDetail, error) {
	video, err := c.visibleVideo(ctx, viewerID, videoID)
	if err != nil {
		return VideoDetail{}, err
	}

	detail := VideoDetail{VideoFields: NewVideoFields(video)}
	ids := []string{video.ID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := c.reader.LikeCounts(gctx, models.TargetVideo, ids)
		if err != nil {
			return fmt.Errorf("count video likes: %w", err)
		}
		detail.LikesCount = counts[video.ID]
		return nil
	})
	g.Go(func() error {
		liked, err := c.likedBy(gctx, viewerID, models.TargetVideo, ids)
		if err != nil {
			return err
		}
		detail.IsLiked = liked[video.ID]
		return nil
	})
	g.Go(func() error {
		cards, err := c.channelCards(gctx, viewerID, []string{video.OwnerID})
		if err != nil {
			return err
		}
		detail.Owner = cards[video.OwnerID]
		return nil
	})
	g.Go(func() error {
		comments, err := c.commentPage(gctx, viewerID, video.ID, FirstPage)
		if err != nil {
			return err
		}
		detail.Comments = comments
		return nil
	})
	if err := g.Wait(); err != nil {
		return VideoDetail{}, err
	}
	return detail, nil
}

// VideoComments lists the comments under a video, oldest first.
func (c *Composer) VideoComments(ctx context.Context, viewerID, videoID string, page PageRequest) (Page[CommentView], error) {
	if _, err := c.visibleVideo(ctx, viewerID, videoID); err != nil {
		return Page[CommentView]{}, err
	}
	return c.commentPage(ctx, viewerID, videoID, page)
}

// ChannelProfile composes the public profile of the channel with handle.
func (c *Composer) ChannelProfile(ctx context.Context, viewerID, handle string) (ChannelProfile, error) {
	user, err := c.channelByHandle(ctx, handle)
	if err != nil {
		return ChannelProfile{}, err
	}

	profile := ChannelProfile{
		ID:          user.ID,
		Handle:      user.Handle,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Avatar:      user.Avatar.URL,
		CoverImage:  user.Cover.URL,
		CreatedAt:   user.CreatedAt,
	}
	ids := []string{user.ID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := c.reader.SubscriberCounts(gctx, ids)
		if err != nil {
			return fmt.Errorf("count subscribers: %w", err)
		}
		profile.SubscribersCount = counts[user.ID]
		return nil
	})
	g.Go(func() error {
		n, err := c.reader.SubscriptionCount(gctx, user.ID)
		if err != nil {
			return fmt.Errorf("count subscriptions: %w", err)
		}
		profile.SubscribedToCount = n
		return nil
	})
	g.Go(func() error {
		subscribed, err := c.subscribedTo(gctx, viewerID, ids)
		if err != nil {
			return err
		}
		profile.IsSubscribed = subscribed[user.ID]
		return nil
	})
	if err := g.Wait(); err != nil {
		return ChannelProfile{}, err
	}
	return profile, nil
}

// ChannelTweets lists the tweets of a channel, newest first.
func (c *Composer) ChannelTweets(ctx context.Context, viewerID, handle string, page PageRequest) (Page[TweetView], error) {
	owner, err := c.channelByHandle(ctx, handle)
	if err != nil {
		return Page[TweetView]{}, err
	}
	tweets, total, err := c.reader.ListTweets(ctx, owner.ID, page.Window())
	if err != nil {
		return Page[TweetView]{}, fmt.Errorf("list tweets: %w", err)
	}

	ids := make([]string, len(tweets))
	for i, t := range tweets {
		ids[i] = t.ID
	}
	counts, liked, err := c.likeData(ctx, viewerID, models.TargetTweet, ids)
	if err != nil {
		return Page[TweetView]{}, err
	}

	items := make([]TweetView, len(tweets))
	for i, t := range tweets {
		items[i] = NewTweetView(t, owner)
		items[i].LikesCount = counts[t.ID]
		items[i].IsLiked = liked[t.ID]
	}
	return newPage(items, page, total), nil
}

// LikedVideos lists the videos the viewer liked, most recent first.
func (c *Composer) LikedVideos(ctx context.Context, viewerID string, page PageRequest) (Page[VideoCard], error) {
	if viewerID == "" {
		return Page[VideoCard]{}, apperror.Unauthenticated("authentication required")
	}
	videos, total, err := c.reader.LikedVideos(ctx, viewerID, page.Window())
	if err != nil {
		return Page[VideoCard]{}, fmt.Errorf("list liked videos: %w", err)
	}
	cards, err := c.videoCards(ctx, videos)
	if err != nil {
		return Page[VideoCard]{}, err
	}
	return newPage(cards, page, total), nil
}

// WatchHistory lists the videos the viewer watched, most recent first.
func (c *Composer) WatchHistory(ctx context.Context, viewerID string, page PageRequest) (Page[VideoCard], error) {
	if viewerID == "" {
		return Page[VideoCard]{}, apperror.Unauthenticated("authentication required")
	}
	videos, total, err := c.reader.WatchHistory(ctx, viewerID, page.Window())
	if err != nil {
		return Page[VideoCard]{}, fmt.Errorf("list watch history: %w", err)
	}
	cards, err := c.videoCards(ctx, videos)
	if err != nil {
		return Page[VideoCard]{}, err
	}
	return newPage(cards, page, total), nil
}

// ChannelSubscribers lists the subscribers of a channel.
func (c *Composer) ChannelSubscribers(ctx context.Context, viewerID, channelID string, page PageRequest) (Page[ChannelCard], error) {
	if err := apperror.RequireID("channelId", channelID); err != nil {
		return Page[ChannelCard]{}, err
	}
	if _, err := c.reader.User(ctx, channelID); err != nil {
		return Page[ChannelCard]{}, notFound(err, "channel not found")
	}
	users, total, err := c.reader.Subscribers(ctx, channelID, page.Window())
	if err != nil {
		return Page[ChannelCard]{}, fmt.Errorf("list subscribers: %w", err)
	}
	cards, err := c.userCards(ctx, viewerID, users)
	if err != nil {
		return Page[ChannelCard]{}, err
	}
	return newPage(cards, page, total), nil
}

// SubscribedChannels lists the channels the user with handle subscribes to.
func (c *Composer) SubscribedChannels(ctx context.Context, viewerID, handle string, page PageRequest) (Page[ChannelCard], error) {
	subscriber, err := c.channelByHandle(ctx, handle)
	if err != nil {
		return Page[ChannelCard]{}, err
	}
	users, total, err := c.reader.Subscriptions(ctx, subscriber.ID, page.Window())
	if err != nil {
		return Page[ChannelCard]{}, fmt.Errorf("list subscriptions: %w", err)
	}
	cards, err := c.userCards(ctx, viewerID, users)
	if err != nil {
		return Page[ChannelCard]{}, err
	}
	return newPage(cards, page, total), nil
}

const playlistThumbnails = 4

// UserPlaylists lists the playlists of the channel with handle. Thumbnails
// come from the first videos viewerID can see.
func (c *Composer) UserPlaylists(ctx context.Context, viewerID, handle string, page PageRequest) (Page[PlaylistSummary], error) {
	owner, err := c.channelByHandle(ctx, handle)
	if err != nil {
		return Page[PlaylistSummary]{}, err
	}
	playlists, total, err := c.reader.ListPlaylists(ctx, owner.ID, page.Window())
	if err != nil {
		return Page[PlaylistSummary]{}, fmt.Errorf("list playlists: %w", err)
	}

	var ids []string
	for _, p := range playlists {
		ids = append(ids, p.VideoIDs...)
	}
	videos, err := c.reader.Videos(ctx, ids)
	if err != nil {
		return Page[PlaylistSummary]{}, fmt.Errorf("load playlist thumbnails: %w", err)
	}

	items := make([]PlaylistSummary, len(playlists))
	for i, p := range playlists {
		thumbs := []string{}
		for _, id := range p.VideoIDs {
			if len(thumbs) == playlistThumbnails {
				break
			}
			if v, ok := videos[id]; ok && (v.Published || v.OwnerID == viewerID) {
				thumbs = append(thumbs, v.Thumbnail.URL)
			}
		}
		items[i] = PlaylistSummary{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			VideosCount: len(p.VideoIDs),
			Thumbnails:  thumbs,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		}
	}
	return newPage(items, page, total), nil
}

// PlaylistDetail composes a playlist with its videos in playlist order.
// Videos that no longer exist, and unpublished videos of other channels, are
// left out.
func (c *Composer) PlaylistDetail(ctx context.Context, viewerID, playlistID string) (PlaylistDetail, error) {
	if err := apperror.RequireID("playlistId", playlistID); err != nil {
		return PlaylistDetail{}, err
	}
	playlist, err := c.reader.Playlist(ctx, playlistID)
	if err != nil {
		return PlaylistDetail{}, notFound(err, "playlist not found")
	}

	detail := PlaylistDetail{
		ID:          playlist.ID,
		Name:        playlist.Name,
		Description: playlist.Description,
		CreatedAt:   playlist.CreatedAt,
		UpdatedAt:   playlist.UpdatedAt,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cards, err := c.channelCards(gctx, viewerID, []string{playlist.OwnerID})
		if err != nil {
			return err
		}
		detail.Owner = cards[playlist.OwnerID]
		return nil
	})
	g.Go(func() error {
		found, err := c.reader.Videos(gctx, playlist.VideoIDs)
		if err != nil {
			return fmt.Errorf("load playlist videos: %w", err)
		}
		ordered := make([]models.Video, 0, len(found))
		for _, id := range playlist.VideoIDs {
			v, ok := found[id]
			if !ok || (!v.Published && v.OwnerID != viewerID) {
				continue
			}
			ordered = append(ordered, v)
		}
		cards, err := c.videoCards(gctx, ordered)
		if err != nil {
			return err
		}
		detail.Videos = cards
		return nil
	})
	if err := g.Wait(); err != nil {
		return PlaylistDetail{}, err
	}
	detail.VideosCount = len(detail.Videos)
	return detail, nil
}

// DashboardStats returns the totals of the viewer's own channel.
func (c *Composer) DashboardStats(ctx context.Context, viewerID string) (DashboardStats, error) {
	if viewerID == "" {
		return DashboardStats{}, apperror.Unauthenticated("authentication required")
	}
	stats, err := c.reader.ChannelStats(ctx, viewerID)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("channel stats: %w", err)
	}
	return DashboardStats{
		TotalViews:       stats.TotalViews,
		TotalLikes:       stats.TotalLikes,
		TotalSubscribers: stats.TotalSubscribers,
		TotalVideos:      stats.TotalVideos,
	}, nil
}

// DashboardVideos lists every video of the viewer's channel, newest first,
// including unpublished ones.
func (c *Composer) DashboardVideos(ctx context.Context, viewerID string, page PageRequest) (Page[DashboardVideo], error) {
	if viewerID == "" {
		return Page[DashboardVideo]{}, apperror.Unauthenticated("authentication required")
	}
	videos, total, err := c.reader.ListVideos(ctx, models.VideoQuery{
		OwnerID:            viewerID,
		SortBy:             models.SortCreatedAt,
		Descending:         true,
		IncludeUnpublished: true,
		Window:             page.Window(),
	})
	if err != nil {
		return Page[DashboardVideo]{}, fmt.Errorf("list dashboard videos: %w", err)
	}

	ids := make([]string, len(videos))
	for i, v := range videos {
		ids[i] = v.ID
	}
	counts, err := c.reader.LikeCounts(ctx, models.TargetVideo, ids)
	if err != nil {
		return Page[DashboardVideo]{}, fmt.Errorf("count video likes: %w", err)
	}

	items := make([]DashboardVideo, len(videos))
	for i, v := range videos {
		items[i] = DashboardVideo{VideoFields: NewVideoFields(v), LikesCount: counts[v.ID]}
	}
	return newPage(items, page, total), nil
}

func (c *Composer) visibleVideo(ctx context.Context, viewerID, videoID string) (models.Video, error) {
	if err := apperror.RequireID("videoId", videoID); err != nil {
		return models.Video{}, err
	}
	video, err := c.reader.Video(ctx, videoID)
	if err != nil {
		return models.Video{}, notFound(err, "video not found")
	}
	if !video.Published && video.OwnerID != viewerID {
		return models.Video{}, apperror.NotFound("video not found")
	}
	return video, nil
}

func (c *Composer) channelByHandle(ctx context.Context, handle string) (models.User, error) {
	handle = strings.ToLower(strings.TrimSpace(handle))
	if handle == "" {
		return models.User{}, apperror.Validation("handle is required")
	}
	user, err := c.reader.UserByHandle(ctx, handle)
	if err != nil {
		return models.User{}, notFound(err, "channel not found")
	}
	return user, nil
}

func (c *Composer) commentPage(ctx context.Context, viewerID, videoID string, page PageRequest) (Page[CommentView], error) {
	comments, total, err := c.reader.ListComments(ctx, videoID, page.Window())
	if err != nil {
		return Page[CommentView]{}, fmt.Errorf("list comments: %w", err)
	}

	ids := make([]string, len(comments))
	ownerIDs := make([]string, len(comments))
	for i, cm := range comments {
		ids[i] = cm.ID
		ownerIDs[i] = cm.OwnerID
	}

	var (
		owners map[string]models.User
		counts map[string]int64
		liked  map[string]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		owners, err = c.reader.Users(gctx, dedupe(ownerIDs))
		if err != nil {
			return fmt.Errorf("load comment owners: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		counts, liked, err = c.likeData(gctx, viewerID, models.TargetComment, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return Page[CommentView]{}, err
	}

	items := make([]CommentView, len(comments))
	for i, cm := range comments {
		items[i] = NewCommentView(cm, owners[cm.OwnerID])
		items[i].LikesCount = counts[cm.ID]
		items[i].IsLiked = liked[cm.ID]
	}
	return newPage(items, page, total), nil
}

func (c *Composer) videoCards(ctx context.Context, videos []models.Video) ([]VideoCard, error) {
	ownerIDs := make([]string, len(videos))
	for i, v := range videos {
		ownerIDs[i] = v.OwnerID
	}
	owners, err := c.reader.Users(ctx, dedupe(ownerIDs))
	if err != nil {
		return nil, fmt.Errorf("load video owners: %w", err)
	}
	cards := make([]VideoCard, len(videos))
	for i, v := range videos {
		cards[i] = VideoCard{VideoFields: NewVideoFields(v), Owner: NewOwnerSummary(owners[v.OwnerID])}
	}
	return cards, nil
}

func (c *Composer) channelCards(ctx context.Context, viewerID string, userIDs []string) (map[string]ChannelCard, error) {
	users, err := c.reader.Users(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load channels: %w", err)
	}
	list := make([]models.User, 0, len(users))
	for _, id := range userIDs {
		if u, ok := users[id]; ok {
			list = append(list, u)
		}
	}
	cards, err := c.userCards(ctx, viewerID, list)
	if err != nil {
		return nil, err
	}
	out := make(map[string]ChannelCard, len(cards))
	for _, card := range cards {
		out[card.ID] = card
	}
	return out, nil
}

func (c *Composer) userCards(ctx context.Context, viewerID string, users []models.User) ([]ChannelCard, error) {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}

	var (
		counts     map[string]int64
		subscribed map[string]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = c.reader.SubscriberCounts(gctx, ids)
		if err != nil {
			return fmt.Errorf("count subscribers: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		subscribed, err = c.subscribedTo(gctx, viewerID, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cards := make([]ChannelCard, len(users))
	for i, u := range users {
		cards[i] = ChannelCard{
			OwnerSummary:     NewOwnerSummary(u),
			SubscribersCount: counts[u.ID],
			IsSubscribed:     subscribed[u.ID],
		}
	}
	return cards, nil
}

func (c *Composer) likeData(ctx context.Context, viewerID string, kind models.TargetKind, ids []string) (map[string]int64, map[string]bool, error) {
	var (
		counts map[string]int64
		liked  map[string]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = c.reader.LikeCounts(gctx, kind, ids)
		if err != nil {
			return fmt.Errorf("count %s likes: %w", kind, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		liked, err = c.likedBy(gctx, viewerID, kind, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return counts, liked, nil
}

func (c *Composer) likedBy(ctx context.Context, viewerID string, kind models.TargetKind, ids []string) (map[string]bool, error) {
	if viewerID == "" || len(ids) == 0 {
		return map[string]bool{}, nil
	}
	liked, err := c.reader.LikedBy(ctx, viewerID, kind, ids)
	if err != nil {
		return nil, fmt.Errorf("load viewer %s likes: %w", kind, err)
	}
	return liked, nil
}

func (c *Composer) subscribedTo(ctx context.Context, viewerID string, ids []string) (map[string]bool, error) {
	if viewerID == "" || len(ids) == 0 {
		return map[string]bool{}, nil
	}
	subscribed, err := c.reader.SubscribedTo(ctx, viewerID, ids)
	if err != nil {
		return nil, fmt.Errorf("load viewer subscriptions: %w", err)
	}
	return subscribed, nil
}

func notFound(err error, message string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperror.NotFound(message)
	}
	return err
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
