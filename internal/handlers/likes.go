package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/views"
)

// LikeHandler implements like toggles and the liked-videos feed.
type LikeHandler struct {
	Edges EdgeToggler
	Views ViewComposer
}

// ToggleVideo handles POST /likes/toggle/v/{videoID}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.TargetVideo, "videoID")
}

// ToggleComment handles POST /likes/toggle/c/{commentID}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.TargetComment, "commentID")
}

// ToggleTweet handles POST /likes/toggle/t/{tweetID}.
func (h LikeHandler) ToggleTweet(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.TargetTweet, "tweetID")
}

// LikedVideos handles GET /likes/videos.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := pageFromQuery(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	liked, err := h.Views.LikedVideos(ctx, auth.UserIDFromContext(ctx), page)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, liked, "liked videos fetched successfully")
}

func (h LikeHandler) toggle(w http.ResponseWriter, r *http.Request, kind models.TargetKind, param string) {
	ctx := r.Context()
	result, err := h.Edges.ToggleLike(ctx, auth.UserIDFromContext(ctx), kind, pathParam(r, param))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	message := string(kind) + " unliked"
	if result.Active {
		message = string(kind) + " liked"
	}
	respondSuccess(ctx, w, http.StatusOK, views.LikeState{IsLiked: result.Active, LikesCount: result.Count}, message)
}
