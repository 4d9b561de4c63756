package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/auth"
)

// TweetHandler implements the tweet endpoints.
type TweetHandler struct {
	Tweets TweetService
	Views  ViewComposer
}

type tweetRequest struct {
	Content string `json:"content" validate:"required"`
}

// Create handles POST /tweets.
func (h TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req tweetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	tweet, err := h.Tweets.Create(ctx, auth.UserIDFromContext(ctx), req.Content)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusCreated, newTweetRecord(tweet), "tweet created successfully")
}

// UserTweets handles GET /tweets/user/{handle}.
func (h TweetHandler) UserTweets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := pageFromQuery(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	tweets, err := h.Views.ChannelTweets(ctx, auth.UserIDFromContext(ctx), pathParam(r, "handle"), page)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, tweets, "tweets fetched successfully")
}

// Update handles PATCH /tweets/{tweetID}.
func (h TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req tweetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	tweet, err := h.Tweets.Update(ctx, auth.UserIDFromContext(ctx), pathParam(r, "tweetID"), req.Content)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, newTweetRecord(tweet), "tweet updated successfully")
}

// Delete handles DELETE /tweets/{tweetID}.
func (h TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Tweets.Delete(ctx, auth.UserIDFromContext(ctx), pathParam(r, "tweetID")); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, struct{}{}, "tweet deleted successfully")
}
