package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/views"
)

// SubscriptionHandler implements subscription toggles and listings.
type SubscriptionHandler struct {
	Edges EdgeToggler
	Views ViewComposer
}

// Toggle handles POST /subscriptions/c/{channelID}.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.Edges.ToggleSubscription(ctx, auth.UserIDFromContext(ctx), pathParam(r, "channelID"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	message := "unsubscribed"
	if result.Active {
		message = "subscribed"
	}
	respondSuccess(ctx, w, http.StatusOK, views.SubscriptionState{
		IsSubscribed:     result.Active,
		SubscribersCount: result.Count,
	}, message)
}

// Subscribers handles GET /subscriptions/c/{channelID}.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := pageFromQuery(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	subscribers, err := h.Views.ChannelSubscribers(ctx, auth.UserIDFromContext(ctx), pathParam(r, "channelID"), page)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, subscribers, "subscribers fetched successfully")
}

// Subscribed handles GET /subscriptions/u/{handle}.
func (h SubscriptionHandler) Subscribed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := pageFromQuery(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	channels, err := h.Views.SubscribedChannels(ctx, auth.UserIDFromContext(ctx), pathParam(r, "handle"), page)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, channels, "subscribed channels fetched successfully")
}
