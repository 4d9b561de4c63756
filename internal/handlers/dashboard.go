package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/auth"
)

// DashboardHandler serves the channel owner's dashboard.
type DashboardHandler struct {
	Views ViewComposer
}

// Stats handles GET /dashboard/stats.
func (h DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.Views.DashboardStats(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, stats, "channel stats fetched successfully")
}

// Videos handles GET /dashboard/videos.
func (h DashboardHandler) Videos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := pageFromQuery(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	result, err := h.Views.DashboardVideos(ctx, auth.UserIDFromContext(ctx), page)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, result, "channel videos fetched successfully")
}
