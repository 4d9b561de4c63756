package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/vidtube/backend/internal/logging"
)

const healthTimeout = 2 * time.Second

// HealthHandler responds with service health information.
type HealthHandler struct {
	DB Pinger
}

// Handle implements GET /healthcheck.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.DB != nil {
		pingCtx, cancel := context.WithTimeout(ctx, healthTimeout)
		defer cancel()
		if err := h.DB.Ping(pingCtx); err != nil {
			logging.FromContext(ctx).Error("health check ping failed", "error", err)
			respondFailure(ctx, w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	respondSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"}, "service is healthy")
}
