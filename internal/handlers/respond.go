package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/logging"
)

// successEnvelope wraps every successful response body.
type successEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// failureEnvelope wraps every error response body.
type failureEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors"`
	Success    bool     `json:"success"`
}

func respondSuccess(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	respondJSON(ctx, w, status, successEnvelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

// respondError maps err onto its status code. Errors without a kind are
// reported as a bare 500 and only their cause is logged.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		logging.FromContext(ctx).Error("unhandled error", "error", err)
		respondFailure(ctx, w, http.StatusInternalServerError, "internal server error")
		return
	}

	status := apperror.StatusCode(appErr.Kind)
	message := appErr.Message
	if status >= http.StatusInternalServerError {
		logging.FromContext(ctx).Error("request error", "kind", appErr.Kind.String(), "error", err)
		if appErr.Kind == apperror.KindInternal {
			message = "internal server error"
		}
	}
	respondFailure(ctx, w, status, message, appErr.Details...)
}

func respondFailure(ctx context.Context, w http.ResponseWriter, status int, message string, details ...string) {
	if details == nil {
		details = []string{}
	}
	respondJSON(ctx, w, status, failureEnvelope{
		StatusCode: status,
		Message:    message,
		Errors:     details,
	})
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}
