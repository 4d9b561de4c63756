package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
)

// AccessTokenCookie is the cookie browsers send the access token in.
const AccessTokenCookie = "accessToken"

// TokenVerifier resolves an access token to the user id it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Authenticate requires a valid access token and stores the caller's id on the
// request context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := accessToken(r)
			if token == "" {
				writeFailure(w, http.StatusUnauthorized, "unauthorized request")
				return
			}
			userID, err := verifier.Verify(token)
			if err != nil {
				logging.FromContext(r.Context()).Warn("access token rejected", "error", err)
				writeFailure(w, http.StatusUnauthorized, "invalid access token")
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r, userID)))
		})
	}
}

// OptionalAuth identifies the caller when a valid token is present and treats
// the request as anonymous otherwise.
func OptionalAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := accessToken(r); token != "" {
				if userID, err := verifier.Verify(token); err == nil {
					r = r.WithContext(withUser(r, userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withUser(r *http.Request, userID string) context.Context {
	ctx := auth.WithUserID(r.Context(), userID)
	return logging.With(ctx, "user_id", userID)
}

func accessToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
