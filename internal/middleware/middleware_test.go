package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
)

type stubVerifier map[string]string

func (s stubVerifier) Verify(token string) (string, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", errors.New("bad token")
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(auth.UserIDFromContext(r.Context())))
}

func TestAuthenticate(t *testing.T) {
	handler := Authenticate(stubVerifier{"good": "user-1"})(http.HandlerFunc(echoUser))

	cases := []struct {
		name   string
		setup  func(*http.Request)
		status int
		body   string
	}{
		{name: "missing token", setup: func(*http.Request) {}, status: http.StatusUnauthorized},
		{name: "invalid token", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, status: http.StatusUnauthorized},
		{name: "wrong scheme", setup: func(r *http.Request) { r.Header.Set("Authorization", "Basic good") }, status: http.StatusUnauthorized},
		{name: "bearer header", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, status: http.StatusOK, body: "user-1"},
		{name: "cookie", setup: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "good"}) }, status: http.StatusOK, body: "user-1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected status %d got %d", tc.status, rec.Code)
			}
			if tc.status == http.StatusOK && rec.Body.String() != tc.body {
				t.Fatalf("expected body %q got %q", tc.body, rec.Body.String())
			}
			if tc.status == http.StatusUnauthorized {
				var resp failure
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("decode failure envelope: %v", err)
				}
				if resp.Success || resp.StatusCode != http.StatusUnauthorized {
					t.Fatalf("unexpected envelope %+v", resp)
				}
			}
		})
	}
}

func TestOptionalAuthFallsBackToAnonymous(t *testing.T) {
	handler := OptionalAuth(stubVerifier{"good": "user-1"})(http.HandlerFunc(echoUser))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer expired")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "" {
		t.Fatalf("expected anonymous pass-through, got %d %q", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Body.String() != "user-1" {
		t.Fatalf("expected user-1 got %q", rec.Body.String())
	}
}

func TestRateLimitRejectsBeyondBurst(t *testing.T) {
	limiter := NewIPRateLimiter(1, time.Hour, 2, time.Minute)
	handler := RateLimit(limiter, "auth")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected a different client to have its own bucket, got %d", rec.Code)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if got := rateLimitKey(req, "auth"); got != "auth:10.0.0.1" {
		t.Fatalf("unexpected key %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("unexpected client ip %q", got)
	}
}

func TestRequestLoggerRecoversPanics(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var requestID string
	handler := RequestLogger(logger)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		requestID = logging.RequestIDFromContext(r.Context())
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/explode", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
	if requestID == "" || rec.Header().Get(RequestIDHeader) != requestID {
		t.Fatalf("expected request id %q to be echoed, got %q", requestID, rec.Header().Get(RequestIDHeader))
	}
	if !bytes.Contains(buf.Bytes(), []byte("panic recovered")) {
		t.Fatalf("expected panic to be logged, got %s", buf.String())
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff got %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "SAMEORIGIN" {
		t.Fatalf("expected SAMEORIGIN got %q", got)
	}
}
