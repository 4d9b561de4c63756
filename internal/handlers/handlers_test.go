package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/edges"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/users"
	"github.com/vidtube/backend/internal/views"
)

const testSecret = "handler-test-secret"

type likeStore struct {
	mu      sync.Mutex
	likes   map[string]map[string]bool
	missing string
}

func newLikeStore() *likeStore {
	return &likeStore{likes: make(map[string]map[string]bool), missing: uuid.NewString()}
}

func (s *likeStore) ToggleLike(_ context.Context, actorID string, kind models.TargetKind, targetID string) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if targetID == s.missing {
		return false, 0, repositories.ErrNotFound
	}
	key := string(kind) + ":" + targetID
	if s.likes[key] == nil {
		s.likes[key] = make(map[string]bool)
	}
	active := !s.likes[key][actorID]
	if active {
		s.likes[key][actorID] = true
	} else {
		delete(s.likes[key], actorID)
	}
	return active, int64(len(s.likes[key])), nil
}

func (s *likeStore) ToggleSubscription(_ context.Context, subscriberID, channelID string) (bool, int64, error) {
	return s.ToggleLike(context.Background(), subscriberID, "channel", channelID)
}

// stubViews embeds the interface so tests only implement what they call.
type stubViews struct {
	ViewComposer
	profileViewer string
	filter        views.VideoFilter
	page          views.PageRequest
}

func (s *stubViews) ChannelProfile(_ context.Context, viewerID, handle string) (views.ChannelProfile, error) {
	s.profileViewer = viewerID
	if handle != "alice" {
		return views.ChannelProfile{}, apperror.NotFound("channel does not exist")
	}
	return views.ChannelProfile{ID: "u-alice", Handle: "alice", SubscribersCount: 3}, nil
}

func (s *stubViews) ListVideos(_ context.Context, filter views.VideoFilter, page views.PageRequest) (views.Page[views.VideoCard], error) {
	s.filter, s.page = filter, page
	return views.Page[views.VideoCard]{Items: []views.VideoCard{}, Page: page.Page, Limit: page.Limit}, nil
}

type stubUsers struct {
	UserService
	registered users.RegisterInput
	avatarBody string
	loginErr   error
}

func (s *stubUsers) Register(_ context.Context, in users.RegisterInput) (models.User, error) {
	s.registered = in
	body, err := os.ReadFile(in.AvatarPath)
	if err != nil {
		return models.User{}, err
	}
	s.avatarBody = string(body)
	return models.User{ID: "u-1", Handle: in.Handle, Email: in.Email}, nil
}

func (s *stubUsers) Login(_ context.Context, handle, _, _ string) (models.User, models.SessionTokens, error) {
	if s.loginErr != nil {
		return models.User{}, models.SessionTokens{}, s.loginErr
	}
	return models.User{ID: "u-1", Handle: handle}, models.SessionTokens{
		AccessToken:      "access",
		AccessExpiresAt:  time.Now().Add(time.Minute),
		RefreshToken:     "refresh",
		RefreshExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type testEnvelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Errors     []string        `json:"errors"`
	Success    bool            `json:"success"`
}

func newTestRouter(deps Dependencies) http.Handler {
	if deps.Verifier == nil {
		deps.Verifier = auth.NewTokenIssuer(testSecret, time.Minute)
	}
	r := chi.NewRouter()
	RegisterRoutes(r, deps)
	return r
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := auth.NewTokenIssuer(testSecret, time.Minute).Issue(userID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + token
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env testEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return rec, env
}

func TestToggleLikeEndpointScenario(t *testing.T) {
	store := newLikeStore()
	router := newTestRouter(Dependencies{Edges: edges.NewManager(store)})
	token := bearer(t, uuid.NewString())
	videoID := uuid.NewString()

	expect := []views.LikeState{{IsLiked: true, LikesCount: 1}, {IsLiked: false, LikesCount: 0}}
	for i, want := range expect {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/likes/toggle/v/"+videoID, nil)
		req.Header.Set("Authorization", token)
		rec, env := do(t, router, req)
		if rec.Code != http.StatusOK || !env.Success {
			t.Fatalf("toggle %d: unexpected response %d %+v", i, rec.Code, env)
		}
		var got views.LikeState
		if err := json.Unmarshal(env.Data, &got); err != nil {
			t.Fatalf("decode like state: %v", err)
		}
		if got != want {
			t.Fatalf("toggle %d: expected %+v got %+v", i, want, got)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/likes/toggle/t/"+store.missing, nil)
	req.Header.Set("Authorization", token)
	rec, env := do(t, router, req)
	if rec.Code != http.StatusNotFound || env.Message != "tweet not found" {
		t.Fatalf("expected 404 tweet not found, got %d %q", rec.Code, env.Message)
	}
}

func TestAuthenticatedRoutesRejectAnonymous(t *testing.T) {
	router := newTestRouter(Dependencies{Edges: edges.NewManager(newLikeStore()), Views: &stubViews{}})

	for _, path := range []string{"/api/v1/likes/videos", "/api/v1/dashboard/stats", "/api/v1/users/current-user"} {
		rec, env := do(t, router, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized || env.Success {
			t.Fatalf("%s: expected 401 got %d", path, rec.Code)
		}
	}
}

func TestSelfSubscriptionIsRejected(t *testing.T) {
	router := newTestRouter(Dependencies{Edges: edges.NewManager(newLikeStore())})

	userID := uuid.NewString()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/c/"+userID, nil)
	req.Header.Set("Authorization", bearer(t, userID))
	rec, env := do(t, router, req)
	if rec.Code != http.StatusBadRequest || env.Message != "you cannot subscribe to your own channel" {
		t.Fatalf("expected 400 self-subscription, got %d %q", rec.Code, env.Message)
	}
}

func TestChannelProfileUsesOptionalViewer(t *testing.T) {
	stub := &stubViews{}
	router := newTestRouter(Dependencies{Views: stub})

	rec, env := do(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/users/c/alice", nil))
	if rec.Code != http.StatusOK || stub.profileViewer != "" {
		t.Fatalf("anonymous request: got %d viewer %q", rec.Code, stub.profileViewer)
	}
	var profile views.ChannelProfile
	if err := json.Unmarshal(env.Data, &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.SubscribersCount != 3 || profile.IsSubscribed {
		t.Fatalf("unexpected profile %+v", profile)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/c/alice", nil)
	req.Header.Set("Authorization", bearer(t, "viewer-9"))
	do(t, router, req)
	if stub.profileViewer != "viewer-9" {
		t.Fatalf("expected viewer-9 got %q", stub.profileViewer)
	}

	rec, env = do(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/users/c/nobody", nil))
	if rec.Code != http.StatusNotFound || env.Message != "channel does not exist" {
		t.Fatalf("expected 404 got %d %q", rec.Code, env.Message)
	}
}

func TestListVideosQuery(t *testing.T) {
	stub := &stubViews{}
	router := newTestRouter(Dependencies{Views: stub})

	rec, _ := do(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/videos?page=2&limit=5&query=cats&sortBy=views&sortType=asc&userId=u-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	want := views.VideoFilter{OwnerID: "u-1", Title: "cats", SortBy: "views", SortType: "asc"}
	if stub.filter != want || stub.page != (views.PageRequest{Page: 2, Limit: 5}) {
		t.Fatalf("unexpected filter %+v page %+v", stub.filter, stub.page)
	}

	rec, env := do(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/videos?page=zero", nil))
	if rec.Code != http.StatusBadRequest || len(env.Errors) != 1 {
		t.Fatalf("expected 400 with details, got %d %+v", rec.Code, env)
	}
}

func TestLoginValidationAndCookies(t *testing.T) {
	stub := &stubUsers{}
	router := newTestRouter(Dependencies{Users: stub})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(`{"handle":"alice"}`))
	rec, env := do(t, router, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if len(env.Errors) != 1 || env.Errors[0] != "password is required" {
		t.Fatalf("unexpected validation details %v", env.Errors)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(`{"handle":"alice","password":"password123"}`))
	rec, env = do(t, router, req)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("expected 200 got %d %+v", rec.Code, env)
	}
	cookies := map[string]string{}
	for _, c := range rec.Result().Cookies() {
		if !c.HttpOnly {
			t.Fatalf("cookie %s should be http only", c.Name)
		}
		cookies[c.Name] = c.Value
	}
	if cookies["accessToken"] != "access" || cookies["refreshToken"] != "refresh" {
		t.Fatalf("unexpected cookies %v", cookies)
	}

	stub.loginErr = apperror.Unauthenticated("invalid user credentials")
	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(`{"email":"a@example.com","password":"nope-nope"}`))
	rec, env = do(t, router, req)
	if rec.Code != http.StatusUnauthorized || env.Message != "invalid user credentials" {
		t.Fatalf("expected 401 got %d %q", rec.Code, env.Message)
	}
}

func TestRegisterSpoolsUploads(t *testing.T) {
	stub := &stubUsers{}
	router := newTestRouter(Dependencies{Users: stub, MaxUpload: 1 << 20})

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	for field, value := range map[string]string{"handle": "alice", "displayName": "Alice", "email": "a@example.com", "password": "password123"} {
		if err := form.WriteField(field, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	part, err := form.CreateFormFile("avatar", "me.PNG")
	if err != nil {
		t.Fatalf("create file part: %v", err)
	}
	if _, err := io.WriteString(part, "avatar-bytes"); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec, env := do(t, router, req)
	if rec.Code != http.StatusCreated || !env.Success {
		t.Fatalf("expected 201 got %d %+v", rec.Code, env)
	}
	if stub.avatarBody != "avatar-bytes" || stub.registered.CoverPath != "" {
		t.Fatalf("unexpected register input %+v", stub.registered)
	}
	if !strings.HasSuffix(stub.registered.AvatarPath, ".png") {
		t.Fatalf("expected spooled file to keep its extension, got %s", stub.registered.AvatarPath)
	}
	if _, err := os.Stat(stub.registered.AvatarPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected spooled file to be removed, stat err %v", err)
	}
}

func TestRespondErrorEnvelope(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
		details int
	}{
		{name: "validation", err: apperror.Validation("invalid input", "a", "b"), status: http.StatusBadRequest, message: "invalid input", details: 2},
		{name: "authorization", err: apperror.Authorization("you are not allowed to modify this resource"), status: http.StatusForbidden, message: "you are not allowed to modify this resource"},
		{name: "conflict", err: apperror.Conflict("video is already in the playlist"), status: http.StatusConflict, message: "video is already in the playlist"},
		{name: "external", err: apperror.External("media upload failed", errors.New("s3 down")), status: http.StatusInternalServerError, message: "media upload failed"},
		{name: "internal hides cause", err: apperror.Internal("query users", errors.New("pq: secret")), status: http.StatusInternalServerError, message: "internal server error"},
		{name: "unknown", err: errors.New("boom"), status: http.StatusInternalServerError, message: "internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondError(context.Background(), rec, tc.err)

			var env testEnvelope
			if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if rec.Code != tc.status || env.StatusCode != tc.status {
				t.Fatalf("expected status %d got %d/%d", tc.status, rec.Code, env.StatusCode)
			}
			if env.Message != tc.message || env.Success {
				t.Fatalf("unexpected envelope %+v", env)
			}
			if env.Errors == nil || len(env.Errors) != tc.details {
				t.Fatalf("expected %d details got %v", tc.details, env.Errors)
			}
		})
	}
}

func TestHealthcheck(t *testing.T) {
	healthy := newTestRouter(Dependencies{DB: pingFunc(func(context.Context) error { return nil })})
	rec, env := do(t, healthy, httptest.NewRequest(http.MethodGet, "/api/v1/healthcheck", nil))
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("expected healthy response, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected json content type got %s", got)
	}

	down := newTestRouter(Dependencies{DB: pingFunc(func(context.Context) error { return errors.New("refused") })})
	rec, env = do(t, down, httptest.NewRequest(http.MethodGet, "/api/v1/healthcheck", nil))
	if rec.Code != http.StatusServiceUnavailable || len(env.Errors) != 0 {
		t.Fatalf("expected 503 without details, got %d %+v", rec.Code, env)
	}

	rec, _ = do(t, healthy, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}
