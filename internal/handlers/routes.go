package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserService
	Videos        VideoService
	Comments      CommentService
	Tweets        TweetService
	Playlists     PlaylistService
	Edges         EdgeToggler
	Views         ViewComposer
	Verifier      middleware.TokenVerifier
	AuthLimiter   middleware.RateLimiter
	DB            Pinger
	MaxUpload     int64
	SecureCookies bool
}

// RegisterRoutes mounts the API under /api/v1 on r.
func RegisterRoutes(r chi.Router, deps Dependencies) {
	health := HealthHandler{DB: deps.DB}
	users := UserHandler{Users: deps.Users, Views: deps.Views, MaxUploadBytes: deps.MaxUpload, SecureCookies: deps.SecureCookies}
	videos := VideoHandler{Videos: deps.Videos, Views: deps.Views, MaxUploadBytes: deps.MaxUpload}
	comments := CommentHandler{Comments: deps.Comments, Views: deps.Views}
	tweets := TweetHandler{Tweets: deps.Tweets, Views: deps.Views}
	likes := LikeHandler{Edges: deps.Edges, Views: deps.Views}
	subscriptions := SubscriptionHandler{Edges: deps.Edges, Views: deps.Views}
	playlists := PlaylistHandler{Playlists: deps.Playlists, Views: deps.Views}
	dashboard := DashboardHandler{Views: deps.Views}

	required := middleware.Authenticate(deps.Verifier)
	optional := middleware.OptionalAuth(deps.Verifier)
	limited := middleware.RateLimit(deps.AuthLimiter, "auth")

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthcheck", health.Handle)

		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(limited)
				r.Post("/register", users.Register)
				r.Post("/login", users.Login)
				r.Post("/refresh-token", users.Refresh)
			})
			r.With(optional).Get("/c/{handle}", users.ChannelProfile)
			r.Group(func(r chi.Router) {
				r.Use(required)
				r.Post("/logout", users.Logout)
				r.Post("/change-password", users.ChangePassword)
				r.Get("/current-user", users.CurrentUser)
				r.Patch("/update-account", users.UpdateAccount)
				r.Patch("/avatar", users.UpdateAvatar)
				r.Patch("/cover-image", users.UpdateCover)
				r.Get("/history", users.WatchHistory)
			})
		})

		r.Route("/videos", func(r chi.Router) {
			r.With(optional).Get("/", videos.List)
			r.With(optional).Get("/{videoID}", videos.Get)
			r.Group(func(r chi.Router) {
				r.Use(required)
				r.Post("/", videos.Publish)
				r.Patch("/{videoID}", videos.Update)
				r.Delete("/{videoID}", videos.Delete)
				r.Patch("/toggle/publish/{videoID}", videos.TogglePublish)
			})
		})

		r.Route("/comments", func(r chi.Router) {
			r.With(optional).Get("/{videoID}", comments.List)
			r.Group(func(r chi.Router) {
				r.Use(required)
				r.Post("/{videoID}", comments.Add)
				r.Patch("/c/{commentID}", comments.Update)
				r.Delete("/c/{commentID}", comments.Delete)
			})
		})

		r.Route("/tweets", func(r chi.Router) {
			r.With(optional).Get("/user/{handle}", tweets.UserTweets)
			r.Group(func(r chi.Router) {
				r.Use(required)
				r.Post("/", tweets.Create)
				r.Patch("/{tweetID}", tweets.Update)
				r.Delete("/{tweetID}", tweets.Delete)
			})
		})

		r.Route("/likes", func(r chi.Router) {
			r.Use(required)
			r.Post("/toggle/v/{videoID}", likes.ToggleVideo)
			r.Post("/toggle/c/{commentID}", likes.ToggleComment)
			r.Post("/toggle/t/{tweetID}", likes.ToggleTweet)
			r.Get("/videos", likes.LikedVideos)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.With(required).Post("/c/{channelID}", subscriptions.Toggle)
			r.With(optional).Get("/c/{channelID}", subscriptions.Subscribers)
			r.With(optional).Get("/u/{handle}", subscriptions.Subscribed)
		})

		r.Route("/playlist", func(r chi.Router) {
			r.With(optional).Get("/user/{handle}", playlists.UserPlaylists)
			r.With(optional).Get("/{playlistID}", playlists.Get)
			r.Group(func(r chi.Router) {
				r.Use(required)
				r.Post("/", playlists.Create)
				r.Patch("/{playlistID}", playlists.Update)
				r.Delete("/{playlistID}", playlists.Delete)
				r.Patch("/add/{videoID}/{playlistID}", playlists.AddVideo)
				r.Patch("/remove/{videoID}/{playlistID}", playlists.RemoveVideo)
			})
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Use(required)
			r.Get("/stats", dashboard.Stats)
			r.Get("/videos", dashboard.Videos)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondFailure(r.Context(), w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondFailure(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed")
	})
}
