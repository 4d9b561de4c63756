package app

import (
	"context"
	"log/slog"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/comments"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/edges"
	"github.com/vidtube/backend/internal/handlers"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/playlists"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/tweets"
	"github.com/vidtube/backend/internal/users"
	"github.com/vidtube/backend/internal/videos"
	"github.com/vidtube/backend/internal/views"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup drains the media janitor.
func buildDependencies(pool db.Pool, objects media.ObjectStore, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(context.Context) error) {
	userRepo := repositories.NewPostgresUserRepository(pool)
	videoRepo := repositories.NewPostgresVideoRepository(pool)

	janitor := media.NewJanitor(objects, media.JanitorConfig{
		QueueSize: cfg.JanitorQueue,
		Workers:   cfg.JanitorWorkers,
	}, logger)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	sessions := auth.NewManager(tokens, cfg.RefreshTokenTTL, repositories.NewPostgresSessionStore(pool))

	deps := handlers.Dependencies{
		Users: users.NewService(users.Dependencies{
			Store:    userRepo,
			Hasher:   auth.BcryptHasher{},
			Sessions: sessions,
			Objects:  objects,
			Releaser: janitor,
		}),
		Videos: videos.NewService(videos.Dependencies{
			Store:    videoRepo,
			History:  userRepo,
			Prober:   videos.NewFFProbe(cfg.FFProbePath, cfg.FFProbeTimeout),
			Objects:  objects,
			Releaser: janitor,
		}),
		Comments:      comments.NewService(repositories.NewPostgresCommentRepository(pool), videoRepo),
		Tweets:        tweets.NewService(repositories.NewPostgresTweetRepository(pool)),
		Playlists:     playlists.NewService(repositories.NewPostgresPlaylistRepository(pool), videoRepo),
		Edges:         edges.NewManager(repositories.NewPostgresEdgeRepository(pool)),
		Views:         views.NewComposer(repositories.NewPostgresViewReader(pool)),
		Verifier:      tokens,
		AuthLimiter:   middleware.NewIPRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow, cfg.AuthRateBurst, 0),
		MaxUpload:     cfg.MaxUploadBytes,
		SecureCookies: cfg.Env != "dev",
	}
	if pinger, ok := pool.(handlers.Pinger); ok {
		deps.DB = pinger
	}

	return deps, janitor.Shutdown
}
