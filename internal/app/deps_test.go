package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/models"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Close() {}

type fakeObjects struct{}

func (fakeObjects) Store(context.Context, string) (models.MediaRef, error) {
	return models.MediaRef{}, errors.New("not implemented")
}

func (fakeObjects) Delete(context.Context, string) error { return nil }

func TestBuildDependencies(t *testing.T) {
	cfg := config.Config{
		Env:             "dev",
		JWTSecret:       "secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		FFProbePath:     "ffprobe",
		FFProbeTimeout:  time.Second,
		JanitorWorkers:  1,
		JanitorQueue:    4,
		AuthRateLimit:   5,
		AuthRateWindow:  time.Minute,
		AuthRateBurst:   2,
	}

	deps, cleanup := buildDependencies(fakePool{}, fakeObjects{}, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if cleanup == nil {
		t.Fatal("expected cleanup function")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := cleanup(ctx); err != nil {
			t.Errorf("cleanup: %v", err)
		}
	}()

	if deps.Users == nil || deps.Videos == nil || deps.Comments == nil || deps.Tweets == nil || deps.Playlists == nil {
		t.Fatalf("expected every service to be configured: %+v", deps)
	}
	if deps.Edges == nil || deps.Views == nil {
		t.Fatal("expected edge manager and view composer to be configured")
	}
	if deps.Verifier == nil || deps.AuthLimiter == nil {
		t.Fatal("expected auth collaborators to be configured")
	}
	if deps.DB != nil {
		t.Fatal("fake pool cannot ping and should not be used for health checks")
	}
	if deps.SecureCookies {
		t.Fatal("dev mode should not require secure cookies")
	}
}

func TestRunRejectsUnknownCommands(t *testing.T) {
	if err := Run(context.Background(), nil); err == nil {
		t.Fatal("expected error without a command")
	}
	if err := Run(context.Background(), []string{"launch"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
	if err := Run(context.Background(), []string{"seed"}); err == nil {
		t.Fatal("expected error for seed without a name")
	}
}
