package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/handlers"
	"github.com/vidtube/backend/internal/httpserver"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/metrics"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/storage"
)

// Run bootstraps the vidtube backend application.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve, migrate, or seed")
	}

	switch args[0] {
	case "serve":
		return serve(ctx)
	case "migrate":
		return runMigrations(ctx, args[1:])
	case "seed":
		return runSeed(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}

	logger := logging.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func serve(ctx context.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL, db.PoolOptions{})
	if err != nil {
		return err
	}
	defer pool.Close()

	objects, err := storage.New(ctx, cfg.ObjectStore)
	if err != nil {
		return err
	}

	deps, drainMedia := buildDependencies(pool, objects, cfg, logger)
	srv := httpserver.New(cfg.AppPort, newRouter(deps, logger))

	logger.Info("starting http server", "addr", srv.Addr(), "env", cfg.Env, "objectStore", cfg.ObjectStore.Driver)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Start()
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	case sig := <-signalCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("shutdown http server: %w", err))
	}
	if err := drainMedia(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("drain media janitor: %w", err))
	}
	return runErr
}

func newRouter(deps handlers.Dependencies, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequestLogger(logger))
	r.Use(metrics.Middleware)

	r.Handle("/metrics", promhttp.Handler())
	handlers.RegisterRoutes(r, deps)
	return r
}

func runMigrations(ctx context.Context, args []string) error {
	command := "up"
	if len(args) > 0 {
		command = args[0]
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: 2})
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, command); err != nil {
		return err
	}
	logger.Info("migrations finished", "command", command)
	return nil
}

func runSeed(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected seed name (e.g. dev)")
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	seedDir := cfg.SeedDir
	if !filepath.IsAbs(seedDir) {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("determine working directory: %w", err)
		}
		seedDir = filepath.Join(wd, seedDir)
	}

	seedName := args[0]
	if !strings.HasSuffix(seedName, ".sql") {
		seedName = fmt.Sprintf("%s_seed.sql", seedName)
	}

	contents, err := os.ReadFile(filepath.Join(seedDir, seedName))
	if err != nil {
		return fmt.Errorf("read seed %s: %w", seedName, err)
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: 2})
	if err != nil {
		return err
	}
	defer pool.Close()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, string(contents)); err != nil {
		return fmt.Errorf("apply seed %s: %w", seedName, err)
	}

	logger.Info("applied seed", "seed", seedName)
	return nil
}
