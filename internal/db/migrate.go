package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/vidtube/backend/migrations"
)

// Migrate runs a goose command (up, down, status) against the embedded migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool, command string) error {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	switch command {
	case "up", "":
		if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
			return fmt.Errorf("goose up: %w", err)
		}
	case "down":
		if err := goose.DownContext(ctx, sqlDB, "."); err != nil {
			return fmt.Errorf("goose down: %w", err)
		}
	case "status":
		if err := goose.StatusContext(ctx, sqlDB, "."); err != nil {
			return fmt.Errorf("goose status: %w", err)
		}
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}

	return nil
}
