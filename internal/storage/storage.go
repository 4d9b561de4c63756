// Package storage provides the object store implementations behind media.ObjectStore.
package storage

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/media"
)

// New builds the object store selected by cfg.Driver.
func New(ctx context.Context, cfg config.ObjectStoreConfig) (media.ObjectStore, error) {
	switch cfg.Driver {
	case config.DriverS3:
		return NewS3Storage(ctx, cfg)
	case config.DriverMinio:
		return NewMinioStorage(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}

// objectKey names a new object after a random id, keeping the file extension.
func objectKey(localPath string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(localPath))
}

func contentType(key string) string {
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// publicURL joins base and key. An empty base yields the bare key.
func publicURL(base, key string) string {
	base = strings.TrimSuffix(base, "/")
	if base == "" {
		return key
	}
	return base + "/" + key
}
