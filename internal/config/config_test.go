package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("VIDTUBE_PORT", "9090")
	t.Setenv("VIDTUBE_ACCESS_TOKEN_TTL", "5m")
	t.Setenv("VIDTUBE_OBJECT_STORE_DRIVER", "S3")
	t.Setenv("VIDTUBE_OBJECT_STORE_USE_SSL", "true")
	t.Setenv("VIDTUBE_AUTH_RATE_BURST", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppPort != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.AppPort)
	}
	if cfg.AccessTokenTTL != 5*time.Minute {
		t.Fatalf("expected 5m access ttl, got %s", cfg.AccessTokenTTL)
	}
	if cfg.ObjectStore.Driver != DriverS3 || !cfg.ObjectStore.UseSSL {
		t.Fatalf("unexpected object store config: %+v", cfg.ObjectStore)
	}
	if cfg.AuthRateBurst != 5 {
		t.Fatalf("expected fallback burst 5, got %d", cfg.AuthRateBurst)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestValidateCollectsProblems(t *testing.T) {
	t.Setenv("VIDTUBE_ENV", "production")
	t.Setenv("VIDTUBE_JWT_SECRET", "")
	t.Setenv("VIDTUBE_OBJECT_STORE_DRIVER", "ftp")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"JWT_SECRET", `"ftp"`} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}
