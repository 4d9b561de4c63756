package httpserver

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestNewListensOnPort(t *testing.T) {
	srv := New(8089, http.NotFoundHandler())
	if got := srv.Addr(); got != ":8089" {
		t.Fatalf("expected :8089 got %q", got)
	}
	if srv.inner.WriteTimeout < srv.inner.ReadHeaderTimeout {
		t.Fatalf("write timeout %s shorter than header timeout %s", srv.inner.WriteTimeout, srv.inner.ReadHeaderTimeout)
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	srv := New(0, http.NotFoundHandler())
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := srv.Start(); !errors.Is(err, http.ErrServerClosed) {
		t.Fatalf("expected ErrServerClosed after shutdown, got %v", err)
	}
}
