package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"walletlog/internal/log"
)

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_BACKEND", "memory")
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		t.Fatalf("LoadAndValidateConfig: %v", err)
	}
	if cfg.Port != "9090" || cfg.APIEndpoint != "http://localhost:8080/query" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	t.Setenv("PORT", "nope")
	t.Setenv("LOG_FORMAT", "xml")
	_, err = LoadAndValidateConfig()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"invalid port", "invalid log format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestWithLogger(t *testing.T) {
	logger := log.New(log.Config{Output: io.Discard, Component: log.ComponentAMQP})
	if got := log.FromContext(WithLogger(context.Background(), logger)); got != logger {
		t.Fatal("logger not carried by context")
	}
}

func TestShutdownOnSignal(t *testing.T) {
	logger := log.New(log.Config{Output: io.Discard})
	sig := make(chan os.Signal, 1)
	called := make(chan struct{})

	ctx, done := shutdownOn(sig, logger, time.Second, func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("shutdown context has no deadline")
		}
		close(called)
		return errors.New("listener already closed")
	})

	select {
	case <-ctx.Done():
		t.Fatal("cancelled before a signal arrived")
	default:
	}

	sig <- syscall.SIGTERM
	WaitForShutdown(ctx, done)

	select {
	case <-called:
	default:
		t.Fatal("shutdown func not called")
	}
}
