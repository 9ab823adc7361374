package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"ReadingRoom/internal/config"
	"ReadingRoom/internal/logging"
)

func testConfig(driver, dsn string) config.Config {
	return config.Config{
		Logging:  config.LoggingConfig{Level: "error"},
		Database: config.DatabaseConfig{Driver: driver, DSN: dsn},
		Scheduler: config.SchedulerConfig{
			CronExpression: "0 6 * * *",
			StartDate:      "2025-01-01",
			EndDate:        "2026-01-01",
		},
		Crawler: config.CrawlerConfig{
			BaseURL:           "http://127.0.0.1:1",
			Timeout:           time.Second,
			MaxPages:          2,
			RequestsPerSecond: 0,
			PromptCount:       3,
		},
		Server: config.ServerConfig{Addr: "127.0.0.1:0", TaskTimeout: time.Second},
	}
}

func TestNewWithMemoryStoreServesHealth(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), testConfig(MemoryDriver, ""), logging.Discard())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}

func TestNewWithSQLiteMigrates(t *testing.T) {
	t.Parallel()

	dsn := "file:" + filepath.Join(t.TempDir(), "rr.db")
	a, err := New(context.Background(), testConfig("sqlite", dsn), logging.Discard())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	if _, err := a.Store().Exists(context.Background(), "https://example.test/none"); err != nil {
		t.Fatalf("store not migrated: %v", err)
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), testConfig("oracle", "dsn"), logging.Discard()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), testConfig(MemoryDriver, ""), logging.Discard())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, true) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Serve did not return")
	}
}
