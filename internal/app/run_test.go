package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/config"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	addr := freeAddr(t)
	cfg := config.Config{
		AppEnv:             "dev",
		LogLevel:           slog.LevelInfo,
		HTTPAddr:           addr,
		DataSource:         "../airquality/loader/testdata/tiantan_sample.csv",
		HTTPFetchTimeout:   time.Second,
		CacheTTL:           time.Minute,
		SQLiteDriver:       "sqlite3",
		SQLitePath:         filepath.Join(t.TempDir(), "airq.db"),
		SQLiteMaxOpenConns: 1,
		SQLiteMaxIdleConns: 1,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()

	url := "http://" + addr + "/healthz"
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("healthz status = %d", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not come up: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	resp, err := http.Get("http://" + addr + "/api/v1/summary")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("summary status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run = %v; want context.Canceled", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_BadPipelineConfig(t *testing.T) {
	cfg := config.Config{
		HTTPAddr:           freeAddr(t),
		PipelineConfig:     filepath.Join(t.TempDir(), "missing.yaml"),
		SQLiteDriver:       "sqlite3",
		SQLitePath:         filepath.Join(t.TempDir(), "airq.db"),
		SQLiteMaxOpenConns: 1,
	}
	if err := Run(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Fatal("Run with missing pipeline config succeeded")
	}
}
