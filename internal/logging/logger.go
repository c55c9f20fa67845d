package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/config"
)

// New builds the process logger: coloured text for dev builds, JSON otherwise.
// A nil w writes to stdout.
func New(cfg config.Config, version string, appName string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	if version == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      cfg.LogLevel,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})
	return slog.New(h).With(
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
	)
}
