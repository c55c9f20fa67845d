package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/config"
)

func NewServer(cfg config.Config, handler http.Handler, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestLogger(logger, handler),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
}
