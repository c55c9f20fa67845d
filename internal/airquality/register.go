// Package airquality assembles the analysis feature: pipeline options from
// config, the service, its HTTP routes and the live telemetry handler.
package airquality

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/controller"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/pipeline"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/repository"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/service"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/config"
)

// PipelineOptions reads the pipeline config and applies the DATA_SOURCE override.
func PipelineOptions(cfg config.Config) (pipeline.Options, error) {
	spec, err := config.LoadPipeline(cfg.PipelineConfig)
	if err != nil {
		return pipeline.Options{}, err
	}
	if src := strings.TrimSpace(cfg.DataSource); src != "" {
		spec.Source = src
	}
	return spec.Options(&http.Client{Timeout: cfg.HTTPFetchTimeout})
}

// NewService builds the analysis service. db may be nil; station operations
// then report service.ErrNoStore.
func NewService(cfg config.Config, db *sql.DB, logger *slog.Logger) (*service.Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts, err := PipelineOptions(cfg)
	if err != nil {
		return nil, err
	}
	var repo repository.AirQualityRepository
	if db != nil {
		repo = repository.NewRepository(db, logger.With("component", "repository"))
	}
	return service.NewService(repo, opts, cfg.CacheTTL, logger.With("component", "service")), nil
}

// RegisterFeature mounts the dashboard and API routes. When subscriber is
// non-nil every telemetry message it delivers is stored.
func RegisterFeature(mux *http.ServeMux, svc *service.Service, subscriber service.TelemetrySubscriber, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	airQualityController := controller.NewAirQualityController(svc, logger.With("component", "controller"))
	airQualityController.RegisterRoutes(mux)

	if subscriber != nil {
		svc.Register(subscriber)
	}
}
