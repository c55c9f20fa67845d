package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/classify"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/pipeline"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
)

// AnalysisService is the part of service.Service the handlers use.
type AnalysisService interface {
	Options() pipeline.Options
	Result(ctx context.Context) (*pipeline.Result, error)
	Refresh(ctx context.Context) (*pipeline.Result, error)
	Resample(ctx context.Context, g types.Granularity) (types.Series, error)
	Correlation(ctx context.Context, columns []types.Column, basis types.Granularity) (types.CorrelationMatrix, error)
	Categories(ctx context.Context) ([]classify.CategoryCount, int, error)
	Stations(ctx context.Context) ([]types.Station, error)
	StationReadings(ctx context.Context, stationID int64, from, to time.Time, limit int) ([]types.Reading, int, error)
	AnalyzeStation(ctx context.Context, stationID int64) (*pipeline.Result, error)
	Imports(ctx context.Context, limit int) ([]types.ImportRun, error)
}

type AirQualityController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type airQualityControllerImpl struct {
	service AnalysisService
	logger  *slog.Logger
}

func NewAirQualityController(service AnalysisService, logger *slog.Logger) AirQualityController {
	if logger == nil {
		logger = slog.Default()
	}
	return &airQualityControllerImpl{service: service, logger: logger}
}

func (c *airQualityControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleDashboard)
	mux.HandleFunc("GET /partials/heatmap", c.handleHeatmapPartial)
	mux.HandleFunc("GET /charts/{file}", c.handleChart)

	mux.HandleFunc("GET /api/v1/summary", c.handleSummary)
	mux.HandleFunc("POST /api/v1/refresh", c.handleRefresh)
	mux.HandleFunc("GET /api/v1/resample", c.handleResample)
	mux.HandleFunc("GET /api/v1/correlation", c.handleCorrelation)
	mux.HandleFunc("GET /api/v1/categories", c.handleCategories)
	mux.HandleFunc("GET /api/v1/stations", c.handleStations)
	mux.HandleFunc("GET /api/v1/stations/{id}/readings", c.handleReadings)
	mux.HandleFunc("GET /api/v1/stations/{id}/analysis", c.handleStationAnalysis)
	mux.HandleFunc("GET /api/v1/imports", c.handleImports)
}
