package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/aggregate"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/classify"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/loader"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/pipeline"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/repository"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
)

// ErrNoStore is returned by station operations when no database is configured.
var ErrNoStore = errors.New("no store configured")

type Service struct {
	repo    repository.AirQualityRepository
	opts    pipeline.Options
	logger  *slog.Logger
	results *Cache[*pipeline.Result]
	group   singleflight.Group
}

// NewService analyses opts.Source on demand. repo may be nil, in which case
// station and import operations return ErrNoStore.
func NewService(repo repository.AirQualityRepository, opts pipeline.Options, cacheTTL time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		opts:    opts,
		logger:  logger,
		results: NewCache[*pipeline.Result](cacheTTL),
	}
}

func (s *Service) Options() pipeline.Options { return s.opts }

// Result returns the analysis of the configured source, running the pipeline
// when the cached result has expired. Concurrent callers share one run.
func (s *Service) Result(ctx context.Context) (*pipeline.Result, error) {
	return s.analyze(ctx, s.opts)
}

// Refresh discards the cached result and analyses the source again.
func (s *Service) Refresh(ctx context.Context) (*pipeline.Result, error) {
	s.results.Delete(s.opts.Source.String())
	return s.analyze(ctx, s.opts)
}

// RunRefreshLoop warms the cache, then refreshes the analysis every interval
// until ctx is done. A non-positive interval only warms the cache.
func (s *Service) RunRefreshLoop(ctx context.Context, interval time.Duration) {
	if _, err := s.Result(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("initial analysis", "error", err)
	}
	if interval <= 0 {
		return
	}
	s.logger.Info("analysis refresher starting", "interval", interval, "source", s.opts.Source.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("analysis refresher stopped")
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("refresh analysis", "error", err)
			}
			s.results.Purge()
		}
	}
}

func (s *Service) analyze(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error) {
	key := opts.Source.String()
	if cached, ok := s.results.Get(key); ok {
		return cached, nil
	}
	// The run outlives any single caller: others may be waiting on it.
	runCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		res, err := pipeline.Run(runCtx, s.logger, opts)
		if err != nil {
			return nil, err
		}
		s.results.Set(key, res)
		return res, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			s.logger.Debug("analysis shared between callers", "source", key)
		}
		return r.Val.(*pipeline.Result), nil
	}
}

// Resample returns the cached series for g, computing it from the cleaned
// series for granularities outside the configured set.
func (s *Service) Resample(ctx context.Context, g types.Granularity) (types.Series, error) {
	res, err := s.Result(ctx)
	if err != nil {
		return types.Series{}, err
	}
	if out, ok := res.Resampled[g]; ok {
		return out, nil
	}
	return aggregate.Resample(res.Cleaned, g)
}

// Correlation returns the configured matrix when columns is empty and basis
// matches, otherwise it correlates the requested columns. Undefined pairs are
// reported through the returned error alongside a usable matrix.
func (s *Service) Correlation(ctx context.Context, columns []types.Column, basis types.Granularity) (types.CorrelationMatrix, error) {
	res, err := s.Result(ctx)
	if err != nil {
		return types.CorrelationMatrix{}, err
	}
	if len(columns) == 0 && basis == s.opts.CorrelationBasis {
		return res.Correlation, res.CorrelationErr
	}
	if len(columns) == 0 {
		columns = s.opts.CorrelationColumns
	}
	series := res.Cleaned
	if basis != "" {
		if series, err = s.Resample(ctx, basis); err != nil {
			return types.CorrelationMatrix{}, err
		}
	}
	return aggregate.Correlate(series, columns)
}

// Categories returns the per-category counts and the number of rows without PM2.5.
func (s *Service) Categories(ctx context.Context) ([]classify.CategoryCount, int, error) {
	res, err := s.Result(ctx)
	if err != nil {
		return nil, 0, err
	}
	return res.Summary.Categories, res.Summary.Unclassified, nil
}

func (s *Service) Stations(ctx context.Context) ([]types.Station, error) {
	if s.repo == nil {
		return nil, ErrNoStore
	}
	return s.repo.GetStations(ctx)
}

// StationReadings returns stored readings and the total number in range.
func (s *Service) StationReadings(ctx context.Context, stationID int64, from, to time.Time, limit int) ([]types.Reading, int, error) {
	if s.repo == nil {
		return nil, 0, ErrNoStore
	}
	if _, err := s.repo.GetStation(ctx, stationID); err != nil {
		return nil, 0, err
	}
	readings, err := s.repo.GetReadings(ctx, stationID, from, to, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountReadings(ctx, stationID, from, to)
	if err != nil {
		return nil, 0, err
	}
	return readings, total, nil
}

// AnalyzeStation runs the configured pipeline over a station's stored readings.
func (s *Service) AnalyzeStation(ctx context.Context, stationID int64) (*pipeline.Result, error) {
	if s.repo == nil {
		return nil, ErrNoStore
	}
	if _, err := s.repo.GetStation(ctx, stationID); err != nil {
		return nil, err
	}
	opts := s.opts
	opts.Source = repository.Source{Repo: s.repo, StationID: stationID}
	return s.analyze(ctx, opts)
}

// Import loads src and stores its raw readings under station. Nulls are kept
// as NULL; forward fill happens at analysis time.
func (s *Service) Import(ctx context.Context, src loader.Source, station string) (types.ImportRun, error) {
	if s.repo == nil {
		return types.ImportRun{}, ErrNoStore
	}
	run := types.ImportRun{ID: uuid.NewString(), Source: src.String(), StartedAt: time.Now().UTC()}
	log := s.logger.With("import_id", run.ID, "source", run.Source)

	series, err := src.Load(ctx)
	if err != nil {
		return types.ImportRun{}, fmt.Errorf("load %s: %w", src, err)
	}
	if station == "" && series.Len() > 0 {
		station = series.Readings[0].Station
	}
	st, err := s.repo.UpsertStation(ctx, station)
	if err != nil {
		return types.ImportRun{}, err
	}
	run.StationID = st.ID

	n, err := s.repo.InsertReadings(ctx, st.ID, series.Readings, repository.OriginCSV)
	if err != nil {
		return types.ImportRun{}, err
	}
	run.Rows = n
	run.FinishedAt = time.Now().UTC()
	if err := s.repo.RecordImport(ctx, run); err != nil {
		return types.ImportRun{}, err
	}
	s.invalidateStation(st.ID)
	if dup := series.Len() - n; dup > 0 {
		log.Warn("duplicate timestamps merged", "station", st.Name, "duplicates", dup)
	}
	log.Info("import complete", "station", st.Name, "rows", n, "elapsed", run.FinishedAt.Sub(run.StartedAt))
	return run, nil
}

func (s *Service) Imports(ctx context.Context, limit int) ([]types.ImportRun, error) {
	if s.repo == nil {
		return nil, ErrNoStore
	}
	return s.repo.ListImports(ctx, limit)
}

// StoreTelemetry persists one live message and drops the station's cached analysis.
func (s *Service) StoreTelemetry(ctx context.Context, t types.Telemetry) error {
	if s.repo == nil {
		return ErrNoStore
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}
	if err := s.repo.InsertReading(ctx, t.Reading(), repository.OriginMQTT); err != nil {
		return err
	}
	if st, err := s.repo.UpsertStation(ctx, t.Station); err == nil {
		s.invalidateStation(st.ID)
	}
	return nil
}

func (s *Service) invalidateStation(id int64) {
	s.results.Delete(repository.Source{StationID: id}.String())
}

// ParseStationID parses a path parameter into a station id.
func ParseStationID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid station id %q", types.ErrInvalidInput, raw)
	}
	return id, nil
}
