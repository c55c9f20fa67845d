// Package pipeline wires loading, cleaning, resampling, correlation and
// classification into one run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/aggregate"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/classify"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/cleaner"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/loader"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/report"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
)

// DefaultCorrelationColumns are the pollutant and weather columns shown in the heatmap.
var DefaultCorrelationColumns = []types.Column{
	types.PM25, types.PM10, types.SO2, types.NO2, types.CO, types.O3,
	types.TEMP, types.PRES, types.DEWP, types.WSPM,
}

type Options struct {
	Source             loader.Source
	Granularities      []types.Granularity
	CorrelationColumns []types.Column
	// CorrelationBasis resamples before correlating; empty correlates the hourly series.
	CorrelationBasis types.Granularity
	Binning          classify.Binning
	Head             int
}

func DefaultOptions(src loader.Source) Options {
	return Options{
		Source:             src,
		Granularities:      []types.Granularity{types.Monthly, types.Annual},
		CorrelationColumns: append([]types.Column(nil), DefaultCorrelationColumns...),
		Binning:            classify.DefaultBinning,
		Head:               report.DefaultHead,
	}
}

func (o Options) Validate() error {
	var errs []error
	if o.Source == nil {
		errs = append(errs, fmt.Errorf("%w: source is required", types.ErrInvalidInput))
	}
	for _, g := range o.Granularities {
		if _, err := g.Truncate(time.Time{}); err != nil {
			errs = append(errs, err)
		}
	}
	if o.CorrelationBasis != "" {
		if _, err := o.CorrelationBasis.Truncate(time.Time{}); err != nil {
			errs = append(errs, err)
		}
	}
	if len(o.CorrelationColumns) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one correlation column is required", types.ErrInvalidInput))
	}
	if err := o.Binning.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Result holds every artefact of a run. The series are excluded from JSON;
// exports write them separately.
// CorrelationErr lists the undefined pairs; the matrix is still usable.
type Result struct {
	Source         string                             `json:"source"`
	Raw            types.Series                       `json:"-"`
	Cleaned        types.Series                       `json:"-"`
	Resampled      map[types.Granularity]types.Series `json:"resampled"`
	Correlation    types.CorrelationMatrix            `json:"correlation"`
	CorrelationErr error                              `json:"-"`
	Assignments    []classify.Assignment              `json:"-"`
	Summary        report.Summary                     `json:"summary"`
	GeneratedAt    time.Time                          `json:"generatedAt"`
	Duration       time.Duration                      `json:"duration"`
}

// Run loads opts.Source and analyses it.
func Run(ctx context.Context, logger *slog.Logger, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	started := time.Now()
	raw, err := opts.Source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", opts.Source, err)
	}
	logger.Info("dataset loaded", "source", opts.Source.String(), "rows", raw.Len(), "elapsed", time.Since(started))
	return Analyze(ctx, logger, opts.Source.String(), raw, opts)
}

// Analyze runs the stages after loading. Resampling, correlation and
// classification only read the cleaned series and run concurrently.
func Analyze(ctx context.Context, logger *slog.Logger, source string, raw types.Series, opts Options) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	started := time.Now()

	cleaned := cleaner.Clean(raw)
	logger.Debug("series cleaned", "rows", cleaned.Len())

	resampled := make([]types.Series, len(opts.Granularities))
	var (
		matrix      types.CorrelationMatrix
		corrErr     error
		assignments []classify.Assignment
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, gran := range opts.Granularities {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := aggregate.Resample(cleaned, gran)
			if err != nil {
				return fmt.Errorf("resample %s: %w", gran, err)
			}
			resampled[i] = out
			return nil
		})
	}
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		basis := cleaned
		if opts.CorrelationBasis != "" {
			var err error
			if basis, err = aggregate.Resample(cleaned, opts.CorrelationBasis); err != nil {
				return fmt.Errorf("resample %s for correlation: %w", opts.CorrelationBasis, err)
			}
		}
		m, err := aggregate.Correlate(basis, opts.CorrelationColumns)
		if err != nil && !errors.Is(err, types.ErrUndefinedCorrelation) {
			return fmt.Errorf("correlate: %w", err)
		}
		matrix, corrErr = m, err
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		assignments = opts.Binning.Series(cleaned)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if corrErr != nil {
		logger.Warn("correlation has undefined pairs", "error", corrErr)
	}

	res := &Result{
		Source:         source,
		Raw:            raw,
		Cleaned:        cleaned,
		Resampled:      make(map[types.Granularity]types.Series, len(opts.Granularities)),
		Correlation:    matrix,
		CorrelationErr: corrErr,
		Assignments:    assignments,
		Summary:        report.Summarize(source, raw, cleaned, assignments, opts.Head),
		GeneratedAt:    time.Now().UTC(),
	}
	for i, gran := range opts.Granularities {
		res.Resampled[gran] = resampled[i]
	}
	res.Duration = time.Since(started)
	logger.Info("analysis complete",
		"source", source,
		"rows", cleaned.Len(),
		"unclassified", res.Summary.Unclassified,
		"elapsed", res.Duration,
	)
	return res, nil
}
