package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/classify"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/loader"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func januarySeries() types.Series {
	times := []time.Time{
		time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2013, 1, 1, 1, 0, 0, 0, time.UTC),
		time.Date(2013, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	pm := []*float64{nil, types.Float(40), types.Float(200)}
	var s types.Series
	for i := range times {
		r := types.Reading{No: i + 1, Time: times[i], Station: "Tiantan"}
		r.Values[types.PM25] = pm[i]
		r.Values.Set(types.TEMP, -5)
		s.Readings = append(s.Readings, r)
	}
	return s
}

func TestRun_EndToEnd(t *testing.T) {
	opts := DefaultOptions(loader.Static{Name: "january", Series: januarySeries()})
	opts.CorrelationColumns = []types.Column{types.PM25, types.TEMP}

	res, err := Run(context.Background(), discard(), opts)
	require.NoError(t, err)

	assert.Equal(t, "january", res.Source)
	require.Len(t, res.Assignments, 3)
	assert.Nil(t, res.Assignments[0].Category, "leading null stays unclassified")
	require.NotNil(t, res.Assignments[1].Category)
	assert.Equal(t, classify.Moderate, *res.Assignments[1].Category)
	require.NotNil(t, res.Assignments[2].Category)
	assert.Equal(t, classify.VeryHigh, *res.Assignments[2].Category)

	monthly := res.Resampled[types.Monthly]
	require.Equal(t, 1, monthly.Len())
	v, ok := monthly.Readings[0].Values.Get(types.PM25)
	require.True(t, ok)
	assert.InDelta(t, 120.0, v, 1e-9)

	// TEMP is constant so every pair involving it is undefined.
	require.Error(t, res.CorrelationErr)
	assert.ErrorIs(t, res.CorrelationErr, types.ErrUndefinedCorrelation)
	_, ok = res.Correlation.At(types.PM25, types.TEMP)
	assert.False(t, ok)
	d, ok := res.Correlation.At(types.PM25, types.PM25)
	assert.True(t, ok)
	assert.Equal(t, 1.0, d)

	assert.Equal(t, 1, res.Summary.Unclassified)
	assert.Equal(t, 3, res.Summary.Rows)
}

func TestRun_SampleCSV(t *testing.T) {
	opts := DefaultOptions(loader.File{Path: "../loader/testdata/tiantan_sample.csv"})

	res, err := Run(context.Background(), discard(), opts)
	require.NoError(t, err)

	got := make([]float64, 0, res.Cleaned.Len())
	for _, p := range res.Cleaned.Column(types.PM25) {
		require.NotNil(t, p)
		got = append(got, *p)
	}
	assert.Equal(t, []float64{6, 6, 6, 12, 100, 200}, got)

	monthly := res.Resampled[types.Monthly]
	require.Equal(t, 2, monthly.Len())
	march, _ := monthly.Readings[0].Values.Get(types.PM25)
	april, _ := monthly.Readings[1].Values.Get(types.PM25)
	assert.InDelta(t, 7.5, march, 1e-9)
	assert.InDelta(t, 150.0, april, 1e-9)

	annual := res.Resampled[types.Annual]
	require.Equal(t, 1, annual.Len())
	year, _ := annual.Readings[0].Values.Get(types.PM25)
	assert.InDelta(t, 55.0, year, 1e-9)

	assert.Equal(t, []classify.CategoryCount{
		{Category: classify.Low, Count: 4},
		{Category: classify.Moderate, Count: 0},
		{Category: classify.High, Count: 1},
		{Category: classify.VeryHigh, Count: 1},
	}, res.Summary.Categories)
}

func TestRun_CorrelationBasis(t *testing.T) {
	opts := DefaultOptions(loader.File{Path: "../loader/testdata/tiantan_sample.csv"})
	opts.CorrelationColumns = []types.Column{types.PM25, types.NO2}
	opts.CorrelationBasis = types.Monthly

	res, err := Run(context.Background(), discard(), opts)
	require.NoError(t, err)
	require.Len(t, res.Correlation.Cells, 2)
	assert.Equal(t, 2, res.Correlation.Cells[0][1].N, "one observation per month")
}

func TestRun_LoadError(t *testing.T) {
	opts := DefaultOptions(loader.File{Path: "testdata/does-not-exist.csv"})
	_, err := Run(context.Background(), discard(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does-not-exist.csv")
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Analyze(ctx, discard(), "x", januarySeries(), DefaultOptions(loader.Static{}))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestOptions_Validate(t *testing.T) {
	opts := Options{
		Granularities: []types.Granularity{"weekly"},
		Binning:       classify.Binning{Moderate: 10, High: 5, VeryHigh: 20},
	}
	err := opts.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	assert.Contains(t, err.Error(), "source is required")
	assert.Contains(t, err.Error(), "weekly")
	assert.Contains(t, err.Error(), "correlation column")

	assert.NoError(t, DefaultOptions(loader.Static{Name: "ok"}).Validate())
}

func TestSpec_Options(t *testing.T) {
	spec := DefaultSpec()
	spec.Source = "file://testdata/x.csv"
	spec.CorrelationBasis = "M"
	opts, err := spec.Options(nil)
	require.NoError(t, err)
	assert.Equal(t, loader.File{Path: "testdata/x.csv"}, opts.Source)
	assert.Equal(t, types.Monthly, opts.CorrelationBasis)
	assert.Equal(t, DefaultCorrelationColumns, opts.CorrelationColumns)
	assert.Equal(t, []types.Granularity{types.Monthly, types.Annual}, opts.Granularities)

	spec.CorrelationColumns = []string{"PM2.5", "bogus"}
	spec.Granularities = []string{"hourly"}
	_, err = spec.Options(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
	assert.Contains(t, err.Error(), "hourly")
}
