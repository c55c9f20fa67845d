// Package charts renders the dashboard plots as PNG images.
package charts

import (
	"errors"
	"fmt"
	"io"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/aggregate"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/classify"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/pipeline"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
)

var (
	// ErrNotEnoughData is returned when a series has fewer than two plottable points.
	ErrNotEnoughData = errors.New("not enough data to plot")
	ErrUnknownChart  = errors.New("unknown chart")
)

const (
	Width  = 1024
	Height = 400
)

// Chart names served by Render.
const (
	MonthlyPM25Chart = "monthly-pm25"
	AnnualTrendChart = "annual-trend"
	ScatterChart     = "temp-vs-pm25"
	CategoriesChart  = "categories"
	HourlyChart      = "hourly-pm25"
)

func Names() []string {
	return []string{MonthlyPM25Chart, AnnualTrendChart, ScatterChart, CategoriesChart, HourlyChart}
}

var categoryColors = map[classify.Category]drawing.Color{
	classify.Low:      drawing.ColorFromHex("2e7d32"),
	classify.Moderate: drawing.ColorFromHex("f9a825"),
	classify.High:     drawing.ColorFromHex("ef6c00"),
	classify.VeryHigh: drawing.ColorFromHex("c62828"),
}

// Render writes the named chart for res.
func Render(w io.Writer, name string, res *pipeline.Result) error {
	switch name {
	case MonthlyPM25Chart:
		monthly, err := resampled(res, types.Monthly)
		if err != nil {
			return err
		}
		return MonthlyPM25(w, monthly)
	case AnnualTrendChart:
		annual, err := resampled(res, types.Annual)
		if err != nil {
			return err
		}
		return AnnualTrend(w, annual)
	case ScatterChart:
		return Scatter(w, res.Cleaned, types.TEMP, types.PM25)
	case CategoriesChart:
		return CategoryBars(w, res.Summary.Categories)
	case HourlyChart:
		return Hourly(w, res.Cleaned)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChart, name)
	}
}

// resampled returns the result's series for g, resampling the cleaned series
// when g was not among the configured granularities.
func resampled(res *pipeline.Result, g types.Granularity) (types.Series, error) {
	if s, ok := res.Resampled[g]; ok {
		return s, nil
	}
	return aggregate.Resample(res.Cleaned, g)
}

// MonthlyPM25 plots the monthly mean PM2.5.
func MonthlyPM25(w io.Writer, monthly types.Series) error {
	xs, ys := timePoints(monthly, types.PM25)
	if len(xs) < 2 {
		return ErrNotEnoughData
	}
	ch := chart.Chart{
		Title:  "Monthly mean PM2.5",
		Width:  Width,
		Height: Height,
		XAxis:  chart.XAxis{ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01")},
		YAxis:  chart.YAxis{Name: types.PM25.Unit(), Range: yRange(ys)},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "PM2.5",
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 2, DotWidth: 3, DotColor: chart.ColorBlue},
			},
		},
	}
	return ch.Render(chart.PNG, w)
}

// AnnualTrend plots annual PM2.5 on the left axis and TEMP on the right.
func AnnualTrend(w io.Writer, annual types.Series) error {
	pmX, pmY := timePoints(annual, types.PM25)
	tX, tY := timePoints(annual, types.TEMP)
	if len(pmX) < 2 {
		return ErrNotEnoughData
	}
	series := []chart.Series{
		chart.TimeSeries{
			Name:    "PM2.5",
			XValues: pmX,
			YValues: pmY,
			Style:   chart.Style{StrokeColor: chart.ColorRed, StrokeWidth: 2, DotWidth: 4, DotColor: chart.ColorRed},
		},
	}
	if len(tX) >= 2 {
		series = append(series, chart.TimeSeries{
			Name:    "TEMP",
			YAxis:   chart.YAxisSecondary,
			XValues: tX,
			YValues: tY,
			Style:   chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 2, StrokeDashArray: []float64{5, 5}},
		})
	}
	ch := chart.Chart{
		Title:          "Annual PM2.5 and temperature",
		Width:          Width,
		Height:         Height,
		Background:     chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:          chart.XAxis{ValueFormatter: chart.TimeValueFormatterWithFormat("2006")},
		YAxis:          chart.YAxis{Name: types.PM25.Unit(), Range: yRange(pmY)},
		YAxisSecondary: chart.YAxis{Name: types.TEMP.Unit(), Range: yRange(tY)},
		Series:         series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch.Render(chart.PNG, w)
}

// Scatter plots y against x over the rows where both are present.
func Scatter(w io.Writer, s types.Series, x, y types.Column) error {
	var xs, ys []float64
	for i := range s.Readings {
		vx, okX := s.Readings[i].Values.Get(x)
		vy, okY := s.Readings[i].Values.Get(y)
		if okX && okY {
			xs = append(xs, vx)
			ys = append(ys, vy)
		}
	}
	if len(xs) < 2 {
		return ErrNotEnoughData
	}
	ch := chart.Chart{
		Title:  fmt.Sprintf("%s vs %s", x, y),
		Width:  Width,
		Height: Height,
		XAxis:  chart.XAxis{Name: fmt.Sprintf("%s (%s)", x, x.Unit()), Range: yRange(xs)},
		YAxis:  chart.YAxis{Name: fmt.Sprintf("%s (%s)", y, y.Unit()), Range: yRange(ys)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    y.String(),
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    2,
					DotColor:    chart.ColorBlue.WithAlpha(96),
				},
			},
		},
	}
	return ch.Render(chart.PNG, w)
}

// CategoryBars plots the number of hours in each PM2.5 category.
func CategoryBars(w io.Writer, counts []classify.CategoryCount) error {
	if len(counts) == 0 {
		return ErrNotEnoughData
	}
	bars := make([]chart.Value, 0, len(counts))
	highest := 1.0
	for _, c := range counts {
		color := categoryColors[c.Category]
		bars = append(bars, chart.Value{
			Label: c.Category.String(),
			Value: float64(c.Count),
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
		highest = max(highest, float64(c.Count))
	}
	bc := chart.BarChart{
		Title:    "PM2.5 categories",
		Width:    Width,
		Height:   Height,
		BarWidth: 120,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: highest * 1.1}},
		Bars:  bars,
	}
	return bc.Render(chart.PNG, w)
}

// Hourly plots the cleaned hourly PM2.5.
func Hourly(w io.Writer, s types.Series) error {
	xs, ys := timePoints(s, types.PM25)
	if len(xs) < 2 {
		return ErrNotEnoughData
	}
	ch := chart.Chart{
		Title:  "Hourly PM2.5",
		Width:  Width,
		Height: Height,
		XAxis:  chart.XAxis{ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01")},
		YAxis:  chart.YAxis{Name: types.PM25.Unit(), Range: yRange(ys)},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "PM2.5",
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: chart.ColorAlternateGray, StrokeWidth: 1},
			},
		},
	}
	return ch.Render(chart.PNG, w)
}

func timePoints(s types.Series, c types.Column) ([]time.Time, []float64) {
	xs := make([]time.Time, 0, s.Len())
	ys := make([]float64, 0, s.Len())
	for i := range s.Readings {
		if v, ok := s.Readings[i].Values.Get(c); ok {
			xs = append(xs, s.Readings[i].Time)
			ys = append(ys, v)
		}
	}
	return xs, ys
}

// yRange widens a flat series so the axis has a non-zero span; nil lets
// go-chart pick the range.
func yRange(vs []float64) chart.Range {
	if len(vs) == 0 {
		return nil
	}
	lo, hi := vs[0], vs[0]
	for _, v := range vs[1:] {
		lo, hi = min(lo, v), max(hi, v)
	}
	if hi > lo {
		return nil
	}
	return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
}
