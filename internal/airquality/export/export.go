// Package export writes pipeline results to JSON or CSV files.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/classify"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/cleaner"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/pipeline"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
)

type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case JSON, CSV:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (allowed: json, csv)", types.ErrInvalidInput, s)
	}
}

// Export writes one file per resampled series plus the correlation matrix,
// the category counts and, for JSON, the summary. It returns the written paths.
func Export(dir string, format Format, res *pipeline.Result) ([]string, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	type job struct {
		name  string
		write func(io.Writer) error
	}
	var jobs []job
	for _, g := range []types.Granularity{types.Monthly, types.Annual} {
		s, ok := res.Resampled[g]
		if !ok {
			continue
		}
		jobs = append(jobs, job{string(g), func(w io.Writer) error {
			if format == CSV {
				return WriteSeriesCSV(w, s, g)
			}
			return WriteJSON(w, s.Readings)
		}})
	}
	jobs = append(jobs,
		job{"correlation", func(w io.Writer) error {
			if format == CSV {
				return WriteMatrixCSV(w, res.Correlation)
			}
			return WriteJSON(w, res.Correlation)
		}},
		job{"categories", func(w io.Writer) error {
			if format == CSV {
				return WriteCategoriesCSV(w, res.Summary.Categories, res.Summary.Unclassified)
			}
			return WriteJSON(w, map[string]any{
				"categories":   res.Summary.Categories,
				"unclassified": res.Summary.Unclassified,
			})
		}},
	)
	if format == JSON {
		jobs = append(jobs, job{"summary", func(w io.Writer) error { return WriteJSON(w, res) }})
	}

	paths := make([]string, 0, len(jobs))
	for _, j := range jobs {
		path := filepath.Join(dir, j.name+"."+string(format))
		if err := writeFile(path, j.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSeriesCSV writes s in the CSV layout with a leading period label.
// Missing values are written as NaN.
func WriteSeriesCSV(w io.Writer, s types.Series, g types.Granularity) error {
	labels := make([]string, s.Len())
	for i, r := range s.Readings {
		labels[i] = g.Label(r.Time)
	}
	df := cleaner.Frame(s)
	cols := append([]string{"period"}, df.Names()...)
	df = df.Mutate(series.New(labels, series.String, "period")).Select(cols)
	if df.Err != nil {
		return df.Err
	}
	return df.WriteCSV(w)
}

// WriteMatrixCSV writes m as a square table; undefined cells are NaN.
func WriteMatrixCSV(w io.Writer, m types.CorrelationMatrix) error {
	names := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		names[i] = c.String()
	}
	cols := []series.Series{series.New(names, series.String, "column")}
	for j, c := range m.Columns {
		vals := make([]float64, len(m.Columns))
		for i := range m.Columns {
			cell := m.Cells[i][j]
			if cell.Defined {
				vals[i] = cell.R
			} else {
				vals[i] = math.NaN()
			}
		}
		cols = append(cols, series.New(vals, series.Float, c.String()))
	}
	df := dataframe.New(cols...)
	if df.Err != nil {
		return df.Err
	}
	return df.WriteCSV(w)
}

func WriteCategoriesCSV(w io.Writer, counts []classify.CategoryCount, unclassified int) error {
	names := make([]string, 0, len(counts)+1)
	values := make([]int, 0, len(counts)+1)
	for _, c := range counts {
		names = append(names, c.Category.String())
		values = append(values, c.Count)
	}
	names = append(names, "Unclassified")
	values = append(values, unclassified)

	df := dataframe.New(
		series.New(names, series.String, "category"),
		series.New(values, series.Int, "count"),
	)
	if df.Err != nil {
		return df.Err
	}
	return df.WriteCSV(w)
}
