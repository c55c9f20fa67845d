// Package aggregate resamples series into calendar buckets and computes
// correlation matrices.
package aggregate

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
)

// bucket holds the non-null values of each column within one window.
type bucket [types.ColumnCount][]float64

// Resample groups readings into calendar windows of granularity g and returns
// one reading per non-empty window, stamped with the window start and holding
// the mean of each column. Nulls are excluded from the mean; a column with no
// values in a window stays null. Windows are ordered by start time.
func Resample(s types.Series, g types.Granularity) (types.Series, error) {
	buckets := make(map[time.Time]*bucket)
	for i := range s.Readings {
		start, err := g.Truncate(s.Readings[i].Time)
		if err != nil {
			return types.Series{}, err
		}
		b, ok := buckets[start]
		if !ok {
			b = &bucket{}
			buckets[start] = b
		}
		for c := types.Column(0); c < types.ColumnCount; c++ {
			if v, ok := s.Readings[i].Values.Get(c); ok {
				b[c] = append(b[c], v)
			}
		}
	}
	if len(s.Readings) == 0 {
		// still validate g so callers learn about a bad granularity early
		if _, err := g.Truncate(time.Time{}); err != nil {
			return types.Series{}, err
		}
	}

	starts := make([]time.Time, 0, len(buckets))
	for start := range buckets {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	out := make([]types.Reading, 0, len(starts))
	for _, start := range starts {
		b := buckets[start]
		r := types.Reading{Time: start}
		for c := types.Column(0); c < types.ColumnCount; c++ {
			if len(b[c]) > 0 {
				r.Values.Set(c, stat.Mean(b[c], nil))
			}
		}
		out = append(out, r)
	}
	return types.Series{Readings: out}, nil
}
