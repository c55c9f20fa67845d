// Package cleaner turns a raw CSV table into a time-ordered Series and fills
// gaps in it by forward propagation.
package cleaner

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
)

// RequiredColumns must be present in every input table.
var RequiredColumns = []string{"year", "month", "day", "hour", "PM2.5"}

const (
	colNo      = "No"
	colStation = "station"
	colWindDir = "wd"
)

// FromFrame derives the timestamp of every row from year, month, day and hour
// and returns the rows sorted by time. Numeric columns missing from the frame
// (other than PM2.5) are treated as entirely null.
func FromFrame(df dataframe.DataFrame) (types.Series, error) {
	if df.Err != nil {
		return types.Series{}, fmt.Errorf("read table: %w", df.Err)
	}

	present := make(map[string]bool, df.Ncol())
	for _, n := range df.Names() {
		present[n] = true
	}
	for _, name := range RequiredColumns {
		if !present[name] {
			return types.Series{}, fmt.Errorf("%w: missing column %q", types.ErrInvalidSchema, name)
		}
	}

	n := df.Nrow()
	dateParts := make([][]float64, 4)
	for i, name := range RequiredColumns[:4] {
		dateParts[i] = df.Col(name).Float()
	}

	numeric := make([][]float64, types.ColumnCount)
	for _, c := range types.Columns() {
		if present[c.String()] {
			numeric[c] = df.Col(c.String()).Float()
		}
	}

	var stations, windDirs []string
	var stationNA, windNA []bool
	if present[colStation] {
		s := df.Col(colStation)
		stations, stationNA = s.Records(), s.IsNaN()
	}
	if present[colWindDir] {
		s := df.Col(colWindDir)
		windDirs, windNA = s.Records(), s.IsNaN()
	}
	var nos []float64
	if present[colNo] {
		nos = df.Col(colNo).Float()
	}

	readings := make([]types.Reading, n)
	for row := 0; row < n; row++ {
		ts, err := timestamp(dateParts[0][row], dateParts[1][row], dateParts[2][row], dateParts[3][row])
		if err != nil {
			return types.Series{}, fmt.Errorf("row %d: %w", row+1, err)
		}
		r := types.Reading{Time: ts}
		for c, col := range numeric {
			if col == nil || math.IsNaN(col[row]) {
				continue
			}
			r.Values.Set(types.Column(c), col[row])
		}
		if stations != nil && !stationNA[row] {
			r.Station = stations[row]
		}
		if windDirs != nil && !windNA[row] {
			r.WindDir = windDirs[row]
		}
		if nos != nil && !math.IsNaN(nos[row]) {
			r.No = int(nos[row])
		}
		readings[row] = r
	}

	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Time.Before(readings[j].Time)
	})
	return types.Series{Readings: readings}, nil
}

func timestamp(year, month, day, hour float64) (time.Time, error) {
	for _, f := range []float64{year, month, day, hour} {
		if math.IsNaN(f) || f != math.Trunc(f) {
			return time.Time{}, fmt.Errorf("%w: non-integer date fields %v-%v-%v %v", types.ErrInvalidInput, year, month, day, hour)
		}
	}
	if month < 1 || month > 12 || day < 1 || day > 31 || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("%w: date out of range %v-%v-%v %v", types.ErrInvalidInput, year, month, day, hour)
	}
	ts := time.Date(int(year), time.Month(month), int(day), int(hour), 0, 0, 0, time.UTC)
	if ts.Day() != int(day) {
		return time.Time{}, fmt.Errorf("%w: no such day %v-%v-%v", types.ErrInvalidInput, year, month, day)
	}
	return ts, nil
}

// Clean forward-fills every nullable field: a null takes the nearest
// preceding non-null value in timestamp order. The output is sorted stably by
// time; leading nulls stay null. The input is not modified.
func Clean(s types.Series) types.Series {
	out := s.Clone()
	sort.SliceStable(out.Readings, func(i, j int) bool {
		return out.Readings[i].Time.Before(out.Readings[j].Time)
	})
	var last types.Values
	lastWind := ""
	for i := range out.Readings {
		r := &out.Readings[i]
		for c := types.Column(0); c < types.ColumnCount; c++ {
			if r.Values[c] == nil {
				if last[c] != nil {
					r.Values.Set(c, *last[c])
				}
				continue
			}
			last[c] = r.Values[c]
		}
		if r.WindDir == "" {
			r.WindDir = lastWind
		} else {
			lastWind = r.WindDir
		}
	}
	return out
}

// Frame builds a frame for the given series, one float column per numeric
// column plus the date parts, matching the CSV layout.
func Frame(s types.Series) dataframe.DataFrame {
	n := s.Len()
	years, months, days, hours := make([]int, n), make([]int, n), make([]int, n), make([]int, n)
	for i, r := range s.Readings {
		t := r.Time.UTC()
		years[i], months[i], days[i], hours[i] = t.Year(), int(t.Month()), t.Day(), t.Hour()
	}
	cols := []series.Series{
		series.New(years, series.Int, "year"),
		series.New(months, series.Int, "month"),
		series.New(days, series.Int, "day"),
		series.New(hours, series.Int, "hour"),
	}
	for _, c := range types.Columns() {
		vals := make([]float64, n)
		for i, p := range s.Column(c) {
			if p == nil {
				vals[i] = math.NaN()
				continue
			}
			vals[i] = *p
		}
		cols = append(cols, series.New(vals, series.Float, c.String()))
	}
	return dataframe.New(cols...)
}
