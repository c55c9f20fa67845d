package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidSchema is returned when a required column is absent from the input table.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrUndefinedCorrelation marks a column pair whose Pearson coefficient cannot be computed.
	ErrUndefinedCorrelation = errors.New("undefined correlation")
	// ErrInvalidInput is returned for values an operation cannot accept, e.g. a null PM2.5 reading.
	ErrInvalidInput = errors.New("invalid input")
)

// Column identifies one nullable numeric measurement of a reading.
type Column int

const (
	PM25 Column = iota
	PM10
	SO2
	NO2
	CO
	O3
	TEMP
	PRES
	DEWP
	RAIN
	WSPM

	ColumnCount
)

var columnNames = [ColumnCount]string{
	PM25: "PM2.5",
	PM10: "PM10",
	SO2:  "SO2",
	NO2:  "NO2",
	CO:   "CO",
	O3:   "O3",
	TEMP: "TEMP",
	PRES: "PRES",
	DEWP: "DEWP",
	RAIN: "RAIN",
	WSPM: "WSPM",
}

var columnUnits = [ColumnCount]string{
	PM25: "µg/m³",
	PM10: "µg/m³",
	SO2:  "µg/m³",
	NO2:  "µg/m³",
	CO:   "mg/m³",
	O3:   "µg/m³",
	TEMP: "°C",
	PRES: "hPa",
	DEWP: "°C",
	RAIN: "mm",
	WSPM: "m/s",
}

// Columns lists every numeric column in canonical CSV order.
func Columns() []Column {
	out := make([]Column, 0, ColumnCount)
	for c := Column(0); c < ColumnCount; c++ {
		out = append(out, c)
	}
	return out
}

func (c Column) Valid() bool { return c >= 0 && c < ColumnCount }

func (c Column) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Column(%d)", int(c))
	}
	return columnNames[c]
}

// Unit returns the measurement unit used by the source dataset.
func (c Column) Unit() string {
	if !c.Valid() {
		return ""
	}
	return columnUnits[c]
}

// ParseColumn resolves a CSV header name. Matching is case-insensitive and
// accepts "PM25" for "PM2.5".
func ParseColumn(s string) (Column, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "PM25" {
		return PM25, nil
	}
	for c, n := range columnNames {
		if strings.ToUpper(n) == name {
			return Column(c), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown column %q", ErrInvalidInput, s)
}

// ParseColumns resolves a list of column names, rejecting duplicates.
func ParseColumns(names []string) ([]Column, error) {
	out := make([]Column, 0, len(names))
	seen := make(map[Column]bool, len(names))
	for _, n := range names {
		c, err := ParseColumn(n)
		if err != nil {
			return nil, err
		}
		if seen[c] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidInput, n)
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

func (c Column) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: column %d", ErrInvalidInput, int(c))
	}
	return []byte(c.String()), nil
}

func (c *Column) UnmarshalText(b []byte) error {
	parsed, err := ParseColumn(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Values holds one nullable measurement per Column. A nil entry is a missing value.
type Values [ColumnCount]*float64

// Get returns the value of c and whether it is present.
func (v *Values) Get(c Column) (float64, bool) {
	if !c.Valid() || v[c] == nil {
		return 0, false
	}
	return *v[c], true
}

func (v *Values) Set(c Column, f float64) {
	v[c] = &f
}

func (v *Values) Clear(c Column) {
	v[c] = nil
}

// Clone returns a deep copy so that callers can mutate values without aliasing.
func (v Values) Clone() Values {
	var out Values
	for i, p := range v {
		if p != nil {
			f := *p
			out[i] = &f
		}
	}
	return out
}

func (v Values) MarshalJSON() ([]byte, error) {
	m := make(map[string]*float64, ColumnCount)
	for c := Column(0); c < ColumnCount; c++ {
		m[c.String()] = v[c]
	}
	return json.Marshal(m)
}

func (v *Values) UnmarshalJSON(b []byte) error {
	var m map[string]*float64
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	var out Values
	for name, p := range m {
		c, err := ParseColumn(name)
		if err != nil {
			return err
		}
		out[c] = p
	}
	*v = out
	return nil
}

// Reading is one hourly observation of a station.
type Reading struct {
	No      int       `json:"no,omitempty"`
	Time    time.Time `json:"time"`
	Station string    `json:"station,omitempty"`
	WindDir string    `json:"wd,omitempty"`
	Values  Values    `json:"values"`
}

// Clone returns a copy of r that shares no pointers with it.
func (r Reading) Clone() Reading {
	r.Values = r.Values.Clone()
	return r
}

// Series is an ordered sequence of readings indexed by timestamp.
type Series struct {
	Readings []Reading `json:"readings"`
}

func (s Series) Len() int { return len(s.Readings) }

// Column returns the values of c in row order; nil entries are missing.
func (s Series) Column(c Column) []*float64 {
	out := make([]*float64, len(s.Readings))
	for i := range s.Readings {
		out[i] = s.Readings[i].Values[c]
	}
	return out
}

// Clone returns a deep copy of s.
func (s Series) Clone() Series {
	out := make([]Reading, len(s.Readings))
	for i, r := range s.Readings {
		out[i] = r.Clone()
	}
	return Series{Readings: out}
}

// Span returns the first and last timestamps. Both are zero for an empty series.
func (s Series) Span() (time.Time, time.Time) {
	if len(s.Readings) == 0 {
		return time.Time{}, time.Time{}
	}
	return s.Readings[0].Time, s.Readings[len(s.Readings)-1].Time
}

// MissingCounts returns the number of null values per column.
func (s Series) MissingCounts() map[Column]int {
	out := make(map[Column]int, ColumnCount)
	for c := Column(0); c < ColumnCount; c++ {
		out[c] = 0
	}
	for i := range s.Readings {
		for c := Column(0); c < ColumnCount; c++ {
			if s.Readings[i].Values[c] == nil {
				out[c]++
			}
		}
	}
	return out
}

// Float returns a pointer to f. Handy for building readings in code.
func Float(f float64) *float64 { return &f }
