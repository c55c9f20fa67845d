// Package loader reads station CSV exports from disk or over HTTP.
package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/cleaner"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
)

// Source produces a raw (uncleaned) series with derived timestamps.
type Source interface {
	Load(ctx context.Context) (types.Series, error)
	String() string
}

// NaNValues are the cell contents treated as missing.
var NaNValues = []string{"", "NA", "NaN", "nan", "null", "<nil>"}

func columnTypes() map[string]series.Type {
	m := map[string]series.Type{
		"No":      series.Int,
		"year":    series.Int,
		"month":   series.Int,
		"day":     series.Int,
		"hour":    series.Int,
		"wd":      series.String,
		"station": series.String,
	}
	for _, c := range types.Columns() {
		m[c.String()] = series.Float
	}
	return m
}

// ReadFrame parses a CSV stream into a frame with the known columns typed.
// Unknown columns are kept as strings.
func ReadFrame(r io.Reader) (dataframe.DataFrame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(columnTypes()),
		dataframe.NaNValues(NaNValues),
	)
	if df.Err != nil {
		return df, fmt.Errorf("parse csv: %w", df.Err)
	}
	return df, nil
}

// Read parses r and derives the series.
func Read(r io.Reader) (types.Series, error) {
	df, err := ReadFrame(r)
	if err != nil {
		return types.Series{}, err
	}
	return cleaner.FromFrame(df)
}

// File loads a CSV from the local filesystem.
type File struct {
	Path string
}

func (f File) Load(ctx context.Context) (types.Series, error) {
	if err := ctx.Err(); err != nil {
		return types.Series{}, err
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return types.Series{}, fmt.Errorf("open %s: %w", f.Path, err)
	}
	defer fh.Close()
	return Read(fh)
}

func (f File) String() string { return f.Path }

// URL fetches a CSV over HTTP(S).
type URL struct {
	URL    string
	Client *http.Client
}

func (u URL) Load(ctx context.Context) (types.Series, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.URL, nil)
	if err != nil {
		return types.Series{}, fmt.Errorf("build request: %w", err)
	}
	client := u.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return types.Series{}, fmt.Errorf("fetch %s: %w", u.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.Series{}, fmt.Errorf("fetch %s: unexpected status %s", u.URL, resp.Status)
	}
	return Read(resp.Body)
}

func (u URL) String() string { return u.URL }

// Open picks a Source for location: http(s) URLs are fetched with client,
// anything else is a file path.
func Open(location string, client *http.Client) Source {
	location = strings.TrimSpace(location)
	lower := strings.ToLower(location)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return URL{URL: location, Client: client}
	}
	return File{Path: strings.TrimPrefix(location, "file://")}
}

// Static serves an in-memory series. Used by tests and by callers that
// already hold readings.
type Static struct {
	Name   string
	Series types.Series
}

func (s Static) Load(ctx context.Context) (types.Series, error) {
	if err := ctx.Err(); err != nil {
		return types.Series{}, err
	}
	return s.Series.Clone(), nil
}

func (s Static) String() string { return s.Name }
