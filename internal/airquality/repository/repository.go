package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
)

//go:embed sql/upsert-station.sql
var upsertStationSQL string

//go:embed sql/get-stations.sql
var getStationsSQL string

//go:embed sql/get-station.sql
var getStationSQL string

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/merge-reading.sql
var mergeReadingSQL string

//go:embed sql/get-readings.sql
var getReadingsSQL string

//go:embed sql/count-readings.sql
var countReadingsSQL string

//go:embed sql/insert-import-run.sql
var insertImportRunSQL string

//go:embed sql/list-import-runs.sql
var listImportRunsSQL string

var ErrNotFound = errors.New("not found")

// Origin tags how a reading entered the store.
type Origin string

const (
	OriginCSV  Origin = "csv"
	OriginMQTT Origin = "mqtt"
)

type AirQualityRepository interface {
	UpsertStation(ctx context.Context, name string) (types.Station, error)
	GetStations(ctx context.Context) ([]types.Station, error)
	GetStation(ctx context.Context, id int64) (types.Station, error)
	InsertReadings(ctx context.Context, stationID int64, readings []types.Reading, origin Origin) (int, error)
	InsertReading(ctx context.Context, r types.Reading, origin Origin) error
	GetReadings(ctx context.Context, stationID int64, from, to time.Time, limit int) ([]types.Reading, error)
	CountReadings(ctx context.Context, stationID int64, from, to time.Time) (int, error)
	RecordImport(ctx context.Context, run types.ImportRun) error
	ListImports(ctx context.Context, limit int) ([]types.ImportRun, error)
}

type repositoryImpl struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRepository(db *sql.DB, logger *slog.Logger) AirQualityRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &repositoryImpl{db: db, logger: logger}
}

func (r *repositoryImpl) UpsertStation(ctx context.Context, name string) (types.Station, error) {
	if name == "" {
		return types.Station{}, fmt.Errorf("%w: station name is empty", types.ErrInvalidInput)
	}
	var s types.Station
	if err := r.db.QueryRowContext(ctx, upsertStationSQL, name).Scan(&s.ID, &s.Name); err != nil {
		return types.Station{}, fmt.Errorf("upsert station %q: %w", name, err)
	}
	return s, nil
}

func (r *repositoryImpl) GetStations(ctx context.Context) ([]types.Station, error) {
	rows, err := r.db.QueryContext(ctx, getStationsSQL)
	if err != nil {
		return nil, err
	}
	defer r.closeRows(rows, "stations")
	var out []types.Station
	for rows.Next() {
		var s types.Station
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetStation(ctx context.Context, id int64) (types.Station, error) {
	var s types.Station
	err := r.db.QueryRowContext(ctx, getStationSQL, id).Scan(&s.ID, &s.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Station{}, fmt.Errorf("station %d: %w", id, ErrNotFound)
	}
	return s, err
}

// InsertReadings upserts readings for one station in a single transaction.
// Rows are keyed on (station, timestamp): a later reading with the same
// timestamp replaces the earlier one, so the returned count is the number of
// distinct timestamps stored, not len(readings).
func (r *repositoryImpl) InsertReadings(ctx context.Context, stationID int64, readings []types.Reading, origin Origin) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertReadingSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("prepare insert reading: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	stored := make(map[string]struct{}, len(readings))
	for i := range readings {
		if _, err := stmt.ExecContext(ctx, readingArgs(stationID, &readings[i], origin)...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert reading %s: %w", readings[i].Time.Format(time.RFC3339), err)
		}
		stored[formatTime(readings[i].Time)] = struct{}{}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(stored), nil
}

// InsertReading stores one reading, creating its station by name if needed.
// Readings that land on an hour already stored are merged into it: non-null
// values overwrite, nulls keep what is there.
func (r *repositoryImpl) InsertReading(ctx context.Context, reading types.Reading, origin Origin) error {
	station, err := r.UpsertStation(ctx, reading.Station)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, mergeReadingSQL, readingArgs(station.ID, &reading, origin)...); err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// GetReadings returns readings in ascending time order. Zero from/to leave the
// range open; limit <= 0 means no limit.
func (r *repositoryImpl) GetReadings(ctx context.Context, stationID int64, from, to time.Time, limit int) ([]types.Reading, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, getReadingsSQL, stationID, formatBound(from), formatBound(to), limit)
	if err != nil {
		return nil, err
	}
	defer r.closeRows(rows, "readings")
	return scanReadings(rows)
}

func (r *repositoryImpl) CountReadings(ctx context.Context, stationID int64, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countReadingsSQL, stationID, formatBound(from), formatBound(to)).Scan(&n)
	return n, err
}

func (r *repositoryImpl) RecordImport(ctx context.Context, run types.ImportRun) error {
	_, err := r.db.ExecContext(ctx, insertImportRunSQL,
		run.ID,
		run.StationID,
		run.Source,
		run.Rows,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("record import %s: %w", run.ID, err)
	}
	return nil
}

func (r *repositoryImpl) ListImports(ctx context.Context, limit int) ([]types.ImportRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, listImportRunsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer r.closeRows(rows, "import runs")

	var out []types.ImportRun
	for rows.Next() {
		var (
			run               types.ImportRun
			started, finished string
		)
		if err := rows.Scan(&run.ID, &run.StationID, &run.Source, &run.Rows, &started, &finished); err != nil {
			return nil, err
		}
		if run.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if run.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		r.logger.Error("close rows", "what", what, "error", err)
	}
}

func readingArgs(stationID int64, rd *types.Reading, origin Origin) []any {
	args := make([]any, 0, 16)
	args = append(args, stationID, formatTime(rd.Time))
	if rd.No > 0 {
		args = append(args, rd.No)
	} else {
		args = append(args, nil)
	}
	for _, c := range []types.Column{types.PM25, types.PM10, types.SO2, types.NO2, types.CO, types.O3, types.TEMP, types.PRES, types.DEWP, types.RAIN} {
		args = append(args, nullable(rd.Values, c))
	}
	var wd any
	if rd.WindDir != "" {
		wd = rd.WindDir
	}
	args = append(args, wd, nullable(rd.Values, types.WSPM), string(origin))
	return args
}

func nullable(v types.Values, c types.Column) any {
	if f, ok := v.Get(c); ok {
		return f
	}
	return nil
}

func scanReadings(rows *sql.Rows) ([]types.Reading, error) {
	var out []types.Reading
	for rows.Next() {
		var (
			rec  types.Reading
			ts   string
			no   sql.NullInt64
			wd   sql.NullString
			vals [types.ColumnCount]sql.NullFloat64
		)
		err := rows.Scan(&rec.Station, &ts, &no,
			&vals[types.PM25], &vals[types.PM10], &vals[types.SO2], &vals[types.NO2], &vals[types.CO],
			&vals[types.O3], &vals[types.TEMP], &vals[types.PRES], &vals[types.DEWP], &vals[types.RAIN],
			&wd, &vals[types.WSPM],
		)
		if err != nil {
			return nil, err
		}
		if rec.Time, err = parseTime(ts); err != nil {
			return nil, err
		}
		rec.No = int(no.Int64)
		rec.WindDir = wd.String
		for c, v := range vals {
			if v.Valid {
				rec.Values.Set(types.Column(c), v.Float64)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatBound(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
