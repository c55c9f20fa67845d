// Package migrate applies the embedded SQLite schema migrations, tracking them
// in a versioned table. Files are named with a 4-digit prefix for order:
// 0001_schema.sql, 0002_import_runs.sql.
package migrate

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"sort"
)

//go:embed sql/*.sql
var sqlFS embed.FS

const (
	migrationsDir = "sql"
	tableName     = "schema_migrations"
)

var migrationFileRe = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

type Migration struct {
	Version string
	Name    string
	Applied bool
	body    string
}

// Run ensures the schema_migrations table exists, then applies pending
// migrations in version order, each in its own transaction.
func Run(db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	all, err := Status(db)
	if err != nil {
		return err
	}
	for _, m := range all {
		if m.Applied {
			continue
		}
		if err := apply(db, m); err != nil {
			return fmt.Errorf("apply %s_%s.sql: %w", m.Version, m.Name, err)
		}
		logger.Info("migration applied", "version", m.Version, "name", m.Name)
	}
	return nil
}

// Status lists every embedded migration and whether it has been applied.
func Status(db *sql.DB) ([]Migration, error) {
	if err := ensureMigrationsTable(db); err != nil {
		return nil, fmt.Errorf("ensure migrations table: %w", err)
	}
	applied, err := appliedVersions(db)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	all, err := embedded()
	if err != nil {
		return nil, err
	}
	for i := range all {
		all[i].Applied = applied[all[i].Version]
	}
	return all, nil
}

func embedded() ([]Migration, error) {
	entries, err := fs.ReadDir(sqlFS, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var out []Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		version, name, ok := parseMigrationFilename(e.Name())
		if !ok {
			continue
		}
		body, err := fs.ReadFile(sqlFS, migrationsDir+"/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		out = append(out, Migration{Version: version, Name: name, body: string(body)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ` + tableName + ` (
			version    TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)
	`)
	return err
}

func appliedVersions(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query("SELECT version FROM " + tableName)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}

func parseMigrationFilename(filename string) (version, name string, ok bool) {
	m := migrationFileRe.FindStringSubmatch(filename)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func apply(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(m.body); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec("INSERT INTO "+tableName+" (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
