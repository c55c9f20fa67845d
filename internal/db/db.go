package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/config"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/db/migrate"
)

// slowQuery is the duration after which a statement is logged as a warning.
const slowQuery = 250 * time.Millisecond

// Open connects to the sqlite store described by cfg. With debug logging
// enabled every statement goes through the logging connector.
func Open(cfg config.Config, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	if cfg.LogLevel <= slog.LevelDebug && cfg.SQLiteDriver == "sqlite3" {
		connector, err := NewLoggingConnector(dsn, logger.With("component", "sqlite"), slowQuery)
		if err != nil {
			return nil, err
		}
		db = sql.OpenDB(connector)
	} else {
		db, err = sql.Open(cfg.SQLiteDriver, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	// sqlite serialises writers; a single connection avoids "database is locked".
	if cfg.SQLiteMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.SQLiteMaxOpenConns)
	}
	if cfg.SQLiteMaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.SQLiteMaxIdleConns)
	}
	if cfg.SQLiteConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.SQLiteConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// OpenAndMigrate opens the store and applies pending migrations.
func OpenAndMigrate(cfg config.Config, logger *slog.Logger) (*sql.DB, error) {
	conn, err := Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := migrate.Run(conn, logger); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return conn, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

func buildDSN(cfg config.Config) (string, error) {
	if cfg.SQLiteDSN != "" {
		return cfg.SQLiteDSN, nil
	}

	path := cfg.SQLitePath
	if path == "" {
		return "", fmt.Errorf("sqlite path is empty")
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
	}

	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
