package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// DataSource overrides the pipeline source when set. It is a CSV path or an
	// http(s) URL.
	DataSource       string
	HTTPFetchTimeout time.Duration
	RefreshInterval  time.Duration
	CacheTTL         time.Duration
	// PipelineConfig optionally points to a YAML file read by LoadPipeline.
	PipelineConfig string

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration

	MQTTEnabled  bool
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := envOr("HTTP_ADDR", ":8080")
	dataSource := strings.TrimSpace(os.Getenv("DATA_SOURCE"))

	fetchTimeout, err := durationEnv("HTTP_FETCH_TIMEOUT", "60s")
	if err != nil {
		return Config{}, err
	}
	refresh, err := durationEnv("REFRESH_INTERVAL", "1h")
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := durationEnv("CACHE_TTL", "2h")
	if err != nil {
		return Config{}, err
	}
	if refresh < 0 || cacheTTL < 0 {
		return Config{}, fmt.Errorf("REFRESH_INTERVAL and CACHE_TTL must not be negative")
	}

	driver := envOr("DB_DRIVER", "sqlite3")
	dsn := strings.TrimSpace(os.Getenv("SQLITE_DSN"))
	path := envOr("SQLITE_PATH", "data/airq.db")

	maxOpenConns, err := intEnv("DB_MAX_OPEN_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := intEnv("DB_MAX_IDLE_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := durationEnv("DB_CONN_MAX_LIFETIME", "0s")
	if err != nil {
		return Config{}, err
	}

	mqttEnabled := false
	if s := strings.TrimSpace(os.Getenv("MQTT_ENABLED")); s != "" {
		mqttEnabled, err = strconv.ParseBool(s)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MQTT_ENABLED %q: %w", s, err)
		}
	}
	mqttPort, err := intEnv("MQTT_PORT", "1883")
	if err != nil {
		return Config{}, err
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d (allowed: 1-65535)", mqttPort)
	}

	return Config{
		AppEnv:                appEnv,
		LogLevel:              level,
		HTTPAddr:              httpAddr,
		DataSource:            dataSource,
		HTTPFetchTimeout:      fetchTimeout,
		RefreshInterval:       refresh,
		CacheTTL:              cacheTTL,
		PipelineConfig:        strings.TrimSpace(os.Getenv("PIPELINE_CONFIG")),
		SQLiteDriver:          driver,
		SQLiteDSN:             dsn,
		SQLitePath:            path,
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		MQTTEnabled:           mqttEnabled,
		MQTTBroker:            envOr("MQTT_BROKER", "localhost"),
		MQTTPort:              mqttPort,
		MQTTClientID:          envOr("MQTT_CLIENT_ID", "airq-server"),
		MQTTTopic:             envOr("MQTT_TOPIC", "airq/+/telemetry"),
	}, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key, def string) (int, error) {
	s := envOr(key, def)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func durationEnv(key, def string) (time.Duration, error) {
	s := envOr(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
