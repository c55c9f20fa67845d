package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"APP_ENV", "LOG_LEVEL", "HTTP_ADDR", "DATA_SOURCE", "HTTP_FETCH_TIMEOUT",
	"REFRESH_INTERVAL", "CACHE_TTL", "PIPELINE_CONFIG", "DB_DRIVER", "SQLITE_DSN",
	"SQLITE_PATH", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME",
	"MQTT_ENABLED", "MQTT_BROKER", "MQTT_PORT", "MQTT_CLIENT_ID", "MQTT_TOPIC",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	if got.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", got.HTTPAddr, ":8080")
	}
	if got.DataSource != "" {
		t.Errorf("DataSource = %q, want empty so the pipeline config decides", got.DataSource)
	}
	if got.RefreshInterval != time.Hour || got.CacheTTL != 2*time.Hour {
		t.Errorf("RefreshInterval/CacheTTL = %v/%v, want 1h/2h", got.RefreshInterval, got.CacheTTL)
	}
	if got.SQLiteDriver != "sqlite3" || got.SQLitePath != "data/airq.db" {
		t.Errorf("sqlite = %q %q", got.SQLiteDriver, got.SQLitePath)
	}
	if got.MQTTEnabled {
		t.Error("MQTTEnabled = true, want false")
	}
	if got.MQTTPort != 1883 {
		t.Errorf("MQTTPort = %d, want 1883", got.MQTTPort)
	}
}

func TestLoadFromEnv_AppEnv(t *testing.T) {
	tests := []struct {
		name    string
		appEnv  string
		want    string
		wantErr bool
	}{
		{name: "dev", appEnv: "dev", want: "dev"},
		{name: "prod", appEnv: "prod", want: "prod"},
		{name: "prod with whitespace", appEnv: "\nprod\t", want: "prod"},
		{name: "staging", appEnv: "staging", wantErr: true},
		{name: "uppercase", appEnv: "DEV", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("APP_ENV", tt.appEnv)

			got, err := LoadFromEnv()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("LoadFromEnv() error = nil, want error")
				}
				if !strings.Contains(err.Error(), "APP_ENV") {
					t.Errorf("error = %q, want mention of APP_ENV", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v, want nil", err)
			}
			if got.AppEnv != tt.want {
				t.Errorf("AppEnv = %q, want %q", got.AppEnv, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_LogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warning", want: slog.LevelWarn},
		{in: " error ", want: slog.LevelError},
		{in: "verbose", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("LOG_LEVEL", tt.in)
			got, err := LoadFromEnv()
			if tt.wantErr {
				if err == nil {
					t.Fatal("LoadFromEnv() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v", err)
			}
			if got.LogLevel != tt.want {
				t.Errorf("LogLevel = %v, want %v", got.LogLevel, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{key: "REFRESH_INTERVAL", value: "soon"},
		{key: "REFRESH_INTERVAL", value: "-1m"},
		{key: "CACHE_TTL", value: "10"},
		{key: "HTTP_FETCH_TIMEOUT", value: "x"},
		{key: "DB_MAX_OPEN_CONNS", value: "many"},
		{key: "DB_CONN_MAX_LIFETIME", value: "forever"},
		{key: "MQTT_ENABLED", value: "maybe"},
		{key: "MQTT_PORT", value: "70000"},
		{key: "MQTT_PORT", value: "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := LoadFromEnv(); err == nil {
				t.Fatalf("LoadFromEnv() with %s=%q: error = nil, want error", tt.key, tt.value)
			}
		})
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_SOURCE", " ./Dataset/tiantan.csv ")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("MQTT_BROKER", "mosquitto")
	t.Setenv("MQTT_TOPIC", "stations/#")
	t.Setenv("CACHE_TTL", "0s")

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if got.DataSource != "./Dataset/tiantan.csv" {
		t.Errorf("DataSource = %q", got.DataSource)
	}
	if !got.MQTTEnabled || got.MQTTBroker != "mosquitto" || got.MQTTTopic != "stations/#" {
		t.Errorf("mqtt = %v %q %q", got.MQTTEnabled, got.MQTTBroker, got.MQTTTopic)
	}
	if got.CacheTTL != 0 {
		t.Errorf("CacheTTL = %v, want 0", got.CacheTTL)
	}
}

func TestLoadPipeline_Defaults(t *testing.T) {
	spec, err := LoadPipeline("")
	if err != nil {
		t.Fatalf("LoadPipeline() error = %v", err)
	}
	if spec.Binning.Moderate != 35 || spec.Binning.High != 75 || spec.Binning.VeryHigh != 150 {
		t.Errorf("Binning = %+v, want 35/75/150", spec.Binning)
	}
	if len(spec.Granularities) != 2 {
		t.Errorf("Granularities = %v", spec.Granularities)
	}
	if _, err := spec.Options(nil); err != nil {
		t.Errorf("Options() error = %v", err)
	}
}

func TestLoadPipeline_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	body := `
source: ./Dataset/tiantan.csv
granularities: [monthly]
correlation_columns: [PM2.5, TEMP, WSPM]
correlation_basis: monthly
binning:
  moderate: 12
  high: 35.5
  very_high: 55.5
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PIPELINE_SOURCE", "https://example.com/data.csv")

	spec, err := LoadPipeline(path)
	if err != nil {
		t.Fatalf("LoadPipeline() error = %v", err)
	}
	if spec.Source != "https://example.com/data.csv" {
		t.Errorf("Source = %q, env must win over file", spec.Source)
	}
	if spec.Binning.VeryHigh != 55.5 {
		t.Errorf("Binning.VeryHigh = %v, want 55.5", spec.Binning.VeryHigh)
	}
	if len(spec.CorrelationColumns) != 3 || spec.CorrelationColumns[2] != "WSPM" {
		t.Errorf("CorrelationColumns = %v", spec.CorrelationColumns)
	}
	if spec.CorrelationBasis != "monthly" {
		t.Errorf("CorrelationBasis = %q", spec.CorrelationBasis)
	}
}

func TestLoadPipeline_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadPipeline(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Fatal("LoadPipeline() error = nil, want error")
		}
	})
	t.Run("bad thresholds", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "p.yaml")
		if err := os.WriteFile(path, []byte("binning:\n  moderate: 100\n  high: 50\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := LoadPipeline(path)
		if err == nil || !strings.Contains(err.Error(), "strictly increasing") {
			t.Fatalf("LoadPipeline() error = %v, want threshold error", err)
		}
	})
}
