package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/service"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/views"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/config"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/db"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/httpapi"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dataSource", cfg.DataSource,
		"pipelineConfig", cfg.PipelineConfig,
		"refreshInterval", cfg.RefreshInterval,
		"cacheTTL", cfg.CacheTTL,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"sqliteMaxIdleConns", cfg.SQLiteMaxIdleConns,
		"sqliteConnMaxLifetime", cfg.SQLiteConnMaxLifetime,
		"mqttEnabled", cfg.MQTTEnabled,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)

	dbConn, err := db.OpenAndMigrate(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()
	logger.Info("database ready", "path", cfg.SQLitePath)

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	svc, err := airquality.NewService(cfg, dbConn, logger)
	if err != nil {
		return err
	}

	// The interfaces stay nil when MQTT is disabled; a typed nil pointer
	// would report "disconnected" on /healthz.
	var (
		subscriber *mqtt.Subscriber
		telemetry  service.TelemetrySubscriber
		status     httpapi.ConnectionStatus
	)
	if cfg.MQTTEnabled {
		subscriber = mqtt.NewSubscriber(cfg, logger)
		telemetry, status = subscriber, subscriber
	}

	mux := httpapi.NewMux(dbConn, status)
	// The handler is set before Connect so messages queued by the broker
	// right after CONNACK are not dropped.
	airquality.RegisterFeature(mux, svc, telemetry, logger)

	if subscriber != nil {
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			logger.Warn("mqtt connection failed (continuing, retrying in background)", "error", err)
		}
	}

	go svc.RunRefreshLoop(ctx, cfg.RefreshInterval)

	srv := httpapi.NewServer(cfg, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if subscriber != nil {
			subscriber.Disconnect()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if subscriber != nil {
		logger.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
