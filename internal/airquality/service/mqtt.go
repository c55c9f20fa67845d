package service

import (
	"context"
	"time"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
)

const telemetryStoreTimeout = 5 * time.Second

// TelemetrySubscriber attaches a handler to live telemetry messages.
type TelemetrySubscriber interface {
	SetMessageHandler(handler func(telemetry types.Telemetry) error)
}

// Register stores every message the subscriber delivers.
func (s *Service) Register(subscriber TelemetrySubscriber) {
	subscriber.SetMessageHandler(func(telemetry types.Telemetry) error {
		s.logger.Debug("processing telemetry message",
			"station", telemetry.Station,
			"timestamp", telemetry.Timestamp,
		)

		ctx, cancel := context.WithTimeout(context.Background(), telemetryStoreTimeout)
		defer cancel()

		if err := s.StoreTelemetry(ctx, telemetry); err != nil {
			s.logger.Error("failed to store telemetry",
				"station", telemetry.Station,
				"error", err,
			)
			return err
		}

		s.logger.Debug("stored telemetry", "station", telemetry.Station)
		return nil
	})
}
