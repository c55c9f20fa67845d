package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
)

// Source loads a station's stored readings so the pipeline can analyse data
// imported earlier or received over MQTT. It satisfies loader.Source.
type Source struct {
	Repo      AirQualityRepository
	StationID int64
	From, To  time.Time
}

func (s Source) Load(ctx context.Context) (types.Series, error) {
	readings, err := s.Repo.GetReadings(ctx, s.StationID, s.From, s.To, 0)
	if err != nil {
		return types.Series{}, fmt.Errorf("load station %d: %w", s.StationID, err)
	}
	return types.Series{Readings: readings}, nil
}

func (s Source) String() string {
	return fmt.Sprintf("sqlite:station/%d", s.StationID)
}
