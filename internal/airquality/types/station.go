package types

import (
	"errors"
	"fmt"
	"time"
)

type Station struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ImportRun records one load of a CSV source into the store.
type ImportRun struct {
	ID         string    `json:"id"`
	StationID  int64     `json:"stationId"`
	Source     string    `json:"source"`
	Rows       int       `json:"rows"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Telemetry is a live air-quality message published by a station over MQTT.
type Telemetry struct {
	Station   string    `json:"station"`
	Timestamp time.Time `json:"timestamp"`
	PM25      *float64  `json:"pm25,omitempty"`
	PM10      *float64  `json:"pm10,omitempty"`
	SO2       *float64  `json:"so2,omitempty"`
	NO2       *float64  `json:"no2,omitempty"`
	CO        *float64  `json:"co,omitempty"`
	O3        *float64  `json:"o3,omitempty"`
	Temp      *float64  `json:"temp,omitempty"`
	Pres      *float64  `json:"pres,omitempty"`
	Dewp      *float64  `json:"dewp,omitempty"`
	Rain      *float64  `json:"rain,omitempty"`
	WSPM      *float64  `json:"wspm,omitempty"`
	WindDir   string    `json:"wd,omitempty"`
}

func (t Telemetry) values() Values {
	var v Values
	v[PM25] = t.PM25
	v[PM10] = t.PM10
	v[SO2] = t.SO2
	v[NO2] = t.NO2
	v[CO] = t.CO
	v[O3] = t.O3
	v[TEMP] = t.Temp
	v[PRES] = t.Pres
	v[DEWP] = t.Dewp
	v[RAIN] = t.Rain
	v[WSPM] = t.WSPM
	return v
}

// Reading converts the message into a reading truncated to the hour, matching the CSV cadence.
func (t Telemetry) Reading() Reading {
	return Reading{
		Time:    t.Timestamp.UTC().Truncate(time.Hour),
		Station: t.Station,
		WindDir: t.WindDir,
		Values:  t.values().Clone(),
	}
}

var pollutants = []Column{PM25, PM10, SO2, NO2, CO, O3}

// Validate checks required fields and physical bounds.
func (t Telemetry) Validate() error {
	if t.Station == "" {
		return errors.New("station is required")
	}
	if t.Timestamp.IsZero() {
		return errors.New("timestamp is required")
	}
	v := t.values()
	present := 0
	for c := Column(0); c < ColumnCount; c++ {
		if v[c] != nil {
			present++
		}
	}
	if present == 0 {
		return errors.New("at least one measurement is required")
	}
	for _, c := range pollutants {
		if f, ok := v.Get(c); ok && f < 0 {
			return fmt.Errorf("%s must be non-negative: %f", c, f)
		}
	}
	if f, ok := v.Get(PRES); ok && f <= 0 {
		return fmt.Errorf("PRES must be positive: %f", f)
	}
	return nil
}
