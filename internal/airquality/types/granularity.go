package types

import (
	"fmt"
	"strings"
	"time"
)

// Granularity is a fixed calendar window used for resampling.
type Granularity string

const (
	Monthly Granularity = "monthly"
	Annual  Granularity = "annual"
)

// ParseGranularity accepts the long names and the short aliases "M" and "Y".
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly", "month", "m":
		return Monthly, nil
	case "annual", "yearly", "year", "y":
		return Annual, nil
	default:
		return "", fmt.Errorf("%w: unknown granularity %q (allowed: monthly, annual)", ErrInvalidInput, s)
	}
}

// Truncate returns the start of the calendar window containing t, in UTC.
func (g Granularity) Truncate(t time.Time) (time.Time, error) {
	t = t.UTC()
	switch g {
	case Monthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	case Annual:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, fmt.Errorf("%w: unknown granularity %q", ErrInvalidInput, string(g))
	}
}

// Label formats a bucket start for display.
func (g Granularity) Label(start time.Time) string {
	switch g {
	case Annual:
		return start.Format("2006")
	default:
		return start.Format("2006-01")
	}
}
