package controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/charts"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/repository"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/service"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/utils"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

func parseReadingsQuery(r *http.Request) (from time.Time, to time.Time, limit int, err error) {
	q := r.URL.Query()

	if s := q.Get("from"); s != "" {
		from, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, time.Time{}, 0, errors.New("invalid 'from' (expected RFC3339)")
		}
	}
	if s := q.Get("to"); s != "" {
		to, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, time.Time{}, 0, errors.New("invalid 'to' (expected RFC3339)")
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, 0, errors.New("'from' must be <= 'to'")
	}

	limit, err = parseLimit(r)
	if err != nil {
		return time.Time{}, time.Time{}, 0, err
	}
	return from, to, limit, nil
}

func parseLimit(r *http.Request) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid 'limit' (expected integer)")
	}
	if n <= 0 {
		return 0, errors.New("'limit' must be > 0")
	}
	if n > maxLimit {
		return 0, errors.New("'limit' must be <= 1000")
	}
	return n, nil
}

// parseGranularity reads the "granularity" parameter; fallback applies when it is absent.
func parseGranularity(r *http.Request, name string, fallback types.Granularity) (types.Granularity, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return fallback, nil
	}
	return types.ParseGranularity(s)
}

// chartName strips the ".png" extension from the {file} path segment.
func chartName(file string) (string, bool) {
	name, ok := strings.CutSuffix(file, ".png")
	return name, ok && name != ""
}

// undefinedPairs splits a joined ErrUndefinedCorrelation into one message per pair.
func undefinedPairs(err error) []string {
	if err == nil {
		return []string{}
	}
	return strings.Split(err.Error(), "\n")
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrInvalidInput):
		utils.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		utils.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, charts.ErrUnknownChart):
		utils.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, charts.ErrNotEnoughData):
		utils.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrNoStore):
		utils.WriteError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, types.ErrInvalidSchema):
		utils.WriteError(w, http.StatusBadGateway, err.Error())
	default:
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
