package controller

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/charts"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/service"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/views"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/utils"
)

func (c *airQualityControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	res, err := c.service.Result(r.Context())
	if err != nil {
		c.logger.Error("dashboard: analysis failed", "error", err)
		writeServiceError(w, err)
		return
	}
	stations, err := c.service.Stations(r.Context())
	if err != nil && !errors.Is(err, service.ErrNoStore) {
		c.logger.Warn("dashboard: list stations failed", "error", err)
	}

	var buf bytes.Buffer
	if err := views.RenderDashboard(&buf, views.NewDashboardData(res, stations)); err != nil {
		c.logger.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteBody(w, http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (c *airQualityControllerImpl) handleHeatmapPartial(w http.ResponseWriter, r *http.Request) {
	columns, err := types.ParseColumns(utils.SplitList(r.URL.Query().Get("columns")))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	basis, err := parseGranularity(r, "basis", c.service.Options().CorrelationBasis)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := c.service.Correlation(r.Context(), columns, basis)
	if err != nil && !errors.Is(err, types.ErrUndefinedCorrelation) {
		writeServiceError(w, err)
		return
	}
	heatmap := views.NewHeatmap(m)

	var buf bytes.Buffer
	if err := views.RenderHeatmapPartial(&buf, &heatmap); err != nil {
		c.logger.Error("heatmap partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
		return
	}
	utils.WriteBody(w, http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (c *airQualityControllerImpl) handleChart(w http.ResponseWriter, r *http.Request) {
	name, ok := chartName(r.PathValue("file"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	res, err := c.service.Result(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := charts.Render(&buf, name, res); err != nil {
		if !errors.Is(err, charts.ErrUnknownChart) && !errors.Is(err, charts.ErrNotEnoughData) {
			c.logger.Error("chart render failed", "chart", name, "error", err)
		}
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "max-age=300")
	utils.WriteBody(w, http.StatusOK, "image/png", buf.Bytes())
}

func (c *airQualityControllerImpl) handleSummary(w http.ResponseWriter, r *http.Request) {
	res, err := c.service.Result(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"summary":     res.Summary,
		"generatedAt": res.GeneratedAt,
		"durationMs":  res.Duration.Milliseconds(),
	})
}

func (c *airQualityControllerImpl) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := c.service.Refresh(r.Context())
	if err != nil {
		c.logger.Error("refresh failed", "error", err)
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"source":      res.Source,
		"rows":        res.Summary.Rows,
		"generatedAt": res.GeneratedAt,
	})
}

func (c *airQualityControllerImpl) handleResample(w http.ResponseWriter, r *http.Request) {
	g, err := parseGranularity(r, "granularity", types.Monthly)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, err := c.service.Resample(r.Context(), g)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"granularity": g,
		"readings":    s.Readings,
	})
}

func (c *airQualityControllerImpl) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	columns, err := types.ParseColumns(utils.SplitList(r.URL.Query().Get("columns")))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	basis, err := parseGranularity(r, "basis", c.service.Options().CorrelationBasis)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := c.service.Correlation(r.Context(), columns, basis)
	if err != nil && !errors.Is(err, types.ErrUndefinedCorrelation) {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"matrix":    m,
		"undefined": undefinedPairs(err),
	})
}

func (c *airQualityControllerImpl) handleCategories(w http.ResponseWriter, r *http.Request) {
	counts, unclassified, err := c.service.Categories(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"categories":   counts,
		"unclassified": unclassified,
	})
}

func (c *airQualityControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := c.service.Stations(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stations)
}

func (c *airQualityControllerImpl) handleReadings(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseStationID(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	from, to, limit, err := parseReadingsQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	readings, total, err := c.service.StationReadings(r.Context(), id, from, to, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"stationId": id,
		"total":     total,
		"readings":  readings,
	})
}

func (c *airQualityControllerImpl) handleStationAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseStationID(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := c.service.AnalyzeStation(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, res)
}

func (c *airQualityControllerImpl) handleImports(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	runs, err := c.service.Imports(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, runs)
}
