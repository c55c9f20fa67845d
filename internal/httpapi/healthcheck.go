package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/utils"
)

// ConnectionStatus reports whether a background client is connected.
type ConnectionStatus interface {
	IsConnected() bool
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	db   *sql.DB
	mqtt ConnectionStatus
}

// NewHealthchecker checks db and mqtt; either may be nil when the feature is disabled.
func NewHealthchecker(db *sql.DB, mqtt ConnectionStatus) healthchecker {
	return &healthcheckerImpl{db: db, mqtt: mqtt}
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok", "database": "disabled", "mqtt": "disabled"}

	if h.db != nil {
		var ok int
		if err := h.db.QueryRowContext(r.Context(), `SELECT 1`).Scan(&ok); err != nil {
			slog.Error("failed to check database connectivity", "error", err)
			utils.WriteError(w, http.StatusInternalServerError, "failed to check database connectivity")
			return
		}
		body["database"] = "ok"
	}

	// A lost broker connection degrades ingest but the API still serves.
	if h.mqtt != nil {
		body["mqtt"] = "connected"
		if !h.mqtt.IsConnected() {
			body["mqtt"] = "disconnected"
		}
	}
	utils.WriteJSON(w, http.StatusOK, body)
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB, mqtt ConnectionStatus) {
	healthchecker := NewHealthchecker(db, mqtt)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
