package httpapi

import (
	"database/sql"
	"net/http"
)

// NewMux returns a mux serving /healthz. Feature packages register their own routes on it.
func NewMux(db *sql.DB, mqtt ConnectionStatus) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db, mqtt)
	return mux
}
