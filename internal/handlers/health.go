package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hagzilla/apiserver/internal/logger"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthResponse struct {
	State string `json:"state"`
}

func HealthRouter(r chi.Router, db Pinger) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{State: "API is currently running. Please proceed"})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			logger.Get().Warn().Err(err).Msg("readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{State: "database unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, HealthResponse{State: "ok"})
	})
}
