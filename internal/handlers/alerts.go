package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hagzilla/apiserver/internal/services"
	"github.com/hagzilla/apiserver/types"
)

type AlertLister interface {
	List(ctx context.Context) ([]services.Alert, error)
}

// AlertRouter exposes the over-budget listing to admins.
func AlertRouter(r chi.Router, alerts AlertLister, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware, RequireRole(types.RoleAdmin))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		list, err := alerts.List(r.Context())
		if err != nil {
			writeServiceError(w, r, err, "no alerts", "failed to list alerts")
			return
		}
		writeJSON(w, http.StatusOK, list)
	})
}
