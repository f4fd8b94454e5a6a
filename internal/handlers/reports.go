package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hagzilla/apiserver/internal/services"
	"github.com/hagzilla/apiserver/types"
)

type ReportService interface {
	Monthly(ctx context.Context, userID, year, month int) (services.Report, error)
	Period(ctx context.Context, userID int, start, end time.Time) (services.Report, error)
	All(ctx context.Context) ([]types.UserTotal, error)
}

type ReportHandler struct {
	reports ReportService
}

func NewReportHandler(reports ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

func ReportRouter(r chi.Router, reports ReportService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewReportHandler(reports)

	r.Use(authMiddleware)
	r.Get("/monthly/{userID}", handler.Monthly)
	r.Get("/period/{userID}", handler.Period)
	r.With(RequireRole(types.RoleAdmin)).Get("/all", handler.All)
}

// ownUserID reads the userID path parameter and checks it against the
// caller. It writes the error response itself and reports false on failure.
func ownUserID(w http.ResponseWriter, r *http.Request) (int, bool) {
	userID, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	identity, _ := IdentityFromContext(r.Context())
	if identity.UserID != userID {
		writeError(w, http.StatusForbidden, "Not enough privileges")
		return 0, false
	}
	return userID, true
}

func (h *ReportHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownUserID(w, r)
	if !ok {
		return
	}

	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month")
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}

	report, err := h.reports.Monthly(r.Context(), userID, year, month)
	if err != nil {
		writeServiceError(w, r, err, "user not found", "failed to build report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *ReportHandler) Period(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownUserID(w, r)
	if !ok {
		return
	}

	start, err := services.ParseDate(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := services.ParseDate(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.reports.Period(r.Context(), userID, start, end)
	if err != nil {
		writeServiceError(w, r, err, "user not found", "failed to build report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *ReportHandler) All(w http.ResponseWriter, r *http.Request) {
	totals, err := h.reports.All(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "user not found", "failed to build report")
		return
	}
	writeJSON(w, http.StatusOK, totals)
}
