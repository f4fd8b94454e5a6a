package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hagzilla/apiserver/internal/services"
	"github.com/hagzilla/apiserver/types"
)

type ExpenseService interface {
	Create(ctx context.Context, userID int, in services.ExpenseInput) (services.ExpenseResult, error)
	Get(ctx context.Context, userID, id int) (types.Expense, error)
	List(ctx context.Context, userID int) ([]types.Expense, error)
	Update(ctx context.Context, userID, id int, in services.ExpenseInput) (services.ExpenseResult, error)
	Delete(ctx context.Context, userID, id int) (float64, error)
}

type ExpenseHandler struct {
	expenses ExpenseService
}

func NewExpenseHandler(expenses ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses}
}

// ExpenseRouter registers expense routes. Every route is scoped to the
// caller's own expenses.
func ExpenseRouter(r chi.Router, expenses ExpenseService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewExpenseHandler(expenses)

	r.Use(authMiddleware)
	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Route("/{expenseID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Put("/", handler.Update)
		r.Delete("/", handler.Delete)
	})
}

type ExpenseRequest struct {
	Description string  `json:"description" validate:"required,max=255"`
	Amount      float64 `json:"amount" validate:"gt=0"`
	Category    string  `json:"category" validate:"required,expense_category"`
	Date        string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type DeleteExpenseResponse struct {
	RemainingBudget float64 `json:"remaining_budget"`
}

func (req ExpenseRequest) input() services.ExpenseInput {
	in := services.ExpenseInput{
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
	}
	if req.Date != "" {
		// validated by the datetime tag
		in.Date, _ = time.ParseInLocation("2006-01-02", req.Date, time.UTC)
	}
	return in
}

func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	expenses, err := h.expenses.List(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, err, "expense not found", "failed to list expenses")
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req ExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.expenses.Create(r.Context(), identity.UserID, req.input())
	if err != nil {
		writeServiceError(w, r, err, "user not found", "failed to create expense")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	id, err := parseIDParam(r, "expenseID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	expense, err := h.expenses.Get(r.Context(), identity.UserID, id)
	if err != nil {
		writeServiceError(w, r, err, "expense not found", "failed to fetch expense")
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	id, err := parseIDParam(r, "expenseID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req ExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.expenses.Update(r.Context(), identity.UserID, id, req.input())
	if err != nil {
		writeServiceError(w, r, err, "expense not found", "failed to update expense")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	id, err := parseIDParam(r, "expenseID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	remaining, err := h.expenses.Delete(r.Context(), identity.UserID, id)
	if err != nil {
		writeServiceError(w, r, err, "expense not found", "failed to delete expense")
		return
	}
	writeJSON(w, http.StatusOK, DeleteExpenseResponse{RemainingBudget: remaining})
}
