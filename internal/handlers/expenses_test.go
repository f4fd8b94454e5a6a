package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hagzilla/apiserver/internal/services"
	"github.com/hagzilla/apiserver/internal/store"
	"github.com/hagzilla/apiserver/types"
)

type stubExpenseService struct {
	expenses  map[int]types.Expense
	budget    float64
	lastInput services.ExpenseInput
	nextID    int
}

func newStubExpenseService(budget float64, expenses ...types.Expense) *stubExpenseService {
	s := &stubExpenseService{expenses: map[int]types.Expense{}, budget: budget, nextID: 10}
	for _, e := range expenses {
		s.expenses[e.ID] = e
	}
	return s
}

func (s *stubExpenseService) owned(userID, id int) (types.Expense, error) {
	e, ok := s.expenses[id]
	if !ok || e.UserID != userID {
		return types.Expense{}, store.ErrNotFound
	}
	return e, nil
}

func (s *stubExpenseService) Create(_ context.Context, userID int, in services.ExpenseInput) (services.ExpenseResult, error) {
	s.lastInput = in
	s.nextID++
	e := types.Expense{ID: s.nextID, UserID: userID, Description: in.Description, Amount: in.Amount, Category: in.Category, Date: in.Date}
	s.expenses[e.ID] = e
	s.budget -= in.Amount
	return services.ExpenseResult{Expense: e, RemainingBudget: s.budget}, nil
}

func (s *stubExpenseService) Get(_ context.Context, userID, id int) (types.Expense, error) {
	return s.owned(userID, id)
}

func (s *stubExpenseService) List(_ context.Context, userID int) ([]types.Expense, error) {
	var out []types.Expense
	for _, e := range s.expenses {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubExpenseService) Update(_ context.Context, userID, id int, in services.ExpenseInput) (services.ExpenseResult, error) {
	e, err := s.owned(userID, id)
	if err != nil {
		return services.ExpenseResult{}, err
	}
	s.budget += e.Amount - in.Amount
	e.Description, e.Amount, e.Category = in.Description, in.Amount, in.Category
	s.expenses[id] = e
	return services.ExpenseResult{Expense: e, RemainingBudget: s.budget}, nil
}

func (s *stubExpenseService) Delete(_ context.Context, userID, id int) (float64, error) {
	e, err := s.owned(userID, id)
	if err != nil {
		return 0, err
	}
	delete(s.expenses, id)
	s.budget += e.Amount
	return s.budget, nil
}

func newExpenseRouter(svc ExpenseService) http.Handler {
	r := chi.NewRouter()
	r.Route("/expenses", func(r chi.Router) {
		ExpenseRouter(r, svc, testAuthMiddleware())
	})
	return r
}

func TestCreateExpense(t *testing.T) {
	svc := newStubExpenseService(100)
	h := newExpenseRouter(svc)

	rec := doRequest(t, h, http.MethodPost, "/expenses", "alice-token",
		jsonBody(`{"description":"groceries","amount":30.5,"category":"Food","date":"2024-02-29"}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	var result services.ExpenseResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 69.5, result.RemainingBudget)
	assert.Equal(t, aliceIdentity.UserID, result.Expense.UserID)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), svc.lastInput.Date)
}

func TestCreateExpenseWithoutDateLeavesItToService(t *testing.T) {
	svc := newStubExpenseService(100)
	rec := doRequest(t, newExpenseRouter(svc), http.MethodPost, "/expenses", "alice-token",
		jsonBody(`{"description":"bus","amount":2,"category":"Transportation"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, svc.lastInput.Date.IsZero())
}

func TestCreateExpenseValidation(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{
			name:      "zero amount",
			body:      `{"description":"x","amount":0,"category":"Food"}`,
			wantError: "amount must be greater than 0",
		},
		{
			name:      "unknown category",
			body:      `{"description":"x","amount":1,"category":"Crypto"}`,
			wantError: "category must be one of: " + "Food, Transportation, Housing, Utilities, Health, Leisure, Dining Out, Clothing, Education, Travel, Savings and Investments, Insurance, Entertainment, Gifts and Donations, Miscellaneous",
		},
		{
			name:      "bad date",
			body:      `{"description":"x","amount":1,"category":"Food","date":"29/02/2024"}`,
			wantError: "date must be a date formatted as 2006-01-02",
		},
		{
			name:      "missing description",
			body:      `{"amount":1,"category":"Food"}`,
			wantError: "description is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, newExpenseRouter(newStubExpenseService(100)), http.MethodPost, "/expenses", "alice-token", jsonBody(tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantError, decodeError(t, rec))
		})
	}
}

func TestExpensesAreScopedToOwner(t *testing.T) {
	svc := newStubExpenseService(100,
		types.Expense{ID: 1, UserID: aliceIdentity.UserID, Description: "mine", Amount: 10, Category: "Food"},
		types.Expense{ID: 2, UserID: adminIdentity.UserID, Description: "theirs", Amount: 20, Category: "Food"},
	)
	h := newExpenseRouter(svc)

	rec := doRequest(t, h, http.MethodGet, "/expenses", "alice-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []types.Expense
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "mine", list[0].Description)

	rec = doRequest(t, h, http.MethodGet, "/expenses/1", "alice-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec = doRequest(t, h, method, "/expenses/2", "alice-token", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, method)
		assert.Equal(t, "expense not found", decodeError(t, rec))
	}

	rec = doRequest(t, h, http.MethodPut, "/expenses/2", "alice-token",
		jsonBody(`{"description":"x","amount":1,"category":"Food"}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, svc.expenses, 2)
}

func TestUpdateAndDeleteExpense(t *testing.T) {
	svc := newStubExpenseService(90,
		types.Expense{ID: 1, UserID: aliceIdentity.UserID, Description: "lunch", Amount: 10, Category: "Food"},
	)
	h := newExpenseRouter(svc)

	rec := doRequest(t, h, http.MethodPut, "/expenses/1", "alice-token",
		jsonBody(`{"description":"dinner","amount":25,"category":"Dining Out"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	var result services.ExpenseResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, float64(75), result.RemainingBudget)
	assert.Equal(t, "dinner", result.Expense.Description)

	rec = doRequest(t, h, http.MethodDelete, "/expenses/1", "alice-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"remaining_budget":100}`, rec.Body.String())
}

func TestExpensesRequireToken(t *testing.T) {
	rec := doRequest(t, newExpenseRouter(newStubExpenseService(0)), http.MethodGet, "/expenses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
