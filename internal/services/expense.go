package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hagzilla/apiserver/internal/metrics"
	"github.com/hagzilla/apiserver/types"
)

type ExpenseRepository interface {
	Create(ctx context.Context, expense types.Expense) (types.Expense, float64, error)
	Get(ctx context.Context, id, userID int) (types.Expense, error)
	ListByUser(ctx context.Context, userID int) ([]types.Expense, error)
	ListByUserBetween(ctx context.Context, userID int, start, end time.Time) ([]types.Expense, error)
	Update(ctx context.Context, expense types.Expense) (types.Expense, float64, error)
	Delete(ctx context.Context, id, userID int) (float64, error)
	Totals(ctx context.Context) ([]types.UserTotal, error)
}

type BudgetNotifier interface {
	NotifyBudgetExceeded(ctx context.Context, event BudgetExceeded)
}

// ExpenseInput carries the writable fields of an expense. A zero Date means
// today (UTC).
type ExpenseInput struct {
	Description string
	Amount      float64
	Category    string
	Date        time.Time
}

type ExpenseResult struct {
	Expense         types.Expense `json:"expense"`
	RemainingBudget float64       `json:"remaining_budget"`
}

// ExpenseService scopes every operation to the owning user; another user's
// expense behaves as if it did not exist.
type ExpenseService struct {
	repo   ExpenseRepository
	alerts BudgetNotifier
	now    func() time.Time
}

func NewExpenseService(repo ExpenseRepository, alerts BudgetNotifier) *ExpenseService {
	return &ExpenseService{repo: repo, alerts: alerts, now: time.Now}
}

func (s *ExpenseService) Create(ctx context.Context, userID int, in ExpenseInput) (ExpenseResult, error) {
	expense, err := s.build(userID, in)
	if err != nil {
		return ExpenseResult{}, err
	}

	expense, remaining, err := s.repo.Create(ctx, expense)
	if err != nil {
		return ExpenseResult{}, err
	}
	metrics.ExpensesCreatedTotal.WithLabelValues(expense.Category).Inc()

	s.checkBudget(ctx, expense, remaining)
	return ExpenseResult{Expense: expense, RemainingBudget: remaining}, nil
}

func (s *ExpenseService) Get(ctx context.Context, userID, id int) (types.Expense, error) {
	return s.repo.Get(ctx, id, userID)
}

func (s *ExpenseService) List(ctx context.Context, userID int) ([]types.Expense, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *ExpenseService) Update(ctx context.Context, userID, id int, in ExpenseInput) (ExpenseResult, error) {
	expense, err := s.build(userID, in)
	if err != nil {
		return ExpenseResult{}, err
	}
	expense.ID = id

	expense, remaining, err := s.repo.Update(ctx, expense)
	if err != nil {
		return ExpenseResult{}, err
	}

	s.checkBudget(ctx, expense, remaining)
	return ExpenseResult{Expense: expense, RemainingBudget: remaining}, nil
}

// Delete refunds the amount and returns the budget left afterwards.
func (s *ExpenseService) Delete(ctx context.Context, userID, id int) (float64, error) {
	return s.repo.Delete(ctx, id, userID)
}

func (s *ExpenseService) build(userID int, in ExpenseInput) (types.Expense, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return types.Expense{}, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if in.Amount <= 0 {
		return types.Expense{}, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if !types.ValidExpenseCategory(in.Category) {
		return types.Expense{}, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, in.Category)
	}

	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	y, m, d := date.UTC().Date()

	return types.Expense{
		UserID:      userID,
		Description: description,
		Amount:      in.Amount,
		Category:    in.Category,
		Date:        time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (s *ExpenseService) checkBudget(ctx context.Context, expense types.Expense, remaining float64) {
	if remaining >= 0 || s.alerts == nil {
		return
	}
	s.alerts.NotifyBudgetExceeded(ctx, BudgetExceeded{
		UserID:          expense.UserID,
		ExpenseID:       expense.ID,
		Amount:          expense.Amount,
		RemainingBudget: remaining,
		OccurredAt:      s.now().UTC(),
	})
}
