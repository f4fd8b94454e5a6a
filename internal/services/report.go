package services

import (
	"context"
	"fmt"
	"time"

	"github.com/hagzilla/apiserver/types"
)

const dateLayout = "2006-01-02"

type ExpenseReader interface {
	ListByUserBetween(ctx context.Context, userID int, start, end time.Time) ([]types.Expense, error)
	Totals(ctx context.Context) ([]types.UserTotal, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

type Report struct {
	UserID   int             `json:"user_id"`
	Username string          `json:"username"`
	From     string          `json:"from"`
	To       string          `json:"to"`
	Expenses []types.Expense `json:"expenses"`
	Total    float64         `json:"total"`
}

type ReportService struct {
	expenses ExpenseReader
	users    UserReader
}

func NewReportService(expenses ExpenseReader, users UserReader) *ReportService {
	return &ReportService{expenses: expenses, users: users}
}

// Monthly covers every day of the given calendar month.
func (s *ReportService) Monthly(ctx context.Context, userID, year, month int) (Report, error) {
	if month < 1 || month > 12 {
		return Report{}, fmt.Errorf("%w: month must be between 1 and 12", ErrInvalidInput)
	}
	if year < 1 {
		return Report{}, fmt.Errorf("%w: year must be positive", ErrInvalidInput)
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return s.build(ctx, userID, start, end)
}

// Period covers start through end, both inclusive.
func (s *ReportService) Period(ctx context.Context, userID int, start, end time.Time) (Report, error) {
	if end.Before(start) {
		return Report{}, fmt.Errorf("%w: end date is before start date", ErrInvalidInput)
	}
	return s.build(ctx, userID, start, end)
}

func (s *ReportService) All(ctx context.Context) ([]types.UserTotal, error) {
	return s.expenses.Totals(ctx)
}

func (s *ReportService) build(ctx context.Context, userID int, start, end time.Time) (Report, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Report{}, err
	}

	expenses, err := s.expenses.ListByUserBetween(ctx, userID, start, end)
	if err != nil {
		return Report{}, err
	}

	var total float64
	for _, e := range expenses {
		total += e.Amount
	}

	return Report{
		UserID:   user.ID,
		Username: user.Username,
		From:     start.Format(dateLayout),
		To:       end.Format(dateLayout),
		Expenses: expenses,
		Total:    total,
	}, nil
}

// ParseDate reads a YYYY-MM-DD date in UTC.
func ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidInput, value)
	}
	return t, nil
}
