package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hagzilla/apiserver/types"
)

// ExpenseRepository persists expenses. Every write that changes an amount
// also moves the owner's remaining budget inside the same transaction.
type ExpenseRepository struct {
	db *sql.DB
}

func NewExpenseRepository(db *sql.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

const expenseColumns = `id, user_id, description, amount, category, spent_on, created_at, updated_at`

func scanExpense(row rowScanner) (types.Expense, error) {
	var expense types.Expense
	err := row.Scan(
		&expense.ID,
		&expense.UserID,
		&expense.Description,
		&expense.Amount,
		&expense.Category,
		&expense.Date,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Expense{}, ErrNotFound
		}
		return types.Expense{}, err
	}
	return expense, nil
}

// Create inserts the expense and subtracts its amount from the owner's
// budget. It returns the stored expense and the budget left afterwards.
func (r *ExpenseRepository) Create(ctx context.Context, expense types.Expense) (types.Expense, float64, error) {
	now := time.Now()
	expense.CreatedAt = now
	expense.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Expense{}, 0, err
	}
	defer tx.Rollback()

	const insert = `
		INSERT INTO expenses (user_id, description, amount, category, spent_on, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		insert,
		expense.UserID,
		expense.Description,
		expense.Amount,
		expense.Category,
		expense.Date,
		expense.CreatedAt,
		expense.UpdatedAt,
	).Scan(&expense.ID); err != nil {
		return types.Expense{}, 0, err
	}

	remaining, err := adjustBudget(ctx, tx, expense.UserID, -expense.Amount)
	if err != nil {
		return types.Expense{}, 0, err
	}

	if err := tx.Commit(); err != nil {
		return types.Expense{}, 0, err
	}
	return expense, remaining, nil
}

// Get returns ErrNotFound when the expense does not exist or belongs to
// another user.
func (r *ExpenseRepository) Get(ctx context.Context, id, userID int) (types.Expense, error) {
	const query = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1 AND user_id = $2`
	return scanExpense(r.db.QueryRowContext(ctx, query, id, userID))
}

func (r *ExpenseRepository) ListByUser(ctx context.Context, userID int) ([]types.Expense, error) {
	const query = `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE user_id = $1
		ORDER BY spent_on, id`
	return r.list(ctx, query, userID)
}

// ListByUserBetween returns expenses spent on a day in [start, end].
func (r *ExpenseRepository) ListByUserBetween(ctx context.Context, userID int, start, end time.Time) ([]types.Expense, error) {
	const query = `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE user_id = $1 AND spent_on BETWEEN $2 AND $3
		ORDER BY spent_on, id`
	return r.list(ctx, query, userID, start, end)
}

func (r *ExpenseRepository) list(ctx context.Context, query string, args ...any) ([]types.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := []types.Expense{}
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

// Update replaces the expense fields and charges the difference between the
// new and the old amount to the owner's budget.
func (r *ExpenseRepository) Update(ctx context.Context, expense types.Expense) (types.Expense, float64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Expense{}, 0, err
	}
	defer tx.Rollback()

	const lock = `SELECT amount, created_at FROM expenses WHERE id = $1 AND user_id = $2 FOR UPDATE`
	var previous float64
	if err := tx.QueryRowContext(ctx, lock, expense.ID, expense.UserID).Scan(&previous, &expense.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Expense{}, 0, ErrNotFound
		}
		return types.Expense{}, 0, err
	}

	expense.UpdatedAt = time.Now()
	const update = `
		UPDATE expenses
		SET description = $1,
			amount = $2,
			category = $3,
			spent_on = $4,
			updated_at = $5
		WHERE id = $6`
	if _, err := tx.ExecContext(
		ctx,
		update,
		expense.Description,
		expense.Amount,
		expense.Category,
		expense.Date,
		expense.UpdatedAt,
		expense.ID,
	); err != nil {
		return types.Expense{}, 0, err
	}

	remaining, err := adjustBudget(ctx, tx, expense.UserID, previous-expense.Amount)
	if err != nil {
		return types.Expense{}, 0, err
	}

	if err := tx.Commit(); err != nil {
		return types.Expense{}, 0, err
	}
	return expense, remaining, nil
}

// Delete removes the expense and refunds its amount. It returns the budget
// left afterwards.
func (r *ExpenseRepository) Delete(ctx context.Context, id, userID int) (float64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	const del = `DELETE FROM expenses WHERE id = $1 AND user_id = $2 RETURNING amount`
	var amount float64
	if err := tx.QueryRowContext(ctx, del, id, userID).Scan(&amount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	remaining, err := adjustBudget(ctx, tx, userID, amount)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return remaining, nil
}

// Totals aggregates spending for every user, including users without
// expenses.
func (r *ExpenseRepository) Totals(ctx context.Context) ([]types.UserTotal, error) {
	const query = `
		SELECT u.id, u.username, COALESCE(SUM(e.amount), 0), u.budget
		FROM users u
		LEFT JOIN expenses e ON e.user_id = u.id
		GROUP BY u.id, u.username, u.budget
		ORDER BY u.id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := []types.UserTotal{}
	for rows.Next() {
		var total types.UserTotal
		if err := rows.Scan(&total.UserID, &total.Username, &total.TotalExpenses, &total.RemainingBudget); err != nil {
			return nil, err
		}
		totals = append(totals, total)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return totals, nil
}

func adjustBudget(ctx context.Context, tx *sql.Tx, userID int, delta float64) (float64, error) {
	const query = `UPDATE users SET budget = budget + $1, updated_at = $2 WHERE id = $3 RETURNING budget`
	var remaining float64
	if err := tx.QueryRowContext(ctx, query, delta, time.Now(), userID).Scan(&remaining); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("adjust budget: %w", err)
	}
	return remaining, nil
}
