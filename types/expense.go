package types

import "time"

// Expense is a single spending entry owned by a user.
type Expense struct {
	// ID is the unique identifier of the expense.
	ID int `json:"id" db:"id"`

	// UserID is the owner of the expense.
	UserID int `json:"user_id" db:"user_id"`

	// Description is a free-form label for the expense.
	Description string `json:"description" db:"description"`

	// Amount is the spent amount. Always positive.
	Amount float64 `json:"amount" db:"amount"`

	// Category is one of ExpenseCategories.
	Category string `json:"category" db:"category"`

	// Date is the day the money was spent. Only the calendar date is
	// meaningful; it is stored as a DATE column.
	Date time.Time `json:"date" db:"spent_on"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ExpenseCategories is the fixed list of categories an expense may use.
var ExpenseCategories = []string{
	"Food",
	"Transportation",
	"Housing",
	"Utilities",
	"Health",
	"Leisure",
	"Dining Out",
	"Clothing",
	"Education",
	"Travel",
	"Savings and Investments",
	"Insurance",
	"Entertainment",
	"Gifts and Donations",
	"Miscellaneous",
}

// ValidExpenseCategory reports whether category is in ExpenseCategories.
func ValidExpenseCategory(category string) bool {
	for _, c := range ExpenseCategories {
		if c == category {
			return true
		}
	}
	return false
}

// UserTotal aggregates a user's spending for the all-users report.
type UserTotal struct {
	UserID          int     `json:"user_id"`
	Username        string  `json:"username"`
	TotalExpenses   float64 `json:"total_expenses"`
	RemainingBudget float64 `json:"remaining_budget"`
}
