package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/outstaff/outstaff/internal/db/models"
)

const expenseColumns = `id, org_id, user_id, description, category, amount, expense_date, created_at, updated_at`

// ExpenseRepository handles database operations for expenses
type ExpenseRepository struct {
	db *sqlx.DB
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sqlx.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create inserts an expense
func (r *ExpenseRepository) Create(ctx context.Context, e *models.Expense) error {
	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO expenses (org_id, user_id, description, category, amount, expense_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		e.OrgID, e.UserID, e.Description, e.Category, e.Amount, e.ExpenseDate.Format(models.DateLayout),
		e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// ListForUser returns a member's expenses in the organization, newest first, with their total
func (r *ExpenseRepository) ListForUser(ctx context.Context, orgID, userID int64) ([]*models.Expense, float64, error) {
	expenses := make([]*models.Expense, 0)
	if err := r.db.SelectContext(ctx, &expenses, `
		SELECT `+expenseColumns+` FROM expenses
		WHERE org_id = $1 AND user_id = $2
		ORDER BY expense_date DESC, id DESC`, orgID, userID); err != nil {
		return nil, 0, fmt.Errorf("failed to list expenses: %w", err)
	}

	var total float64
	for _, e := range expenses {
		total += e.Amount
	}
	return expenses, total, nil
}
