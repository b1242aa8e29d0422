package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kasapp/kas-backend/internal/domain"
)

// BudgetRepository implements domain.BudgetRepository using PostgreSQL
type BudgetRepository struct {
	pool *pgxpool.Pool
}

// NewBudgetRepository creates a new BudgetRepository
func NewBudgetRepository(pool *pgxpool.Pool) *BudgetRepository {
	return &BudgetRepository{pool: pool}
}

const budgetColumns = `id, user_id, category_id, month, limit_amount, spent_amount, created_at, updated_at`

func scanBudget(row pgx.Row) (*domain.Budget, error) {
	var b domain.Budget
	var month time.Time
	var limit, spent pgtype.Numeric
	if err := row.Scan(&b.ID, &b.UserID, &b.CategoryID, &month, &limit, &spent, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Month = time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	b.LimitAmount = pgNumericToDecimal(limit)
	b.SpentAmount = pgNumericToDecimal(spent)
	return &b, nil
}

// Create creates a new budget
func (r *BudgetRepository) Create(ctx context.Context, budget *domain.Budget) (*domain.Budget, error) {
	limit, err := decimalToPgNumeric(budget.LimitAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid limit amount: %w", err)
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO budgets (user_id, category_id, month, limit_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING `+budgetColumns,
		budget.UserID, budget.CategoryID, budget.Month, limit)
	created, err := scanBudget(row)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return nil, domain.ErrBudgetExists
		}
		if isPgError(err, pgForeignKeyViolation) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a budget by its ID for a user
func (r *BudgetRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.Budget, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+budgetColumns+` FROM budgets WHERE user_id = $1 AND id = $2`,
		userID, id)
	budget, err := scanBudget(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBudgetNotFound
		}
		return nil, err
	}
	return budget, nil
}

// GetAll retrieves all budgets for a user, optionally for one month
func (r *BudgetRepository) GetAll(ctx context.Context, userID string, month *time.Time) ([]*domain.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE user_id = $1`
	args := []any{userID}
	if month != nil {
		query += ` AND month = $2`
		args = append(args, *month)
	}
	query += ` ORDER BY month DESC, created_at`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Budget
	for rows.Next() {
		budget, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, budget)
	}
	return result, rows.Err()
}

// GetByCategoryMonthTx finds the budget for (user, category, month) within
// the caller's transaction.
func (r *BudgetRepository) GetByCategoryMonthTx(ctx context.Context, tx interface{}, userID string, categoryID uuid.UUID, month time.Time) (*domain.Budget, error) {
	row := runner(r.pool, tx).QueryRow(ctx, `
		SELECT `+budgetColumns+` FROM budgets
		WHERE user_id = $1 AND category_id = $2 AND month = $3`,
		userID, categoryID, month)
	budget, err := scanBudget(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBudgetNotFound
		}
		return nil, err
	}
	return budget, nil
}

// UpdateLimit sets a new spending limit, keeping the cached spent amount.
func (r *BudgetRepository) UpdateLimit(ctx context.Context, userID string, id uuid.UUID, limit decimal.Decimal) (*domain.Budget, error) {
	num, err := decimalToPgNumeric(limit)
	if err != nil {
		return nil, fmt.Errorf("invalid limit amount: %w", err)
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE budgets SET limit_amount = $3, updated_at = now()
		WHERE user_id = $1 AND id = $2
		RETURNING `+budgetColumns,
		userID, id, num)
	budget, err := scanBudget(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBudgetNotFound
		}
		return nil, err
	}
	return budget, nil
}

// SetSpentTx overwrites the cached spent amount within the caller's
// transaction.
func (r *BudgetRepository) SetSpentTx(ctx context.Context, tx interface{}, userID string, id uuid.UUID, spent decimal.Decimal) error {
	num, err := decimalToPgNumeric(spent)
	if err != nil {
		return fmt.Errorf("invalid spent amount: %w", err)
	}
	tag, err := runner(r.pool, tx).Exec(ctx, `
		UPDATE budgets SET spent_amount = $3, updated_at = now()
		WHERE user_id = $1 AND id = $2`,
		userID, id, num)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBudgetNotFound
	}
	return nil
}

// Delete removes a budget
func (r *BudgetRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM budgets WHERE user_id = $1 AND id = $2`,
		userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBudgetNotFound
	}
	return nil
}
