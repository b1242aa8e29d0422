package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/kasapp/kas-backend/internal/events"
	"github.com/kasapp/kas-backend/internal/util"
	"github.com/shopspring/decimal"
)

// BudgetService manages monthly per-category budgets. Spent amounts are never
// edited directly; they are re-derived from transactions by the recalculator.
type BudgetService struct {
	uow          domain.UnitOfWork
	budgetRepo   domain.BudgetRepository
	categoryRepo domain.CategoryRepository
	recalc       *RecalcService
	publisher    events.Publisher
}

func NewBudgetService(
	uow domain.UnitOfWork,
	budgetRepo domain.BudgetRepository,
	categoryRepo domain.CategoryRepository,
	recalc *RecalcService,
	publisher events.Publisher,
) *BudgetService {
	return &BudgetService{
		uow:          uow,
		budgetRepo:   budgetRepo,
		categoryRepo: categoryRepo,
		recalc:       recalc,
		publisher:    publisher,
	}
}

// CreateBudgetInput carries the fields for a new budget. Month is "YYYY-MM".
type CreateBudgetInput struct {
	CategoryID  uuid.UUID
	Month       string
	LimitAmount decimal.Decimal
}

// Create stores the budget and immediately derives its spent amount from any
// expenses already recorded in the window.
func (s *BudgetService) Create(ctx context.Context, userID string, input CreateBudgetInput) (*domain.Budget, error) {
	month, err := util.ParseMonth(input.Month)
	if err != nil {
		return nil, domain.ErrInvalidMonth
	}
	if !input.LimitAmount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if _, err := s.categoryRepo.GetByID(ctx, userID, input.CategoryID); err != nil {
		return nil, err
	}
	if _, err := s.budgetRepo.GetByCategoryMonthTx(ctx, nil, userID, input.CategoryID, month); err == nil {
		return nil, domain.ErrBudgetExists
	} else if !errors.Is(err, domain.ErrBudgetNotFound) && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	budget, err := s.budgetRepo.Create(ctx, &domain.Budget{
		UserID:      userID,
		CategoryID:  input.CategoryID,
		Month:       month,
		LimitAmount: input.LimitAmount,
		SpentAmount: decimal.Zero,
	})
	if err != nil {
		return nil, err
	}

	err = s.uow.Run(ctx, func(tx interface{}) error {
		return s.recalc.RecalculateSpent(ctx, tx, userID, input.CategoryID, month)
	})
	if err != nil {
		return nil, err
	}

	// Re-read so the caller sees the derived spent amount.
	return s.budgetRepo.GetByID(ctx, userID, budget.ID)
}

func (s *BudgetService) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.Budget, error) {
	return s.budgetRepo.GetByID(ctx, userID, id)
}

// GetAll lists budgets, optionally restricted to one month ("YYYY-MM").
func (s *BudgetService) GetAll(ctx context.Context, userID string, monthStr string) ([]*domain.Budget, error) {
	var month *time.Time
	if monthStr != "" {
		m, err := util.ParseMonth(monthStr)
		if err != nil {
			return nil, domain.ErrInvalidMonth
		}
		month = &m
	}
	return s.budgetRepo.GetAll(ctx, userID, month)
}

// UpdateLimit changes the budget's limit. Category and month are immutable;
// delete and recreate to move a budget.
func (s *BudgetService) UpdateLimit(ctx context.Context, userID string, id uuid.UUID, limit decimal.Decimal) (*domain.Budget, error) {
	if !limit.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	updated, err := s.budgetRepo.UpdateLimit(ctx, userID, id, limit)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(userID, events.BudgetUpdated(updated))
	return updated, nil
}

func (s *BudgetService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	return s.budgetRepo.Delete(ctx, userID, id)
}
