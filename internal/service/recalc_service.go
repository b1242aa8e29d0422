package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// RecalcService owns the two derived-value rules everything else leans on:
// account balances move by signed deltas, and budget spent amounts are always
// recomputed from the surviving transaction rows rather than adjusted
// incrementally.
type RecalcService struct {
	accountRepo     domain.AccountRepository
	budgetRepo      domain.BudgetRepository
	transactionRepo domain.TransactionRepository
}

func NewRecalcService(
	accountRepo domain.AccountRepository,
	budgetRepo domain.BudgetRepository,
	transactionRepo domain.TransactionRepository,
) *RecalcService {
	return &RecalcService{
		accountRepo:     accountRepo,
		budgetRepo:      budgetRepo,
		transactionRepo: transactionRepo,
	}
}

// UpdateBalance applies a signed delta to the account balance inside the
// caller's transaction.
func (s *RecalcService) UpdateBalance(ctx context.Context, tx interface{}, userID string, accountID uuid.UUID, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	return s.accountRepo.AddToBalanceTx(ctx, tx, userID, accountID, delta)
}

// RecalculateSpent recomputes the spent amount of the budget covering
// (category, month) from scratch. A missing budget is not an error; months
// without budgets are simply untracked.
func (s *RecalcService) RecalculateSpent(ctx context.Context, tx interface{}, userID string, categoryID uuid.UUID, month time.Time) error {
	budget, err := s.budgetRepo.GetByCategoryMonthTx(ctx, tx, userID, categoryID, month)
	if err != nil {
		if errors.Is(err, domain.ErrBudgetNotFound) || errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	spent, err := s.transactionRepo.SumExpensesTx(ctx, tx, userID, categoryID, month)
	if err != nil {
		return err
	}

	return s.budgetRepo.SetSpentTx(ctx, tx, userID, budget.ID, spent)
}

// RecalculateWindows re-derives spent for each distinct (category, month)
// window, deduplicating as it goes.
func (s *RecalcService) RecalculateWindows(ctx context.Context, tx interface{}, userID string, windows []domain.CategoryMonth) error {
	seen := make(map[domain.CategoryMonth]bool, len(windows))
	for _, w := range windows {
		if seen[w] {
			continue
		}
		seen[w] = true
		if err := s.RecalculateSpent(ctx, tx, userID, w.CategoryID, w.Month); err != nil {
			return err
		}
	}
	return nil
}
