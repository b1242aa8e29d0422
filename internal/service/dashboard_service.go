package service

import (
	"context"
	"time"

	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/kasapp/kas-backend/internal/util"
	"github.com/shopspring/decimal"
)

// DashboardStats is the headline view: total balance across accounts plus
// the month's visible income and expense totals.
type DashboardStats struct {
	TotalBalance   decimal.Decimal `json:"totalBalance"`
	MonthlyIncome  decimal.Decimal `json:"monthlyIncome"`
	MonthlyExpense decimal.Decimal `json:"monthlyExpense"`
	Month          string          `json:"month"`
}

// DashboardService aggregates read-only overview data.
type DashboardService struct {
	accountRepo     domain.AccountRepository
	transactionRepo domain.TransactionRepository
}

func NewDashboardService(accountRepo domain.AccountRepository, transactionRepo domain.TransactionRepository) *DashboardService {
	return &DashboardService{accountRepo: accountRepo, transactionRepo: transactionRepo}
}

// Stats returns totals for the given month ("YYYY-MM"), defaulting to the
// current month. Transactions hidden from summaries (transfer legs) are
// excluded from the income and expense totals.
func (s *DashboardService) Stats(ctx context.Context, userID string, monthStr string) (*DashboardStats, error) {
	var month time.Time
	if monthStr == "" {
		month = util.MonthOf(time.Now().UTC())
	} else {
		var err error
		month, err = util.ParseMonth(monthStr)
		if err != nil {
			return nil, domain.ErrInvalidMonth
		}
	}

	accounts, err := s.accountRepo.GetAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.Balance)
	}

	income, expense, err := s.transactionRepo.SummarizeMonth(ctx, userID, month)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		TotalBalance:   total,
		MonthlyIncome:  income,
		MonthlyExpense: expense,
		Month:          util.FormatMonth(month),
	}, nil
}

// Recent returns the newest transactions, for the dashboard feed.
func (s *DashboardService) Recent(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 || limit > 20 {
		limit = 5
	}
	return s.transactionRepo.List(ctx, userID, &domain.TransactionFilter{Limit: limit})
}
