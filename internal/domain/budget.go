package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Budget is a monthly spending limit for a category. Month is normalized to
// the first day of the month. SpentAmount is a cached aggregate recomputed
// from transactions; it is never set by clients and never incremented.
type Budget struct {
	ID          uuid.UUID       `json:"id"`
	UserID      string          `json:"-"`
	CategoryID  uuid.UUID       `json:"categoryId"`
	Month       time.Time       `json:"month"`
	LimitAmount decimal.Decimal `json:"limitAmount"`
	SpentAmount decimal.Decimal `json:"spentAmount"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// PercentageUsed returns spent as a percentage of the limit.
func (b *Budget) PercentageUsed() float64 {
	if b.LimitAmount.IsZero() {
		return 0
	}
	pct, _ := b.SpentAmount.Div(b.LimitAmount).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}

// Status buckets a budget into safe, warning (>=80%), or over (>=100%).
func (b *Budget) Status() string {
	pct := b.PercentageUsed()
	switch {
	case pct >= 100:
		return "over"
	case pct >= 80:
		return "warning"
	default:
		return "safe"
	}
}

type BudgetRepository interface {
	Create(ctx context.Context, budget *Budget) (*Budget, error)
	GetByID(ctx context.Context, userID string, id uuid.UUID) (*Budget, error)
	GetAll(ctx context.Context, userID string, month *time.Time) ([]*Budget, error)
	GetByCategoryMonthTx(ctx context.Context, tx interface{}, userID string, categoryID uuid.UUID, month time.Time) (*Budget, error)
	UpdateLimit(ctx context.Context, userID string, id uuid.UUID, limit decimal.Decimal) (*Budget, error)
	SetSpentTx(ctx context.Context, tx interface{}, userID string, id uuid.UUID, spent decimal.Decimal) error
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}
