package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// ValidTransactionType reports whether t is income or expense.
func ValidTransactionType(t TransactionType) bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Transaction is a single ledger entry. Amount is always positive; the sign
// of its balance effect is implied by Type. Transfer legs carry IsTransfer
// plus a shared TransferGroupID and default to HideFromSummary so budget and
// dashboard aggregates skip them.
type Transaction struct {
	ID              uuid.UUID       `json:"id"`
	UserID          string          `json:"-"`
	Date            time.Time       `json:"date"`
	Type            TransactionType `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	CategoryID      uuid.UUID       `json:"categoryId"`
	AccountID       uuid.UUID       `json:"accountId"`
	Description     string          `json:"description"`
	IsTransfer      bool            `json:"isTransfer"`
	TransferGroupID *uuid.UUID      `json:"transferGroupId,omitempty"`
	HideFromSummary bool            `json:"hideFromSummary"`
	ReceiptKey      *string         `json:"receiptKey,omitempty"`
	Tags            []*Tag          `json:"tags"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`

	// Joined names, populated on reads for display.
	CategoryName *string `json:"categoryName,omitempty"`
	AccountName  *string `json:"accountName,omitempty"`
}

// BalanceDelta is the signed effect of the transaction on its account:
// income adds, expense subtracts.
func (t *Transaction) BalanceDelta() decimal.Decimal {
	if t.Type == TransactionTypeIncome {
		return t.Amount
	}
	return t.Amount.Neg()
}

// TransactionFilter narrows List results. Month is YYYY-MM.
type TransactionFilter struct {
	Search     string
	Type       *TransactionType
	CategoryID *uuid.UUID
	AccountID  *uuid.UUID
	Month      string
	Skip       int
	Limit      int
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// CategoryMonth identifies one budget window touched by a bulk mutation.
type CategoryMonth struct {
	CategoryID uuid.UUID
	Month      time.Time
}

// BulkDeleteEffect summarizes a bulk delete for the orchestrating service:
// signed balance reversals per account and the budget windows to recompute.
type BulkDeleteEffect struct {
	Deleted        int
	AccountDeltas  map[uuid.UUID]decimal.Decimal
	CategoryMonths []CategoryMonth
}

type TransactionRepository interface {
	// CreateTx inserts the transaction and its tag links.
	CreateTx(ctx context.Context, tx interface{}, t *Transaction) (*Transaction, error)
	GetByID(ctx context.Context, userID string, id uuid.UUID) (*Transaction, error)
	List(ctx context.Context, userID string, filter *TransactionFilter) ([]*Transaction, error)
	Count(ctx context.Context, userID string, accountID, categoryID *uuid.UUID) (int64, error)
	// UpdateTx writes all scalar fields of t; when tags is non-nil the tag
	// set is replaced.
	UpdateTx(ctx context.Context, tx interface{}, t *Transaction, tags []*Tag) (*Transaction, error)
	DeleteTx(ctx context.Context, tx interface{}, userID string, id uuid.UUID) error
	// GetPaired returns the sibling leg sharing groupID, excluding excludeID.
	GetPaired(ctx context.Context, userID string, groupID uuid.UUID, excludeID uuid.UUID) (*Transaction, error)
	// SumExpensesTx totals expense amounts for (user, category, month) with
	// hide_from_summary false.
	SumExpensesTx(ctx context.Context, tx interface{}, userID string, categoryID uuid.UUID, month time.Time) (decimal.Decimal, error)
	// DeleteByAccountTx removes all transactions on the account and reports
	// the distinct expense (category, month) windows touched. No balance
	// information is returned: the account is going away with its rows.
	DeleteByAccountTx(ctx context.Context, tx interface{}, userID string, accountID uuid.UUID) (int, []CategoryMonth, error)
	// DeleteByCategoryTx removes transactions in exactly the given category
	// (children keep theirs) and reports balance reversals plus windows.
	DeleteByCategoryTx(ctx context.Context, tx interface{}, userID string, categoryID uuid.UUID) (*BulkDeleteEffect, error)
	// SummarizeMonth totals visible income and expense amounts for the month.
	SummarizeMonth(ctx context.Context, userID string, month time.Time) (income, expense decimal.Decimal, err error)
	SetReceiptKey(ctx context.Context, userID string, id uuid.UUID, key *string) error
}
