package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeCash       AccountType = "cash"
	AccountTypeBank       AccountType = "bank"
	AccountTypeEwallet    AccountType = "e-wallet"
	AccountTypeCreditCard AccountType = "credit_card"
)

// ValidAccountType reports whether t is one of the supported account types.
func ValidAccountType(t AccountType) bool {
	switch t {
	case AccountTypeCash, AccountTypeBank, AccountTypeEwallet, AccountTypeCreditCard:
		return true
	}
	return false
}

// Account is a financial account. Balance is mutated only through the
// transaction and transfer engines; credit card balances may be negative.
type Account struct {
	ID        uuid.UUID       `json:"id"`
	UserID    string          `json:"-"`
	Name      string          `json:"name"`
	Type      AccountType     `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	Color     string          `json:"color"`
	Icon      string          `json:"icon"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// AccountUpdate carries a partial account patch; nil fields are left as-is.
type AccountUpdate struct {
	Name  *string
	Type  *AccountType
	Color *string
	Icon  *string
}

type AccountRepository interface {
	Create(ctx context.Context, account *Account) (*Account, error)
	GetByID(ctx context.Context, userID string, id uuid.UUID) (*Account, error)
	GetAll(ctx context.Context, userID string) ([]*Account, error)
	Update(ctx context.Context, userID string, id uuid.UUID, patch *AccountUpdate) (*Account, error)
	// DeleteTx removes the account. Dependent transactions must already be
	// gone; a remaining reference surfaces as ErrConflict.
	DeleteTx(ctx context.Context, tx interface{}, userID string, id uuid.UUID) error
	// AddToBalanceTx adds delta (signed) to the account balance.
	AddToBalanceTx(ctx context.Context, tx interface{}, userID string, id uuid.UUID, delta decimal.Decimal) error
}
