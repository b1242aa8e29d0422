package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Reserved system category names. They exist per user before the first
// transfer and are excluded from normal category management.
const (
	CategoryIncomingTransfer = "Incoming transfer"
	CategoryOutgoingTransfer = "Outgoing transfer"
)

// Category is a transaction category with an optional parent (max two
// levels). A child must share its parent's type.
type Category struct {
	ID        uuid.UUID    `json:"id"`
	UserID    string       `json:"-"`
	Name      string       `json:"name"`
	Type      CategoryType `json:"type"`
	Color     string       `json:"color"`
	Icon      string       `json:"icon"`
	ParentID  *uuid.UUID   `json:"parentId,omitempty"`
	IsSystem  bool         `json:"isSystem"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// CategoryUpdate carries a partial category patch; nil fields are left as-is.
// SetParentNil distinguishes "clear the parent" from "leave it alone".
type CategoryUpdate struct {
	Name         *string
	Type         *CategoryType
	Color        *string
	Icon         *string
	ParentID     *uuid.UUID
	SetParentNil bool
}

// TransferCategories holds the two reserved transfer category IDs for a user.
type TransferCategories struct {
	Incoming uuid.UUID
	Outgoing uuid.UUID
}

// Contains reports whether id is one of the two transfer categories.
func (tc TransferCategories) Contains(id uuid.UUID) bool {
	return id == tc.Incoming || id == tc.Outgoing
}

type CategoryRepository interface {
	Create(ctx context.Context, category *Category) (*Category, error)
	CreateTx(ctx context.Context, tx interface{}, category *Category) (*Category, error)
	GetByID(ctx context.Context, userID string, id uuid.UUID) (*Category, error)
	GetByName(ctx context.Context, userID string, name string) (*Category, error)
	GetAll(ctx context.Context, userID string, categoryType *CategoryType) ([]*Category, error)
	Update(ctx context.Context, userID string, id uuid.UUID, patch *CategoryUpdate) (*Category, error)
	// DeleteTx removes the category. Children are detached (parent set to
	// NULL) by the storage layer, not deleted.
	DeleteTx(ctx context.Context, tx interface{}, userID string, id uuid.UUID) error
}
