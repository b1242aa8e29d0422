package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/kasapp/kas-backend/internal/events"
	"github.com/kasapp/kas-backend/internal/util"
	"github.com/shopspring/decimal"
)

// TransactionService implements the write path for ordinary (non-transfer)
// transactions. Every mutation runs inside one unit of work so the row, the
// account balance, and any touched budget windows commit or roll back
// together.
type TransactionService struct {
	uow             domain.UnitOfWork
	transactionRepo domain.TransactionRepository
	accountRepo     domain.AccountRepository
	categoryRepo    domain.CategoryRepository
	tagRepo         domain.TagRepository
	recalc          *RecalcService
	publisher       events.Publisher
}

func NewTransactionService(
	uow domain.UnitOfWork,
	transactionRepo domain.TransactionRepository,
	accountRepo domain.AccountRepository,
	categoryRepo domain.CategoryRepository,
	tagRepo domain.TagRepository,
	recalc *RecalcService,
	publisher events.Publisher,
) *TransactionService {
	return &TransactionService{
		uow:             uow,
		transactionRepo: transactionRepo,
		accountRepo:     accountRepo,
		categoryRepo:    categoryRepo,
		tagRepo:         tagRepo,
		recalc:          recalc,
		publisher:       publisher,
	}
}

// CreateTransactionInput carries the fields for a new transaction.
type CreateTransactionInput struct {
	Date        time.Time
	Type        domain.TransactionType
	Amount      decimal.Decimal
	CategoryID  uuid.UUID
	AccountID   uuid.UUID
	Description string
	Tags        []string
}

// UpdateTransactionInput is a partial update; nil fields keep their current
// value. Tags nil keeps the current tag set, an empty slice clears it.
type UpdateTransactionInput struct {
	Date        *time.Time
	Type        *domain.TransactionType
	Amount      *decimal.Decimal
	CategoryID  *uuid.UUID
	AccountID   *uuid.UUID
	Description *string
	Tags        []string
}

func validateDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", domain.ErrDescriptionRequired
	}
	if len(description) > domain.MaxDescriptionLength {
		return "", domain.ErrDescriptionTooLong
	}
	return description, nil
}

// Create validates and stores a transaction, moves the account balance by the
// signed amount, and recalculates the touched budget window for expenses.
func (s *TransactionService) Create(ctx context.Context, userID string, input CreateTransactionInput) (*domain.Transaction, error) {
	if !domain.ValidTransactionType(input.Type) {
		return nil, domain.ErrInvalidTransactionType
	}
	if !input.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	description, err := validateDescription(input.Description)
	if err != nil {
		return nil, err
	}
	if _, err := s.categoryRepo.GetByID(ctx, userID, input.CategoryID); err != nil {
		return nil, err
	}
	if _, err := s.accountRepo.GetByID(ctx, userID, input.AccountID); err != nil {
		return nil, err
	}

	var created *domain.Transaction
	err = s.uow.Run(ctx, func(tx interface{}) error {
		tags, err := s.tagRepo.GetOrCreateTx(ctx, tx, userID, input.Tags)
		if err != nil {
			return err
		}

		t := &domain.Transaction{
			UserID:      userID,
			Date:        input.Date,
			Type:        input.Type,
			Amount:      input.Amount,
			CategoryID:  input.CategoryID,
			AccountID:   input.AccountID,
			Description: description,
			Tags:        tags,
		}
		created, err = s.transactionRepo.CreateTx(ctx, tx, t)
		if err != nil {
			return err
		}

		if err := s.recalc.UpdateBalance(ctx, tx, userID, created.AccountID, created.BalanceDelta()); err != nil {
			return err
		}
		if created.Type == domain.TransactionTypeExpense {
			return s.recalc.RecalculateSpent(ctx, tx, userID, created.CategoryID, util.MonthOf(created.Date))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(userID, events.TransactionCreated(created))
	return created, nil
}

// GetByID returns a single transaction owned by the user.
func (s *TransactionService) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.Transaction, error) {
	return s.transactionRepo.GetByID(ctx, userID, id)
}

// List returns transactions matching the filter, newest first.
func (s *TransactionService) List(ctx context.Context, userID string, filter *domain.TransactionFilter) ([]*domain.Transaction, error) {
	if filter == nil {
		filter = &domain.TransactionFilter{}
	}
	if filter.Limit <= 0 {
		filter.Limit = domain.DefaultListLimit
	}
	if filter.Limit > domain.MaxListLimit {
		filter.Limit = domain.MaxListLimit
	}
	if filter.Skip < 0 {
		filter.Skip = 0
	}
	if filter.Month != "" {
		if _, err := util.ParseMonth(filter.Month); err != nil {
			return nil, domain.ErrInvalidMonth
		}
	}
	return s.transactionRepo.List(ctx, userID, filter)
}

// Count reports how many transactions reference the account or category.
func (s *TransactionService) Count(ctx context.Context, userID string, accountID, categoryID *uuid.UUID) (int64, error) {
	return s.transactionRepo.Count(ctx, userID, accountID, categoryID)
}

// Update applies a partial update to an ordinary transaction. Transfer legs
// are rejected; they change only through the transfer path. The old effect is
// reversed on the old account, the new effect applied on the new one, and
// both the old and new budget windows are re-derived.
func (s *TransactionService) Update(ctx context.Context, userID string, id uuid.UUID, input UpdateTransactionInput) (*domain.Transaction, error) {
	existing, err := s.transactionRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if existing.IsTransfer {
		return nil, domain.ErrIsTransfer
	}

	// Snapshot the old effect before mutating anything.
	oldType := existing.Type
	oldAccountID := existing.AccountID
	oldCategoryID := existing.CategoryID
	oldMonth := util.MonthOf(existing.Date)
	oldDelta := existing.BalanceDelta()

	updated := *existing
	if input.Date != nil {
		updated.Date = *input.Date
	}
	if input.Type != nil {
		if !domain.ValidTransactionType(*input.Type) {
			return nil, domain.ErrInvalidTransactionType
		}
		updated.Type = *input.Type
	}
	if input.Amount != nil {
		if !input.Amount.IsPositive() {
			return nil, domain.ErrInvalidAmount
		}
		updated.Amount = *input.Amount
	}
	if input.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, userID, *input.CategoryID); err != nil {
			return nil, err
		}
		updated.CategoryID = *input.CategoryID
	}
	if input.AccountID != nil {
		if _, err := s.accountRepo.GetByID(ctx, userID, *input.AccountID); err != nil {
			return nil, err
		}
		updated.AccountID = *input.AccountID
	}
	if input.Description != nil {
		description, err := validateDescription(*input.Description)
		if err != nil {
			return nil, err
		}
		updated.Description = description
	}

	var result *domain.Transaction
	err = s.uow.Run(ctx, func(tx interface{}) error {
		var tags []*domain.Tag
		if input.Tags != nil {
			var err error
			tags, err = s.tagRepo.GetOrCreateTx(ctx, tx, userID, input.Tags)
			if err != nil {
				return err
			}
			if tags == nil {
				tags = []*domain.Tag{}
			}
		}

		var err error
		result, err = s.transactionRepo.UpdateTx(ctx, tx, &updated, tags)
		if err != nil {
			return err
		}

		if err := s.recalc.UpdateBalance(ctx, tx, userID, oldAccountID, oldDelta.Neg()); err != nil {
			return err
		}
		if err := s.recalc.UpdateBalance(ctx, tx, userID, result.AccountID, result.BalanceDelta()); err != nil {
			return err
		}

		// Both windows are re-derived; when they coincide the second pass is
		// a repeat of the first, which is harmless.
		if oldType == domain.TransactionTypeExpense {
			if err := s.recalc.RecalculateSpent(ctx, tx, userID, oldCategoryID, oldMonth); err != nil {
				return err
			}
		}
		if result.Type == domain.TransactionTypeExpense {
			return s.recalc.RecalculateSpent(ctx, tx, userID, result.CategoryID, util.MonthOf(result.Date))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(userID, events.TransactionUpdated(result))
	return result, nil
}

// Delete removes an ordinary transaction, reversing its balance effect and
// re-deriving the touched budget window. Transfer legs must go through the
// transfer path so the pair stays consistent.
func (s *TransactionService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	existing, err := s.transactionRepo.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if existing.IsTransfer {
		return domain.ErrIsTransfer
	}

	err = s.uow.Run(ctx, func(tx interface{}) error {
		if err := s.transactionRepo.DeleteTx(ctx, tx, userID, id); err != nil {
			return err
		}
		if err := s.recalc.UpdateBalance(ctx, tx, userID, existing.AccountID, existing.BalanceDelta().Neg()); err != nil {
			return err
		}
		if existing.Type == domain.TransactionTypeExpense {
			return s.recalc.RecalculateSpent(ctx, tx, userID, existing.CategoryID, util.MonthOf(existing.Date))
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publisher.Publish(userID, events.TransactionDeleted(map[string]interface{}{"id": id}))
	return nil
}

// DeleteByAccount removes every transaction on the account without reversing
// balances: the account row itself is about to go. Budget windows touched by
// deleted expenses are re-derived so other categories' budgets stay honest.
func (s *TransactionService) DeleteByAccount(ctx context.Context, tx interface{}, userID string, accountID uuid.UUID) (int, error) {
	deleted, windows, err := s.transactionRepo.DeleteByAccountTx(ctx, tx, userID, accountID)
	if err != nil {
		return 0, err
	}
	if err := s.recalc.RecalculateWindows(ctx, tx, userID, windows); err != nil {
		return 0, err
	}
	return deleted, nil
}

// DeleteByCategory removes every transaction in exactly the given category,
// reversing the balance effect per account and re-deriving touched windows.
func (s *TransactionService) DeleteByCategory(ctx context.Context, tx interface{}, userID string, categoryID uuid.UUID) (int, error) {
	effect, err := s.transactionRepo.DeleteByCategoryTx(ctx, tx, userID, categoryID)
	if err != nil {
		return 0, err
	}
	for accountID, delta := range effect.AccountDeltas {
		if err := s.recalc.UpdateBalance(ctx, tx, userID, accountID, delta); err != nil {
			return 0, err
		}
	}
	if err := s.recalc.RecalculateWindows(ctx, tx, userID, effect.CategoryMonths); err != nil {
		return 0, err
	}
	return effect.Deleted, nil
}
