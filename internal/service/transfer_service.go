package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/kasapp/kas-backend/internal/events"
	"github.com/shopspring/decimal"
)

// TransferService models a transfer between two accounts as a linked pair of
// transactions: an expense leg on the source and an income leg on the
// destination, joined by a shared transfer group ID. The pair always mutates
// together.
type TransferService struct {
	uow             domain.UnitOfWork
	transactionRepo domain.TransactionRepository
	accountRepo     domain.AccountRepository
	categoryRepo    domain.CategoryRepository
	recalc          *RecalcService
	publisher       events.Publisher
}

func NewTransferService(
	uow domain.UnitOfWork,
	transactionRepo domain.TransactionRepository,
	accountRepo domain.AccountRepository,
	categoryRepo domain.CategoryRepository,
	recalc *RecalcService,
	publisher events.Publisher,
) *TransferService {
	return &TransferService{
		uow:             uow,
		transactionRepo: transactionRepo,
		accountRepo:     accountRepo,
		categoryRepo:    categoryRepo,
		recalc:          recalc,
		publisher:       publisher,
	}
}

// CreateTransferInput carries the fields for a new transfer pair.
type CreateTransferInput struct {
	FromAccountID   uuid.UUID
	ToAccountID     uuid.UUID
	Amount          decimal.Decimal
	Date            time.Time
	Description     string
	ShowInSummaries bool
}

// UpdateTransferInput is a partial update applied to both legs. Category,
// account, type, and tags are immutable on transfer legs and have no fields
// here.
type UpdateTransferInput struct {
	Amount          *decimal.Decimal
	Date            *time.Time
	Description     *string
	ShowInSummaries *bool
}

// TransferResult pairs the two legs of a created transfer.
type TransferResult struct {
	Outgoing *domain.Transaction `json:"outgoing"`
	Incoming *domain.Transaction `json:"incoming"`
	GroupID  uuid.UUID           `json:"transfer_group_id"`
}

// EnsureCategories returns the user's system transfer categories, creating
// them on first use. Safe to call repeatedly.
func (s *TransferService) EnsureCategories(ctx context.Context, userID string) (domain.TransferCategories, error) {
	var cats domain.TransferCategories

	incoming, err := s.categoryRepo.GetByName(ctx, userID, domain.CategoryIncomingTransfer)
	if errors.Is(err, domain.ErrCategoryNotFound) {
		incoming, err = s.categoryRepo.Create(ctx, &domain.Category{
			UserID:   userID,
			Name:     domain.CategoryIncomingTransfer,
			Type:     domain.CategoryTypeIncome,
			Color:    "#78909C",
			Icon:     "swap-horizontal",
			IsSystem: true,
		})
	}
	if err != nil {
		return cats, err
	}

	outgoing, err := s.categoryRepo.GetByName(ctx, userID, domain.CategoryOutgoingTransfer)
	if errors.Is(err, domain.ErrCategoryNotFound) {
		outgoing, err = s.categoryRepo.Create(ctx, &domain.Category{
			UserID:   userID,
			Name:     domain.CategoryOutgoingTransfer,
			Type:     domain.CategoryTypeExpense,
			Color:    "#78909C",
			Icon:     "swap-horizontal",
			IsSystem: true,
		})
	}
	if err != nil {
		return cats, err
	}

	cats.Incoming = incoming.ID
	cats.Outgoing = outgoing.ID
	return cats, nil
}

// LookupCategories returns the transfer categories if both already exist, or
// nil without error when they don't. Import uses this so that files without
// transfers never create the system categories as a side effect.
func (s *TransferService) LookupCategories(ctx context.Context, userID string) (*domain.TransferCategories, error) {
	incoming, err := s.categoryRepo.GetByName(ctx, userID, domain.CategoryIncomingTransfer)
	if errors.Is(err, domain.ErrCategoryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	outgoing, err := s.categoryRepo.GetByName(ctx, userID, domain.CategoryOutgoingTransfer)
	if errors.Is(err, domain.ErrCategoryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.TransferCategories{Incoming: incoming.ID, Outgoing: outgoing.ID}, nil
}

// Create writes both legs and moves both balances in one unit of work. Legs
// default to hidden from summaries so a transfer never shows up as spending.
func (s *TransferService) Create(ctx context.Context, userID string, input CreateTransferInput) (*TransferResult, error) {
	if input.FromAccountID == input.ToAccountID {
		return nil, domain.ErrSameAccountTransfer
	}
	if !input.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	from, err := s.accountRepo.GetByID(ctx, userID, input.FromAccountID)
	if err != nil {
		return nil, err
	}
	to, err := s.accountRepo.GetByID(ctx, userID, input.ToAccountID)
	if err != nil {
		return nil, err
	}

	description := input.Description
	if description == "" {
		description = fmt.Sprintf("Transfer from %s to %s", from.Name, to.Name)
	}
	if len(description) > domain.MaxDescriptionLength {
		return nil, domain.ErrDescriptionTooLong
	}

	cats, err := s.EnsureCategories(ctx, userID)
	if err != nil {
		return nil, err
	}

	groupID := uuid.New()
	hide := !input.ShowInSummaries

	result := &TransferResult{GroupID: groupID}
	err = s.uow.Run(ctx, func(tx interface{}) error {
		outgoing := &domain.Transaction{
			UserID:          userID,
			Date:            input.Date,
			Type:            domain.TransactionTypeExpense,
			Amount:          input.Amount,
			CategoryID:      cats.Outgoing,
			AccountID:       input.FromAccountID,
			Description:     description,
			IsTransfer:      true,
			TransferGroupID: &groupID,
			HideFromSummary: hide,
		}
		result.Outgoing, err = s.transactionRepo.CreateTx(ctx, tx, outgoing)
		if err != nil {
			return err
		}

		incoming := &domain.Transaction{
			UserID:          userID,
			Date:            input.Date,
			Type:            domain.TransactionTypeIncome,
			Amount:          input.Amount,
			CategoryID:      cats.Incoming,
			AccountID:       input.ToAccountID,
			Description:     description,
			IsTransfer:      true,
			TransferGroupID: &groupID,
			HideFromSummary: hide,
		}
		result.Incoming, err = s.transactionRepo.CreateTx(ctx, tx, incoming)
		if err != nil {
			return err
		}

		if err := s.recalc.UpdateBalance(ctx, tx, userID, input.FromAccountID, input.Amount.Neg()); err != nil {
			return err
		}
		return s.recalc.UpdateBalance(ctx, tx, userID, input.ToAccountID, input.Amount)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(userID, events.TransferCreated(result))
	return result, nil
}

// GetPaired returns the other leg of the transfer the transaction belongs to,
// or nil when the transaction is not a transfer leg or the pair is missing.
func (s *TransferService) GetPaired(ctx context.Context, userID string, id uuid.UUID) (*domain.Transaction, error) {
	t, err := s.transactionRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !t.IsTransfer || t.TransferGroupID == nil {
		return nil, nil
	}
	paired, err := s.transactionRepo.GetPaired(ctx, userID, *t.TransferGroupID, t.ID)
	if errors.Is(err, domain.ErrTransactionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return paired, nil
}

// GetPair returns both legs of the transfer the transaction belongs to,
// ordered outgoing then incoming.
func (s *TransferService) GetPair(ctx context.Context, userID string, id uuid.UUID) (*TransferResult, error) {
	leg, err := s.transactionRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !leg.IsTransfer || leg.TransferGroupID == nil {
		return nil, domain.ErrNotATransfer
	}
	sibling, err := s.transactionRepo.GetPaired(ctx, userID, *leg.TransferGroupID, leg.ID)
	if err != nil {
		return nil, err
	}

	result := &TransferResult{GroupID: *leg.TransferGroupID, Outgoing: leg, Incoming: sibling}
	if leg.Type == domain.TransactionTypeIncome {
		result.Outgoing, result.Incoming = sibling, leg
	}
	return result, nil
}

// Update changes the shared scalar fields of both legs. An amount change
// shifts both balances by the difference; a pair whose sibling is missing is
// reported as not found rather than half-updated.
func (s *TransferService) Update(ctx context.Context, userID string, id uuid.UUID, input UpdateTransferInput) (*TransferResult, error) {
	leg, err := s.transactionRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !leg.IsTransfer || leg.TransferGroupID == nil {
		return nil, domain.ErrNotATransfer
	}
	sibling, err := s.transactionRepo.GetPaired(ctx, userID, *leg.TransferGroupID, leg.ID)
	if err != nil {
		return nil, err
	}

	if input.Amount != nil && !input.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if input.Description != nil {
		if *input.Description == "" {
			return nil, domain.ErrDescriptionRequired
		}
		if len(*input.Description) > domain.MaxDescriptionLength {
			return nil, domain.ErrDescriptionTooLong
		}
	}

	outgoing, incoming := leg, sibling
	if leg.Type == domain.TransactionTypeIncome {
		outgoing, incoming = sibling, leg
	}

	oldAmount := outgoing.Amount

	apply := func(t *domain.Transaction) domain.Transaction {
		cp := *t
		if input.Amount != nil {
			cp.Amount = *input.Amount
		}
		if input.Date != nil {
			cp.Date = *input.Date
		}
		if input.Description != nil {
			cp.Description = *input.Description
		}
		if input.ShowInSummaries != nil {
			cp.HideFromSummary = !*input.ShowInSummaries
		}
		return cp
	}
	newOutgoing := apply(outgoing)
	newIncoming := apply(incoming)

	result := &TransferResult{GroupID: *leg.TransferGroupID}
	err = s.uow.Run(ctx, func(tx interface{}) error {
		var err error
		result.Outgoing, err = s.transactionRepo.UpdateTx(ctx, tx, &newOutgoing, nil)
		if err != nil {
			return err
		}
		result.Incoming, err = s.transactionRepo.UpdateTx(ctx, tx, &newIncoming, nil)
		if err != nil {
			return err
		}

		if input.Amount != nil && !input.Amount.Equal(oldAmount) {
			diff := input.Amount.Sub(oldAmount)
			// Source paid more (or less); destination received the same difference.
			if err := s.recalc.UpdateBalance(ctx, tx, userID, outgoing.AccountID, diff.Neg()); err != nil {
				return err
			}
			return s.recalc.UpdateBalance(ctx, tx, userID, incoming.AccountID, diff)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(userID, events.TransferUpdated(result))
	return result, nil
}

// Delete removes both legs and reverses both balance effects. When the
// sibling leg is missing the surviving leg is deleted alone, without any
// balance reversal, so a half-broken pair can still be cleaned up.
func (s *TransferService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	leg, err := s.transactionRepo.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if !leg.IsTransfer || leg.TransferGroupID == nil {
		return domain.ErrNotATransfer
	}

	sibling, err := s.transactionRepo.GetPaired(ctx, userID, *leg.TransferGroupID, leg.ID)
	if err != nil && !errors.Is(err, domain.ErrTransactionNotFound) {
		return err
	}

	groupID := *leg.TransferGroupID
	err = s.uow.Run(ctx, func(tx interface{}) error {
		if sibling == nil {
			return s.transactionRepo.DeleteTx(ctx, tx, userID, leg.ID)
		}
		for _, t := range []*domain.Transaction{leg, sibling} {
			if err := s.transactionRepo.DeleteTx(ctx, tx, userID, t.ID); err != nil {
				return err
			}
			if err := s.recalc.UpdateBalance(ctx, tx, userID, t.AccountID, t.BalanceDelta().Neg()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publisher.Publish(userID, events.TransferDeleted(map[string]interface{}{"transfer_group_id": groupID}))
	return nil
}
