package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/kasapp/kas-backend/internal/events"
)

// AccountService manages accounts. Deleting an account takes its entire
// transaction history with it in one unit of work.
type AccountService struct {
	uow          domain.UnitOfWork
	accountRepo  domain.AccountRepository
	profileRepo  domain.ImportProfileRepository
	transactions *TransactionService
	publisher    events.Publisher
}

func NewAccountService(
	uow domain.UnitOfWork,
	accountRepo domain.AccountRepository,
	profileRepo domain.ImportProfileRepository,
	transactions *TransactionService,
	publisher events.Publisher,
) *AccountService {
	return &AccountService{
		uow:          uow,
		accountRepo:  accountRepo,
		profileRepo:  profileRepo,
		transactions: transactions,
		publisher:    publisher,
	}
}

// CreateAccountInput carries the fields for a new account.
type CreateAccountInput struct {
	Name  string
	Type  domain.AccountType
	Color string
	Icon  string
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.ErrNameRequired
	}
	if len(name) > domain.MaxNameLength {
		return "", domain.Validationf("name exceeds %d characters", domain.MaxNameLength)
	}
	return name, nil
}

func (s *AccountService) Create(ctx context.Context, userID string, input CreateAccountInput) (*domain.Account, error) {
	name, err := validateName(input.Name)
	if err != nil {
		return nil, err
	}
	if !domain.ValidAccountType(input.Type) {
		return nil, domain.Validationf("invalid account type %q", input.Type)
	}
	return s.accountRepo.Create(ctx, &domain.Account{
		UserID: userID,
		Name:   name,
		Type:   input.Type,
		Color:  input.Color,
		Icon:   input.Icon,
	})
}

func (s *AccountService) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.Account, error) {
	return s.accountRepo.GetByID(ctx, userID, id)
}

func (s *AccountService) GetAll(ctx context.Context, userID string) ([]*domain.Account, error) {
	return s.accountRepo.GetAll(ctx, userID)
}

func (s *AccountService) Update(ctx context.Context, userID string, id uuid.UUID, patch *domain.AccountUpdate) (*domain.Account, error) {
	if patch.Name != nil {
		name, err := validateName(*patch.Name)
		if err != nil {
			return nil, err
		}
		patch.Name = &name
	}
	if patch.Type != nil && !domain.ValidAccountType(*patch.Type) {
		return nil, domain.Validationf("invalid account type %q", *patch.Type)
	}
	updated, err := s.accountRepo.Update(ctx, userID, id, patch)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(userID, events.AccountUpdated(updated))
	return updated, nil
}

// Delete removes the account and all of its transactions. Balances are not
// reversed (the account row disappears with them), but budget windows touched
// by deleted expenses are re-derived. Import value mappings pointing at the
// account are dropped too.
func (s *AccountService) Delete(ctx context.Context, userID string, id uuid.UUID) (int, error) {
	if _, err := s.accountRepo.GetByID(ctx, userID, id); err != nil {
		return 0, err
	}

	var deleted int
	err := s.uow.Run(ctx, func(tx interface{}) error {
		var err error
		deleted, err = s.transactions.DeleteByAccount(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if _, err := s.profileRepo.DeleteByInternalID(ctx, tx, id, domain.MappingTypeAccount); err != nil {
			return err
		}
		return s.accountRepo.DeleteTx(ctx, tx, userID, id)
	})
	if err != nil {
		return 0, err
	}

	s.publisher.Publish(userID, events.NewEvent(events.EventTypeDeleted, events.EntityTypeAccount, map[string]interface{}{
		"id":                   id,
		"deleted_transactions": deleted,
	}))
	return deleted, nil
}
