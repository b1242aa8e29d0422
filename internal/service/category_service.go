package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/kasapp/kas-backend/internal/events"
)

// CategoryService manages the two-level category tree. System categories
// (the transfer pair) cannot be edited or deleted.
type CategoryService struct {
	uow          domain.UnitOfWork
	categoryRepo domain.CategoryRepository
	profileRepo  domain.ImportProfileRepository
	transactions *TransactionService
	publisher    events.Publisher
}

func NewCategoryService(
	uow domain.UnitOfWork,
	categoryRepo domain.CategoryRepository,
	profileRepo domain.ImportProfileRepository,
	transactions *TransactionService,
	publisher events.Publisher,
) *CategoryService {
	return &CategoryService{
		uow:          uow,
		categoryRepo: categoryRepo,
		profileRepo:  profileRepo,
		transactions: transactions,
		publisher:    publisher,
	}
}

// CreateCategoryInput carries the fields for a new category.
type CreateCategoryInput struct {
	Name     string
	Type     domain.CategoryType
	Color    string
	Icon     string
	ParentID *uuid.UUID
}

// checkParent enforces the two-level hierarchy: a parent must exist, must
// itself be a root category, and must share the child's type.
func (s *CategoryService) checkParent(ctx context.Context, userID string, parentID uuid.UUID, childType domain.CategoryType) error {
	parent, err := s.categoryRepo.GetByID(ctx, userID, parentID)
	if err != nil {
		return err
	}
	if parent.ParentID != nil {
		return domain.ErrCategoryDepth
	}
	if parent.Type != childType {
		return domain.ErrCategoryTypeMismatch
	}
	return nil
}

func (s *CategoryService) Create(ctx context.Context, userID string, input CreateCategoryInput) (*domain.Category, error) {
	name, err := validateName(input.Name)
	if err != nil {
		return nil, err
	}
	if input.Type != domain.CategoryTypeIncome && input.Type != domain.CategoryTypeExpense {
		return nil, domain.Validationf("invalid category type %q", input.Type)
	}
	if input.ParentID != nil {
		if err := s.checkParent(ctx, userID, *input.ParentID, input.Type); err != nil {
			return nil, err
		}
	}
	return s.categoryRepo.Create(ctx, &domain.Category{
		UserID:   userID,
		Name:     name,
		Type:     input.Type,
		Color:    input.Color,
		Icon:     input.Icon,
		ParentID: input.ParentID,
	})
}

func (s *CategoryService) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.Category, error) {
	return s.categoryRepo.GetByID(ctx, userID, id)
}

func (s *CategoryService) GetAll(ctx context.Context, userID string, categoryType *domain.CategoryType) ([]*domain.Category, error) {
	return s.categoryRepo.GetAll(ctx, userID, categoryType)
}

func (s *CategoryService) Update(ctx context.Context, userID string, id uuid.UUID, patch *domain.CategoryUpdate) (*domain.Category, error) {
	existing, err := s.categoryRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if existing.IsSystem {
		return nil, domain.ErrSystemCategory
	}
	if patch.Name != nil {
		name, err := validateName(*patch.Name)
		if err != nil {
			return nil, err
		}
		patch.Name = &name
	}

	newType := existing.Type
	if patch.Type != nil {
		if *patch.Type != domain.CategoryTypeIncome && *patch.Type != domain.CategoryTypeExpense {
			return nil, domain.Validationf("invalid category type %q", *patch.Type)
		}
		newType = *patch.Type
	}
	if patch.ParentID != nil && !patch.SetParentNil {
		if *patch.ParentID == id {
			return nil, domain.Validationf("category cannot be its own parent")
		}
		if err := s.checkParent(ctx, userID, *patch.ParentID, newType); err != nil {
			return nil, err
		}
	} else if patch.Type != nil && existing.ParentID != nil && !patch.SetParentNil {
		// Changing type while keeping the current parent must not break the
		// type-match rule.
		if err := s.checkParent(ctx, userID, *existing.ParentID, newType); err != nil {
			return nil, err
		}
	}

	return s.categoryRepo.Update(ctx, userID, id, patch)
}

// Delete removes the category and every transaction directly in it. Balances
// are reversed per account, touched budget windows re-derived, import value
// mappings dropped. Children are promoted to root categories and keep their
// transactions.
func (s *CategoryService) Delete(ctx context.Context, userID string, id uuid.UUID) (int, error) {
	existing, err := s.categoryRepo.GetByID(ctx, userID, id)
	if err != nil {
		return 0, err
	}
	if existing.IsSystem {
		return 0, domain.ErrSystemCategory
	}

	var deleted int
	err = s.uow.Run(ctx, func(tx interface{}) error {
		var err error
		deleted, err = s.transactions.DeleteByCategory(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if _, err := s.profileRepo.DeleteByInternalID(ctx, tx, id, domain.MappingTypeCategory); err != nil {
			return err
		}
		return s.categoryRepo.DeleteTx(ctx, tx, userID, id)
	})
	if err != nil {
		return 0, err
	}

	s.publisher.Publish(userID, events.NewEvent(events.EventTypeDeleted, events.EntityTypeCategory, map[string]interface{}{
		"id":                   id,
		"deleted_transactions": deleted,
	}))
	return deleted, nil
}
