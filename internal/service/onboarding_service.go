package service

import (
	"context"
	"errors"

	"github.com/kasapp/kas-backend/internal/domain"
)

// OnboardingService seeds a fresh user's starting accounts and categories and
// records that setup ran. Completing twice just re-runs the idempotent parts.
type OnboardingService struct {
	accounts     *AccountService
	categories   *CategoryService
	transfers    *TransferService
	settingsRepo domain.SettingsRepository
}

func NewOnboardingService(
	accounts *AccountService,
	categories *CategoryService,
	transfers *TransferService,
	settingsRepo domain.SettingsRepository,
) *OnboardingService {
	return &OnboardingService{
		accounts:     accounts,
		categories:   categories,
		transfers:    transfers,
		settingsRepo: settingsRepo,
	}
}

// Status reports whether the user finished onboarding. A missing settings row
// means no.
func (s *OnboardingService) Status(ctx context.Context, userID string) (bool, error) {
	settings, err := s.settingsRepo.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return settings.HasCompletedOnboarding, nil
}

// Complete creates the chosen starting accounts and categories, ensures the
// system transfer categories exist, and marks onboarding done.
func (s *OnboardingService) Complete(ctx context.Context, userID string, accounts []CreateAccountInput, categories []CreateCategoryInput) error {
	for _, input := range accounts {
		if _, err := s.accounts.Create(ctx, userID, input); err != nil {
			return err
		}
	}
	for _, input := range categories {
		if _, err := s.categories.Create(ctx, userID, input); err != nil {
			return err
		}
	}
	if _, err := s.transfers.EnsureCategories(ctx, userID); err != nil {
		return err
	}
	return s.settingsRepo.SetOnboardingComplete(ctx, userID)
}
