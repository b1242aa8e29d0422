package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/kasapp/kas-backend/internal/middleware"
	"github.com/kasapp/kas-backend/internal/service"
)

// OnboardingHandler handles first-run setup HTTP requests
type OnboardingHandler struct {
	onboardingService *service.OnboardingService
}

// NewOnboardingHandler creates a new OnboardingHandler
func NewOnboardingHandler(onboardingService *service.OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{onboardingService: onboardingService}
}

// OnboardingStatusResponse reports whether the user finished onboarding
type OnboardingStatusResponse struct {
	HasCompletedOnboarding bool `json:"hasCompletedOnboarding"`
}

// OnboardingAccountRequest is one seed account
type OnboardingAccountRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// OnboardingCategoryRequest is one seed category
type OnboardingCategoryRequest struct {
	Name     string     `json:"name"`
	Type     string     `json:"type"`
	Color    string     `json:"color"`
	Icon     string     `json:"icon"`
	ParentID *uuid.UUID `json:"parentId,omitempty"`
}

// CompleteOnboardingRequest represents the complete onboarding request body
type CompleteOnboardingRequest struct {
	Accounts   []OnboardingAccountRequest  `json:"accounts"`
	Categories []OnboardingCategoryRequest `json:"categories"`
}

// GetStatus handles GET /api/v1/onboarding/status
func (h *OnboardingHandler) GetStatus(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	done, err := h.onboardingService.Status(c.Request().Context(), userID)
	if err != nil {
		return handleDomainError(c, err, "Failed to load onboarding status")
	}
	return c.JSON(http.StatusOK, OnboardingStatusResponse{HasCompletedOnboarding: done})
}

// Complete handles POST /api/v1/onboarding/complete, seeding the user's
// starting accounts and categories and marking onboarding done.
func (h *OnboardingHandler) Complete(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CompleteOnboardingRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	accounts := make([]service.CreateAccountInput, len(req.Accounts))
	for i, a := range req.Accounts {
		accounts[i] = service.CreateAccountInput{
			Name:  a.Name,
			Type:  domain.AccountType(a.Type),
			Color: a.Color,
			Icon:  a.Icon,
		}
	}
	categories := make([]service.CreateCategoryInput, len(req.Categories))
	for i, cat := range req.Categories {
		categories[i] = service.CreateCategoryInput{
			Name:     cat.Name,
			Type:     domain.CategoryType(cat.Type),
			Color:    cat.Color,
			Icon:     cat.Icon,
			ParentID: cat.ParentID,
		}
	}

	if err := h.onboardingService.Complete(c.Request().Context(), userID, accounts, categories); err != nil {
		return handleDomainError(c, err, "Failed to complete onboarding")
	}

	log.Info().Str("user_id", userID).Int("accounts", len(accounts)).Int("categories", len(categories)).Msg("Onboarding completed")
	return c.JSON(http.StatusOK, OnboardingStatusResponse{HasCompletedOnboarding: true})
}
