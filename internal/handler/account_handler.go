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

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	accountService *service.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// CreateAccountRequest represents the create account request body
type CreateAccountRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// UpdateAccountRequest represents the update account request body
type UpdateAccountRequest struct {
	Name  *string `json:"name,omitempty"`
	Type  *string `json:"type,omitempty"`
	Color *string `json:"color,omitempty"`
	Icon  *string `json:"icon,omitempty"`
}

// DeleteAccountResponse reports how many transactions went with the account
type DeleteAccountResponse struct {
	DeletedTransactions int `json:"deletedTransactions"`
}

// CreateAccount handles POST /api/v1/accounts
func (h *AccountHandler) CreateAccount(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateAccountRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	account, err := h.accountService.Create(c.Request().Context(), userID, service.CreateAccountInput{
		Name:  req.Name,
		Type:  domain.AccountType(req.Type),
		Color: req.Color,
		Icon:  req.Icon,
	})
	if err != nil {
		return handleDomainError(c, err, "Failed to create account")
	}

	log.Info().Str("user_id", userID).Str("account_id", account.ID.String()).Msg("Account created")
	return c.JSON(http.StatusCreated, account)
}

// GetAccounts handles GET /api/v1/accounts
func (h *AccountHandler) GetAccounts(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	accounts, err := h.accountService.GetAll(c.Request().Context(), userID)
	if err != nil {
		return handleDomainError(c, err, "Failed to list accounts")
	}
	if accounts == nil {
		accounts = []*domain.Account{}
	}
	return c.JSON(http.StatusOK, accounts)
}

// GetAccount handles GET /api/v1/accounts/:id
func (h *AccountHandler) GetAccount(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid account ID", nil)
	}

	account, err := h.accountService.GetByID(c.Request().Context(), userID, id)
	if err != nil {
		return handleDomainError(c, err, "Failed to get account")
	}
	return c.JSON(http.StatusOK, account)
}

// UpdateAccount handles PATCH /api/v1/accounts/:id
func (h *AccountHandler) UpdateAccount(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid account ID", nil)
	}

	var req UpdateAccountRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	patch := &domain.AccountUpdate{
		Name:  req.Name,
		Color: req.Color,
		Icon:  req.Icon,
	}
	if req.Type != nil {
		t := domain.AccountType(*req.Type)
		patch.Type = &t
	}

	account, err := h.accountService.Update(c.Request().Context(), userID, id, patch)
	if err != nil {
		return handleDomainError(c, err, "Failed to update account")
	}
	return c.JSON(http.StatusOK, account)
}

// DeleteAccount handles DELETE /api/v1/accounts/:id. The account's entire
// transaction history goes with it; other account balances are untouched.
func (h *AccountHandler) DeleteAccount(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid account ID", nil)
	}

	deleted, err := h.accountService.Delete(c.Request().Context(), userID, id)
	if err != nil {
		return handleDomainError(c, err, "Failed to delete account")
	}

	log.Info().Str("user_id", userID).Str("account_id", id.String()).Int("deleted_transactions", deleted).Msg("Account deleted")
	return c.JSON(http.StatusOK, DeleteAccountResponse{DeletedTransactions: deleted})
}
