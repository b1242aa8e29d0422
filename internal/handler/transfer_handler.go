package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/kasapp/kas-backend/internal/middleware"
	"github.com/kasapp/kas-backend/internal/service"
)

// TransferHandler handles transfer-related HTTP requests
type TransferHandler struct {
	transferService *service.TransferService
}

// NewTransferHandler creates a new TransferHandler
func NewTransferHandler(transferService *service.TransferService) *TransferHandler {
	return &TransferHandler{transferService: transferService}
}

// CreateTransferRequest represents the create transfer request body
type CreateTransferRequest struct {
	FromAccountID   uuid.UUID `json:"fromAccountId"`
	ToAccountID     uuid.UUID `json:"toAccountId"`
	Amount          string    `json:"amount"`
	Date            string    `json:"date"`
	Description     string    `json:"description,omitempty"`
	ShowInSummaries bool      `json:"showInSummaries,omitempty"`
}

// UpdateTransferRequest represents the update transfer request body
type UpdateTransferRequest struct {
	Amount          *string `json:"amount,omitempty"`
	Date            *string `json:"date,omitempty"`
	Description     *string `json:"description,omitempty"`
	ShowInSummaries *bool   `json:"showInSummaries,omitempty"`
}

// CreateTransfer handles POST /api/v1/transfers
func (h *TransferHandler) CreateTransfer(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateTransferRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return NewValidationError(c, "Invalid date", []ValidationError{
			{Field: "date", Message: "Must be in YYYY-MM-DD or RFC3339 format"},
		})
	}

	result, err := h.transferService.Create(c.Request().Context(), userID, service.CreateTransferInput{
		FromAccountID:   req.FromAccountID,
		ToAccountID:     req.ToAccountID,
		Amount:          amount,
		Date:            date,
		Description:     req.Description,
		ShowInSummaries: req.ShowInSummaries,
	})
	if err != nil {
		return handleDomainError(c, err, "Failed to create transfer")
	}

	log.Info().Str("user_id", userID).Str("group_id", result.GroupID.String()).Msg("Transfer created")
	return c.JSON(http.StatusCreated, result)
}

// GetTransfer handles GET /api/v1/transfers/:id, returning both legs of the
// transfer the transaction belongs to.
func (h *TransferHandler) GetTransfer(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	result, err := h.transferService.GetPair(c.Request().Context(), userID, id)
	if err != nil {
		return handleDomainError(c, err, "Failed to get transfer")
	}
	return c.JSON(http.StatusOK, result)
}

// GetPairedTransaction handles GET /api/v1/transfers/:id/pair, returning the
// sibling leg of a transfer transaction.
func (h *TransferHandler) GetPairedTransaction(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	paired, err := h.transferService.GetPaired(c.Request().Context(), userID, id)
	if err != nil {
		return handleDomainError(c, err, "Failed to get paired transaction")
	}
	if paired == nil {
		return NewNotFoundError(c, "No paired transaction")
	}
	return c.JSON(http.StatusOK, paired)
}

// UpdateTransfer handles PATCH /api/v1/transfers/:id where :id is either leg
func (h *TransferHandler) UpdateTransfer(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	var req UpdateTransferRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	input := service.UpdateTransferInput{
		Description:     req.Description,
		ShowInSummaries: req.ShowInSummaries,
	}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			return NewValidationError(c, "Invalid amount", []ValidationError{
				{Field: "amount", Message: "Must be a valid decimal number"},
			})
		}
		input.Amount = &amount
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			return NewValidationError(c, "Invalid date", []ValidationError{
				{Field: "date", Message: "Must be in YYYY-MM-DD or RFC3339 format"},
			})
		}
		input.Date = &date
	}

	result, err := h.transferService.Update(c.Request().Context(), userID, id, input)
	if err != nil {
		return handleDomainError(c, err, "Failed to update transfer")
	}
	return c.JSON(http.StatusOK, result)
}

// DeleteTransfer handles DELETE /api/v1/transfers/:id, removing both legs
// and reversing their balance effects.
func (h *TransferHandler) DeleteTransfer(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	if err := h.transferService.Delete(c.Request().Context(), userID, id); err != nil {
		return handleDomainError(c, err, "Failed to delete transfer")
	}

	log.Info().Str("user_id", userID).Str("transaction_id", id.String()).Msg("Transfer deleted")
	return c.NoContent(http.StatusNoContent)
}
