package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/kasapp/kas-backend/internal/middleware"
	"github.com/kasapp/kas-backend/internal/service"
)

// TransactionHandler handles transaction-related HTTP requests. Updates and
// deletes that land on a transfer leg are routed to the transfer service so
// both legs stay consistent.
type TransactionHandler struct {
	transactionService *service.TransactionService
	transferService    *service.TransferService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService *service.TransactionService, transferService *service.TransferService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		transferService:    transferService,
	}
}

// CreateTransactionRequest represents the create transaction request body
type CreateTransactionRequest struct {
	Date        string    `json:"date"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	CategoryID  uuid.UUID `json:"categoryId"`
	AccountID   uuid.UUID `json:"accountId"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags,omitempty"`
}

// UpdateTransactionRequest represents the update transaction request body.
// All fields are optional; omitted fields keep their current values.
type UpdateTransactionRequest struct {
	Date        *string    `json:"date,omitempty"`
	Type        *string    `json:"type,omitempty"`
	Amount      *string    `json:"amount,omitempty"`
	CategoryID  *uuid.UUID `json:"categoryId,omitempty"`
	AccountID   *uuid.UUID `json:"accountId,omitempty"`
	Description *string    `json:"description,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
}

// PaginatedTransactionsResponse represents paginated transactions in API
// responses
type PaginatedTransactionsResponse struct {
	Data  []*domain.Transaction `json:"data"`
	Skip  int                   `json:"skip"`
	Limit int                   `json:"limit"`
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// CreateTransaction handles POST /api/v1/transactions
func (h *TransactionHandler) CreateTransaction(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateTransactionRequest
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

	transaction, err := h.transactionService.Create(c.Request().Context(), userID, service.CreateTransactionInput{
		Date:        date,
		Type:        domain.TransactionType(req.Type),
		Amount:      amount,
		CategoryID:  req.CategoryID,
		AccountID:   req.AccountID,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		return handleDomainError(c, err, "Failed to create transaction")
	}

	log.Info().Str("user_id", userID).Str("transaction_id", transaction.ID.String()).Msg("Transaction created")
	return c.JSON(http.StatusCreated, transaction)
}

// GetTransactions handles GET /api/v1/transactions with filters
func (h *TransactionHandler) GetTransactions(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	filter := &domain.TransactionFilter{
		Search: c.QueryParam("search"),
		Month:  c.QueryParam("month"),
	}

	if t := c.QueryParam("type"); t != "" {
		transactionType := domain.TransactionType(t)
		if !domain.ValidTransactionType(transactionType) {
			return NewValidationError(c, "Invalid type", []ValidationError{
				{Field: "type", Message: "Must be one of: income, expense"},
			})
		}
		filter.Type = &transactionType
	}
	if idStr := c.QueryParam("categoryId"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return NewValidationError(c, "Invalid categoryId", nil)
		}
		filter.CategoryID = &id
	}
	if idStr := c.QueryParam("accountId"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return NewValidationError(c, "Invalid accountId", nil)
		}
		filter.AccountID = &id
	}
	if skipStr := c.QueryParam("skip"); skipStr != "" {
		skip, err := strconv.Atoi(skipStr)
		if err != nil || skip < 0 {
			return NewValidationError(c, "Invalid skip", nil)
		}
		filter.Skip = skip
	}
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return NewValidationError(c, "Invalid limit", nil)
		}
		filter.Limit = limit
	}

	transactions, err := h.transactionService.List(c.Request().Context(), userID, filter)
	if err != nil {
		return handleDomainError(c, err, "Failed to list transactions")
	}
	if transactions == nil {
		transactions = []*domain.Transaction{}
	}
	return c.JSON(http.StatusOK, PaginatedTransactionsResponse{
		Data:  transactions,
		Skip:  filter.Skip,
		Limit: filter.Limit,
	})
}

// TransactionCountResponse reports how many transactions match a filter,
// used by clients to warn before account or category deletion.
type TransactionCountResponse struct {
	Count int64 `json:"count"`
}

// CountTransactions handles GET /api/v1/transactions/count
func (h *TransactionHandler) CountTransactions(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var accountID, categoryID *uuid.UUID
	if idStr := c.QueryParam("accountId"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return NewValidationError(c, "Invalid accountId", nil)
		}
		accountID = &id
	}
	if idStr := c.QueryParam("categoryId"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return NewValidationError(c, "Invalid categoryId", nil)
		}
		categoryID = &id
	}

	count, err := h.transactionService.Count(c.Request().Context(), userID, accountID, categoryID)
	if err != nil {
		return handleDomainError(c, err, "Failed to count transactions")
	}
	return c.JSON(http.StatusOK, TransactionCountResponse{Count: count})
}

// GetTransaction handles GET /api/v1/transactions/:id
func (h *TransactionHandler) GetTransaction(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	transaction, err := h.transactionService.GetByID(c.Request().Context(), userID, id)
	if err != nil {
		return handleDomainError(c, err, "Failed to get transaction")
	}
	return c.JSON(http.StatusOK, transaction)
}

// UpdateTransaction handles PATCH /api/v1/transactions/:id. When the target
// is a transfer leg, only the shared fields may change and the update is
// applied to both legs.
func (h *TransactionHandler) UpdateTransaction(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	var req UpdateTransactionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	input := service.UpdateTransactionInput{
		CategoryID:  req.CategoryID,
		AccountID:   req.AccountID,
		Description: req.Description,
		Tags:        req.Tags,
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
	if req.Type != nil {
		t := domain.TransactionType(*req.Type)
		input.Type = &t
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

	transaction, err := h.transactionService.Update(c.Request().Context(), userID, id, input)
	if errors.Is(err, domain.ErrIsTransfer) {
		return h.updateTransferLeg(c, userID, id, req, input)
	}
	if err != nil {
		return handleDomainError(c, err, "Failed to update transaction")
	}
	return c.JSON(http.StatusOK, transaction)
}

// updateTransferLeg applies a transaction patch to a transfer pair. Fields
// that would desynchronize the legs are rejected.
func (h *TransactionHandler) updateTransferLeg(c echo.Context, userID string, id uuid.UUID, req UpdateTransactionRequest, input service.UpdateTransactionInput) error {
	if req.Type != nil || req.CategoryID != nil || req.AccountID != nil || req.Tags != nil {
		return NewValidationError(c, domain.ErrTransferFieldImmutable.Error(), nil)
	}

	result, err := h.transferService.Update(c.Request().Context(), userID, id, service.UpdateTransferInput{
		Amount:      input.Amount,
		Date:        input.Date,
		Description: input.Description,
	})
	if err != nil {
		return handleDomainError(c, err, "Failed to update transfer")
	}

	// Return the leg that was addressed.
	if result.Outgoing.ID == id {
		return c.JSON(http.StatusOK, result.Outgoing)
	}
	return c.JSON(http.StatusOK, result.Incoming)
}

// DeleteTransaction handles DELETE /api/v1/transactions/:id. Deleting a
// transfer leg removes the whole pair.
func (h *TransactionHandler) DeleteTransaction(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	err = h.transactionService.Delete(c.Request().Context(), userID, id)
	if errors.Is(err, domain.ErrIsTransfer) {
		err = h.transferService.Delete(c.Request().Context(), userID, id)
	}
	if err != nil {
		return handleDomainError(c, err, "Failed to delete transaction")
	}

	log.Info().Str("user_id", userID).Str("transaction_id", id.String()).Msg("Transaction deleted")
	return c.NoContent(http.StatusNoContent)
}
