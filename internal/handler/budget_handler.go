package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/kasapp/kas-backend/internal/middleware"
	"github.com/kasapp/kas-backend/internal/service"
)

// BudgetHandler handles budget-related HTTP requests
type BudgetHandler struct {
	budgetService *service.BudgetService
}

// NewBudgetHandler creates a new BudgetHandler
func NewBudgetHandler(budgetService *service.BudgetService) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

// CreateBudgetRequest represents the create budget request body
type CreateBudgetRequest struct {
	CategoryID  uuid.UUID `json:"categoryId"`
	Month       string    `json:"month"`
	LimitAmount string    `json:"limitAmount"`
}

// UpdateBudgetRequest represents the update budget request body
type UpdateBudgetRequest struct {
	LimitAmount string `json:"limitAmount"`
}

// BudgetResponse decorates a budget with its derived usage fields
type BudgetResponse struct {
	*domain.Budget
	PercentageUsed float64 `json:"percentageUsed"`
	Status         string  `json:"status"`
}

func toBudgetResponse(b *domain.Budget) BudgetResponse {
	return BudgetResponse{Budget: b, PercentageUsed: b.PercentageUsed(), Status: b.Status()}
}

// CreateBudget handles POST /api/v1/budgets
func (h *BudgetHandler) CreateBudget(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateBudgetRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	limit, err := decimal.NewFromString(req.LimitAmount)
	if err != nil {
		return NewValidationError(c, "Invalid limit amount", []ValidationError{
			{Field: "limitAmount", Message: "Must be a valid decimal number"},
		})
	}

	budget, err := h.budgetService.Create(c.Request().Context(), userID, service.CreateBudgetInput{
		CategoryID:  req.CategoryID,
		Month:       req.Month,
		LimitAmount: limit,
	})
	if err != nil {
		return handleDomainError(c, err, "Failed to create budget")
	}
	return c.JSON(http.StatusCreated, toBudgetResponse(budget))
}

// GetBudgets handles GET /api/v1/budgets with optional ?month=YYYY-MM
func (h *BudgetHandler) GetBudgets(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	budgets, err := h.budgetService.GetAll(c.Request().Context(), userID, c.QueryParam("month"))
	if err != nil {
		return handleDomainError(c, err, "Failed to list budgets")
	}

	result := make([]BudgetResponse, len(budgets))
	for i, b := range budgets {
		result[i] = toBudgetResponse(b)
	}
	return c.JSON(http.StatusOK, result)
}

// UpdateBudget handles PATCH /api/v1/budgets/:id. Only the limit may change;
// spent is recomputed from transactions, never set by clients.
func (h *BudgetHandler) UpdateBudget(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid budget ID", nil)
	}

	var req UpdateBudgetRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	limit, err := decimal.NewFromString(req.LimitAmount)
	if err != nil {
		return NewValidationError(c, "Invalid limit amount", []ValidationError{
			{Field: "limitAmount", Message: "Must be a valid decimal number"},
		})
	}

	budget, err := h.budgetService.UpdateLimit(c.Request().Context(), userID, id, limit)
	if err != nil {
		return handleDomainError(c, err, "Failed to update budget")
	}
	return c.JSON(http.StatusOK, toBudgetResponse(budget))
}

// DeleteBudget handles DELETE /api/v1/budgets/:id
func (h *BudgetHandler) DeleteBudget(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid budget ID", nil)
	}

	if err := h.budgetService.Delete(c.Request().Context(), userID, id); err != nil {
		return handleDomainError(c, err, "Failed to delete budget")
	}
	return c.NoContent(http.StatusNoContent)
}
