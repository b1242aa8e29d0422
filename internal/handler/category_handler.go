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

// CategoryHandler handles category-related HTTP requests
type CategoryHandler struct {
	categoryService *service.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// CreateCategoryRequest represents the create category request body
type CreateCategoryRequest struct {
	Name     string     `json:"name"`
	Type     string     `json:"type"`
	Color    string     `json:"color"`
	Icon     string     `json:"icon"`
	ParentID *uuid.UUID `json:"parentId,omitempty"`
}

// UpdateCategoryRequest represents the update category request body.
// Setting clearParent true detaches the category from its parent.
type UpdateCategoryRequest struct {
	Name        *string    `json:"name,omitempty"`
	Type        *string    `json:"type,omitempty"`
	Color       *string    `json:"color,omitempty"`
	Icon        *string    `json:"icon,omitempty"`
	ParentID    *uuid.UUID `json:"parentId,omitempty"`
	ClearParent bool       `json:"clearParent,omitempty"`
}

// DeleteCategoryResponse reports how many transactions went with the category
type DeleteCategoryResponse struct {
	DeletedTransactions int `json:"deletedTransactions"`
}

// CreateCategory handles POST /api/v1/categories
func (h *CategoryHandler) CreateCategory(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	category, err := h.categoryService.Create(c.Request().Context(), userID, service.CreateCategoryInput{
		Name:     req.Name,
		Type:     domain.CategoryType(req.Type),
		Color:    req.Color,
		Icon:     req.Icon,
		ParentID: req.ParentID,
	})
	if err != nil {
		return handleDomainError(c, err, "Failed to create category")
	}

	log.Info().Str("user_id", userID).Str("category_id", category.ID.String()).Msg("Category created")
	return c.JSON(http.StatusCreated, category)
}

// GetCategories handles GET /api/v1/categories with optional ?type= filter
func (h *CategoryHandler) GetCategories(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var categoryType *domain.CategoryType
	if t := c.QueryParam("type"); t != "" {
		ct := domain.CategoryType(t)
		if ct != domain.CategoryTypeIncome && ct != domain.CategoryTypeExpense {
			return NewValidationError(c, "Invalid type", []ValidationError{
				{Field: "type", Message: "Must be one of: income, expense"},
			})
		}
		categoryType = &ct
	}

	categories, err := h.categoryService.GetAll(c.Request().Context(), userID, categoryType)
	if err != nil {
		return handleDomainError(c, err, "Failed to list categories")
	}
	if categories == nil {
		categories = []*domain.Category{}
	}
	return c.JSON(http.StatusOK, categories)
}

// UpdateCategory handles PATCH /api/v1/categories/:id
func (h *CategoryHandler) UpdateCategory(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid category ID", nil)
	}

	var req UpdateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	patch := &domain.CategoryUpdate{
		Name:         req.Name,
		Color:        req.Color,
		Icon:         req.Icon,
		ParentID:     req.ParentID,
		SetParentNil: req.ClearParent,
	}
	if req.Type != nil {
		t := domain.CategoryType(*req.Type)
		patch.Type = &t
	}

	category, err := h.categoryService.Update(c.Request().Context(), userID, id, patch)
	if err != nil {
		return handleDomainError(c, err, "Failed to update category")
	}
	return c.JSON(http.StatusOK, category)
}

// DeleteCategory handles DELETE /api/v1/categories/:id. Transactions in the
// category are removed with balance reversal; child categories are detached.
func (h *CategoryHandler) DeleteCategory(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid category ID", nil)
	}

	deleted, err := h.categoryService.Delete(c.Request().Context(), userID, id)
	if err != nil {
		return handleDomainError(c, err, "Failed to delete category")
	}

	log.Info().Str("user_id", userID).Str("category_id", id.String()).Int("deleted_transactions", deleted).Msg("Category deleted")
	return c.JSON(http.StatusOK, DeleteCategoryResponse{DeletedTransactions: deleted})
}
