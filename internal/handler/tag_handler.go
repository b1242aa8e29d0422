package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/kasapp/kas-backend/internal/middleware"
	"github.com/kasapp/kas-backend/internal/service"
)

// TagHandler handles tag-related HTTP requests
type TagHandler struct {
	tagService *service.TagService
}

// NewTagHandler creates a new TagHandler
func NewTagHandler(tagService *service.TagService) *TagHandler {
	return &TagHandler{tagService: tagService}
}

// GetTags handles GET /api/v1/tags
func (h *TagHandler) GetTags(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	tags, err := h.tagService.GetAll(c.Request().Context(), userID)
	if err != nil {
		return handleDomainError(c, err, "Failed to list tags")
	}
	if tags == nil {
		tags = []*domain.Tag{}
	}
	return c.JSON(http.StatusOK, tags)
}
