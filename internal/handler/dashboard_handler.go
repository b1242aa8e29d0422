package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/kasapp/kas-backend/internal/middleware"
	"github.com/kasapp/kas-backend/internal/service"
)

// DashboardHandler handles dashboard HTTP requests
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetStats handles GET /api/v1/dashboard/stats with optional ?month=YYYY-MM
func (h *DashboardHandler) GetStats(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	stats, err := h.dashboardService.Stats(c.Request().Context(), userID, c.QueryParam("month"))
	if err != nil {
		return handleDomainError(c, err, "Failed to load dashboard stats")
	}
	return c.JSON(http.StatusOK, stats)
}

// GetRecent handles GET /api/v1/dashboard/recent with optional ?limit=
func (h *DashboardHandler) GetRecent(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	limit := 0
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return NewValidationError(c, "Invalid limit", nil)
		}
		limit = parsed
	}

	recent, err := h.dashboardService.Recent(c.Request().Context(), userID, limit)
	if err != nil {
		return handleDomainError(c, err, "Failed to load recent transactions")
	}
	if recent == nil {
		recent = []*domain.Transaction{}
	}
	return c.JSON(http.StatusOK, recent)
}
