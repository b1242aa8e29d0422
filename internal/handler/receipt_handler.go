package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/kasapp/kas-backend/internal/middleware"
	"github.com/kasapp/kas-backend/internal/service"
)

// ReceiptHandler handles receipt image HTTP requests
type ReceiptHandler struct {
	receiptService *service.ReceiptService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(receiptService *service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService}
}

// ReceiptURLResponse carries a short-lived presigned receipt URL
type ReceiptURLResponse struct {
	URL string `json:"url"`
}

// UploadReceipt handles POST /api/v1/transactions/:id/receipt
func (h *ReceiptHandler) UploadReceipt(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	if !h.receiptService.IsEnabled() {
		return NewServiceUnavailableError(c, "Receipt uploads are disabled (storage not configured)")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "No file provided", []ValidationError{
			{Field: "file", Message: "File is required"},
		})
	}

	src, err := file.Open()
	if err != nil {
		return NewValidationError(c, "Could not read file", nil)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return NewValidationError(c, "Could not read file", nil)
	}

	url, err := h.receiptService.Upload(c.Request().Context(), userID, id, data, file.Filename)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReceiptTooLarge),
			errors.Is(err, service.ErrReceiptInvalidFormat),
			errors.Is(err, service.ErrReceiptInvalidImageData):
			return NewValidationError(c, err.Error(), nil)
		case errors.Is(err, service.ErrReceiptStorageNotEnabled):
			return NewServiceUnavailableError(c, err.Error())
		}
		return handleDomainError(c, err, "Failed to upload receipt")
	}

	log.Info().Str("user_id", userID).Str("transaction_id", id.String()).Msg("Receipt uploaded")
	return c.JSON(http.StatusCreated, ReceiptURLResponse{URL: url})
}

// GetReceiptURL handles GET /api/v1/transactions/:id/receipt
func (h *ReceiptHandler) GetReceiptURL(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	if !h.receiptService.IsEnabled() {
		return NewServiceUnavailableError(c, "Receipt storage is disabled")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	url, err := h.receiptService.URL(c.Request().Context(), userID, id)
	if err != nil {
		return handleDomainError(c, err, "Failed to get receipt URL")
	}
	return c.JSON(http.StatusOK, ReceiptURLResponse{URL: url})
}

// DeleteReceipt handles DELETE /api/v1/transactions/:id/receipt
func (h *ReceiptHandler) DeleteReceipt(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	if !h.receiptService.IsEnabled() {
		return NewServiceUnavailableError(c, "Receipt storage is disabled")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	if err := h.receiptService.Delete(c.Request().Context(), userID, id); err != nil {
		return handleDomainError(c, err, "Failed to delete receipt")
	}
	return c.NoContent(http.StatusNoContent)
}
