package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/kasapp/kas-backend/internal/middleware"
	"github.com/kasapp/kas-backend/internal/service"
)

// maxImportFileSize caps uploaded import files at 10 MB.
const maxImportFileSize = 10 << 20

// ImportHandler handles statement import HTTP requests
type ImportHandler struct {
	importService *service.ImportService
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(importService *service.ImportService) *ImportHandler {
	return &ImportHandler{importService: importService}
}

// PreviewImportRequest represents the preview request body
type PreviewImportRequest struct {
	ProfileID        uuid.UUID            `json:"profileId"`
	Rows             []domain.ParsedRow   `json:"rows"`
	CategoryMappings map[string]uuid.UUID `json:"categoryMappings"`
	AccountMappings  map[string]uuid.UUID `json:"accountMappings"`
}

// ExecuteImportRequest represents the execute request body
type ExecuteImportRequest struct {
	ProfileID        uuid.UUID            `json:"profileId"`
	Rows             []domain.ParsedRow   `json:"rows"`
	CategoryMappings []domain.MappingItem `json:"categoryMappings"`
	AccountMappings  []domain.MappingItem `json:"accountMappings"`
	ExcludedIndices  []int                `json:"excludedIndices"`
}

// ParseFile handles POST /api/v1/imports/parse with a multipart file upload
func (h *ImportHandler) ParseFile(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "No file provided", []ValidationError{
			{Field: "file", Message: "File is required"},
		})
	}
	if file.Size > maxImportFileSize {
		return NewValidationError(c, "File too large", []ValidationError{
			{Field: "file", Message: "File must be 10MB or smaller"},
		})
	}

	src, err := file.Open()
	if err != nil {
		return NewValidationError(c, "Could not read file", nil)
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return NewValidationError(c, "Could not read file", nil)
	}

	result, err := h.importService.Parse(c.Request().Context(), userID, content, file.Filename)
	if err != nil {
		var fileErr domain.ImportFileError
		if errors.As(err, &fileErr) {
			return NewValidationError(c, fileErr.Reason, nil)
		}
		return handleDomainError(c, err, "Failed to parse import file")
	}

	log.Info().Str("user_id", userID).Str("filename", file.Filename).Int("rows", result.TotalRows).Msg("Import file parsed")
	return c.JSON(http.StatusOK, result)
}

// PreviewImport handles POST /api/v1/imports/preview, a dry run that resolves
// mappings and pairs transfers without writing anything.
func (h *ImportHandler) PreviewImport(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req PreviewImportRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	result, err := h.importService.Preview(c.Request().Context(), userID, req.ProfileID, req.Rows, req.CategoryMappings, req.AccountMappings)
	if err != nil {
		return handleDomainError(c, err, "Failed to preview import")
	}
	return c.JSON(http.StatusOK, result)
}

// ExecuteImport handles POST /api/v1/imports/execute
func (h *ImportHandler) ExecuteImport(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req ExecuteImportRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	result, err := h.importService.Execute(c.Request().Context(), userID, req.ProfileID, req.Rows, req.CategoryMappings, req.AccountMappings, req.ExcludedIndices)
	if err != nil {
		return handleDomainError(c, err, "Failed to execute import")
	}

	log.Info().
		Str("user_id", userID).
		Int("imported", result.ImportedCount).
		Int("skipped", result.SkippedCount).
		Int("transfers", result.TransferCount).
		Msg("Import executed")
	return c.JSON(http.StatusOK, result)
}

// GetProfiles handles GET /api/v1/imports/profiles
func (h *ImportHandler) GetProfiles(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	profiles, err := h.importService.Profiles(c.Request().Context(), userID)
	if err != nil {
		return handleDomainError(c, err, "Failed to list import profiles")
	}
	if profiles == nil {
		profiles = []*domain.ImportProfile{}
	}
	return c.JSON(http.StatusOK, profiles)
}

// DeleteProfile handles DELETE /api/v1/imports/profiles/:id
func (h *ImportHandler) DeleteProfile(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid profile ID", nil)
	}

	if err := h.importService.DeleteProfile(c.Request().Context(), userID, id); err != nil {
		return handleDomainError(c, err, "Failed to delete import profile")
	}
	return c.NoContent(http.StatusNoContent)
}
