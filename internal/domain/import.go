package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mapping types for import value mappings.
const (
	MappingTypeCategory = "category"
	MappingTypeAccount  = "account"
)

// DefaultProfileName is the fixed-template profile created per user on first
// import.
const DefaultProfileName = "Default Template"

// ImportProfile stores import configuration for one file template.
type ImportProfile struct {
	ID            uuid.UUID         `json:"id"`
	UserID        string            `json:"-"`
	Name          string            `json:"name"`
	ColumnMapping map[string]string `json:"columnMapping"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// ImportValueMapping associates a raw file value with an internal category or
// account ID, keyed by (profile, mapping_type, csv_value) so repeat imports of
// the same format resolve automatically.
type ImportValueMapping struct {
	ID          uuid.UUID `json:"id"`
	ProfileID   uuid.UUID `json:"profileId"`
	MappingType string    `json:"mappingType"`
	CSVValue    string    `json:"csvValue"`
	InternalID  uuid.UUID `json:"internalId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MappingItem is one csv_value → internal ID assignment supplied by the
// client during import.
type MappingItem struct {
	CSVValue   string    `json:"csvValue"`
	InternalID uuid.UUID `json:"internalId"`
}

// ParsedRow is one usable row extracted from an import file. RowIndex is the
// zero-based data-row position; user-facing messages are 1-indexed.
type ParsedRow struct {
	RowIndex      int             `json:"rowIndex"`
	ExternalID    string          `json:"externalId"`
	Date          string          `json:"date"`
	CategoryValue string          `json:"categoryValue"`
	AccountValue  string          `json:"accountValue"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
}

// MappingSuggestion pairs an unmapped file value with the closest existing
// entity by name.
type MappingSuggestion struct {
	CSVValue      string    `json:"csvValue"`
	SuggestedID   uuid.UUID `json:"suggestedId"`
	SuggestedName string    `json:"suggestedName"`
}

// ParseResult is the outcome of parse + mapping analysis.
type ParseResult struct {
	ProfileID                uuid.UUID            `json:"profileId"`
	TotalRows                int                  `json:"totalRows"`
	ParsedRows               []ParsedRow          `json:"parsedRows"`
	UnmappedCategories       []string             `json:"unmappedCategories"`
	UnmappedAccounts         []string             `json:"unmappedAccounts"`
	ExistingCategoryMappings map[string]uuid.UUID `json:"existingCategoryMappings"`
	ExistingAccountMappings  map[string]uuid.UUID `json:"existingAccountMappings"`
	CategorySuggestions      []MappingSuggestion  `json:"categorySuggestions"`
	AccountSuggestions       []MappingSuggestion  `json:"accountSuggestions"`
}

// PreviewRow shows how one parsed row would resolve on import.
type PreviewRow struct {
	RowIndex          int             `json:"rowIndex"`
	ExternalID        string          `json:"externalId"`
	Date              string          `json:"date"`
	ParsedDate        *string         `json:"parsedDate,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Type              string          `json:"type"`
	Description       string          `json:"description"`
	CategoryValue     string          `json:"categoryValue"`
	CategoryID        *uuid.UUID      `json:"categoryId,omitempty"`
	CategoryName      *string         `json:"categoryName,omitempty"`
	AccountValue      string          `json:"accountValue"`
	AccountID         *uuid.UUID      `json:"accountId,omitempty"`
	AccountName       *string         `json:"accountName,omitempty"`
	IsValid           bool            `json:"isValid"`
	ValidationErrors  []string        `json:"validationErrors"`
	IsTransfer        bool            `json:"isTransfer"`
	TransferPairIndex *int            `json:"transferPairIndex,omitempty"`
}

// PreviewResult is the dry-run view of an import.
type PreviewResult struct {
	ProfileID      uuid.UUID    `json:"profileId"`
	Rows           []PreviewRow `json:"rows"`
	TotalValid     int          `json:"totalValid"`
	TotalInvalid   int          `json:"totalInvalid"`
	TotalTransfers int          `json:"totalTransfers"`
	Warnings       []string     `json:"warnings"`
}

// ImportResult reports an executed batch. Errors is capped; a bad row never
// aborts the batch.
type ImportResult struct {
	ImportedCount int      `json:"importedCount"`
	SkippedCount  int      `json:"skippedCount"`
	TransferCount int      `json:"transferCount"`
	Errors        []string `json:"errors"`
}

// ImportFileError is a whole-file parse failure (bad encoding, missing
// columns, no usable rows), raised before any row processing begins.
type ImportFileError struct {
	Reason string
}

func (e ImportFileError) Error() string {
	return e.Reason
}

type ImportProfileRepository interface {
	GetOrCreateDefault(ctx context.Context, userID string) (*ImportProfile, error)
	GetByID(ctx context.Context, userID string, id uuid.UUID) (*ImportProfile, error)
	GetAll(ctx context.Context, userID string) ([]*ImportProfile, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
	// GetMappings returns csv_value → internal ID for one mapping type.
	GetMappings(ctx context.Context, profileID uuid.UUID, mappingType string) (map[string]uuid.UUID, error)
	// UpsertMappings inserts or retargets mappings keyed by
	// (profile, type, csv_value).
	UpsertMappings(ctx context.Context, profileID uuid.UUID, mappingType string, items []MappingItem) error
	// DeleteByInternalID drops stale mappings pointing at a removed entity.
	DeleteByInternalID(ctx context.Context, tx interface{}, internalID uuid.UUID, mappingType string) (int, error)
}
