package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/kasapp/kas-backend/internal/events"
)

// maxImportErrors caps the error list returned from an executed batch.
const maxImportErrors = 50

// ImportService runs the CSV/Excel import pipeline: parse, mapping analysis,
// dry-run preview, and execution. Execution goes through the transaction and
// transfer engines row by row, so one bad row never poisons the rest of the
// batch.
type ImportService struct {
	profileRepo  domain.ImportProfileRepository
	categoryRepo domain.CategoryRepository
	accountRepo  domain.AccountRepository
	transactions *TransactionService
	transfers    *TransferService
	publisher    events.Publisher
}

func NewImportService(
	profileRepo domain.ImportProfileRepository,
	categoryRepo domain.CategoryRepository,
	accountRepo domain.AccountRepository,
	transactions *TransactionService,
	transfers *TransferService,
	publisher events.Publisher,
) *ImportService {
	return &ImportService{
		profileRepo:  profileRepo,
		categoryRepo: categoryRepo,
		accountRepo:  accountRepo,
		transactions: transactions,
		transfers:    transfers,
		publisher:    publisher,
	}
}

// namedEntity is the bit of a category or account that mapping suggestions
// need.
type namedEntity struct {
	ID   uuid.UUID
	Name string
}

// suggestMappings pairs each unmapped file value with its closest existing
// entity by edit distance. A suggestion is only offered when the distance is
// small relative to the value, so "Grocery" suggests "Groceries" but random
// values suggest nothing.
func suggestMappings(values []string, candidates []namedEntity) []domain.MappingSuggestion {
	var out []domain.MappingSuggestion
	for _, value := range values {
		best := -1
		bestDist := 0
		for i, c := range candidates {
			d := levenshtein.ComputeDistance(strings.ToLower(value), strings.ToLower(c.Name))
			if best < 0 || d < bestDist {
				best = i
				bestDist = d
			}
		}
		if best < 0 {
			continue
		}
		if bestDist <= len([]rune(value))/2 && bestDist <= 5 {
			out = append(out, domain.MappingSuggestion{
				CSVValue:      value,
				SuggestedID:   candidates[best].ID,
				SuggestedName: candidates[best].Name,
			})
		}
	}
	return out
}

// Parse parses the uploaded file and reports which category and account
// values still need mapping, together with remembered mappings from earlier
// imports and fuzzy suggestions for the rest.
func (s *ImportService) Parse(ctx context.Context, userID string, content []byte, filename string) (*domain.ParseResult, error) {
	rows, err := ParseImportFile(content, filename)
	if err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.GetOrCreateDefault(ctx, userID)
	if err != nil {
		return nil, err
	}

	categoryValues := make(map[string]bool)
	accountValues := make(map[string]bool)
	for _, row := range rows {
		if row.CategoryValue != "" {
			categoryValues[row.CategoryValue] = true
		}
		if row.AccountValue != "" {
			accountValues[row.AccountValue] = true
		}
	}

	existingCategories, err := s.profileRepo.GetMappings(ctx, profile.ID, domain.MappingTypeCategory)
	if err != nil {
		return nil, err
	}
	existingAccounts, err := s.profileRepo.GetMappings(ctx, profile.ID, domain.MappingTypeAccount)
	if err != nil {
		return nil, err
	}

	var unmappedCategories, unmappedAccounts []string
	for v := range categoryValues {
		if _, ok := existingCategories[v]; !ok {
			unmappedCategories = append(unmappedCategories, v)
		}
	}
	for v := range accountValues {
		if _, ok := existingAccounts[v]; !ok {
			unmappedAccounts = append(unmappedAccounts, v)
		}
	}
	sort.Strings(unmappedCategories)
	sort.Strings(unmappedAccounts)

	categories, err := s.categoryRepo.GetAll(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	accounts, err := s.accountRepo.GetAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	categoryCandidates := make([]namedEntity, 0, len(categories))
	for _, c := range categories {
		categoryCandidates = append(categoryCandidates, namedEntity{ID: c.ID, Name: c.Name})
	}
	accountCandidates := make([]namedEntity, 0, len(accounts))
	for _, a := range accounts {
		accountCandidates = append(accountCandidates, namedEntity{ID: a.ID, Name: a.Name})
	}

	return &domain.ParseResult{
		ProfileID:                profile.ID,
		TotalRows:                len(rows),
		ParsedRows:               rows,
		UnmappedCategories:       unmappedCategories,
		UnmappedAccounts:         unmappedAccounts,
		ExistingCategoryMappings: existingCategories,
		ExistingAccountMappings:  existingAccounts,
		CategorySuggestions:      suggestMappings(unmappedCategories, categoryCandidates),
		AccountSuggestions:       suggestMappings(unmappedAccounts, accountCandidates),
	}, nil
}

// transferPair is an (outgoing, incoming) row match.
type transferPair struct {
	Out domain.ParsedRow
	In  domain.ParsedRow
}

// detectTransferPairs splits rows into matched transfer pairs and regular
// rows. Candidates are rows whose mapped category is one of the transfer
// categories; they pair greedily on identical (raw date, absolute amount)
// with opposite signs and different accounts. Unmatched candidates fall back
// to regular rows with a warning.
func detectTransferPairs(rows []domain.ParsedRow, categoryMappings map[string]uuid.UUID, cats domain.TransferCategories) ([]transferPair, []domain.ParsedRow, []string) {
	var candidates, regular []domain.ParsedRow
	var warnings []string

	for _, row := range rows {
		if id, ok := categoryMappings[row.CategoryValue]; ok && cats.Contains(id) {
			candidates = append(candidates, row)
		} else {
			regular = append(regular, row)
		}
	}
	if len(candidates) == 0 {
		return nil, regular, warnings
	}

	type groupKey struct {
		date string
		abs  string
	}
	groups := make(map[groupKey][]domain.ParsedRow)
	var keyOrder []groupKey
	for _, row := range candidates {
		key := groupKey{date: row.Date, abs: row.Amount.Abs().String()}
		if _, seen := groups[key]; !seen {
			keyOrder = append(keyOrder, key)
		}
		groups[key] = append(groups[key], row)
	}

	var pairs []transferPair
	var unmatched []domain.ParsedRow

	for _, key := range keyOrder {
		group := groups[key]
		var outgoing, incoming []domain.ParsedRow
		for _, row := range group {
			if row.Amount.IsNegative() {
				outgoing = append(outgoing, row)
			} else {
				incoming = append(incoming, row)
			}
		}

		matchedIn := make([]bool, len(incoming))
		matchedOut := make([]bool, len(outgoing))
		for oi, out := range outgoing {
			for ii, in := range incoming {
				if matchedIn[ii] || out.AccountValue == in.AccountValue {
					continue
				}
				pairs = append(pairs, transferPair{Out: out, In: in})
				matchedOut[oi] = true
				matchedIn[ii] = true
				break
			}
		}
		for i, row := range outgoing {
			if !matchedOut[i] {
				unmatched = append(unmatched, row)
			}
		}
		for i, row := range incoming {
			if !matchedIn[i] {
				unmatched = append(unmatched, row)
			}
		}
	}

	for _, row := range unmatched {
		warnings = append(warnings, fmt.Sprintf(
			"Row %d: Transfer category but no matching pair found, importing as regular transaction", row.RowIndex+1))
		regular = append(regular, row)
	}
	return pairs, regular, warnings
}

// Preview resolves every row against the supplied mappings without writing
// anything, reporting per-row validation problems and which rows would pair
// up as transfers.
func (s *ImportService) Preview(ctx context.Context, userID string, profileID uuid.UUID, rows []domain.ParsedRow, categoryMappings, accountMappings map[string]uuid.UUID) (*domain.PreviewResult, error) {
	categories, err := s.categoryRepo.GetAll(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	accounts, err := s.accountRepo.GetAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	categoryByID := make(map[uuid.UUID]*domain.Category, len(categories))
	for _, c := range categories {
		categoryByID[c.ID] = c
	}
	accountByID := make(map[uuid.UUID]*domain.Account, len(accounts))
	for _, a := range accounts {
		accountByID[a.ID] = a
	}

	transferCats, err := s.transfers.LookupCategories(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &domain.PreviewResult{ProfileID: profileID}
	previewIndex := make(map[int]int, len(rows))

	for _, row := range rows {
		var validationErrors []string

		var parsedDate *string
		if dt, ok := parseImportDate(row.Date); ok {
			iso := dt.Format("2006-01-02T15:04:05")
			parsedDate = &iso
		} else {
			validationErrors = append(validationErrors, fmt.Sprintf("Invalid date format: %s", row.Date))
		}

		var categoryID *uuid.UUID
		var categoryName *string
		if id, ok := categoryMappings[row.CategoryValue]; ok {
			categoryID = &id
			if c, exists := categoryByID[id]; exists {
				categoryName = &c.Name
			} else {
				validationErrors = append(validationErrors, fmt.Sprintf("Category no longer exists (update mapping for '%s')", row.CategoryValue))
			}
		} else if row.CategoryValue != "" {
			validationErrors = append(validationErrors, fmt.Sprintf("No mapping for category: %s", row.CategoryValue))
		}

		var accountID *uuid.UUID
		var accountName *string
		if id, ok := accountMappings[row.AccountValue]; ok {
			accountID = &id
			if a, exists := accountByID[id]; exists {
				accountName = &a.Name
			} else {
				validationErrors = append(validationErrors, fmt.Sprintf("Account no longer exists (update mapping for '%s')", row.AccountValue))
			}
		} else if row.AccountValue != "" {
			validationErrors = append(validationErrors, fmt.Sprintf("No mapping for account: %s", row.AccountValue))
		}

		isTransfer := false
		txType := "income"
		if transferCats != nil && categoryID != nil && transferCats.Contains(*categoryID) {
			isTransfer = true
			txType = "transfer"
		} else if row.Amount.IsNegative() {
			txType = "expense"
		}

		if row.Amount.IsZero() {
			validationErrors = append(validationErrors, "Amount is zero")
		}

		previewIndex[row.RowIndex] = len(result.Rows)
		result.Rows = append(result.Rows, domain.PreviewRow{
			RowIndex:         row.RowIndex,
			ExternalID:       row.ExternalID,
			Date:             row.Date,
			ParsedDate:       parsedDate,
			Amount:           row.Amount,
			Type:             txType,
			Description:      row.Description,
			CategoryValue:    row.CategoryValue,
			CategoryID:       categoryID,
			CategoryName:     categoryName,
			AccountValue:     row.AccountValue,
			AccountID:        accountID,
			AccountName:      accountName,
			IsValid:          len(validationErrors) == 0,
			ValidationErrors: validationErrors,
			IsTransfer:       isTransfer,
		})
	}

	if transferCats != nil {
		pairs, _, pairWarnings := detectTransferPairs(rows, categoryMappings, *transferCats)
		result.Warnings = append(result.Warnings, pairWarnings...)
		result.TotalTransfers = len(pairs)
		for _, pair := range pairs {
			if outIdx, ok := previewIndex[pair.Out.RowIndex]; ok {
				inRowIndex := pair.In.RowIndex
				result.Rows[outIdx].TransferPairIndex = &inRowIndex
			}
			if inIdx, ok := previewIndex[pair.In.RowIndex]; ok {
				outRowIndex := pair.Out.RowIndex
				result.Rows[inIdx].TransferPairIndex = &outRowIndex
			}
		}
	}

	for _, pr := range result.Rows {
		if pr.IsValid {
			result.TotalValid++
		} else {
			result.TotalInvalid++
		}
	}
	return result, nil
}

// Execute persists the new mappings and imports the rows, creating transfer
// pairs where detected and ordinary transactions for the rest. Each row (or
// pair) commits independently; failures are collected, capped, and reported
// with 1-indexed row numbers.
func (s *ImportService) Execute(ctx context.Context, userID string, profileID uuid.UUID, rows []domain.ParsedRow, categoryMappings, accountMappings []domain.MappingItem, excludedIndices []int) (*domain.ImportResult, error) {
	if _, err := s.profileRepo.GetByID(ctx, userID, profileID); err != nil {
		return nil, err
	}

	result := &domain.ImportResult{Errors: []string{}}
	addError := func(msg string) {
		if len(result.Errors) < maxImportErrors {
			result.Errors = append(result.Errors, msg)
		}
	}

	excluded := make(map[int]bool, len(excludedIndices))
	for _, idx := range excludedIndices {
		excluded[idx] = true
	}
	var toImport []domain.ParsedRow
	for _, row := range rows {
		if excluded[row.RowIndex] {
			result.SkippedCount++
			continue
		}
		toImport = append(toImport, row)
	}

	if len(categoryMappings) > 0 {
		if err := s.profileRepo.UpsertMappings(ctx, profileID, domain.MappingTypeCategory, categoryMappings); err != nil {
			return nil, err
		}
	}
	if len(accountMappings) > 0 {
		if err := s.profileRepo.UpsertMappings(ctx, profileID, domain.MappingTypeAccount, accountMappings); err != nil {
			return nil, err
		}
	}

	allCategoryMappings, err := s.profileRepo.GetMappings(ctx, profileID, domain.MappingTypeCategory)
	if err != nil {
		return nil, err
	}
	allAccountMappings, err := s.profileRepo.GetMappings(ctx, profileID, domain.MappingTypeAccount)
	if err != nil {
		return nil, err
	}

	transferCats, err := s.transfers.LookupCategories(ctx, userID)
	if err != nil {
		return nil, err
	}

	var pairs []transferPair
	regular := toImport
	if transferCats != nil {
		var pairWarnings []string
		pairs, regular, pairWarnings = detectTransferPairs(toImport, allCategoryMappings, *transferCats)
		for _, w := range pairWarnings {
			addError(w)
		}
	}

	for _, pair := range pairs {
		rowLabel := fmt.Sprintf("Rows %d & %d", pair.Out.RowIndex+1, pair.In.RowIndex+1)

		outDate, okOut := parseImportDate(pair.Out.Date)
		_, okIn := parseImportDate(pair.In.Date)
		if !okOut || !okIn {
			addError(rowLabel + ": Invalid date")
			result.SkippedCount += 2
			continue
		}

		fromID, okFrom := allAccountMappings[pair.Out.AccountValue]
		toID, okTo := allAccountMappings[pair.In.AccountValue]
		if !okFrom || !okTo {
			addError(rowLabel + ": Missing account mapping")
			result.SkippedCount += 2
			continue
		}

		description := pair.Out.Description
		if description == "" {
			description = pair.In.Description
		}
		if description == "" {
			description = "Imported transfer"
		}

		_, err := s.transfers.Create(ctx, userID, CreateTransferInput{
			FromAccountID: fromID,
			ToAccountID:   toID,
			Amount:        pair.Out.Amount.Abs(),
			Date:          outDate,
			Description:   description,
		})
		if err != nil {
			addError(fmt.Sprintf("%s: %v", rowLabel, err))
			result.SkippedCount += 2
			continue
		}
		result.TransferCount++
	}

	for _, row := range regular {
		rowLabel := fmt.Sprintf("Row %d", row.RowIndex+1)

		date, ok := parseImportDate(row.Date)
		if !ok {
			addError(fmt.Sprintf("%s: Invalid date format '%s'", rowLabel, row.Date))
			result.SkippedCount++
			continue
		}

		categoryID, ok := allCategoryMappings[row.CategoryValue]
		if !ok {
			addError(fmt.Sprintf("%s: No mapping for category '%s'", rowLabel, row.CategoryValue))
			result.SkippedCount++
			continue
		}
		accountID, ok := allAccountMappings[row.AccountValue]
		if !ok {
			addError(fmt.Sprintf("%s: No mapping for account '%s'", rowLabel, row.AccountValue))
			result.SkippedCount++
			continue
		}

		if row.Amount.IsZero() {
			result.SkippedCount++
			continue
		}

		txType := domain.TransactionTypeIncome
		if row.Amount.IsNegative() {
			txType = domain.TransactionTypeExpense
		}

		description := row.Description
		if description == "" {
			description = fmt.Sprintf("Imported: %s", row.ExternalID)
		}

		_, err := s.transactions.Create(ctx, userID, CreateTransactionInput{
			Date:        date,
			Type:        txType,
			Amount:      row.Amount.Abs(),
			CategoryID:  categoryID,
			AccountID:   accountID,
			Description: description,
			Tags:        []string{},
		})
		if err != nil {
			addError(fmt.Sprintf("%s: %v", rowLabel, err))
			result.SkippedCount++
			continue
		}
		result.ImportedCount++
	}

	s.publisher.Publish(userID, events.ImportCompleted(result))
	return result, nil
}

// Profiles lists the user's import profiles.
func (s *ImportService) Profiles(ctx context.Context, userID string) ([]*domain.ImportProfile, error) {
	return s.profileRepo.GetAll(ctx, userID)
}

// DeleteProfile removes a profile and its remembered value mappings.
func (s *ImportService) DeleteProfile(ctx context.Context, userID string, id uuid.UUID) error {
	return s.profileRepo.Delete(ctx, userID, id)
}
