package service

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// columnSynonyms maps each expected column to the header names that count as
// a match (case-insensitive).
var columnSynonyms = map[string][]string{
	"id":          {"id"},
	"date":        {"date"},
	"categories":  {"categories", "category"},
	"amount":      {"amount"},
	"accounts":    {"accounts", "account"},
	"description": {"description", "desc"},
}

var columnOrder = []string{"id", "date", "categories", "amount", "accounts", "description"}

// importDateFormats lists accepted date layouts, primary format first.
// dd/mm/yyyy wins over mm/dd/yyyy for ambiguous values.
var importDateFormats = []string{
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
	"01/02/2006",
	"02.01.2006",
}

// parseImportDate parses a date cell against the accepted layouts, returning
// the zero time when nothing matches.
func parseImportDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range importDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// decodeText converts raw file bytes to a string, handling the encodings
// bank exports show up in: UTF-8 (optionally with BOM), Windows-1252, and
// Latin-1.
func decodeText(content []byte) string {
	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(content) {
		return string(content)
	}
	if decoded, err := charmap.Windows1252.NewDecoder().Bytes(content); err == nil {
		return string(decoded)
	}
	decoded, _ := charmap.ISO8859_1.NewDecoder().Bytes(content)
	return string(decoded)
}

func parseCSVContent(content []byte) ([]string, [][]string, error) {
	reader := csv.NewReader(strings.NewReader(decodeText(content)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, domain.ImportFileError{Reason: "unable to parse CSV file, please check the file encoding"}
	}
	if len(rows) == 0 {
		return nil, nil, domain.ImportFileError{Reason: "file contains no data rows"}
	}
	return rows[0], rows[1:], nil
}

func parseExcelContent(content []byte) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, nil, domain.ImportFileError{Reason: "unable to parse Excel file"}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, domain.ImportFileError{Reason: "Excel file has no worksheet"}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, domain.ImportFileError{Reason: "unable to read Excel worksheet"}
	}
	if len(rows) == 0 {
		return nil, nil, domain.ImportFileError{Reason: "Excel file contains no data"}
	}
	return rows[0], rows[1:], nil
}

func findColumnIndex(headers []string, key string) int {
	for _, alt := range columnSynonyms[key] {
		for i, h := range headers {
			if strings.ToLower(strings.TrimSpace(h)) == alt {
				return i
			}
		}
	}
	return -1
}

// cleanAmount strips thousands separators and currency markers before
// decimal parsing.
func cleanAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "Rp", "")
	return decimal.NewFromString(strings.TrimSpace(s))
}

// ParseImportFile extracts usable rows from a CSV or Excel file. Rows missing
// a date or amount, and rows whose amount does not parse, are silently
// dropped; file-level problems (unknown format, missing columns, nothing
// usable) come back as domain.ImportFileError.
func ParseImportFile(content []byte, filename string) ([]domain.ParsedRow, error) {
	var (
		headers  []string
		dataRows [][]string
		err      error
	)

	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".csv"):
		headers, dataRows, err = parseCSVContent(content)
	case strings.HasSuffix(strings.ToLower(filename), ".xlsx"),
		strings.HasSuffix(strings.ToLower(filename), ".xls"):
		headers, dataRows, err = parseExcelContent(content)
	default:
		return nil, domain.ImportFileError{Reason: fmt.Sprintf("unsupported file format %q, use CSV or Excel (.xlsx)", filename)}
	}
	if err != nil {
		return nil, err
	}
	if len(dataRows) == 0 {
		return nil, domain.ImportFileError{Reason: "file contains no data rows"}
	}

	indices := make(map[string]int, len(columnOrder))
	var missing []string
	for _, key := range columnOrder {
		idx := findColumnIndex(headers, key)
		if idx < 0 {
			missing = append(missing, key)
			continue
		}
		indices[key] = idx
	}
	if len(missing) > 0 {
		return nil, domain.ImportFileError{Reason: "missing required columns: " + strings.Join(missing, ", ")}
	}

	cell := func(row []string, key string) string {
		idx := indices[key]
		if idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	var parsed []domain.ParsedRow
	for rowIndex, row := range dataRows {
		empty := true
		for _, c := range row {
			if strings.TrimSpace(c) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}

		dateStr := cell(row, "date")
		amountStr := cell(row, "amount")
		if dateStr == "" || amountStr == "" {
			continue
		}

		amount, err := cleanAmount(amountStr)
		if err != nil {
			continue
		}

		parsed = append(parsed, domain.ParsedRow{
			RowIndex:      rowIndex,
			ExternalID:    cell(row, "id"),
			Date:          dateStr,
			CategoryValue: cell(row, "categories"),
			AccountValue:  cell(row, "accounts"),
			Amount:        amount,
			Description:   cell(row, "description"),
		})
	}

	if len(parsed) == 0 {
		return nil, domain.ImportFileError{Reason: "no valid data rows found in file"}
	}
	return parsed, nil
}
