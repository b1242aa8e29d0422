package service

import (
	"testing"
	"time"

	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `id,date,category,amount,account,desc
tx-1,15/03/2025,Groceries,"-1,500.00",Checking,Weekly shop
tx-2,16/03/2025,Salary,"Rp2,000",Checking,March pay
tx-3,17/03/2025,Dining,-$25.50,Checking,Lunch
`

func TestParseImportFileHeaderSynonyms(t *testing.T) {
	rows, err := ParseImportFile([]byte(sampleCSV), "export.csv")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "tx-1", rows[0].ExternalID)
	assert.Equal(t, "15/03/2025", rows[0].Date)
	assert.Equal(t, "Groceries", rows[0].CategoryValue)
	assert.Equal(t, "Checking", rows[0].AccountValue)
	assert.Equal(t, "Weekly shop", rows[0].Description)
	assert.True(t, rows[0].Amount.Equal(dec("-1500.00")), "amount = %s", rows[0].Amount)
	assert.True(t, rows[1].Amount.Equal(dec("2000")), "Rp prefix stripped, amount = %s", rows[1].Amount)
	assert.True(t, rows[2].Amount.Equal(dec("-25.50")), "$ stripped, amount = %s", rows[2].Amount)
}

func TestParseImportFileSkipsBadRows(t *testing.T) {
	csv := "id,date,category,amount,account,description\n" +
		"1,01/02/2025,Food,100,Bank,ok\n" +
		",,,,,\n" + // fully empty
		"2,02/02/2025,Food,not-a-number,Bank,bad amount\n" +
		"3,,Food,50,Bank,missing date\n" +
		"4,03/02/2025,Food,,Bank,missing amount\n" +
		"5,04/02/2025,Food,-75,Bank,ok too\n"

	rows, err := ParseImportFile([]byte(csv), "export.csv")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0].ExternalID)
	assert.Equal(t, "5", rows[1].ExternalID)
	// Row indices point at the original data rows.
	assert.Equal(t, 0, rows[0].RowIndex)
	assert.Equal(t, 5, rows[1].RowIndex)
}

func TestParseImportFileMissingColumns(t *testing.T) {
	csv := "date,amount\n01/02/2025,100\n"
	_, err := ParseImportFile([]byte(csv), "export.csv")
	var fileErr domain.ImportFileError
	require.ErrorAs(t, err, &fileErr)
	assert.Contains(t, fileErr.Reason, "missing required columns")
	assert.Contains(t, fileErr.Reason, "categories")
}

func TestParseImportFileUnsupportedFormat(t *testing.T) {
	_, err := ParseImportFile([]byte("whatever"), "export.pdf")
	var fileErr domain.ImportFileError
	require.ErrorAs(t, err, &fileErr)
}

func TestParseImportFileNoUsableRows(t *testing.T) {
	csv := "id,date,category,amount,account,description\n,,,,,\n"
	_, err := ParseImportFile([]byte(csv), "export.csv")
	var fileErr domain.ImportFileError
	require.ErrorAs(t, err, &fileErr)
	assert.Contains(t, fileErr.Reason, "no valid data rows")
}

func TestParseImportFileBOMAndLatin1(t *testing.T) {
	bom := append([]byte{0xEF, 0xBB, 0xBF}, []byte("id,date,category,amount,account,description\n1,01/02/2025,Food,10,Bank,ok\n")...)
	rows, err := ParseImportFile(bom, "export.csv")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// "Café" with a Latin-1/Windows-1252 é (0xE9), invalid as UTF-8.
	latin1 := []byte("id,date,category,amount,account,description\n1,01/02/2025,Caf\xe9,10,Bank,ok\n")
	rows, err = ParseImportFile(latin1, "export.csv")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Café", rows[0].CategoryValue)
}

func TestParseImportDateFormats(t *testing.T) {
	want := time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)
	for _, input := range []string{"07/03/2025", "07-03-2025", "2025-03-07", "07.03.2025"} {
		got, ok := parseImportDate(input)
		require.True(t, ok, "input %q", input)
		assert.True(t, got.Equal(want), "input %q parsed to %s", input, got)
	}

	// dd/mm wins over mm/dd for ambiguous values.
	got, ok := parseImportDate("04/03/2025")
	require.True(t, ok)
	assert.Equal(t, time.March, got.Month())

	// US format still accepted when dd/mm is impossible.
	got, ok = parseImportDate("03/15/2025")
	require.True(t, ok)
	assert.Equal(t, time.March, got.Month())
	assert.Equal(t, 15, got.Day())

	_, ok = parseImportDate("yesterday")
	assert.False(t, ok)
}
