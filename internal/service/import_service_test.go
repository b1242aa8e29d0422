package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReportsUnmappedValuesAndSuggestions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	groceries := env.seedCategory("Groceries", domain.CategoryTypeExpense)
	env.seedAccount("Checking", decimal.Zero)

	csv := "id,date,category,amount,account,description\n" +
		"1,01/03/2025,Grocery,-10,CHK,shop\n" +
		"2,02/03/2025,Zzqx,-20,CHK,mystery\n"

	result, err := env.importSvc.Parse(ctx, testUser, []byte(csv), "bank.csv")
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalRows)
	assert.ElementsMatch(t, []string{"Grocery", "Zzqx"}, result.UnmappedCategories)
	assert.ElementsMatch(t, []string{"CHK"}, result.UnmappedAccounts)

	// "Grocery" is one edit away from "Groceries"; "Zzqx" matches nothing.
	require.Len(t, result.CategorySuggestions, 1)
	assert.Equal(t, "Grocery", result.CategorySuggestions[0].CSVValue)
	assert.Equal(t, groceries.ID, result.CategorySuggestions[0].SuggestedID)
	assert.Equal(t, "Groceries", result.CategorySuggestions[0].SuggestedName)
}

func TestParseRemembersMappingsAcrossImports(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	groceries := env.seedCategory("Groceries", domain.CategoryTypeExpense)

	profile, _ := env.profiles.GetOrCreateDefault(ctx, testUser)
	require.NoError(t, env.profiles.UpsertMappings(ctx, profile.ID, domain.MappingTypeCategory, []domain.MappingItem{
		{CSVValue: "GROC", InternalID: groceries.ID},
	}))

	csv := "id,date,category,amount,account,description\n1,01/03/2025,GROC,-10,CHK,shop\n"
	result, err := env.importSvc.Parse(ctx, testUser, []byte(csv), "bank.csv")
	require.NoError(t, err)

	assert.Empty(t, result.UnmappedCategories)
	assert.Equal(t, groceries.ID, result.ExistingCategoryMappings["GROC"])
}

func TestDetectTransferPairs(t *testing.T) {
	incoming := uuid.New()
	outgoing := uuid.New()
	cats := domain.TransferCategories{Incoming: incoming, Outgoing: outgoing}
	mappings := map[string]uuid.UUID{
		"Outgoing transfer": outgoing,
		"Incoming transfer": incoming,
		"Groceries":         uuid.New(),
	}

	rows := []domain.ParsedRow{
		{RowIndex: 0, Date: "01/03/2025", CategoryValue: "Outgoing transfer", AccountValue: "Checking", Amount: dec("-500")},
		{RowIndex: 1, Date: "01/03/2025", CategoryValue: "Incoming transfer", AccountValue: "Savings", Amount: dec("500")},
		{RowIndex: 2, Date: "01/03/2025", CategoryValue: "Groceries", AccountValue: "Checking", Amount: dec("-50")},
		{RowIndex: 3, Date: "02/03/2025", CategoryValue: "Outgoing transfer", AccountValue: "Checking", Amount: dec("-75")},
	}

	pairs, regular, warnings := detectTransferPairs(rows, mappings, cats)

	require.Len(t, pairs, 1)
	assert.Equal(t, 0, pairs[0].Out.RowIndex)
	assert.Equal(t, 1, pairs[0].In.RowIndex)

	// The grocery row plus the unmatched transfer candidate.
	require.Len(t, regular, 2)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Row 4")
}

func TestDetectTransferPairsRequiresDifferentAccounts(t *testing.T) {
	incoming := uuid.New()
	outgoing := uuid.New()
	cats := domain.TransferCategories{Incoming: incoming, Outgoing: outgoing}
	mappings := map[string]uuid.UUID{"Out": outgoing, "In": incoming}

	rows := []domain.ParsedRow{
		{RowIndex: 0, Date: "01/03/2025", CategoryValue: "Out", AccountValue: "Checking", Amount: dec("-100")},
		{RowIndex: 1, Date: "01/03/2025", CategoryValue: "In", AccountValue: "Checking", Amount: dec("100")},
	}

	pairs, regular, warnings := detectTransferPairs(rows, mappings, cats)
	assert.Empty(t, pairs)
	assert.Len(t, regular, 2)
	assert.Len(t, warnings, 2)
}

func TestExecuteImportCreatesTransactionsAndTransfers(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	checking := env.seedAccount("Checking", dec("1000"))
	savings := env.seedAccount("Savings", dec("0"))
	groceries := env.seedCategory("Groceries", domain.CategoryTypeExpense)
	cats, err := env.transferSvc.EnsureCategories(ctx, testUser)
	require.NoError(t, err)

	profile, _ := env.profiles.GetOrCreateDefault(ctx, testUser)

	rows := []domain.ParsedRow{
		{RowIndex: 0, ExternalID: "a", Date: "05/03/2025", CategoryValue: "GROC", AccountValue: "CHK", Amount: dec("-120"), Description: "shop"},
		{RowIndex: 1, ExternalID: "b", Date: "06/03/2025", CategoryValue: "XFER-OUT", AccountValue: "CHK", Amount: dec("-300")},
		{RowIndex: 2, ExternalID: "c", Date: "06/03/2025", CategoryValue: "XFER-IN", AccountValue: "SAV", Amount: dec("300")},
	}

	result, err := env.importSvc.Execute(ctx, testUser, profile.ID, rows,
		[]domain.MappingItem{
			{CSVValue: "GROC", InternalID: groceries.ID},
			{CSVValue: "XFER-OUT", InternalID: cats.Outgoing},
			{CSVValue: "XFER-IN", InternalID: cats.Incoming},
		},
		[]domain.MappingItem{
			{CSVValue: "CHK", InternalID: checking.ID},
			{CSVValue: "SAV", InternalID: savings.ID},
		},
		nil,
	)
	require.NoError(t, err)

	assert.Equal(t, 1, result.ImportedCount)
	assert.Equal(t, 1, result.TransferCount)
	assert.Equal(t, 0, result.SkippedCount)
	assert.Empty(t, result.Errors)

	// -120 grocery, -300 transfer out.
	assert.True(t, checking.Balance.Equal(dec("580")), "checking = %s", checking.Balance)
	assert.True(t, savings.Balance.Equal(dec("300")), "savings = %s", savings.Balance)

	// Transfer legs are hidden from summaries with a fallback description.
	legs := 0
	for _, tx := range env.transactions.Transactions {
		if tx.IsTransfer {
			legs++
			assert.True(t, tx.HideFromSummary)
			assert.Equal(t, "Imported transfer", tx.Description)
		}
	}
	assert.Equal(t, 2, legs)
}

func TestExecuteImportRowIsolation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	checking := env.seedAccount("Checking", dec("0"))
	groceries := env.seedCategory("Groceries", domain.CategoryTypeExpense)
	profile, _ := env.profiles.GetOrCreateDefault(ctx, testUser)

	rows := []domain.ParsedRow{
		{RowIndex: 0, Date: "01/03/2025", CategoryValue: "GROC", AccountValue: "CHK", Amount: dec("-10"), Description: "ok"},
		{RowIndex: 1, Date: "not-a-date", CategoryValue: "GROC", AccountValue: "CHK", Amount: dec("-20"), Description: "bad date"},
		{RowIndex: 2, Date: "02/03/2025", CategoryValue: "UNKNOWN", AccountValue: "CHK", Amount: dec("-30"), Description: "no mapping"},
		{RowIndex: 3, Date: "03/03/2025", CategoryValue: "GROC", AccountValue: "CHK", Amount: decimal.Zero, Description: "zero"},
		{RowIndex: 4, Date: "04/03/2025", CategoryValue: "GROC", AccountValue: "CHK", Amount: dec("40"), Description: "ok too"},
	}

	result, err := env.importSvc.Execute(ctx, testUser, profile.ID, rows,
		[]domain.MappingItem{{CSVValue: "GROC", InternalID: groceries.ID}},
		[]domain.MappingItem{{CSVValue: "CHK", InternalID: checking.ID}},
		nil,
	)
	require.NoError(t, err)

	assert.Equal(t, 2, result.ImportedCount)
	assert.Equal(t, 3, result.SkippedCount)
	require.Len(t, result.Errors, 2) // zero amount skips silently

	assert.Contains(t, result.Errors[0], "Row 2")
	assert.Contains(t, result.Errors[0], "Invalid date")
	assert.Contains(t, result.Errors[1], "Row 3")
	assert.Contains(t, result.Errors[1], "No mapping for category")

	// -10 expense, +40 income survived.
	assert.True(t, checking.Balance.Equal(dec("30")), "balance = %s", checking.Balance)
}

func TestExecuteImportExcludedRows(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	checking := env.seedAccount("Checking", dec("0"))
	groceries := env.seedCategory("Groceries", domain.CategoryTypeExpense)
	profile, _ := env.profiles.GetOrCreateDefault(ctx, testUser)

	rows := []domain.ParsedRow{
		{RowIndex: 0, Date: "01/03/2025", CategoryValue: "GROC", AccountValue: "CHK", Amount: dec("-10"), Description: "keep"},
		{RowIndex: 1, Date: "02/03/2025", CategoryValue: "GROC", AccountValue: "CHK", Amount: dec("-20"), Description: "skip me"},
	}

	result, err := env.importSvc.Execute(ctx, testUser, profile.ID, rows,
		[]domain.MappingItem{{CSVValue: "GROC", InternalID: groceries.ID}},
		[]domain.MappingItem{{CSVValue: "CHK", InternalID: checking.ID}},
		[]int{1},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ImportedCount)
	assert.Equal(t, 1, result.SkippedCount)
	assert.True(t, checking.Balance.Equal(dec("-10")), "balance = %s", checking.Balance)
}

func TestPreviewMarksProblemsWithoutWriting(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	checking := env.seedAccount("Checking", dec("0"))
	groceries := env.seedCategory("Groceries", domain.CategoryTypeExpense)
	profile, _ := env.profiles.GetOrCreateDefault(ctx, testUser)

	rows := []domain.ParsedRow{
		{RowIndex: 0, Date: "01/03/2025", CategoryValue: "GROC", AccountValue: "CHK", Amount: dec("-10"), Description: "ok"},
		{RowIndex: 1, Date: "garbage", CategoryValue: "GROC", AccountValue: "MYSTERY", Amount: decimal.Zero, Description: "broken"},
	}

	preview, err := env.importSvc.Preview(ctx, testUser, profile.ID, rows,
		map[string]uuid.UUID{"GROC": groceries.ID},
		map[string]uuid.UUID{"CHK": checking.ID},
	)
	require.NoError(t, err)

	assert.Equal(t, 1, preview.TotalValid)
	assert.Equal(t, 1, preview.TotalInvalid)
	require.Len(t, preview.Rows, 2)

	good, bad := preview.Rows[0], preview.Rows[1]
	assert.True(t, good.IsValid)
	assert.Equal(t, "expense", good.Type)
	require.NotNil(t, good.CategoryName)
	assert.Equal(t, "Groceries", *good.CategoryName)

	assert.False(t, bad.IsValid)
	assert.Len(t, bad.ValidationErrors, 3) // bad date, unmapped account, zero amount

	// Dry run: nothing written.
	assert.Empty(t, env.transactions.Transactions)
	assert.True(t, checking.Balance.IsZero())
}

func TestPreviewPairsTransfers(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	checking := env.seedAccount("Checking", dec("0"))
	savings := env.seedAccount("Savings", dec("0"))
	cats, err := env.transferSvc.EnsureCategories(ctx, testUser)
	require.NoError(t, err)
	profile, _ := env.profiles.GetOrCreateDefault(ctx, testUser)

	rows := []domain.ParsedRow{
		{RowIndex: 0, Date: "01/03/2025", CategoryValue: "OUT", AccountValue: "CHK", Amount: dec("-500")},
		{RowIndex: 1, Date: "01/03/2025", CategoryValue: "IN", AccountValue: "SAV", Amount: dec("500")},
	}

	preview, err := env.importSvc.Preview(ctx, testUser, profile.ID, rows,
		map[string]uuid.UUID{"OUT": cats.Outgoing, "IN": cats.Incoming},
		map[string]uuid.UUID{"CHK": checking.ID, "SAV": savings.ID},
	)
	require.NoError(t, err)

	assert.Equal(t, 1, preview.TotalTransfers)
	require.Len(t, preview.Rows, 2)
	assert.True(t, preview.Rows[0].IsTransfer)
	assert.Equal(t, "transfer", preview.Rows[0].Type)
	require.NotNil(t, preview.Rows[0].TransferPairIndex)
	assert.Equal(t, 1, *preview.Rows[0].TransferPairIndex)
	require.NotNil(t, preview.Rows[1].TransferPairIndex)
	assert.Equal(t, 0, *preview.Rows[1].TransferPairIndex)
}

func TestDashboardStatsExcludesHiddenLegs(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	checking := env.seedAccount("Checking", dec("1000"))
	savings := env.seedAccount("Savings", dec("500"))
	salary := env.seedCategory("Salary", domain.CategoryTypeIncome)
	groceries := env.seedCategory("Groceries", domain.CategoryTypeExpense)

	month := time.Now().UTC()
	if _, err := env.transactionSvc.Create(ctx, testUser, CreateTransactionInput{
		Date: month, Type: domain.TransactionTypeIncome, Amount: dec("2000"),
		CategoryID: salary.ID, AccountID: checking.ID, Description: "pay",
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := env.transactionSvc.Create(ctx, testUser, CreateTransactionInput{
		Date: month, Type: domain.TransactionTypeExpense, Amount: dec("300"),
		CategoryID: groceries.ID, AccountID: checking.ID, Description: "food",
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := env.transferSvc.Create(ctx, testUser, CreateTransferInput{
		FromAccountID: checking.ID, ToAccountID: savings.ID,
		Amount: dec("400"), Date: month,
	}); err != nil {
		t.Fatalf("transfer Create() error = %v", err)
	}

	stats, err := env.dashboardSvc.Stats(ctx, testUser, "")
	require.NoError(t, err)

	// 1000 + 500 seeded, +2000 -300 net, transfer moves money internally.
	assert.True(t, stats.TotalBalance.Equal(dec("3200")), "total = %s", stats.TotalBalance)
	assert.True(t, stats.MonthlyIncome.Equal(dec("2000")), "income = %s", stats.MonthlyIncome)
	assert.True(t, stats.MonthlyExpense.Equal(dec("300")), "expense = %s", stats.MonthlyExpense)
}
