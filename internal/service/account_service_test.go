package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/shopspring/decimal"
)

func TestCreateAccountValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if _, err := env.accountSvc.Create(ctx, testUser, CreateAccountInput{Name: "", Type: domain.AccountTypeBank}); !errors.Is(err, domain.ErrNameRequired) {
		t.Errorf("blank name error = %v, want ErrNameRequired", err)
	}
	if _, err := env.accountSvc.Create(ctx, testUser, CreateAccountInput{Name: "Wallet", Type: "brokerage"}); !domain.IsValidation(err) {
		t.Errorf("bad type error = %v, want validation error", err)
	}

	created, err := env.accountSvc.Create(ctx, testUser, CreateAccountInput{Name: "  Wallet  ", Type: domain.AccountTypeCash})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Name != "Wallet" {
		t.Errorf("name = %q, want trimmed %q", created.Name, "Wallet")
	}
	if !created.Balance.IsZero() {
		t.Errorf("new account balance = %s, want 0", created.Balance)
	}
}

func TestDeleteAccountRemovesHistoryWithoutReversal(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	doomed := env.seedAccount("Old Wallet", decimal.Zero)
	survivor := env.seedAccount("Checking", dec("100"))
	category := env.seedCategory("Groceries", domain.CategoryTypeExpense)
	budget := env.seedBudget(category.ID, date(2025, time.May, 1), dec("400"))

	for _, day := range []int{3, 8} {
		if _, err := env.transactionSvc.Create(ctx, testUser, CreateTransactionInput{
			Date:        date(2025, time.May, day),
			Type:        domain.TransactionTypeExpense,
			Amount:      dec("25"),
			CategoryID:  category.ID,
			AccountID:   doomed.ID,
			Description: "spend",
		}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if _, err := env.transactionSvc.Create(ctx, testUser, CreateTransactionInput{
		Date:        date(2025, time.May, 10),
		Type:        domain.TransactionTypeExpense,
		Amount:      dec("10"),
		CategoryID:  category.ID,
		AccountID:   survivor.ID,
		Description: "spend",
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !budget.SpentAmount.Equal(dec("60")) {
		t.Fatalf("spent = %s, want 60 before delete", budget.SpentAmount)
	}

	deleted, err := env.accountSvc.Delete(ctx, testUser, doomed.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	// The survivor's balance is untouched; the budget window only counts the
	// surviving expense.
	if !survivor.Balance.Equal(dec("90")) {
		t.Errorf("survivor balance = %s, want 90", survivor.Balance)
	}
	if !budget.SpentAmount.Equal(dec("10")) {
		t.Errorf("spent = %s, want 10 after delete", budget.SpentAmount)
	}
	if _, err := env.accounts.GetByID(ctx, testUser, doomed.ID); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Error("account row should be gone")
	}
	if n, _ := env.transactions.Count(ctx, testUser, &doomed.ID, nil); n != 0 {
		t.Errorf("transactions on deleted account = %d, want 0", n)
	}
}

func TestDeleteAccountDropsImportMappings(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	account := env.seedAccount("Old Bank", decimal.Zero)

	profile, _ := env.profiles.GetOrCreateDefault(ctx, testUser)
	if err := env.profiles.UpsertMappings(ctx, profile.ID, domain.MappingTypeAccount, []domain.MappingItem{
		{CSVValue: "OLD-BANK-EXPORT", InternalID: account.ID},
	}); err != nil {
		t.Fatalf("UpsertMappings() error = %v", err)
	}

	if _, err := env.accountSvc.Delete(ctx, testUser, account.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	mappings, _ := env.profiles.GetMappings(ctx, profile.ID, domain.MappingTypeAccount)
	if len(mappings) != 0 {
		t.Errorf("mappings remaining = %d, want 0", len(mappings))
	}
}

func TestAccountOwnershipIsolation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	account := env.seedAccount("Mine", dec("50"))

	if _, err := env.accountSvc.GetByID(ctx, "someone_else", account.ID); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("cross-user GetByID error = %v, want ErrAccountNotFound", err)
	}
}
