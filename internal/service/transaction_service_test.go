package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/shopspring/decimal"
)

func TestCreateTransactionIncomeMovesBalanceUp(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	account := env.seedAccount("Checking", dec("100"))
	category := env.seedCategory("Salary", domain.CategoryTypeIncome)

	created, err := env.transactionSvc.Create(ctx, testUser, CreateTransactionInput{
		Date:        date(2025, time.March, 10),
		Type:        domain.TransactionTypeIncome,
		Amount:      dec("2500"),
		CategoryID:  category.ID,
		AccountID:   account.ID,
		Description: "March salary",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == uuid.Nil {
		t.Error("expected ID to be assigned")
	}
	if !account.Balance.Equal(dec("2600")) {
		t.Errorf("balance = %s, want 2600", account.Balance)
	}
}

func TestCreateTransactionExpenseUpdatesBudget(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	account := env.seedAccount("Checking", dec("500"))
	category := env.seedCategory("Groceries", domain.CategoryTypeExpense)
	budget := env.seedBudget(category.ID, date(2025, time.March, 1), dec("300"))

	_, err := env.transactionSvc.Create(ctx, testUser, CreateTransactionInput{
		Date:        date(2025, time.March, 12),
		Type:        domain.TransactionTypeExpense,
		Amount:      dec("75.50"),
		CategoryID:  category.ID,
		AccountID:   account.ID,
		Description: "Weekly shop",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !account.Balance.Equal(dec("424.50")) {
		t.Errorf("balance = %s, want 424.50", account.Balance)
	}
	if !budget.SpentAmount.Equal(dec("75.50")) {
		t.Errorf("spent = %s, want 75.50", budget.SpentAmount)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	account := env.seedAccount("Checking", decimal.Zero)
	category := env.seedCategory("Misc", domain.CategoryTypeExpense)

	base := CreateTransactionInput{
		Date:        date(2025, time.March, 1),
		Type:        domain.TransactionTypeExpense,
		Amount:      dec("10"),
		CategoryID:  category.ID,
		AccountID:   account.ID,
		Description: "ok",
	}

	tests := []struct {
		name    string
		mutate  func(*CreateTransactionInput)
		wantErr error
	}{
		{"zero amount", func(in *CreateTransactionInput) { in.Amount = decimal.Zero }, domain.ErrInvalidAmount},
		{"negative amount", func(in *CreateTransactionInput) { in.Amount = dec("-5") }, domain.ErrInvalidAmount},
		{"bad type", func(in *CreateTransactionInput) { in.Type = "refund" }, domain.ErrInvalidTransactionType},
		{"empty description", func(in *CreateTransactionInput) { in.Description = "  " }, domain.ErrDescriptionRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := base
			tt.mutate(&input)
			_, err := env.transactionSvc.Create(ctx, testUser, input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Unknown references.
	input := base
	input.CategoryID = env.seedAccount("decoy", decimal.Zero).ID
	if _, err := env.transactionSvc.Create(ctx, testUser, input); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Errorf("unknown category error = %v, want ErrCategoryNotFound", err)
	}
	input = base
	input.AccountID = category.ID
	if _, err := env.transactionSvc.Create(ctx, testUser, input); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("unknown account error = %v, want ErrAccountNotFound", err)
	}

	// Nothing should have been written along the way.
	if len(env.transactions.Transactions) != 0 {
		t.Errorf("transactions written = %d, want 0", len(env.transactions.Transactions))
	}
	if !account.Balance.IsZero() {
		t.Errorf("balance moved to %s on failed creates", account.Balance)
	}
}

func TestCreateThenDeleteRestoresBalance(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	account := env.seedAccount("Checking", dec("1000"))
	category := env.seedCategory("Groceries", domain.CategoryTypeExpense)
	budget := env.seedBudget(category.ID, date(2025, time.June, 1), dec("400"))

	created, err := env.transactionSvc.Create(ctx, testUser, CreateTransactionInput{
		Date:        date(2025, time.June, 5),
		Type:        domain.TransactionTypeExpense,
		Amount:      dec("120"),
		CategoryID:  category.ID,
		AccountID:   account.ID,
		Description: "groceries",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := env.transactionSvc.Delete(ctx, testUser, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if !account.Balance.Equal(dec("1000")) {
		t.Errorf("balance = %s, want 1000 after round trip", account.Balance)
	}
	if !budget.SpentAmount.IsZero() {
		t.Errorf("spent = %s, want 0 after round trip", budget.SpentAmount)
	}
}

func TestUpdateTransactionMovesBetweenAccounts(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	checking := env.seedAccount("Checking", dec("1000"))
	savings := env.seedAccount("Savings", dec("1000"))
	category := env.seedCategory("Dining", domain.CategoryTypeExpense)

	created, err := env.transactionSvc.Create(ctx, testUser, CreateTransactionInput{
		Date:        date(2025, time.April, 3),
		Type:        domain.TransactionTypeExpense,
		Amount:      dec("60"),
		CategoryID:  category.ID,
		AccountID:   checking.ID,
		Description: "dinner",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	newAmount := dec("80")
	_, err = env.transactionSvc.Update(ctx, testUser, created.ID, UpdateTransactionInput{
		Amount:    &newAmount,
		AccountID: &savings.ID,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if !checking.Balance.Equal(dec("1000")) {
		t.Errorf("old account balance = %s, want 1000 (effect reversed)", checking.Balance)
	}
	if !savings.Balance.Equal(dec("920")) {
		t.Errorf("new account balance = %s, want 920", savings.Balance)
	}
}

func TestUpdateTransactionMovesBudgetBetweenMonths(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	account := env.seedAccount("Checking", dec("1000"))
	category := env.seedCategory("Groceries", domain.CategoryTypeExpense)
	march := env.seedBudget(category.ID, date(2025, time.March, 1), dec("300"))
	april := env.seedBudget(category.ID, date(2025, time.April, 1), dec("300"))

	created, err := env.transactionSvc.Create(ctx, testUser, CreateTransactionInput{
		Date:        date(2025, time.March, 20),
		Type:        domain.TransactionTypeExpense,
		Amount:      dec("50"),
		CategoryID:  category.ID,
		AccountID:   account.ID,
		Description: "groceries",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !march.SpentAmount.Equal(dec("50")) {
		t.Fatalf("march spent = %s, want 50", march.SpentAmount)
	}

	newDate := date(2025, time.April, 2)
	if _, err := env.transactionSvc.Update(ctx, testUser, created.ID, UpdateTransactionInput{Date: &newDate}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if !march.SpentAmount.IsZero() {
		t.Errorf("march spent = %s, want 0 after move", march.SpentAmount)
	}
	if !april.SpentAmount.Equal(dec("50")) {
		t.Errorf("april spent = %s, want 50 after move", april.SpentAmount)
	}
	if !account.Balance.Equal(dec("950")) {
		t.Errorf("balance = %s, want 950 (unchanged by date move)", account.Balance)
	}
}

func TestUpdateTransactionTypeFlipReversesBalance(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	account := env.seedAccount("Checking", dec("100"))
	category := env.seedCategory("Adjustments", domain.CategoryTypeExpense)

	created, err := env.transactionSvc.Create(ctx, testUser, CreateTransactionInput{
		Date:        date(2025, time.May, 1),
		Type:        domain.TransactionTypeExpense,
		Amount:      dec("40"),
		CategoryID:  category.ID,
		AccountID:   account.ID,
		Description: "correction",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !account.Balance.Equal(dec("60")) {
		t.Fatalf("balance = %s, want 60", account.Balance)
	}

	income := domain.TransactionTypeIncome
	if _, err := env.transactionSvc.Update(ctx, testUser, created.ID, UpdateTransactionInput{Type: &income}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	// -40 reversed, +40 applied: net +80 from the post-create state.
	if !account.Balance.Equal(dec("140")) {
		t.Errorf("balance = %s, want 140 after type flip", account.Balance)
	}
}

func TestUpdateTransferLegRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	from := env.seedAccount("Checking", dec("500"))
	to := env.seedAccount("Savings", dec("0"))

	result, err := env.transferSvc.Create(ctx, testUser, CreateTransferInput{
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        dec("100"),
		Date:          date(2025, time.July, 1),
		Description:   "stash",
	})
	if err != nil {
		t.Fatalf("transfer Create() error = %v", err)
	}

	desc := "edited"
	if _, err := env.transactionSvc.Update(ctx, testUser, result.Outgoing.ID, UpdateTransactionInput{Description: &desc}); !errors.Is(err, domain.ErrIsTransfer) {
		t.Errorf("Update() on transfer leg error = %v, want ErrIsTransfer", err)
	}
	if err := env.transactionSvc.Delete(ctx, testUser, result.Incoming.ID); !errors.Is(err, domain.ErrIsTransfer) {
		t.Errorf("Delete() on transfer leg error = %v, want ErrIsTransfer", err)
	}
}

func TestListClampsLimitAndValidatesMonth(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if _, err := env.transactionSvc.List(ctx, testUser, &domain.TransactionFilter{Month: "2025-13"}); !errors.Is(err, domain.ErrInvalidMonth) {
		t.Errorf("List() with bad month error = %v, want ErrInvalidMonth", err)
	}

	filter := &domain.TransactionFilter{Limit: 10000}
	if _, err := env.transactionSvc.List(ctx, testUser, filter); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if filter.Limit != domain.MaxListLimit {
		t.Errorf("limit clamped to %d, want %d", filter.Limit, domain.MaxListLimit)
	}
}

func TestDeleteTransactionFailedUnitOfWorkKeepsState(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	account := env.seedAccount("Checking", dec("100"))
	category := env.seedCategory("Misc", domain.CategoryTypeExpense)

	created, err := env.transactionSvc.Create(ctx, testUser, CreateTransactionInput{
		Date:        date(2025, time.May, 1),
		Type:        domain.TransactionTypeExpense,
		Amount:      dec("10"),
		CategoryID:  category.ID,
		AccountID:   account.ID,
		Description: "x",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	env.uow.BeginErr = errors.New("connection lost")
	if err := env.transactionSvc.Delete(ctx, testUser, created.ID); err == nil {
		t.Fatal("Delete() expected error from unit of work")
	}
	if _, err := env.transactions.GetByID(ctx, testUser, created.ID); err != nil {
		t.Error("transaction should survive a failed unit of work")
	}
}
