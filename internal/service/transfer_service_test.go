package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kasapp/kas-backend/internal/domain"
)

func TestCreateTransferMovesBothBalances(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	from := env.seedAccount("Checking", dec("500"))
	to := env.seedAccount("Savings", dec("100"))

	result, err := env.transferSvc.Create(ctx, testUser, CreateTransferInput{
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        dec("150"),
		Date:          date(2025, time.August, 1),
		Description:   "monthly savings",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if !from.Balance.Equal(dec("350")) {
		t.Errorf("source balance = %s, want 350", from.Balance)
	}
	if !to.Balance.Equal(dec("250")) {
		t.Errorf("destination balance = %s, want 250", to.Balance)
	}

	out, in := result.Outgoing, result.Incoming
	if out.Type != domain.TransactionTypeExpense || in.Type != domain.TransactionTypeIncome {
		t.Errorf("leg types = %s/%s, want expense/income", out.Type, in.Type)
	}
	if !out.IsTransfer || !in.IsTransfer {
		t.Error("both legs must be flagged as transfers")
	}
	if out.TransferGroupID == nil || in.TransferGroupID == nil || *out.TransferGroupID != *in.TransferGroupID {
		t.Error("legs must share a transfer group ID")
	}
	if !out.HideFromSummary || !in.HideFromSummary {
		t.Error("legs default to hidden from summaries")
	}
	if out.Description != in.Description || out.Description != "monthly savings" {
		t.Errorf("legs must share the description, got %q / %q", out.Description, in.Description)
	}
}

func TestCreateTransferCreatesSystemCategories(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	from := env.seedAccount("A", dec("100"))
	to := env.seedAccount("B", dec("0"))

	if _, err := env.transferSvc.Create(ctx, testUser, CreateTransferInput{
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        dec("10"),
		Date:          date(2025, time.August, 1),
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	incoming, err := env.categories.GetByName(ctx, testUser, domain.CategoryIncomingTransfer)
	if err != nil {
		t.Fatalf("incoming category missing: %v", err)
	}
	outgoing, err := env.categories.GetByName(ctx, testUser, domain.CategoryOutgoingTransfer)
	if err != nil {
		t.Fatalf("outgoing category missing: %v", err)
	}
	if !incoming.IsSystem || !outgoing.IsSystem {
		t.Error("transfer categories must be system categories")
	}
	if incoming.Type != domain.CategoryTypeIncome || outgoing.Type != domain.CategoryTypeExpense {
		t.Errorf("category types = %s/%s, want income/expense", incoming.Type, outgoing.Type)
	}

	// Second transfer reuses them.
	if _, err := env.transferSvc.Create(ctx, testUser, CreateTransferInput{
		FromAccountID: to.ID,
		ToAccountID:   from.ID,
		Amount:        dec("5"),
		Date:          date(2025, time.August, 2),
	}); err != nil {
		t.Fatalf("second Create() error = %v", err)
	}
	all, _ := env.categories.GetAll(ctx, testUser, nil)
	if len(all) != 2 {
		t.Errorf("categories = %d, want 2 (no duplicates)", len(all))
	}
}

func TestCreateTransferSameAccountRejected(t *testing.T) {
	env := newTestEnv()
	account := env.seedAccount("Checking", dec("100"))

	_, err := env.transferSvc.Create(context.Background(), testUser, CreateTransferInput{
		FromAccountID: account.ID,
		ToAccountID:   account.ID,
		Amount:        dec("10"),
		Date:          date(2025, time.August, 1),
	})
	if !errors.Is(err, domain.ErrSameAccountTransfer) {
		t.Errorf("Create() error = %v, want ErrSameAccountTransfer", err)
	}
}

func TestTransferRoundTripConservesBalances(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	from := env.seedAccount("Checking", dec("500"))
	to := env.seedAccount("Savings", dec("100"))

	result, err := env.transferSvc.Create(ctx, testUser, CreateTransferInput{
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        dec("200"),
		Date:          date(2025, time.August, 5),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := env.transferSvc.Delete(ctx, testUser, result.Incoming.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if !from.Balance.Equal(dec("500")) || !to.Balance.Equal(dec("100")) {
		t.Errorf("balances = %s/%s, want 500/100 after round trip", from.Balance, to.Balance)
	}
	if len(env.transactions.Transactions) != 0 {
		t.Errorf("legs remaining = %d, want 0", len(env.transactions.Transactions))
	}
}

func TestTransferUpdateAmountShiftsBothBalances(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	from := env.seedAccount("Checking", dec("500"))
	to := env.seedAccount("Savings", dec("0"))

	result, err := env.transferSvc.Create(ctx, testUser, CreateTransferInput{
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        dec("100"),
		Date:          date(2025, time.August, 1),
		Description:   "stash",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	newAmount := dec("160")
	updated, err := env.transferSvc.Update(ctx, testUser, result.Incoming.ID, UpdateTransferInput{Amount: &newAmount})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if !from.Balance.Equal(dec("340")) {
		t.Errorf("source balance = %s, want 340", from.Balance)
	}
	if !to.Balance.Equal(dec("160")) {
		t.Errorf("destination balance = %s, want 160", to.Balance)
	}
	if !updated.Outgoing.Amount.Equal(newAmount) || !updated.Incoming.Amount.Equal(newAmount) {
		t.Error("both legs must carry the new amount")
	}
}

func TestTransferUpdateSharedFieldsHitBothLegs(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	from := env.seedAccount("A", dec("100"))
	to := env.seedAccount("B", dec("0"))

	result, err := env.transferSvc.Create(ctx, testUser, CreateTransferInput{
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        dec("50"),
		Date:          date(2025, time.August, 1),
		Description:   "before",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	desc := "after"
	newDate := date(2025, time.August, 15)
	show := true
	updated, err := env.transferSvc.Update(ctx, testUser, result.Outgoing.ID, UpdateTransferInput{
		Date:            &newDate,
		Description:     &desc,
		ShowInSummaries: &show,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	for _, leg := range []*domain.Transaction{updated.Outgoing, updated.Incoming} {
		if leg.Description != "after" {
			t.Errorf("leg description = %q, want %q", leg.Description, "after")
		}
		if !leg.Date.Equal(newDate) {
			t.Errorf("leg date = %s, want %s", leg.Date, newDate)
		}
		if leg.HideFromSummary {
			t.Error("legs should be visible after ShowInSummaries=true")
		}
	}
	if !from.Balance.Equal(dec("50")) || !to.Balance.Equal(dec("50")) {
		t.Errorf("balances = %s/%s, want 50/50 (amount unchanged)", from.Balance, to.Balance)
	}
}

func TestTransferDeleteOrphanLegNoReversal(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	from := env.seedAccount("Checking", dec("500"))
	to := env.seedAccount("Savings", dec("0"))

	result, err := env.transferSvc.Create(ctx, testUser, CreateTransferInput{
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        dec("100"),
		Date:          date(2025, time.August, 1),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Simulate a corrupted pair by removing the incoming leg directly.
	delete(env.transactions.Transactions, result.Incoming.ID)

	if err := env.transferSvc.Delete(ctx, testUser, result.Outgoing.ID); err != nil {
		t.Fatalf("Delete() of orphan leg error = %v", err)
	}
	if len(env.transactions.Transactions) != 0 {
		t.Error("orphan leg should have been deleted")
	}
	// No reversal on an orphan: balances stay where the create left them.
	if !from.Balance.Equal(dec("400")) || !to.Balance.Equal(dec("100")) {
		t.Errorf("balances = %s/%s, want 400/100 (no reversal)", from.Balance, to.Balance)
	}
}

func TestTransferDeleteNonTransferRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	account := env.seedAccount("Checking", dec("100"))
	category := env.seedCategory("Misc", domain.CategoryTypeExpense)

	created, err := env.transactionSvc.Create(ctx, testUser, CreateTransactionInput{
		Date:        date(2025, time.August, 1),
		Type:        domain.TransactionTypeExpense,
		Amount:      dec("10"),
		CategoryID:  category.ID,
		AccountID:   account.ID,
		Description: "not a transfer",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := env.transferSvc.Delete(ctx, testUser, created.ID); !errors.Is(err, domain.ErrNotATransfer) {
		t.Errorf("Delete() error = %v, want ErrNotATransfer", err)
	}
}

func TestGetPairedReturnsSibling(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	from := env.seedAccount("A", dec("100"))
	to := env.seedAccount("B", dec("0"))

	result, err := env.transferSvc.Create(ctx, testUser, CreateTransferInput{
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        dec("25"),
		Date:          date(2025, time.August, 1),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	paired, err := env.transferSvc.GetPaired(ctx, testUser, result.Outgoing.ID)
	if err != nil {
		t.Fatalf("GetPaired() error = %v", err)
	}
	if paired == nil || paired.ID != result.Incoming.ID {
		t.Error("GetPaired() should return the incoming leg")
	}

	// Ordinary transactions have no pair.
	category := env.seedCategory("Misc", domain.CategoryTypeExpense)
	ordinary, err := env.transactionSvc.Create(ctx, testUser, CreateTransactionInput{
		Date:        date(2025, time.August, 2),
		Type:        domain.TransactionTypeExpense,
		Amount:      dec("5"),
		CategoryID:  category.ID,
		AccountID:   from.ID,
		Description: "coffee",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	paired, err = env.transferSvc.GetPaired(ctx, testUser, ordinary.ID)
	if err != nil {
		t.Fatalf("GetPaired() error = %v", err)
	}
	if paired != nil {
		t.Error("GetPaired() on an ordinary transaction should return nil")
	}
}
