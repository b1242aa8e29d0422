package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/kasapp/kas-backend/internal/domain"
)

func TestCreateTransaction_Success(t *testing.T) {
	env := newHandlerEnv()
	account := env.seedAccount("Checking", "500")
	salary := env.seedCategory("Salary", domain.CategoryTypeIncome)

	body := fmt.Sprintf(`{"date": "2025-03-05", "type": "income", "amount": "1200.50", "categoryId": %q, "accountId": %q, "description": "March salary", "tags": ["work"]}`,
		salary.ID, account.ID)
	c, rec := env.request(http.MethodPost, "/api/v1/transactions", body)

	if err := env.transaction.CreateTransaction(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created domain.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if created.Description != "March salary" {
		t.Errorf("expected description 'March salary', got %q", created.Description)
	}

	// Balance moved with the income.
	updated, _ := env.accounts.GetByID(c.Request().Context(), testUser, account.ID)
	if updated.Balance.StringFixed(2) != "1700.50" {
		t.Errorf("expected balance 1700.50, got %s", updated.Balance)
	}
}

func TestCreateTransaction_BadAmount(t *testing.T) {
	env := newHandlerEnv()
	account := env.seedAccount("Checking", "0")
	food := env.seedCategory("Food", domain.CategoryTypeExpense)

	body := fmt.Sprintf(`{"date": "2025-03-05", "type": "expense", "amount": "not-a-number", "categoryId": %q, "accountId": %q, "description": "lunch"}`,
		food.ID, account.ID)
	c, rec := env.request(http.MethodPost, "/api/v1/transactions", body)

	if err := env.transaction.CreateTransaction(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestUpdateTransaction_TransferLegSharedFields(t *testing.T) {
	env := newHandlerEnv()
	from := env.seedAccount("Checking", "500")
	to := env.seedAccount("Savings", "0")
	result := env.createTransfer(t, from, to, "100")

	// Patching the description of one leg goes through the transfer path
	// and lands on both legs.
	body := `{"description": "Monthly savings"}`
	c, rec := env.request(http.MethodPatch, "/api/v1/transactions/"+result.Outgoing.ID.String(), body)
	c.SetParamNames("id")
	c.SetParamValues(result.Outgoing.ID.String())

	if err := env.transaction.UpdateTransaction(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	incoming, _ := env.transactions.GetByID(c.Request().Context(), testUser, result.Incoming.ID)
	if incoming.Description != "Monthly savings" {
		t.Errorf("expected sibling leg updated, got %q", incoming.Description)
	}
}

func TestUpdateTransaction_TransferLegImmutableField(t *testing.T) {
	env := newHandlerEnv()
	from := env.seedAccount("Checking", "500")
	to := env.seedAccount("Savings", "0")
	other := env.seedAccount("Cash", "0")
	result := env.createTransfer(t, from, to, "100")

	body := fmt.Sprintf(`{"accountId": %q}`, other.ID)
	c, rec := env.request(http.MethodPatch, "/api/v1/transactions/"+result.Outgoing.ID.String(), body)
	c.SetParamNames("id")
	c.SetParamValues(result.Outgoing.ID.String())

	if err := env.transaction.UpdateTransaction(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteTransaction_TransferLegRemovesPair(t *testing.T) {
	env := newHandlerEnv()
	from := env.seedAccount("Checking", "500")
	to := env.seedAccount("Savings", "0")
	result := env.createTransfer(t, from, to, "100")

	c, rec := env.request(http.MethodDelete, "/api/v1/transactions/"+result.Incoming.ID.String(), "")
	c.SetParamNames("id")
	c.SetParamValues(result.Incoming.ID.String())

	if err := env.transaction.DeleteTransaction(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d: %s", rec.Code, rec.Body.String())
	}

	if _, err := env.transactions.GetByID(c.Request().Context(), testUser, result.Outgoing.ID); err == nil {
		t.Error("expected sibling leg gone")
	}
	fromAfter, _ := env.accounts.GetByID(c.Request().Context(), testUser, from.ID)
	if fromAfter.Balance.StringFixed(2) != "500.00" {
		t.Errorf("expected source balance restored to 500.00, got %s", fromAfter.Balance)
	}
}

func TestGetTransactions_InvalidType(t *testing.T) {
	env := newHandlerEnv()

	c, rec := env.request(http.MethodGet, "/api/v1/transactions?type=refund", "")

	if err := env.transaction.GetTransactions(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}
