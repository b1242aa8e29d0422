package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/kasapp/kas-backend/internal/events"
	"github.com/kasapp/kas-backend/internal/middleware"
	"github.com/kasapp/kas-backend/internal/service"
	"github.com/kasapp/kas-backend/internal/testutil"
)

const testUser = "auth0|handler-test"

// handlerEnv wires handlers against services backed by in-memory
// repositories.
type handlerEnv struct {
	echo         *echo.Echo
	accounts     *testutil.MockAccountRepository
	categories   *testutil.MockCategoryRepository
	transactions *testutil.MockTransactionRepository

	account     *AccountHandler
	category    *CategoryHandler
	transaction *TransactionHandler
	transfer    *TransferHandler
}

func newHandlerEnv() *handlerEnv {
	uow := testutil.NewMockUnitOfWork()
	accounts := testutil.NewMockAccountRepository()
	categories := testutil.NewMockCategoryRepository()
	budgets := testutil.NewMockBudgetRepository()
	tags := testutil.NewMockTagRepository()
	transactions := testutil.NewMockTransactionRepository()
	profiles := testutil.NewMockImportProfileRepository()
	publisher := &events.NoOpPublisher{}

	recalc := service.NewRecalcService(accounts, budgets, transactions)
	transactionSvc := service.NewTransactionService(uow, transactions, accounts, categories, tags, recalc, publisher)
	transferSvc := service.NewTransferService(uow, transactions, accounts, categories, recalc, publisher)
	accountSvc := service.NewAccountService(uow, accounts, profiles, transactionSvc, publisher)
	categorySvc := service.NewCategoryService(uow, categories, profiles, transactionSvc, publisher)

	return &handlerEnv{
		echo:         echo.New(),
		accounts:     accounts,
		categories:   categories,
		transactions: transactions,
		account:      NewAccountHandler(accountSvc),
		category:     NewCategoryHandler(categorySvc),
		transaction:  NewTransactionHandler(transactionSvc, transferSvc),
		transfer:     NewTransferHandler(transferSvc),
	}
}

// request builds an echo context carrying an authenticated user.
func (env *handlerEnv) request(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, testUser)
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	return env.echo.NewContext(req, rec), rec
}

func (env *handlerEnv) seedAccount(name string, balance string) *domain.Account {
	a := &domain.Account{
		ID:      uuid.New(),
		UserID:  testUser,
		Name:    name,
		Type:    domain.AccountTypeBank,
		Balance: decimal.RequireFromString(balance),
	}
	env.accounts.AddAccount(a)
	return a
}

func (env *handlerEnv) seedCategory(name string, categoryType domain.CategoryType) *domain.Category {
	c := &domain.Category{
		ID:     uuid.New(),
		UserID: testUser,
		Name:   name,
		Type:   categoryType,
	}
	env.categories.AddCategory(c)
	return c
}

func (env *handlerEnv) createTransfer(t *testing.T, from, to *domain.Account, amount string) *service.TransferResult {
	t.Helper()
	transferSvc := service.NewTransferService(
		testutil.NewMockUnitOfWork(), env.transactions, env.accounts, env.categories,
		service.NewRecalcService(env.accounts, testutil.NewMockBudgetRepository(), env.transactions),
		&events.NoOpPublisher{})
	result, err := transferSvc.Create(context.Background(), testUser, service.CreateTransferInput{
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        decimal.RequireFromString(amount),
		Date:          time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seeding transfer: %v", err)
	}
	return result
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetails {
	t.Helper()
	var problem ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("unmarshal problem details: %v", err)
	}
	return problem
}
