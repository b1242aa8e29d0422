package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/kasapp/kas-backend/internal/events"
	"github.com/kasapp/kas-backend/internal/testutil"
	"github.com/shopspring/decimal"
)

const testUser = "user_2abc"

// testEnv wires every service against in-memory repositories.
type testEnv struct {
	uow          *testutil.MockUnitOfWork
	accounts     *testutil.MockAccountRepository
	categories   *testutil.MockCategoryRepository
	budgets      *testutil.MockBudgetRepository
	tags         *testutil.MockTagRepository
	transactions *testutil.MockTransactionRepository
	profiles     *testutil.MockImportProfileRepository

	recalc         *RecalcService
	transactionSvc *TransactionService
	transferSvc    *TransferService
	accountSvc     *AccountService
	categorySvc    *CategoryService
	budgetSvc      *BudgetService
	importSvc      *ImportService
	dashboardSvc   *DashboardService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		uow:          testutil.NewMockUnitOfWork(),
		accounts:     testutil.NewMockAccountRepository(),
		categories:   testutil.NewMockCategoryRepository(),
		budgets:      testutil.NewMockBudgetRepository(),
		tags:         testutil.NewMockTagRepository(),
		transactions: testutil.NewMockTransactionRepository(),
		profiles:     testutil.NewMockImportProfileRepository(),
	}
	pub := &events.NoOpPublisher{}
	env.recalc = NewRecalcService(env.accounts, env.budgets, env.transactions)
	env.transactionSvc = NewTransactionService(env.uow, env.transactions, env.accounts, env.categories, env.tags, env.recalc, pub)
	env.transferSvc = NewTransferService(env.uow, env.transactions, env.accounts, env.categories, env.recalc, pub)
	env.accountSvc = NewAccountService(env.uow, env.accounts, env.profiles, env.transactionSvc, pub)
	env.categorySvc = NewCategoryService(env.uow, env.categories, env.profiles, env.transactionSvc, pub)
	env.budgetSvc = NewBudgetService(env.uow, env.budgets, env.categories, env.recalc, pub)
	env.importSvc = NewImportService(env.profiles, env.categories, env.accounts, env.transactionSvc, env.transferSvc, pub)
	env.dashboardSvc = NewDashboardService(env.accounts, env.transactions)
	return env
}

func (e *testEnv) seedAccount(name string, balance decimal.Decimal) *domain.Account {
	a := &domain.Account{
		UserID:  testUser,
		Name:    name,
		Type:    domain.AccountTypeBank,
		Balance: balance,
	}
	e.accounts.AddAccount(a)
	return a
}

func (e *testEnv) seedCategory(name string, categoryType domain.CategoryType) *domain.Category {
	c := &domain.Category{
		UserID: testUser,
		Name:   name,
		Type:   categoryType,
	}
	e.categories.AddCategory(c)
	return c
}

func (e *testEnv) seedBudget(categoryID uuid.UUID, month time.Time, limit decimal.Decimal) *domain.Budget {
	b := &domain.Budget{
		UserID:      testUser,
		CategoryID:  categoryID,
		Month:       month,
		LimitAmount: limit,
		SpentAmount: decimal.Zero,
	}
	e.budgets.AddBudget(b)
	return b
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
