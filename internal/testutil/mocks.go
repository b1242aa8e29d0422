package testutil

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/kasapp/kas-backend/internal/util"
	"github.com/shopspring/decimal"
)

// MockUnitOfWork runs the callback without a real transaction. BeginErr, when
// set, makes Run fail before the callback executes.
type MockUnitOfWork struct {
	BeginErr error
	Runs     int
}

func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{}
}

func (m *MockUnitOfWork) Run(ctx context.Context, fn func(tx interface{}) error) error {
	if m.BeginErr != nil {
		return m.BeginErr
	}
	m.Runs++
	return fn(nil)
}

// MockAccountRepository is an in-memory implementation of domain.AccountRepository
type MockAccountRepository struct {
	Accounts map[uuid.UUID]*domain.Account
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{Accounts: make(map[uuid.UUID]*domain.Account)}
}

// AddAccount seeds an account (helper for tests).
func (m *MockAccountRepository) AddAccount(a *domain.Account) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m.Accounts[a.ID] = a
}

func (m *MockAccountRepository) Create(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	m.Accounts[a.ID] = a
	return a, nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.Account, error) {
	a, ok := m.Accounts[id]
	if !ok || a.UserID != userID {
		return nil, domain.ErrAccountNotFound
	}
	return a, nil
}

func (m *MockAccountRepository) GetAll(ctx context.Context, userID string) ([]*domain.Account, error) {
	var out []*domain.Account
	for _, a := range m.Accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockAccountRepository) Update(ctx context.Context, userID string, id uuid.UUID, patch *domain.AccountUpdate) (*domain.Account, error) {
	a, err := m.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		a.Name = *patch.Name
	}
	if patch.Type != nil {
		a.Type = *patch.Type
	}
	if patch.Color != nil {
		a.Color = *patch.Color
	}
	if patch.Icon != nil {
		a.Icon = *patch.Icon
	}
	a.UpdatedAt = time.Now().UTC()
	return a, nil
}

func (m *MockAccountRepository) DeleteTx(ctx context.Context, tx interface{}, userID string, id uuid.UUID) error {
	if _, err := m.GetByID(ctx, userID, id); err != nil {
		return err
	}
	delete(m.Accounts, id)
	return nil
}

func (m *MockAccountRepository) AddToBalanceTx(ctx context.Context, tx interface{}, userID string, id uuid.UUID, delta decimal.Decimal) error {
	a, err := m.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	a.Balance = a.Balance.Add(delta)
	return nil
}

// MockCategoryRepository is an in-memory implementation of domain.CategoryRepository
type MockCategoryRepository struct {
	Categories map[uuid.UUID]*domain.Category
}

func NewMockCategoryRepository() *MockCategoryRepository {
	return &MockCategoryRepository{Categories: make(map[uuid.UUID]*domain.Category)}
}

func (m *MockCategoryRepository) AddCategory(c *domain.Category) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.Categories[c.ID] = c
}

func (m *MockCategoryRepository) Create(ctx context.Context, c *domain.Category) (*domain.Category, error) {
	return m.CreateTx(ctx, nil, c)
}

func (m *MockCategoryRepository) CreateTx(ctx context.Context, tx interface{}, c *domain.Category) (*domain.Category, error) {
	c.ID = uuid.New()
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	m.Categories[c.ID] = c
	return c, nil
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.Category, error) {
	c, ok := m.Categories[id]
	if !ok || c.UserID != userID {
		return nil, domain.ErrCategoryNotFound
	}
	return c, nil
}

func (m *MockCategoryRepository) GetByName(ctx context.Context, userID string, name string) (*domain.Category, error) {
	for _, c := range m.Categories {
		if c.UserID == userID && c.Name == name {
			return c, nil
		}
	}
	return nil, domain.ErrCategoryNotFound
}

func (m *MockCategoryRepository) GetAll(ctx context.Context, userID string, categoryType *domain.CategoryType) ([]*domain.Category, error) {
	var out []*domain.Category
	for _, c := range m.Categories {
		if c.UserID != userID {
			continue
		}
		if categoryType != nil && c.Type != *categoryType {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *MockCategoryRepository) Update(ctx context.Context, userID string, id uuid.UUID, patch *domain.CategoryUpdate) (*domain.Category, error) {
	c, err := m.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Type != nil {
		c.Type = *patch.Type
	}
	if patch.Color != nil {
		c.Color = *patch.Color
	}
	if patch.Icon != nil {
		c.Icon = *patch.Icon
	}
	if patch.SetParentNil {
		c.ParentID = nil
	} else if patch.ParentID != nil {
		c.ParentID = patch.ParentID
	}
	c.UpdatedAt = time.Now().UTC()
	return c, nil
}

func (m *MockCategoryRepository) DeleteTx(ctx context.Context, tx interface{}, userID string, id uuid.UUID) error {
	if _, err := m.GetByID(ctx, userID, id); err != nil {
		return err
	}
	// Children become root categories, mirroring ON DELETE SET NULL.
	for _, c := range m.Categories {
		if c.ParentID != nil && *c.ParentID == id {
			c.ParentID = nil
		}
	}
	delete(m.Categories, id)
	return nil
}

// MockBudgetRepository is an in-memory implementation of domain.BudgetRepository
type MockBudgetRepository struct {
	Budgets map[uuid.UUID]*domain.Budget
}

func NewMockBudgetRepository() *MockBudgetRepository {
	return &MockBudgetRepository{Budgets: make(map[uuid.UUID]*domain.Budget)}
}

func (m *MockBudgetRepository) AddBudget(b *domain.Budget) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	m.Budgets[b.ID] = b
}

func (m *MockBudgetRepository) Create(ctx context.Context, b *domain.Budget) (*domain.Budget, error) {
	b.ID = uuid.New()
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	m.Budgets[b.ID] = b
	return b, nil
}

func (m *MockBudgetRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.Budget, error) {
	b, ok := m.Budgets[id]
	if !ok || b.UserID != userID {
		return nil, domain.ErrBudgetNotFound
	}
	return b, nil
}

func (m *MockBudgetRepository) GetAll(ctx context.Context, userID string, month *time.Time) ([]*domain.Budget, error) {
	var out []*domain.Budget
	for _, b := range m.Budgets {
		if b.UserID != userID {
			continue
		}
		if month != nil && !b.Month.Equal(*month) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.After(out[j].Month) })
	return out, nil
}

func (m *MockBudgetRepository) GetByCategoryMonthTx(ctx context.Context, tx interface{}, userID string, categoryID uuid.UUID, month time.Time) (*domain.Budget, error) {
	for _, b := range m.Budgets {
		if b.UserID == userID && b.CategoryID == categoryID && b.Month.Equal(month) {
			return b, nil
		}
	}
	return nil, domain.ErrBudgetNotFound
}

func (m *MockBudgetRepository) UpdateLimit(ctx context.Context, userID string, id uuid.UUID, limit decimal.Decimal) (*domain.Budget, error) {
	b, err := m.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	b.LimitAmount = limit
	b.UpdatedAt = time.Now().UTC()
	return b, nil
}

func (m *MockBudgetRepository) SetSpentTx(ctx context.Context, tx interface{}, userID string, id uuid.UUID, spent decimal.Decimal) error {
	b, err := m.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	b.SpentAmount = spent
	return nil
}

func (m *MockBudgetRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if _, err := m.GetByID(ctx, userID, id); err != nil {
		return err
	}
	delete(m.Budgets, id)
	return nil
}

// MockTagRepository is an in-memory implementation of domain.TagRepository
type MockTagRepository struct {
	Tags map[uuid.UUID]*domain.Tag
}

func NewMockTagRepository() *MockTagRepository {
	return &MockTagRepository{Tags: make(map[uuid.UUID]*domain.Tag)}
}

func (m *MockTagRepository) GetAll(ctx context.Context, userID string) ([]*domain.Tag, error) {
	var out []*domain.Tag
	for _, t := range m.Tags {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockTagRepository) GetOrCreateTx(ctx context.Context, tx interface{}, userID string, names []string) ([]*domain.Tag, error) {
	var out []*domain.Tag
	for _, name := range names {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		var found *domain.Tag
		for _, t := range m.Tags {
			if t.UserID == userID && t.Name == normalized {
				found = t
				break
			}
		}
		if found == nil {
			found = &domain.Tag{ID: uuid.New(), UserID: userID, Name: normalized, CreatedAt: time.Now().UTC()}
			m.Tags[found.ID] = found
		}
		out = append(out, found)
	}
	return out, nil
}

// MockTransactionRepository is an in-memory implementation of domain.TransactionRepository
type MockTransactionRepository struct {
	Transactions map[uuid.UUID]*domain.Transaction
	CreateErr    error
	UpdateErr    error
	DeleteErr    error
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{Transactions: make(map[uuid.UUID]*domain.Transaction)}
}

func (m *MockTransactionRepository) AddTransaction(t *domain.Transaction) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	m.Transactions[t.ID] = t
}

func (m *MockTransactionRepository) CreateTx(ctx context.Context, tx interface{}, t *domain.Transaction) (*domain.Transaction, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	cp := *t
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	m.Transactions[cp.ID] = &cp
	return &cp, nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.Transaction, error) {
	t, ok := m.Transactions[id]
	if !ok || t.UserID != userID {
		return nil, domain.ErrTransactionNotFound
	}
	return t, nil
}

func (m *MockTransactionRepository) List(ctx context.Context, userID string, filter *domain.TransactionFilter) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for _, t := range m.Transactions {
		if t.UserID != userID {
			continue
		}
		if filter != nil {
			if filter.Search != "" && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(filter.Search)) {
				continue
			}
			if filter.Type != nil && t.Type != *filter.Type {
				continue
			}
			if filter.CategoryID != nil && t.CategoryID != *filter.CategoryID {
				continue
			}
			if filter.AccountID != nil && t.AccountID != *filter.AccountID {
				continue
			}
			if filter.Month != "" {
				month, err := util.ParseMonth(filter.Month)
				if err != nil {
					return nil, domain.ErrInvalidMonth
				}
				if !util.MonthOf(t.Date).Equal(month) {
					continue
				}
			}
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if filter != nil {
		if filter.Skip > 0 {
			if filter.Skip >= len(out) {
				return nil, nil
			}
			out = out[filter.Skip:]
		}
		if filter.Limit > 0 && filter.Limit < len(out) {
			out = out[:filter.Limit]
		}
	}
	return out, nil
}

func (m *MockTransactionRepository) Count(ctx context.Context, userID string, accountID, categoryID *uuid.UUID) (int64, error) {
	var n int64
	for _, t := range m.Transactions {
		if t.UserID != userID {
			continue
		}
		if accountID != nil && t.AccountID != *accountID {
			continue
		}
		if categoryID != nil && t.CategoryID != *categoryID {
			continue
		}
		n++
	}
	return n, nil
}

func (m *MockTransactionRepository) UpdateTx(ctx context.Context, tx interface{}, t *domain.Transaction, tags []*domain.Tag) (*domain.Transaction, error) {
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	existing, ok := m.Transactions[t.ID]
	if !ok || existing.UserID != t.UserID {
		return nil, domain.ErrTransactionNotFound
	}
	cp := *t
	if tags != nil {
		cp.Tags = tags
	} else {
		cp.Tags = existing.Tags
	}
	cp.UpdatedAt = time.Now().UTC()
	m.Transactions[t.ID] = &cp
	return &cp, nil
}

func (m *MockTransactionRepository) DeleteTx(ctx context.Context, tx interface{}, userID string, id uuid.UUID) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if _, err := m.GetByID(ctx, userID, id); err != nil {
		return err
	}
	delete(m.Transactions, id)
	return nil
}

func (m *MockTransactionRepository) GetPaired(ctx context.Context, userID string, groupID uuid.UUID, excludeID uuid.UUID) (*domain.Transaction, error) {
	for _, t := range m.Transactions {
		if t.UserID == userID && t.TransferGroupID != nil && *t.TransferGroupID == groupID && t.ID != excludeID {
			return t, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) SumExpensesTx(ctx context.Context, tx interface{}, userID string, categoryID uuid.UUID, month time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, t := range m.Transactions {
		if t.UserID != userID || t.CategoryID != categoryID {
			continue
		}
		if t.Type != domain.TransactionTypeExpense || t.HideFromSummary {
			continue
		}
		if !util.MonthOf(t.Date).Equal(month) {
			continue
		}
		sum = sum.Add(t.Amount)
	}
	return sum, nil
}

func (m *MockTransactionRepository) SummarizeMonth(ctx context.Context, userID string, month time.Time) (decimal.Decimal, decimal.Decimal, error) {
	income, expense := decimal.Zero, decimal.Zero
	for _, t := range m.Transactions {
		if t.UserID != userID || t.HideFromSummary {
			continue
		}
		if !util.MonthOf(t.Date).Equal(month) {
			continue
		}
		if t.Type == domain.TransactionTypeIncome {
			income = income.Add(t.Amount)
		} else {
			expense = expense.Add(t.Amount)
		}
	}
	return income, expense, nil
}

func (m *MockTransactionRepository) DeleteByAccountTx(ctx context.Context, tx interface{}, userID string, accountID uuid.UUID) (int, []domain.CategoryMonth, error) {
	seen := make(map[domain.CategoryMonth]bool)
	var months []domain.CategoryMonth
	deleted := 0
	for id, t := range m.Transactions {
		if t.UserID != userID || t.AccountID != accountID {
			continue
		}
		if t.Type == domain.TransactionTypeExpense {
			cm := domain.CategoryMonth{CategoryID: t.CategoryID, Month: util.MonthOf(t.Date)}
			if !seen[cm] {
				seen[cm] = true
				months = append(months, cm)
			}
		}
		delete(m.Transactions, id)
		deleted++
	}
	return deleted, months, nil
}

func (m *MockTransactionRepository) DeleteByCategoryTx(ctx context.Context, tx interface{}, userID string, categoryID uuid.UUID) (*domain.BulkDeleteEffect, error) {
	effect := &domain.BulkDeleteEffect{AccountDeltas: make(map[uuid.UUID]decimal.Decimal)}
	seen := make(map[domain.CategoryMonth]bool)
	for id, t := range m.Transactions {
		if t.UserID != userID || t.CategoryID != categoryID {
			continue
		}
		// Reversal is the negation of the row's balance effect.
		effect.AccountDeltas[t.AccountID] = effect.AccountDeltas[t.AccountID].Add(t.BalanceDelta().Neg())
		if t.Type == domain.TransactionTypeExpense {
			cm := domain.CategoryMonth{CategoryID: t.CategoryID, Month: util.MonthOf(t.Date)}
			if !seen[cm] {
				seen[cm] = true
				effect.CategoryMonths = append(effect.CategoryMonths, cm)
			}
		}
		delete(m.Transactions, id)
		effect.Deleted++
	}
	return effect, nil
}

func (m *MockTransactionRepository) SetReceiptKey(ctx context.Context, userID string, id uuid.UUID, key *string) error {
	t, err := m.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	t.ReceiptKey = key
	return nil
}

// MockImportProfileRepository is an in-memory implementation of domain.ImportProfileRepository
type MockImportProfileRepository struct {
	Profiles map[uuid.UUID]*domain.ImportProfile
	// Mappings is keyed by profile ID, then mapping type, then csv value.
	Mappings map[uuid.UUID]map[string]map[string]uuid.UUID
}

func NewMockImportProfileRepository() *MockImportProfileRepository {
	return &MockImportProfileRepository{
		Profiles: make(map[uuid.UUID]*domain.ImportProfile),
		Mappings: make(map[uuid.UUID]map[string]map[string]uuid.UUID),
	}
}

func (m *MockImportProfileRepository) GetOrCreateDefault(ctx context.Context, userID string) (*domain.ImportProfile, error) {
	for _, p := range m.Profiles {
		if p.UserID == userID && p.Name == domain.DefaultProfileName {
			return p, nil
		}
	}
	p := &domain.ImportProfile{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      domain.DefaultProfileName,
		CreatedAt: time.Now().UTC(),
	}
	m.Profiles[p.ID] = p
	return p, nil
}

func (m *MockImportProfileRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.ImportProfile, error) {
	p, ok := m.Profiles[id]
	if !ok || p.UserID != userID {
		return nil, domain.ErrProfileNotFound
	}
	return p, nil
}

func (m *MockImportProfileRepository) GetAll(ctx context.Context, userID string) ([]*domain.ImportProfile, error) {
	var out []*domain.ImportProfile
	for _, p := range m.Profiles {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockImportProfileRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if _, err := m.GetByID(ctx, userID, id); err != nil {
		return err
	}
	delete(m.Profiles, id)
	delete(m.Mappings, id)
	return nil
}

func (m *MockImportProfileRepository) GetMappings(ctx context.Context, profileID uuid.UUID, mappingType string) (map[string]uuid.UUID, error) {
	out := make(map[string]uuid.UUID)
	for csv, id := range m.Mappings[profileID][mappingType] {
		out[csv] = id
	}
	return out, nil
}

func (m *MockImportProfileRepository) UpsertMappings(ctx context.Context, profileID uuid.UUID, mappingType string, items []domain.MappingItem) error {
	if m.Mappings[profileID] == nil {
		m.Mappings[profileID] = make(map[string]map[string]uuid.UUID)
	}
	if m.Mappings[profileID][mappingType] == nil {
		m.Mappings[profileID][mappingType] = make(map[string]uuid.UUID)
	}
	for _, item := range items {
		m.Mappings[profileID][mappingType][item.CSVValue] = item.InternalID
	}
	return nil
}

func (m *MockImportProfileRepository) DeleteByInternalID(ctx context.Context, tx interface{}, internalID uuid.UUID, mappingType string) (int, error) {
	n := 0
	for _, byType := range m.Mappings {
		for csv, id := range byType[mappingType] {
			if id == internalID {
				delete(byType[mappingType], csv)
				n++
			}
		}
	}
	return n, nil
}
