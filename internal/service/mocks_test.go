package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pos-backoffice/internal/domain"
	"pos-backoffice/internal/payment"
	"pos-backoffice/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mock repositories for testing

type mockAccountRepository struct {
	kind     domain.AccountKind
	accounts map[uuid.UUID]*domain.Account
}

func newMockAccountRepository(kind domain.AccountKind) *mockAccountRepository {
	return &mockAccountRepository{kind: kind, accounts: make(map[uuid.UUID]*domain.Account)}
}

func (m *mockAccountRepository) Kind() domain.AccountKind { return m.kind }

func (m *mockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	for _, a := range m.accounts {
		if a.Email == account.Email {
			return repository.ErrAccountAlreadyExists
		}
	}
	stored := *account
	m.accounts[account.ID] = &stored
	return nil
}

func (m *mockAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	for _, a := range m.accounts {
		if a.Email == email {
			found := *a
			return &found, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (m *mockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	found := *a
	return &found, nil
}

func (m *mockAccountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	accounts := make([]*domain.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		found := *a
		accounts = append(accounts, &found)
	}
	return accounts, nil
}

func (m *mockAccountRepository) Update(ctx context.Context, account *domain.Account) error {
	if _, ok := m.accounts[account.ID]; !ok {
		return repository.ErrAccountNotFound
	}
	stored := *account
	m.accounts[account.ID] = &stored
	return nil
}

func (m *mockAccountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	a, ok := m.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	a.PasswordHash = passwordHash
	return nil
}

func (m *mockAccountRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus) error {
	a, ok := m.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	a.Status = status
	return nil
}

func (m *mockAccountRepository) SetRole(ctx context.Context, id uuid.UUID, role string) error {
	a, ok := m.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	a.Role = role
	return nil
}

func (m *mockAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.accounts[id]; !ok {
		return repository.ErrAccountNotFound
	}
	delete(m.accounts, id)
	return nil
}

func (m *mockAccountRepository) FirstActiveAdmin(ctx context.Context) (*domain.Account, error) {
	var first *domain.Account
	for _, a := range m.accounts {
		if a.Role != domain.RoleAdmin || !a.Active() {
			continue
		}
		if first == nil || a.CreatedAt.Before(first.CreatedAt) {
			first = a
		}
	}
	if first == nil {
		return nil, repository.ErrAccountNotFound
	}
	found := *first
	return &found, nil
}

func (m *mockAccountRepository) add(name string) *domain.Account {
	a := &domain.Account{
		ID:     uuid.New(),
		Kind:   m.kind,
		Name:   name,
		Email:  fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		Role:   domain.RoleCustomer,
		Status: domain.AccountActive,
	}
	m.accounts[a.ID] = a
	return a
}

type mockCategoryRepository struct {
	categories map[uuid.UUID]*domain.Category
	inUse      map[uuid.UUID]bool
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{
		categories: make(map[uuid.UUID]*domain.Category),
		inUse:      make(map[uuid.UUID]bool),
	}
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	for _, c := range m.categories {
		if c.Name == category.Name {
			return repository.ErrCategoryAlreadyExists
		}
	}
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepository) CreateMany(ctx context.Context, categories []*domain.Category) error {
	for _, c := range categories {
		if err := m.Create(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	if _, ok := m.categories[category.ID]; !ok {
		return repository.ErrCategoryNotFound
	}
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.categories[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	if m.inUse[id] {
		return repository.ErrCategoryInUse
	}
	delete(m.categories, id)
	return nil
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	categories := make([]*domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		categories = append(categories, c)
	}
	return categories, nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	return c, nil
}

func (m *mockCategoryRepository) FindByNames(ctx context.Context, names []string) ([]*domain.Category, error) {
	var found []*domain.Category
	for _, name := range names {
		for _, c := range m.categories {
			if c.Name == name {
				found = append(found, c)
			}
		}
	}
	return found, nil
}

func (m *mockCategoryRepository) add(name string) *domain.Category {
	c := &domain.Category{ID: uuid.New(), Name: name, Description: name + " items"}
	m.categories[c.ID] = c
	return c
}

type mockProductRepository struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	sold     map[string]bool
	creates  int
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{
		products: make(map[string]*domain.Product),
		sold:     make(map[string]bool),
	}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.products[product.UID]; exists {
		return repository.ErrProductAlreadyExists
	}
	stored := *product
	m.products[product.UID] = &stored
	m.creates++
	return nil
}

func (m *mockProductRepository) CreateMany(ctx context.Context, products []*domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range products {
		if _, exists := m.products[p.UID]; exists {
			return repository.ErrProductAlreadyExists
		}
	}
	for _, p := range products {
		stored := *p
		m.products[p.UID] = &stored
		m.creates++
	}
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for uid, p := range m.products {
		if p.ID == product.ID {
			delete(m.products, uid)
			stored := *product
			m.products[product.UID] = &stored
			return nil
		}
	}
	return repository.ErrProductNotFound
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for uid, p := range m.products {
		if p.ID == id {
			delete(m.products, uid)
			return nil
		}
	}
	return repository.ErrProductNotFound
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.ID == id {
			found := *p
			return &found, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *mockProductRepository) FindByUIDs(ctx context.Context, uids []string) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found []*domain.Product
	for _, uid := range uids {
		if p, ok := m.products[uid]; ok {
			copied := *p
			found = append(found, &copied)
		}
	}
	return found, nil
}

func (m *mockProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	products := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		copied := *p
		products = append(products, &copied)
	}
	return products, nil
}

func (m *mockProductRepository) Latest(ctx context.Context, limit int) ([]*domain.Product, error) {
	products, _ := m.List(ctx)
	sort.Slice(products, func(i, j int) bool { return products[i].CreatedAt.After(products[j].CreatedAt) })
	if len(products) > limit {
		products = products[:limit]
	}
	return products, nil
}

func (m *mockProductRepository) CountActive(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, p := range m.products {
		if p.Available() {
			count++
		}
	}
	return count, nil
}

func (m *mockProductRepository) IsSold(ctx context.Context, uid string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sold[uid], nil
}

func (m *mockProductRepository) add(uid string, price, sellingPrice int64) *domain.Product {
	p := &domain.Product{
		ID:           uuid.New(),
		UID:          uid,
		Name:         "Product " + uid,
		Price:        decimal.NewFromInt(price),
		SellingPrice: decimal.NewFromInt(sellingPrice),
		Status:       domain.ProductActive,
	}
	m.mu.Lock()
	m.products[uid] = p
	m.mu.Unlock()
	return p
}

func (m *mockProductRepository) status(uid string) domain.ProductStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[uid].Status
}

// mockTransactionRepository records sales in memory and flips product status
// the way the database does, all or nothing.
type mockTransactionRepository struct {
	mu        sync.Mutex
	products  *mockProductRepository
	sales     []*domain.Transaction
	createErr error
}

func newMockTransactionRepository(products *mockProductRepository) *mockTransactionRepository {
	return &mockTransactionRepository{products: products}
}

func (m *mockTransactionRepository) CreateSale(ctx context.Context, sale *domain.Transaction) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.products.mu.Lock()
	defer m.products.mu.Unlock()
	for _, uid := range sale.ProductUIDs() {
		p, ok := m.products.products[uid]
		if !ok || !p.Available() {
			return fmt.Errorf("%w: %s", repository.ErrProductUnavailable, uid)
		}
	}
	for _, uid := range sale.ProductUIDs() {
		m.products.products[uid].Status = domain.ProductInactive
		m.products.sold[uid] = true
	}
	m.sales = append(m.sales, sale)
	return nil
}

func (m *mockTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sales {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, repository.ErrTransactionNotFound
}

func (m *mockTransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sales []*domain.Transaction
	for _, s := range m.sales {
		if filter.From != nil && s.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && s.CreatedAt.After(*filter.To) {
			continue
		}
		if filter.CustomerID != nil && s.CustomerID != *filter.CustomerID {
			continue
		}
		sales = append(sales, s)
	}
	sort.SliceStable(sales, func(i, j int) bool { return sales[i].CreatedAt.Before(sales[j].CreatedAt) })
	if filter.Limit > 0 && len(sales) > filter.Limit {
		sales = sales[:filter.Limit]
	}
	return sales, nil
}

func (m *mockTransactionRepository) Patch(ctx context.Context, id uuid.UUID, patch domain.TransactionPatch) (*domain.Transaction, error) {
	sale, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.PaymentMethod != nil {
		sale.PaymentMethod = *patch.PaymentMethod
	}
	if patch.PaymentPhone != nil {
		sale.PaymentPhone = *patch.PaymentPhone
	}
	return sale, nil
}

func (m *mockTransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.sales {
		if s.ID == id {
			m.sales = append(m.sales[:i], m.sales[i+1:]...)
			return nil
		}
	}
	return repository.ErrTransactionNotFound
}

type mockGateway struct {
	mu     sync.Mutex
	result *payment.ChargeResult
	err    error
	calls  []payment.ChargeRequest
}

func (m *mockGateway) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockGateway) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
