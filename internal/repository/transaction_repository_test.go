package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"pos-backoffice/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func seedCustomer(t *testing.T) *domain.Account {
	t.Helper()
	customer := newAccount(domain.KindCustomer, "buyer-"+uuid.NewString()[:8]+"@example.com")
	customer.Role = domain.RoleCustomer
	if err := NewCustomerRepository(testDB).Create(context.Background(), customer); err != nil {
		t.Fatalf("Failed to create customer: %v", err)
	}
	return customer
}

func newSale(customerID uuid.UUID, createdAt time.Time, total int64, uids ...string) *domain.Transaction {
	items := make([]domain.LineItem, 0, len(uids))
	for _, uid := range uids {
		items = append(items, domain.LineItem{ProductUID: uid})
	}
	return &domain.Transaction{
		ID:            uuid.New(),
		CustomerID:    customerID,
		Items:         items,
		PaymentMethod: "cash",
		TotalPrice:    decimal.NewFromInt(total),
		CreatedAt:     createdAt.UTC().Truncate(time.Microsecond),
	}
}

// Feature: pos-backoffice, Property 2: Stock flip
func TestProperty_SaleFlipsEveryProductInactive(t *testing.T) {
	ctx := context.Background()
	txRepo := NewTransactionRepository(testDB)
	productRepo := NewProductRepository(testDB)
	category := seedCategory(t)
	customer := seedCustomer(t)

	properties := gopter.NewProperties(nil)

	properties.Property("every line item's product is inactive after the sale", prop.ForAll(
		func(count int) bool {
			uids := make([]string, 0, count)
			for i := 0; i < count; i++ {
				uids = append(uids, seedProduct(t, category.ID, 10, 15).UID)
			}

			sale := newSale(customer.ID, time.Now(), int64(15*count), uids...)
			if err := txRepo.CreateSale(ctx, sale); err != nil {
				t.Logf("FAIL: CreateSale: %v", err)
				return false
			}

			products, err := productRepo.FindByUIDs(ctx, uids)
			if err != nil || len(products) != count {
				t.Logf("FAIL: FindByUIDs: %v (%d found)", err, len(products))
				return false
			}
			for _, p := range products {
				if p.Status != domain.ProductInactive {
					t.Logf("FAIL: product %s still %s", p.UID, p.Status)
					return false
				}
			}

			stored, err := txRepo.FindByID(ctx, sale.ID)
			if err != nil {
				t.Logf("FAIL: FindByID: %v", err)
				return false
			}
			if len(stored.Items) != count {
				t.Logf("FAIL: expected %d items, got %d", count, len(stored.Items))
				return false
			}
			for i, item := range stored.Items {
				if item.ProductUID != uids[i] || item.Product == nil {
					t.Logf("FAIL: item %d out of order or unresolved: %+v", i, item)
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestSecondSaleOfSameProductIsRejected(t *testing.T) {
	ctx := context.Background()
	txRepo := NewTransactionRepository(testDB)
	category := seedCategory(t)
	customer := seedCustomer(t)

	sold := seedProduct(t, category.ID, 10, 15)
	other := seedProduct(t, category.ID, 10, 15)

	if err := txRepo.CreateSale(ctx, newSale(customer.ID, time.Now(), 15, sold.UID)); err != nil {
		t.Fatalf("first sale: %v", err)
	}

	second := newSale(customer.ID, time.Now(), 30, other.UID, sold.UID)
	err := txRepo.CreateSale(ctx, second)
	if !errors.Is(err, ErrProductUnavailable) {
		t.Fatalf("expected ErrProductUnavailable, got %v", err)
	}

	if _, err := txRepo.FindByID(ctx, second.ID); !errors.Is(err, ErrTransactionNotFound) {
		t.Errorf("rejected sale must not be recorded, got %v", err)
	}

	found, err := NewProductRepository(testDB).FindByUIDs(ctx, []string{other.UID})
	if err != nil || len(found) != 1 {
		t.Fatalf("find other: %v", err)
	}
	if found[0].Status != domain.ProductActive {
		t.Errorf("rolled back sale must leave %s active", other.UID)
	}
}

func TestSaleForUnknownCustomerIsRejected(t *testing.T) {
	ctx := context.Background()
	category := seedCategory(t)
	product := seedProduct(t, category.ID, 10, 15)

	err := NewTransactionRepository(testDB).CreateSale(ctx, newSale(uuid.New(), time.Now(), 15, product.UID))
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestListFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	txRepo := NewTransactionRepository(testDB)
	category := seedCategory(t)
	customer := seedCustomer(t)

	base := time.Date(2021, 3, 10, 12, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		product := seedProduct(t, category.ID, 10, 15)
		sale := newSale(customer.ID, base.Add(time.Duration(i)*time.Hour), 15, product.UID)
		if err := txRepo.CreateSale(ctx, sale); err != nil {
			t.Fatalf("sale %d: %v", i, err)
		}
		ids = append(ids, sale.ID)
	}

	from := base.Add(30 * time.Minute)
	to := base.Add(2 * time.Hour)
	sales, err := txRepo.List(ctx, domain.TransactionFilter{From: &from, To: &to, CustomerID: &customer.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sales) != 2 || sales[0].ID != ids[1] || sales[1].ID != ids[2] {
		t.Fatalf("unexpected window result %v", sales)
	}
	if sales[0].Customer == nil || sales[0].Customer.Email != customer.Email {
		t.Errorf("customer not populated: %+v", sales[0].Customer)
	}

	limited, err := txRepo.List(ctx, domain.TransactionFilter{CustomerID: &customer.ID, Limit: 1})
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != ids[0] {
		t.Errorf("limit must keep the oldest sale, got %v", limited)
	}
}

func TestDeletedProductLeavesUnresolvedItem(t *testing.T) {
	ctx := context.Background()
	txRepo := NewTransactionRepository(testDB)
	category := seedCategory(t)
	customer := seedCustomer(t)
	product := seedProduct(t, category.ID, 10, 15)

	sale := newSale(customer.ID, time.Now(), 15, product.UID)
	if err := txRepo.CreateSale(ctx, sale); err != nil {
		t.Fatalf("sale: %v", err)
	}
	if err := NewProductRepository(testDB).Delete(ctx, product.ID); err != nil {
		t.Fatalf("delete product: %v", err)
	}

	stored, err := txRepo.FindByID(ctx, sale.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(stored.Items) != 1 || stored.Items[0].Product != nil {
		t.Errorf("expected one unresolved item, got %+v", stored.Items)
	}
}

func TestPatchAndDeleteTransaction(t *testing.T) {
	ctx := context.Background()
	txRepo := NewTransactionRepository(testDB)
	category := seedCategory(t)
	customer := seedCustomer(t)
	product := seedProduct(t, category.ID, 10, 15)

	sale := newSale(customer.ID, time.Now(), 15, product.UID)
	if err := txRepo.CreateSale(ctx, sale); err != nil {
		t.Fatalf("sale: %v", err)
	}

	phone := "252615000000"
	patched, err := txRepo.Patch(ctx, sale.ID, domain.TransactionPatch{PaymentPhone: &phone})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if patched.PaymentPhone != phone || patched.PaymentMethod != "cash" {
		t.Errorf("unexpected patch result %+v", patched)
	}
	if !patched.TotalPrice.Equal(decimal.NewFromInt(15)) {
		t.Errorf("total must not change, got %s", patched.TotalPrice)
	}

	if err := txRepo.Delete(ctx, sale.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := txRepo.Delete(ctx, sale.ID); !errors.Is(err, ErrTransactionNotFound) {
		t.Errorf("expected ErrTransactionNotFound, got %v", err)
	}

	found, err := NewProductRepository(testDB).FindByUIDs(ctx, []string{product.UID})
	if err != nil || len(found) != 1 || found[0].Status != domain.ProductInactive {
		t.Errorf("deleting a sale must not re-activate its products")
	}

	sold, err := NewProductRepository(testDB).IsSold(ctx, product.UID)
	if err != nil || sold {
		t.Errorf("items of a deleted sale must be gone, sold=%v err=%v", sold, err)
	}
}
