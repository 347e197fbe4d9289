package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pos-backoffice/internal/domain"
	"pos-backoffice/internal/middleware"
	"pos-backoffice/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

// Service stubs embed the interface they stand in for; calling a method a
// test did not set up panics.

type stubSaleService struct {
	service.SaleService
	process func(ctx context.Context, req service.SaleRequest) (*domain.Transaction, error)
	list    func(ctx context.Context) ([]*domain.Transaction, error)
	calls   int
}

func (s *stubSaleService) Process(ctx context.Context, req service.SaleRequest) (*domain.Transaction, error) {
	s.calls++
	return s.process(ctx, req)
}

func (s *stubSaleService) List(ctx context.Context) ([]*domain.Transaction, error) {
	return s.list(ctx)
}

func (s *stubSaleService) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Transaction, error) {
	return []*domain.Transaction{}, nil
}

type stubReportService struct {
	service.ReportService
	report func(ctx context.Context, period domain.Period) (*domain.SalesReport, error)
}

func (s *stubReportService) Report(ctx context.Context, period domain.Period) (*domain.SalesReport, error) {
	return s.report(ctx, period)
}

type stubCatalogService struct {
	service.CatalogService
	importProducts   func(ctx context.Context, rows []service.ProductRow) ([]*domain.Product, error)
	importCategories func(ctx context.Context, rows []service.CategoryRow) ([]*domain.Category, error)
	byUIDs           func(ctx context.Context, uids []string) ([]*domain.Product, error)
	products         []*domain.Product
}

func (s *stubCatalogService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.products, nil
}

func (s *stubCatalogService) ImportProducts(ctx context.Context, rows []service.ProductRow) ([]*domain.Product, error) {
	return s.importProducts(ctx, rows)
}

func (s *stubCatalogService) ImportCategories(ctx context.Context, rows []service.CategoryRow) ([]*domain.Category, error) {
	return s.importCategories(ctx, rows)
}

func (s *stubCatalogService) ProductsByUIDs(ctx context.Context, uids []string) ([]*domain.Product, error) {
	return s.byUIDs(ctx, uids)
}

func (s *stubCatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return &service.ConflictError{Message: "category is used by products"}
}

type stubAccountService struct {
	service.AccountService
	kind           domain.AccountKind
	register       func(ctx context.Context, input service.RegisterInput) (*domain.Account, string, error)
	login          func(ctx context.Context, email, password string) (string, *domain.Account, error)
	changePassword func(ctx context.Context, id uuid.UUID, current, next string) error
	accounts       []*domain.Account
}

func (s *stubAccountService) Kind() domain.AccountKind { return s.kind }

func (s *stubAccountService) Register(ctx context.Context, input service.RegisterInput) (*domain.Account, string, error) {
	return s.register(ctx, input)
}

func (s *stubAccountService) Login(ctx context.Context, email, password string) (string, *domain.Account, error) {
	return s.login(ctx, email, password)
}

func (s *stubAccountService) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	return s.changePassword(ctx, id, current, next)
}

func (s *stubAccountService) List(ctx context.Context) ([]*domain.Account, error) {
	return s.accounts, nil
}

func (s *stubAccountService) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	for _, a := range s.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return &domain.Account{ID: id, Kind: s.kind}, nil
}

// routeRegistrar is implemented by every handler in this package.
type routeRegistrar interface {
	RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler)
}

func newRouter(handler routeRegistrar) http.Handler {
	r := chi.NewRouter()
	handler.RegisterRoutes(r, middleware.AuthMiddleware(testSecret, zap.NewNop()))
	return r
}

func tokenFor(t *testing.T, userID uuid.UUID, role string, kind domain.AccountKind) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.String(),
		"role":    role,
		"kind":    string(kind),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func staffToken(t *testing.T, role string) string {
	return tokenFor(t, uuid.New(), role, domain.KindStaff)
}

func do(handler http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		json.NewEncoder(&buf).Encode(b)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp middleware.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v (%s)", err, w.Body.String())
	}
	return resp.Error.Message
}
