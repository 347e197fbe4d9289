package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pos-backoffice/internal/config"
	"pos-backoffice/internal/domain"
	"pos-backoffice/internal/payment"
	"pos-backoffice/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaleRequest is an incoming sale before it has been checked or charged.
type SaleRequest struct {
	CustomerID    uuid.UUID
	ProductUIDs   []string
	PaymentMethod string
	PaymentPhone  string
	TotalPrice    decimal.Decimal
}

// SaleService records sales. Process is the only path that changes product
// status.
type SaleService interface {
	Process(ctx context.Context, req SaleRequest) (*domain.Transaction, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	List(ctx context.Context) ([]*domain.Transaction, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Transaction, error)
	Patch(ctx context.Context, id uuid.UUID, patch domain.TransactionPatch) (*domain.Transaction, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type saleService struct {
	transactionRepo repository.TransactionRepository
	productRepo     repository.ProductRepository
	customerRepo    repository.AccountRepository
	gateway         payment.Gateway
	cfg             config.SalesConfig
	logger          *zap.Logger
	now             func() time.Time
}

// NewSaleService creates a new instance of SaleService
func NewSaleService(
	transactionRepo repository.TransactionRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.AccountRepository,
	gateway payment.Gateway,
	cfg config.SalesConfig,
	logger *zap.Logger,
) SaleService {
	return &saleService{
		transactionRepo: transactionRepo,
		productRepo:     productRepo,
		customerRepo:    customerRepo,
		gateway:         gateway,
		cfg:             cfg,
		logger:          logger,
		now:             time.Now,
	}
}

// Process validates, optionally charges, and records a sale.
//
// Nothing is charged until the customer and every product have been
// resolved, and nothing is stored when the charge is declined. Recording the
// sale and marking its products inactive happen in one database transaction.
func (s *saleService) Process(ctx context.Context, req SaleRequest) (*domain.Transaction, error) {
	if err := validateSale(req); err != nil {
		return nil, err
	}

	customer, err := s.customerRepo.FindByID(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	products, err := s.resolveProducts(ctx, req.ProductUIDs)
	if err != nil {
		return nil, err
	}

	if s.cfg.EnforceTotal {
		sum := decimal.Zero
		for _, p := range products {
			sum = sum.Add(p.SellingPrice)
		}
		if !sum.Equal(req.TotalPrice) {
			return nil, &ValidationError{
				Field:   "totalPrice",
				Message: fmt.Sprintf("total %s does not match the selling prices of the products (%s)", req.TotalPrice.String(), sum.String()),
			}
		}
	}

	sale := &domain.Transaction{
		ID:            uuid.New(),
		CustomerID:    customer.ID,
		Customer:      customer.Ref(),
		PaymentMethod: req.PaymentMethod,
		PaymentPhone:  req.PaymentPhone,
		TotalPrice:    req.TotalPrice,
		CreatedAt:     s.now().UTC(),
	}
	for i, uid := range req.ProductUIDs {
		sale.Items = append(sale.Items, domain.LineItem{ProductUID: uid, Product: products[i]})
	}

	log := s.logger.With(zap.String("transaction_id", sale.ID.String()))

	charged := false
	if sale.RequiresCharge() {
		if err := s.charge(ctx, log, sale); err != nil {
			return nil, err
		}
		charged = true
	}

	if err := s.transactionRepo.CreateSale(ctx, sale); err != nil {
		if charged {
			log.Error("Charged sale could not be recorded",
				zap.String("payment_reference", sale.PaymentReference),
				zap.String("payment_phone", sale.PaymentPhone),
				zap.String("total_price", sale.TotalPrice.String()),
				zap.Error(err),
			)
			return nil, &UnrecordedChargeError{PaymentReference: sale.PaymentReference, Err: err}
		}
		return nil, fmt.Errorf("failed to record sale: %w", err)
	}

	for _, item := range sale.Items {
		item.Product.Status = domain.ProductInactive
	}

	log.Info("Sale recorded",
		zap.String("payment_method", sale.PaymentMethod),
		zap.Int("items", len(sale.Items)),
		zap.String("total_price", sale.TotalPrice.String()),
	)
	return sale, nil
}

func (s *saleService) charge(ctx context.Context, log *zap.Logger, sale *domain.Transaction) error {
	reference := sale.ID.String()
	log.Info("Charging payment", zap.String("payment_reference", reference))

	result, err := s.gateway.Charge(ctx, payment.ChargeRequest{
		Phone:       sale.PaymentPhone,
		Amount:      sale.TotalPrice,
		ReferenceID: reference,
		Description: fmt.Sprintf("Sale of %d item(s)", len(sale.Items)),
	})
	if err != nil {
		log.Warn("Payment gateway error", zap.Error(err))
		return fmt.Errorf("failed to charge payment: %w", err)
	}

	if !result.Status {
		reason := result.Error
		if strings.TrimSpace(reason) == "" {
			reason = DefaultDeclineMessage
		}
		log.Info("Payment declined", zap.String("reason", reason))
		return &PaymentDeclinedError{Reason: reason}
	}

	sale.PaymentReference = reference
	if result.TransactionID != "" {
		sale.PaymentReference = result.TransactionID
	}
	log.Info("Payment approved", zap.String("payment_reference", sale.PaymentReference))
	return nil
}

// resolveProducts returns the products in request order, failing when one is
// unknown or already sold.
func (s *saleService) resolveProducts(ctx context.Context, uids []string) ([]*domain.Product, error) {
	found, err := s.productRepo.FindByUIDs(ctx, uids)
	if err != nil {
		return nil, err
	}

	byUID := make(map[string]*domain.Product, len(found))
	for _, p := range found {
		byUID[p.UID] = p
	}

	products := make([]*domain.Product, 0, len(uids))
	for _, uid := range uids {
		p, ok := byUID[uid]
		if !ok {
			return nil, fmt.Errorf("%w: %s", repository.ErrProductNotFound, uid)
		}
		if !p.Available() {
			return nil, &ConflictError{Message: fmt.Sprintf("product %s is no longer available", uid)}
		}
		products = append(products, p)
	}
	return products, nil
}

func validateSale(req SaleRequest) error {
	if req.CustomerID == uuid.Nil {
		return &ValidationError{Field: "userCustomerId", Message: "This field is required"}
	}
	if len(req.ProductUIDs) == 0 {
		return &ValidationError{Field: "productsList", Message: "At least one product is required"}
	}
	seen := make(map[string]struct{}, len(req.ProductUIDs))
	for _, uid := range req.ProductUIDs {
		if strings.TrimSpace(uid) == "" {
			return &ValidationError{Field: "productsList", Message: "Product uid is required"}
		}
		if _, dup := seen[uid]; dup {
			return &ValidationError{Field: "productsList", Message: fmt.Sprintf("product %s is listed more than once", uid)}
		}
		seen[uid] = struct{}{}
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return &ValidationError{Field: "paymentMethod", Message: "This field is required"}
	}
	if req.TotalPrice.IsNegative() {
		return &ValidationError{Field: "totalPrice", Message: "Value must be greater than or equal to 0"}
	}
	if req.PaymentMethod == domain.PaymentMethodEVCPlus && strings.TrimSpace(req.PaymentPhone) == "" {
		return &ValidationError{Field: "paymentPhone", Message: "A phone number is required for EVC-PLUS payments"}
	}
	return nil
}

// Get retrieves a populated transaction
func (s *saleService) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return s.transactionRepo.FindByID(ctx, id)
}

// List retrieves every transaction
func (s *saleService) List(ctx context.Context) ([]*domain.Transaction, error) {
	return s.transactionRepo.List(ctx, domain.TransactionFilter{})
}

// ListByCustomer retrieves the purchases of one customer
func (s *saleService) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Transaction, error) {
	return s.transactionRepo.List(ctx, domain.TransactionFilter{CustomerID: &customerID})
}

// Patch changes the payment fields of a recorded sale
func (s *saleService) Patch(ctx context.Context, id uuid.UUID, patch domain.TransactionPatch) (*domain.Transaction, error) {
	if patch.PaymentMethod != nil && strings.TrimSpace(*patch.PaymentMethod) == "" {
		return nil, &ValidationError{Field: "paymentMethod", Message: "Value must not be empty"}
	}
	return s.transactionRepo.Patch(ctx, id, patch)
}

// Delete removes a sale record. Sold products are not re-activated.
func (s *saleService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.transactionRepo.Delete(ctx, id)
}
