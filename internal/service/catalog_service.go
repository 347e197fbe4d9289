package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pos-backoffice/internal/domain"
	"pos-backoffice/internal/repository"
	"pos-backoffice/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LatestProductsCount is how many products the dashboard shows as newest.
const LatestProductsCount = 4

// ProductInput carries the editable fields of a product.
type ProductInput struct {
	UID          string          `json:"uid" validate:"required,uid,max=100"`
	Name         string          `json:"name" validate:"required,max=255"`
	Price        decimal.Decimal `json:"price" validate:"gt=0"`
	SellingPrice decimal.Decimal `json:"sellingPrice" validate:"gte=0"`
	CategoryID   uuid.UUID       `json:"categoryId"`
	Status       string          `json:"status" validate:"omitempty,oneof=active inactive"`
	Image        string          `json:"image" validate:"max=500"`
}

// ProductRow is one entry of a bulk product import. Category holds a
// category name, or a category id.
type ProductRow struct {
	UID          string          `json:"uid" validate:"required,uid,max=100"`
	Name         string          `json:"name" validate:"required,max=255"`
	Price        decimal.Decimal `json:"price" validate:"gt=0"`
	SellingPrice decimal.Decimal `json:"sellingPrice" validate:"gte=0"`
	Category     string          `json:"category" validate:"required"`
	Status       string          `json:"status" validate:"omitempty,oneof=active inactive"`
	Image        string          `json:"image" validate:"max=500"`
}

// CategoryInput carries the editable fields of a category.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
	Icon        string `json:"icon" validate:"max=500"`
}

// CategoryRow is one entry of a bulk category import.
type CategoryRow struct {
	Name        string `json:"name" validate:"required,alpha,max=100"`
	Description string `json:"Description" validate:"required,alphaspace,max=1000"`
	Icon        string `json:"icon" validate:"max=500"`
}

// CatalogService manages products and categories
type CatalogService interface {
	CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	ProductsByUIDs(ctx context.Context, uids []string) ([]*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	CountActiveProducts(ctx context.Context) (int, error)
	LatestProducts(ctx context.Context) ([]*domain.Product, error)
	ImportProducts(ctx context.Context, rows []ProductRow) ([]*domain.Product, error)

	CreateCategory(ctx context.Context, input CategoryInput) (*domain.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, input CategoryInput) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ImportCategories(ctx context.Context, rows []CategoryRow) ([]*domain.Category, error)
}

type catalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	logger       *zap.Logger
	now          func() time.Time
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// firstViolation turns the first validator failure into a ValidationError.
func firstViolation(row int, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &ValidationError{Row: row, Field: verrs[0].Field(), Message: validation.Message(verrs[0])}
	}
	return &ValidationError{Row: row, Message: err.Error()}
}

func checkPrices(row int, price, sellingPrice decimal.Decimal) error {
	if sellingPrice.LessThan(price) {
		return &ValidationError{Row: row, Field: "sellingPrice", Message: "Value must be greater than or equal to price"}
	}
	return nil
}

func statusOrDefault(status string) domain.ProductStatus {
	if status == "" {
		return domain.ProductActive
	}
	return domain.ProductStatus(status)
}

// CreateProduct adds a product to the catalog
func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	if err := validation.Struct(input); err != nil {
		return nil, firstViolation(0, err)
	}
	if err := checkPrices(0, input.Price, input.SellingPrice); err != nil {
		return nil, err
	}

	category, err := s.categoryRepo.FindByID(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	product := &domain.Product{
		ID:           uuid.New(),
		UID:          input.UID,
		Name:         input.Name,
		Price:        input.Price,
		SellingPrice: input.SellingPrice,
		CategoryID:   category.ID,
		Category:     category,
		Status:       statusOrDefault(input.Status),
		Image:        input.Image,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// GetProduct retrieves a product with its category
func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

// ListProducts retrieves every product
func (s *catalogService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.productRepo.List(ctx)
}

// ProductsByUIDs looks products up by uid. Finding none is ErrProductNotFound.
func (s *catalogService) ProductsByUIDs(ctx context.Context, uids []string) ([]*domain.Product, error) {
	products, err := s.productRepo.FindByUIDs(ctx, uids)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, repository.ErrProductNotFound
	}
	return products, nil
}

// UpdateProduct replaces the editable fields of a product. A sold product
// keeps its uid and cannot be made active again.
func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	if err := validation.Struct(input); err != nil {
		return nil, firstViolation(0, err)
	}
	if err := checkPrices(0, input.Price, input.SellingPrice); err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	status := product.Status
	if input.Status != "" {
		status = domain.ProductStatus(input.Status)
	}

	if input.UID != product.UID || (product.Status == domain.ProductInactive && status == domain.ProductActive) {
		sold, err := s.productRepo.IsSold(ctx, product.UID)
		if err != nil {
			return nil, err
		}
		if sold && input.UID != product.UID {
			return nil, &ConflictError{Message: fmt.Sprintf("product %s has been sold and its uid cannot change", product.UID)}
		}
		if sold && status == domain.ProductActive {
			return nil, &ConflictError{Message: fmt.Sprintf("product %s has been sold and cannot be re-activated", product.UID)}
		}
	}

	category := product.Category
	if input.CategoryID != product.CategoryID {
		category, err = s.categoryRepo.FindByID(ctx, input.CategoryID)
		if err != nil {
			return nil, err
		}
	}

	product.UID = input.UID
	product.Name = input.Name
	product.Price = input.Price
	product.SellingPrice = input.SellingPrice
	product.CategoryID = category.ID
	product.Category = category
	product.Status = status
	product.Image = input.Image
	product.UpdatedAt = s.now().UTC()

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct removes a product from the catalog. Sold products stay, since
// past sales find their items by uid.
func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	sold, err := s.productRepo.IsSold(ctx, product.UID)
	if err != nil {
		return err
	}
	if sold {
		return &ConflictError{Message: fmt.Sprintf("product %s has been sold and cannot be deleted", product.UID)}
	}
	return s.productRepo.Delete(ctx, id)
}

// CountActiveProducts counts products still for sale
func (s *catalogService) CountActiveProducts(ctx context.Context) (int, error) {
	return s.productRepo.CountActive(ctx)
}

// LatestProducts returns the newest products
func (s *catalogService) LatestProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.productRepo.Latest(ctx, LatestProductsCount)
}

// ImportProducts validates every row and then inserts them all at once.
// A single bad row rejects the whole batch.
func (s *catalogService) ImportProducts(ctx context.Context, rows []ProductRow) ([]*domain.Product, error) {
	if len(rows) == 0 {
		return nil, &ValidationError{Message: "at least one product is required"}
	}

	uids := make([]string, 0, len(rows))
	seen := make(map[string]int, len(rows))
	var batchDuplicates []string
	for i, row := range rows {
		if err := validation.Struct(row); err != nil {
			return nil, firstViolation(i+1, err)
		}
		if err := checkPrices(i+1, row.Price, row.SellingPrice); err != nil {
			return nil, err
		}
		if _, dup := seen[row.UID]; dup {
			batchDuplicates = append(batchDuplicates, row.UID)
			continue
		}
		seen[row.UID] = i
		uids = append(uids, row.UID)
	}
	if len(batchDuplicates) > 0 {
		return nil, &ConflictError{Message: fmt.Sprintf(
			"Products with the following uids appear more than once: %s. Please use unique product uids.",
			strings.Join(batchDuplicates, ", "))}
	}

	categories, err := s.resolveCategories(ctx, rows)
	if err != nil {
		return nil, err
	}

	existing, err := s.productRepo.FindByUIDs(ctx, uids)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		// Report in row order.
		taken := make(map[string]bool, len(existing))
		for _, p := range existing {
			taken[p.UID] = true
		}
		var names []string
		for _, uid := range uids {
			if taken[uid] {
				names = append(names, uid)
			}
		}
		return nil, &ConflictError{Message: fmt.Sprintf(
			"Products with the following uids already exist: %s. Please use unique product uids.",
			strings.Join(names, ", "))}
	}

	now := s.now().UTC()
	products := make([]*domain.Product, 0, len(rows))
	for i, row := range rows {
		category := categories[i]
		products = append(products, &domain.Product{
			ID:           uuid.New(),
			UID:          row.UID,
			Name:         row.Name,
			Price:        row.Price,
			SellingPrice: row.SellingPrice,
			CategoryID:   category.ID,
			Category:     category,
			Status:       statusOrDefault(row.Status),
			Image:        row.Image,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	if err := s.productRepo.CreateMany(ctx, products); err != nil {
		return nil, err
	}
	s.logger.Info("Products imported", zap.Int("count", len(products)))
	return products, nil
}

// resolveCategories maps every row to its category, by id when the reference
// parses as one and by name otherwise.
func (s *catalogService) resolveCategories(ctx context.Context, rows []ProductRow) ([]*domain.Category, error) {
	var names []string
	byID := map[uuid.UUID]*domain.Category{}
	for _, row := range rows {
		if id, err := uuid.Parse(row.Category); err == nil {
			if _, ok := byID[id]; ok {
				continue
			}
			category, err := s.categoryRepo.FindByID(ctx, id)
			if err != nil && !errors.Is(err, repository.ErrCategoryNotFound) {
				return nil, err
			}
			byID[id] = category
			continue
		}
		names = append(names, row.Category)
	}

	byName := map[string]*domain.Category{}
	if len(names) > 0 {
		found, err := s.categoryRepo.FindByNames(ctx, names)
		if err != nil {
			return nil, err
		}
		for _, c := range found {
			byName[c.Name] = c
		}
	}

	categories := make([]*domain.Category, len(rows))
	for i, row := range rows {
		var category *domain.Category
		if id, err := uuid.Parse(row.Category); err == nil {
			category = byID[id]
		}
		if category == nil {
			category = byName[row.Category]
		}
		if category == nil {
			return nil, &ValidationError{Row: i + 1, Field: "category", Message: fmt.Sprintf("category %q does not exist", row.Category)}
		}
		categories[i] = category
	}
	return categories, nil
}

// CreateCategory adds a category
func (s *catalogService) CreateCategory(ctx context.Context, input CategoryInput) (*domain.Category, error) {
	if err := validation.Struct(input); err != nil {
		return nil, firstViolation(0, err)
	}

	category := &domain.Category{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		Icon:        input.Icon,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// GetCategory retrieves a category by ID
func (s *catalogService) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return s.categoryRepo.FindByID(ctx, id)
}

// ListCategories retrieves all categories
func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categoryRepo.List(ctx)
}

// UpdateCategory replaces the editable fields of a category
func (s *catalogService) UpdateCategory(ctx context.Context, id uuid.UUID, input CategoryInput) (*domain.Category, error) {
	if err := validation.Struct(input); err != nil {
		return nil, firstViolation(0, err)
	}

	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	category.Name = input.Name
	category.Description = input.Description
	category.Icon = input.Icon

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory removes a category that no product uses
func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	err := s.categoryRepo.Delete(ctx, id)
	if errors.Is(err, repository.ErrCategoryInUse) {
		return &ConflictError{Message: "category is still used by products and cannot be deleted"}
	}
	return err
}

// ImportCategories validates every row and then inserts them all at once.
func (s *catalogService) ImportCategories(ctx context.Context, rows []CategoryRow) ([]*domain.Category, error) {
	if len(rows) == 0 {
		return nil, &ValidationError{Message: "at least one category is required"}
	}

	names := make([]string, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	var duplicates []string
	for i, row := range rows {
		if err := validation.Struct(row); err != nil {
			return nil, firstViolation(i+1, err)
		}
		if seen[row.Name] {
			duplicates = append(duplicates, row.Name)
			continue
		}
		seen[row.Name] = true
		names = append(names, row.Name)
	}

	existing, err := s.categoryRepo.FindByNames(ctx, names)
	if err != nil {
		return nil, err
	}
	for _, c := range existing {
		duplicates = append(duplicates, c.Name)
	}
	if len(duplicates) > 0 {
		return nil, &ConflictError{Message: fmt.Sprintf(
			"Categories with the following names already exist: %s. Please use unique category names.",
			strings.Join(duplicates, ", "))}
	}

	now := s.now().UTC()
	categories := make([]*domain.Category, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, &domain.Category{
			ID:          uuid.New(),
			Name:        row.Name,
			Description: row.Description,
			Icon:        row.Icon,
			CreatedAt:   now,
		})
	}

	if err := s.categoryRepo.CreateMany(ctx, categories); err != nil {
		return nil, err
	}
	s.logger.Info("Categories imported", zap.Int("count", len(categories)))
	return categories, nil
}
