package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pos-backoffice/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrProductAlreadyExists = errors.New("product with this uid already exists")
	ErrProductUnavailable   = errors.New("product is no longer available")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	CreateMany(ctx context.Context, products []*domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindByUIDs(ctx context.Context, uids []string) ([]*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
	Latest(ctx context.Context, limit int) ([]*domain.Product, error)
	CountActive(ctx context.Context) (int, error)
	IsSold(ctx context.Context, uid string) (bool, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `
	p.id, p.uid, p.name, p.price, p.selling_price, p.category_id, p.status, p.image, p.created_at, p.updated_at,
	c.id, c.name, c.description, c.icon, c.created_at`

const productFrom = `
	FROM products p
	JOIN categories c ON c.id = p.category_id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{Category: &domain.Category{}}
	err := row.Scan(
		&product.ID,
		&product.UID,
		&product.Name,
		&product.Price,
		&product.SellingPrice,
		&product.CategoryID,
		&product.Status,
		&product.Image,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Category.ID,
		&product.Category.Name,
		&product.Category.Description,
		&product.Category.Icon,
		&product.Category.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

func insertProduct(ctx context.Context, q dbtx, product *domain.Product) error {
	query := `
		INSERT INTO products (id, uid, name, price, selling_price, category_id, status, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := q.ExecContext(
		ctx,
		query,
		product.ID,
		product.UID,
		product.Name,
		product.Price,
		product.SellingPrice,
		product.CategoryID,
		product.Status,
		product.Image,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrProductAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Create inserts a new product
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	return insertProduct(ctx, r.db, product)
}

// CreateMany inserts every product in one transaction. Any failure leaves the
// catalog untouched.
func (r *productRepository) CreateMany(ctx context.Context, products []*domain.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, product := range products {
		if err := insertProduct(ctx, tx, product); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit products: %w", err)
	}
	return nil
}

// Update updates an existing product
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET uid = $2, name = $3, price = $4, selling_price = $5, category_id = $6,
		    status = $7, image = $8, updated_at = $9
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.UID,
		product.Name,
		product.Price,
		product.SellingPrice,
		product.CategoryID,
		product.Status,
		product.Image,
		product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrProductAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return affectedOrNotFound(result, ErrProductNotFound)
}

// Delete removes a product. Line items that referenced it stay in place and
// resolve to nothing afterwards.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return affectedOrNotFound(result, ErrProductNotFound)
}

// FindByID retrieves a product with its category
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + productFrom + ` WHERE p.id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return product, nil
}

// FindByUIDs returns the products matching uids in no particular order.
// Unknown uids are simply absent from the result.
func (r *productRepository) FindByUIDs(ctx context.Context, uids []string) ([]*domain.Product, error) {
	if len(uids) == 0 {
		return []*domain.Product{}, nil
	}
	query := `SELECT ` + productColumns + productFrom + ` WHERE p.uid = ANY($1)`
	return r.query(ctx, query, uids)
}

// List retrieves every product, newest first
func (r *productRepository) List(ctx context.Context) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + productFrom + ` ORDER BY p.created_at DESC, p.id`
	return r.query(ctx, query)
}

// Latest retrieves the most recently created products
func (r *productRepository) Latest(ctx context.Context, limit int) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + productFrom + ` ORDER BY p.created_at DESC, p.id LIMIT $1`
	return r.query(ctx, query, limit)
}

// CountActive counts products that can still be sold
func (r *productRepository) CountActive(ctx context.Context) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE status = $1`, domain.ProductActive).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count active products: %w", err)
	}
	return total, nil
}

// IsSold reports whether any transaction references uid
func (r *productRepository) IsSold(ctx context.Context, uid string) (bool, error) {
	var sold bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM transaction_items WHERE product_uid = $1)`, uid,
	).Scan(&sold)
	if err != nil {
		return false, fmt.Errorf("failed to check product sales: %w", err)
	}
	return sold, nil
}

func (r *productRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}
