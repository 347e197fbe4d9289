package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"pos-backoffice/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
)

// TransactionRepository defines the interface for sale data access
type TransactionRepository interface {
	// CreateSale records the sale and its line items and marks every sold
	// product inactive, all in one database transaction. A product that is
	// already inactive aborts the whole sale with ErrProductUnavailable.
	CreateSale(ctx context.Context, sale *domain.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
	Patch(ctx context.Context, id uuid.UUID, patch domain.TransactionPatch) (*domain.Transaction, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type transactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new instance of TransactionRepository
func NewTransactionRepository(db *sql.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// CreateSale persists a sale and flips its products to inactive
func (r *transactionRepository) CreateSale(ctx context.Context, sale *domain.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, customer_id, payment_method, payment_phone, payment_reference, total_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		sale.ID,
		sale.CustomerID,
		sale.PaymentMethod,
		sale.PaymentPhone,
		sale.PaymentReference,
		sale.TotalPrice,
		sale.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	for i, item := range sale.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transaction_items (transaction_id, position, product_uid)
			VALUES ($1, $2, $3)
		`, sale.ID, i, item.ProductUID)
		if err != nil {
			return fmt.Errorf("failed to create line item %d: %w", i, err)
		}
	}

	for _, uid := range sale.ProductUIDs() {
		result, err := tx.ExecContext(ctx, `
			UPDATE products SET status = $2, updated_at = now()
			WHERE uid = $1 AND status = $3
		`, uid, domain.ProductInactive, domain.ProductActive)
		if err != nil {
			return fmt.Errorf("failed to mark product %s sold: %w", uid, err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrProductUnavailable, uid)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sale: %w", err)
	}
	return nil
}

// FindByID retrieves a populated transaction
func (r *transactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	sales, err := r.list(ctx, "WHERE t.id = $1", []interface{}{id})
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return nil, ErrTransactionNotFound
	}
	return sales[0], nil
}

// List retrieves populated transactions oldest first. Ties on created_at are
// broken by id so the order is stable across calls.
func (r *transactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	conditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("t.created_at >= $%d", argIndex))
		args = append(args, *filter.From)
		argIndex++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("t.created_at <= $%d", argIndex))
		args = append(args, *filter.To)
		argIndex++
	}
	if filter.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("t.customer_id = $%d", argIndex))
		args = append(args, *filter.CustomerID)
		argIndex++
	}

	clause := ""
	if len(conditions) > 0 {
		clause = "WHERE " + strings.Join(conditions, " AND ")
	}
	clause += " ORDER BY t.created_at ASC, t.id ASC"
	if filter.Limit > 0 {
		clause += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
	}

	return r.list(ctx, clause, args)
}

// Patch changes the payment fields of a recorded sale
func (r *transactionRepository) Patch(ctx context.Context, id uuid.UUID, patch domain.TransactionPatch) (*domain.Transaction, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET payment_method = COALESCE($2, payment_method),
		    payment_phone = COALESCE($3, payment_phone)
		WHERE id = $1
	`, id, patch.PaymentMethod, patch.PaymentPhone)
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	if err := affectedOrNotFound(result, ErrTransactionNotFound); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// Delete removes the sale record. Products stay inactive.
func (r *transactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return affectedOrNotFound(result, ErrTransactionNotFound)
}

func (r *transactionRepository) list(ctx context.Context, clause string, args []interface{}) ([]*domain.Transaction, error) {
	query := `
		SELECT t.id, t.customer_id, t.payment_method, t.payment_phone, t.payment_reference,
		       t.total_price, t.created_at, a.name, a.email
		FROM transactions t
		JOIN accounts a ON a.id = t.customer_id
	` + clause

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	sales := []*domain.Transaction{}
	byID := map[uuid.UUID]*domain.Transaction{}
	for rows.Next() {
		sale := &domain.Transaction{Customer: &domain.CustomerRef{}, Items: []domain.LineItem{}}
		err := rows.Scan(
			&sale.ID,
			&sale.CustomerID,
			&sale.PaymentMethod,
			&sale.PaymentPhone,
			&sale.PaymentReference,
			&sale.TotalPrice,
			&sale.CreatedAt,
			&sale.Customer.Name,
			&sale.Customer.Email,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		sale.Customer.ID = sale.CustomerID
		sales = append(sales, sale)
		byID[sale.ID] = sale
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	if len(sales) == 0 {
		return sales, nil
	}
	if err := r.populateItems(ctx, byID); err != nil {
		return nil, err
	}
	return sales, nil
}

// populateItems attaches line items, resolving each to its current product.
// Items whose product was deleted keep a nil Product.
func (r *transactionRepository) populateItems(ctx context.Context, byID map[uuid.UUID]*domain.Transaction) error {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id.String())
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT ti.transaction_id, ti.product_uid,
		       p.id, p.name, p.price, p.selling_price, p.category_id, p.status, p.image, p.created_at, p.updated_at,
		       c.name, c.description, c.icon, c.created_at
		FROM transaction_items ti
		LEFT JOIN products p ON p.uid = ti.product_uid
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE ti.transaction_id = ANY($1::text[]::uuid[])
		ORDER BY ti.transaction_id, ti.position
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to list line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			transactionID uuid.UUID
			item          domain.LineItem
			productID     uuid.NullUUID
			name          sql.NullString
			price         decimal.NullDecimal
			sellingPrice  decimal.NullDecimal
			categoryID    uuid.NullUUID
			status        sql.NullString
			image         sql.NullString
			createdAt     sql.NullTime
			updatedAt     sql.NullTime
			categoryName  sql.NullString
			categoryDesc  sql.NullString
			categoryIcon  sql.NullString
			categoryAt    sql.NullTime
		)
		err := rows.Scan(
			&transactionID,
			&item.ProductUID,
			&productID,
			&name,
			&price,
			&sellingPrice,
			&categoryID,
			&status,
			&image,
			&createdAt,
			&updatedAt,
			&categoryName,
			&categoryDesc,
			&categoryIcon,
			&categoryAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan line item: %w", err)
		}

		if productID.Valid {
			item.Product = &domain.Product{
				ID:           productID.UUID,
				UID:          item.ProductUID,
				Name:         name.String,
				Price:        price.Decimal,
				SellingPrice: sellingPrice.Decimal,
				CategoryID:   categoryID.UUID,
				Status:       domain.ProductStatus(status.String),
				Image:        image.String,
				CreatedAt:    createdAt.Time,
				UpdatedAt:    updatedAt.Time,
				Category: &domain.Category{
					ID:          categoryID.UUID,
					Name:        categoryName.String,
					Description: categoryDesc.String,
					Icon:        categoryIcon.String,
					CreatedAt:   categoryAt.Time,
				},
			}
		}

		if sale, ok := byID[transactionID]; ok {
			sale.Items = append(sale.Items, item)
		}
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating line items: %w", err)
	}
	return nil
}
