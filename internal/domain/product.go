package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, matching what the admin client sends.
	decimal.MarshalJSONWithoutQuotes = true
}

// ProductStatus is the availability of a single catalogued item.
type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductInactive ProductStatus = "inactive"
)

// Valid reports whether s is a known status.
func (s ProductStatus) Valid() bool {
	return s == ProductActive || s == ProductInactive
}

// Product represents a product in the catalog. UID is assigned by the caller
// and is the reference used by transaction line items.
type Product struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	UID          string          `json:"uid" db:"uid"`
	Name         string          `json:"name" db:"name"`
	Price        decimal.Decimal `json:"price" db:"price"`
	SellingPrice decimal.Decimal `json:"sellingPrice" db:"selling_price"`
	CategoryID   uuid.UUID       `json:"categoryId" db:"category_id"`
	Category     *Category       `json:"category,omitempty" db:"-"`
	Status       ProductStatus   `json:"status" db:"status"`
	Image        string          `json:"image,omitempty" db:"image"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
}

// Profit is the margin realised when the product is sold.
func (p *Product) Profit() decimal.Decimal {
	return p.SellingPrice.Sub(p.Price)
}

// Available reports whether the product can still be sold.
func (p *Product) Available() bool {
	return p.Status == ProductActive
}

// Category represents a product category
type Category struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Icon        string    `json:"icon,omitempty" db:"icon"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
