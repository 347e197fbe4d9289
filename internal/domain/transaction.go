package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethodEVCPlus is the only payment method charged through the
// mobile-money gateway; every other method is recorded as already paid.
const PaymentMethodEVCPlus = "EVC-PLUS"

// Transaction is a recorded sale.
type Transaction struct {
	ID               uuid.UUID       `json:"id"`
	CustomerID       uuid.UUID       `json:"userCustomerId"`
	Customer         *CustomerRef    `json:"customer,omitempty"`
	Items            []LineItem      `json:"productsList"`
	PaymentMethod    string          `json:"paymentMethod"`
	PaymentPhone     string          `json:"paymentPhone"`
	PaymentReference string          `json:"paymentReference,omitempty"`
	TotalPrice       decimal.Decimal `json:"totalPrice"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// LineItem is one product reference within a sale. Product is nil when the
// referenced product no longer exists.
type LineItem struct {
	ProductUID string   `json:"productUid"`
	Product    *Product `json:"product,omitempty"`
}

// CustomerRef is the slice of the purchasing account shown alongside a sale.
type CustomerRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// ProductUIDs returns the uid of every line item in order.
func (t *Transaction) ProductUIDs() []string {
	uids := make([]string, 0, len(t.Items))
	for _, item := range t.Items {
		uids = append(uids, item.ProductUID)
	}
	return uids
}

// RequiresCharge reports whether the sale must be paid through the gateway.
func (t *Transaction) RequiresCharge() bool {
	return t.PaymentMethod == PaymentMethodEVCPlus
}

// TransactionPatch lists the fields that may change after a sale is recorded.
type TransactionPatch struct {
	PaymentMethod *string `json:"paymentMethod"`
	PaymentPhone  *string `json:"paymentPhone"`
}

// TransactionFilter narrows a transaction listing. Zero values mean no bound.
type TransactionFilter struct {
	From       *time.Time
	To         *time.Time
	CustomerID *uuid.UUID
	Limit      int
}
