package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrGatewayUnavailable is returned when the gateway cannot be reached or
// answers with something other than a purchase result.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// ChargeRequest asks the gateway to debit a mobile-money account.
type ChargeRequest struct {
	Phone       string
	Amount      decimal.Decimal
	ReferenceID string
	Description string
}

// ChargeResult is the gateway's verdict. Error carries the gateway's own
// explanation when Status is false.
type ChargeResult struct {
	Status        bool
	Error         string
	TransactionID string
	ReferenceID   string
}

// Gateway charges a buyer. Merchant credentials belong to the implementation.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}
