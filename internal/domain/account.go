package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountKind separates back-office staff from purchasing customers. Both
// share one table and one set of operations.
type AccountKind string

const (
	KindStaff    AccountKind = "staff"
	KindCustomer AccountKind = "customer"
)

type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
)

func (s AccountStatus) Valid() bool {
	return s == AccountActive || s == AccountInactive
}

const (
	RoleAdmin    = "admin"
	RoleUser     = "user"
	RoleCustomer = "customer"
)

// Account represents a staff user or a customer
type Account struct {
	ID             uuid.UUID     `json:"id"`
	Kind           AccountKind   `json:"kind"`
	Name           string        `json:"name"`
	Email          string        `json:"email"`
	PasswordHash   string        `json:"-"`
	Role           string        `json:"usertype"`
	Gender         string        `json:"gender,omitempty"`
	Status         AccountStatus `json:"status"`
	Image          string        `json:"image,omitempty"`
	PaymentMethods []string      `json:"paymentMethods,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Active reports whether the account may log in.
func (a *Account) Active() bool {
	return a.Status == AccountActive
}

// Ref returns the public reference attached to transactions.
func (a *Account) Ref() *CustomerRef {
	return &CustomerRef{ID: a.ID, Name: a.Name, Email: a.Email}
}
