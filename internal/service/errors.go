package service

import (
	"fmt"
	"strings"
)

// ValidationError rejects a request before anything is mutated. Field names
// the offending input; Row is the 1-based position in a bulk import, or 0.
type ValidationError struct {
	Row     int
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Row > 0 {
		fmt.Fprintf(&b, "row %d: ", e.Row)
	}
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// ConflictError reports a uniqueness or state clash with stored data.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// DefaultDeclineMessage is used when the gateway declines without a reason.
const DefaultDeclineMessage = "Payment Failed Try Again"

// PaymentDeclinedError is returned when the gateway refuses a charge. Reason
// is the gateway's message verbatim.
type PaymentDeclinedError struct {
	Reason string
}

func (e *PaymentDeclinedError) Error() string {
	return e.Reason
}

// UnrecordedChargeError means the buyer was charged but the sale could not be
// stored. The reference identifies the charge for manual reconciliation.
type UnrecordedChargeError struct {
	PaymentReference string
	Err              error
}

func (e *UnrecordedChargeError) Error() string {
	return fmt.Sprintf("payment %s was charged but the sale was not recorded: %v", e.PaymentReference, e.Err)
}

func (e *UnrecordedChargeError) Unwrap() error {
	return e.Err
}
