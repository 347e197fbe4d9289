package transport

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"pos-backoffice/internal/payment"
	"pos-backoffice/internal/repository"
	"pos-backoffice/internal/service"

	"go.uber.org/zap"
)

func TestWriteServiceErrorStatusCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"declined", &service.PaymentDeclinedError{Reason: "Insufficient balance"}, http.StatusBadRequest},
		{"unrecorded charge", &service.UnrecordedChargeError{PaymentReference: "ref", Err: repository.ErrProductNotFound}, http.StatusInternalServerError},
		{"validation", &service.ValidationError{Row: 2, Field: "uid", Message: "This field is required"}, http.StatusBadRequest},
		{"conflict", &service.ConflictError{Message: "uid already exists"}, http.StatusBadRequest},
		{"product not found", repository.ErrProductNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("lookup: %w", repository.ErrAccountNotFound), http.StatusNotFound},
		{"product sold", fmt.Errorf("%w: P1", repository.ErrProductUnavailable), http.StatusBadRequest},
		{"duplicate email", repository.ErrAccountAlreadyExists, http.StatusBadRequest},
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"bad token", service.ErrInvalidToken, http.StatusUnauthorized},
		{"inactive", service.ErrAccountInactive, http.StatusForbidden},
		{"wrong code", service.ErrInvalidVerificationCode, http.StatusBadRequest},
		{"gateway down", fmt.Errorf("%w: timeout", payment.ErrGatewayUnavailable), http.StatusInternalServerError},
		{"unknown", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeServiceError(w, zap.NewNop(), tc.err)
			if w.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}

func TestValidationErrorDetailsNameRow(t *testing.T) {
	w := httptest.NewRecorder()
	writeServiceError(w, zap.NewNop(), &service.ValidationError{Row: 3, Field: "price", Message: "Value must be greater than 0"})

	if msg := errorMessage(t, w); msg != "row 3: price: Value must be greater than 0" {
		t.Errorf("message = %q", msg)
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	w := httptest.NewRecorder()
	writeServiceError(w, zap.NewNop(), errors.New("pq: password authentication failed"))

	if msg := errorMessage(t, w); msg != "internal server error" {
		t.Errorf("message = %q", msg)
	}
}
