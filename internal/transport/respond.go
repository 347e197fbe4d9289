package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"pos-backoffice/internal/domain"
	"pos-backoffice/internal/middleware"
	"pos-backoffice/internal/payment"
	"pos-backoffice/internal/repository"
	"pos-backoffice/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FailedResponse is the body of a declined payment. The admin client keys on
// status rather than on the error envelope.
type FailedResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

var (
	notFoundErrors = []error{
		repository.ErrProductNotFound,
		repository.ErrCategoryNotFound,
		repository.ErrAccountNotFound,
		repository.ErrTransactionNotFound,
	}
	badRequestErrors = []error{
		repository.ErrProductAlreadyExists,
		repository.ErrCategoryAlreadyExists,
		repository.ErrAccountAlreadyExists,
		repository.ErrProductUnavailable,
		service.ErrIncorrectPassword,
		service.ErrInvalidVerificationCode,
	}
	unauthorizedErrors = []error{
		service.ErrInvalidCredentials,
		service.ErrInvalidToken,
	}
)

func matches(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeServiceError maps a service or repository error onto a response.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var (
		declined   *service.PaymentDeclinedError
		unrecorded *service.UnrecordedChargeError
		invalid    *service.ValidationError
		conflict   *service.ConflictError
	)

	switch {
	case errors.As(err, &declined):
		middleware.RespondWithJSON(w, http.StatusBadRequest, FailedResponse{Status: "failed", Message: declined.Reason})
	case errors.As(err, &unrecorded):
		logger.Error("Charged sale was not recorded",
			zap.String("payment_reference", unrecorded.PaymentReference),
			zap.Error(unrecorded.Err),
		)
		middleware.RespondWithErrorDetails(w, http.StatusInternalServerError,
			"payment was taken but the sale could not be recorded",
			map[string]interface{}{"payment_reference": unrecorded.PaymentReference})
	case errors.As(err, &invalid):
		details := map[string]interface{}{}
		if invalid.Field != "" {
			details["field"] = invalid.Field
		}
		if invalid.Row > 0 {
			details["row"] = invalid.Row
		}
		middleware.RespondWithErrorDetails(w, http.StatusBadRequest, invalid.Error(), details)
	case errors.As(err, &conflict):
		middleware.RespondWithError(w, http.StatusBadRequest, conflict.Message)
	case matches(err, notFoundErrors):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
	case matches(err, badRequestErrors):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case matches(err, unauthorizedErrors):
		middleware.RespondWithError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrAccountInactive):
		middleware.RespondWithError(w, http.StatusForbidden, "account is not active, contact an administrator")
	case errors.Is(err, payment.ErrGatewayUnavailable):
		logger.Error("Payment gateway unavailable", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "payment gateway unavailable")
	default:
		logger.Error("Request failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decode reads and validates the request body, answering 400 itself when it
// cannot.
func decode(w http.ResponseWriter, r *http.Request, logger *zap.Logger, v interface{}) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		logger.Debug("Request validation failed", zap.String("path", r.URL.Path), zap.Error(err))
		middleware.RespondWithValidationErrors(w, middleware.FormatValidationErrors(err))
		return false
	}
	return true
}

// decodeJSON reads the request body without tag validation, for payloads the
// service checks row by row.
func decodeJSON(w http.ResponseWriter, r *http.Request, logger *zap.Logger, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.Debug("Malformed request body", zap.String("path", r.URL.Path), zap.Error(err))
		middleware.RespondWithValidationErrors(w, middleware.FormatValidationErrors(err))
		return false
	}
	return true
}

// pathID parses a uuid URL parameter, answering 400 when it is malformed.
func pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

// staffOnly admits staff tokens, admins and regular users alike.
func staffOnly(logger *zap.Logger) func(http.Handler) http.Handler {
	return middleware.RequireRole([]string{domain.RoleAdmin, domain.RoleUser}, logger)
}
