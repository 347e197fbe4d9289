package transport

import (
	"net/http"

	"pos-backoffice/internal/domain"
	"pos-backoffice/internal/middleware"
	"pos-backoffice/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LineItemRequest references one product of a sale by uid
type LineItemRequest struct {
	ProductUID string `json:"productUid" validate:"required,uid"`
}

// SaleRequest represents the sale request payload
type SaleRequest struct {
	UserCustomerID string            `json:"userCustomerId" validate:"required,uuid"`
	ProductsList   []LineItemRequest `json:"productsList" validate:"required,min=1,dive"`
	PaymentMethod  string            `json:"paymentMethod" validate:"required,max=50"`
	PaymentPhone   string            `json:"paymentPhone" validate:"max=30"`
	TotalPrice     decimal.Decimal   `json:"totalPrice" validate:"gte=0"`
}

// TransactionHandler handles HTTP requests for sales and reports
type TransactionHandler struct {
	sales   service.SaleService
	reports service.ReportService
	logger  *zap.Logger
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(sales service.SaleService, reports service.ReportService, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		sales:   sales,
		reports: reports,
		logger:  logger,
	}
}

// RegisterRoutes registers all transaction routes. Every route needs a token;
// customers may only record their own purchases and read their own history.
func (h *TransactionHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/transactions", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Post("/", h.Create)
		r.Get("/user/{userId}", h.ListByCustomer)

		r.Group(func(r chi.Router) {
			r.Use(staffOnly(h.logger))
			r.Get("/get", h.List)
			r.Get("/report/{type}", h.Report)
			r.Get("/profit/month", h.MonthlyProfit)
			r.Get("/profitable", h.MostProfitable)
			r.Get("/sales/{type}", h.SalesTotal)
			r.Get("/{id}", h.Get)
			r.Patch("/{id}", h.Patch)
			r.Put("/{id}", h.Patch)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// isCustomer reports whether the caller authenticated as a customer.
func isCustomer(r *http.Request) bool {
	kind, _ := middleware.GetUserKind(r.Context())
	return kind == string(domain.KindCustomer)
}

// isSelf reports whether the caller's token belongs to id.
func isSelf(r *http.Request, id uuid.UUID) bool {
	userID, _ := middleware.GetUserID(r.Context())
	return userID == id.String()
}

// Create handles recording a sale
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	customerID := uuid.MustParse(req.UserCustomerID)
	if isCustomer(r) && !isSelf(r, customerID) {
		middleware.RespondWithError(w, http.StatusForbidden, "customers may only buy for themselves")
		return
	}

	uids := make([]string, 0, len(req.ProductsList))
	for _, item := range req.ProductsList {
		uids = append(uids, item.ProductUID)
	}

	sale, err := h.sales.Process(r.Context(), service.SaleRequest{
		CustomerID:    customerID,
		ProductUIDs:   uids,
		PaymentMethod: req.PaymentMethod,
		PaymentPhone:  req.PaymentPhone,
		TotalPrice:    req.TotalPrice,
	})
	if err != nil {
		h.logger.Info("Sale rejected", zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, sale)
}

// List handles listing every transaction
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	sales, err := h.sales.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, sales)
}

// ListByCustomer handles listing the purchases of one customer
func (h *TransactionHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	if isCustomer(r) && !isSelf(r, customerID) {
		middleware.RespondWithError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	sales, err := h.sales.ListByCustomer(r.Context(), customerID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, sales)
}

// Get handles fetching one transaction
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sale, err := h.sales.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, sale)
}

// Patch handles changing the payment fields of a transaction
func (h *TransactionHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch domain.TransactionPatch
	if !decode(w, r, h.logger, &patch) {
		return
	}

	sale, err := h.sales.Patch(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, sale)
}

// Delete handles removing a transaction record
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.sales.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	h.logger.Info("Transaction deleted", zap.String("transaction_id", id.String()))
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "Transaction deleted"})
}

// Report handles the sales and profit report of a period
func (h *TransactionHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.Report(r.Context(), domain.Period(chi.URLParam(r, "type")))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, report)
}

// MonthlyProfit handles the current month's profit series
func (h *TransactionHandler) MonthlyProfit(w http.ResponseWriter, r *http.Request) {
	series, err := h.reports.MonthlyProfit(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, series)
}

// MostProfitable handles the transactions ranked by profit
func (h *TransactionHandler) MostProfitable(w http.ResponseWriter, r *http.Request) {
	ranked, err := h.reports.MostProfitable(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, ranked)
}

// SalesTotal handles the revenue of a period
func (h *TransactionHandler) SalesTotal(w http.ResponseWriter, r *http.Request) {
	total, err := h.reports.SalesTotal(r.Context(), domain.Period(chi.URLParam(r, "type")))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, total)
}
