package transport

import (
	"net/http"
	"strings"

	"pos-backoffice/internal/middleware"
	"pos-backoffice/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BulkResponse represents the result of a bulk import
type BulkResponse struct {
	Message string      `json:"message"`
	Count   int         `json:"count"`
	Items   interface{} `json:"items"`
}

// CountResponse carries a single total
type CountResponse struct {
	Total int `json:"total"`
}

// ProductHandler handles HTTP requests for the product catalog
type ProductHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(catalog service.CatalogService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// RegisterRoutes registers all product routes. Reads are public; writes need
// a staff token.
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/info/uids", h.ByUIDs)
		r.Get("/data/totalactive", h.CountActive)
		r.Get("/fourproducts/last", h.Latest)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(staffOnly(h.logger))
			r.Post("/", h.Create)
			r.Post("/bulk", h.Import)
			r.Patch("/{id}", h.Update)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// Create handles adding a product
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.ProductInput
	if !decode(w, r, h.logger, &req) {
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Product created", zap.String("uid", product.UID))
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Import handles a bulk product import. The body is a JSON array of rows.
func (h *ProductHandler) Import(w http.ResponseWriter, r *http.Request) {
	var rows []service.ProductRow
	if !decodeJSON(w, r, h.logger, &rows) {
		return
	}

	products, err := h.catalog.ImportProducts(r.Context(), rows)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, BulkResponse{
		Message: "Products imported successfully",
		Count:   len(products),
		Items:   products,
	})
}

// List handles listing every product
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// ByUIDs handles looking products up by a comma separated uid list
func (h *ProductHandler) ByUIDs(w http.ResponseWriter, r *http.Request) {
	var uids []string
	for _, uid := range strings.Split(r.URL.Query().Get("uids"), ",") {
		if uid = strings.TrimSpace(uid); uid != "" {
			uids = append(uids, uid)
		}
	}
	if len(uids) == 0 {
		middleware.RespondWithError(w, http.StatusBadRequest, "uids query parameter is required")
		return
	}

	products, err := h.catalog.ProductsByUIDs(r.Context(), uids)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// CountActive handles the number of products still for sale
func (h *ProductHandler) CountActive(w http.ResponseWriter, r *http.Request) {
	total, err := h.catalog.CountActiveProducts(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, CountResponse{Total: total})
}

// Latest handles the newest products
func (h *ProductHandler) Latest(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.LatestProducts(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// Get handles fetching one product
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Update handles replacing the editable fields of a product
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req service.ProductInput
	if !decode(w, r, h.logger, &req) {
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete handles removing a product
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	h.logger.Info("Product deleted", zap.String("product_id", id.String()))
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "Product deleted"})
}
