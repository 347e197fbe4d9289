package transport

import (
	"net/http"

	"pos-backoffice/internal/middleware"
	"pos-backoffice/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CategoryHandler handles HTTP requests for product categories
type CategoryHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(catalog service.CatalogService, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// RegisterRoutes registers all category routes
func (h *CategoryHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", h.List)
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

// Create handles adding a category
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CategoryInput
	if !decode(w, r, h.logger, &req) {
		return
	}

	category, err := h.catalog.CreateCategory(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

// Import handles a bulk category import. The body is a JSON array of rows.
func (h *CategoryHandler) Import(w http.ResponseWriter, r *http.Request) {
	var rows []service.CategoryRow
	if !decodeJSON(w, r, h.logger, &rows) {
		return
	}

	categories, err := h.catalog.ImportCategories(r.Context(), rows)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, BulkResponse{
		Message: "Categories imported successfully",
		Count:   len(categories),
		Items:   categories,
	})
}

// List handles listing every category
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

// Get handles fetching one category
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	category, err := h.catalog.GetCategory(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

// Update handles replacing the editable fields of a category
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req service.CategoryInput
	if !decode(w, r, h.logger, &req) {
		return
	}

	category, err := h.catalog.UpdateCategory(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

// Delete handles removing an unused category
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	h.logger.Info("Category deleted", zap.String("category_id", id.String()))
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "Category deleted"})
}
