package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hazelmart/catalog/internal/domain"
	"github.com/hazelmart/catalog/internal/service"
	"github.com/hazelmart/catalog/pkg/httputil"
	"github.com/hazelmart/catalog/pkg/validator"
)

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.CatalogService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// ProductImageRequest is one image entry in a product write request.
type ProductImageRequest struct {
	URL       string `json:"url" validate:"required,url"`
	AltText   string `json:"alt_text" validate:"max=255"`
	SortOrder int    `json:"sort_order" validate:"gte=0"`
}

// CreateProductRequest is the JSON request body for creating a product.
type CreateProductRequest struct {
	Name        string                `json:"name" validate:"required,min=1,max=500"`
	Description string                `json:"description"`
	Category    string                `json:"category" validate:"max=100"`
	Type        string                `json:"type" validate:"max=100"`
	ListedPrice int64                 `json:"listed_price" validate:"gte=0"`
	ActualPrice int64                 `json:"actual_price" validate:"required,gte=0"`
	Stock       int                   `json:"stock" validate:"gte=0"`
	Images      []ProductImageRequest `json:"images" validate:"dive"`
}

// UpdateProductRequest is the JSON request body for updating a product.
type UpdateProductRequest struct {
	Name        *string               `json:"name" validate:"omitempty,min=1,max=500"`
	Description *string               `json:"description"`
	Category    *string               `json:"category" validate:"omitempty,max=100"`
	Type        *string               `json:"type" validate:"omitempty,max=100"`
	ListedPrice *int64                `json:"listed_price" validate:"omitempty,gte=0"`
	ActualPrice *int64                `json:"actual_price" validate:"omitempty,gte=0"`
	Stock       *int                  `json:"stock" validate:"omitempty,gte=0"`
	Images      []ProductImageRequest `json:"images" validate:"dive"`
}

func imagesFromRequest(images []ProductImageRequest) []domain.ProductImage {
	if images == nil {
		return nil
	}
	out := make([]domain.ProductImage, len(images))
	for i, img := range images {
		out[i] = domain.ProductImage{
			URL:       img.URL,
			AltText:   img.AltText,
			SortOrder: img.SortOrder,
		}
	}
	return out
}

// --- Handlers ---

// ListProducts handles GET /api/v1/products
// @Summary List products
// @Description Returns a page of products with optional keyword search and filtering
// @Tags products
// @Produce json
// @Param keyword query string false "Case-insensitive name search"
// @Param category query string false "Filter by exact category"
// @Param type query string false "Filter by exact type"
// @Param price[gte] query number false "Minimum actual price"
// @Param price[lte] query number false "Maximum actual price"
// @Param rating[gte] query number false "Minimum rating"
// @Param page query int false "Page number" default(1)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/products [get]
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListProducts(r.Context(), r.URL.Query())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// GetProduct handles GET /api/v1/products/{idOrSlug}
// It accepts both a UUID (product ID) and a slug for lookup.
// @Summary Get product by ID or slug
// @Description Returns a product with its images, reviews, and rating aggregate
// @Tags products
// @Produce json
// @Param idOrSlug path string true "Product UUID or URL slug"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/products/{idOrSlug} [get]
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	idOrSlug := chi.URLParam(r, "idOrSlug")
	if idOrSlug == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "product id or slug is required"},
		})
		return
	}

	var (
		product *domain.Product
		err     error
	)

	if _, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		product, err = h.service.GetProduct(r.Context(), idOrSlug)
	} else {
		product, err = h.service.GetProductBySlug(r.Context(), idOrSlug)
	}

	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// ListCategories handles GET /api/v1/categories
// @Summary List categories
// @Description Returns the distinct category names present in the catalog
// @Tags products
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/categories [get]
func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: categories})
}

// CreateProduct handles POST /api/v1/admin/products
// @Summary Create a product
// @Description Creates a new product in the catalog
// @Tags admin
// @Accept json
// @Produce json
// @Param request body CreateProductRequest true "Product to create"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/admin/products [post]
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := &service.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Type:        req.Type,
		ListedPrice: req.ListedPrice,
		ActualPrice: req.ActualPrice,
		Stock:       req.Stock,
		Images:      imagesFromRequest(req.Images),
	}

	product, err := h.service.CreateProduct(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}

// UpdateProduct handles PUT /api/v1/admin/products/{id}
// @Summary Update a product
// @Description Partially updates a product — all fields are optional
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Product UUID"
// @Param request body UpdateProductRequest true "Fields to update"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/admin/products/{id} [put]
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := &service.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Type:        req.Type,
		ListedPrice: req.ListedPrice,
		ActualPrice: req.ActualPrice,
		Stock:       req.Stock,
		Images:      imagesFromRequest(req.Images),
	}

	product, err := h.service.UpdateProduct(r.Context(), id.String(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// DeleteProduct handles DELETE /api/v1/admin/products/{id}
// @Summary Delete a product
// @Description Deletes a product by UUID
// @Tags admin
// @Produce json
// @Param id path string true "Product UUID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/admin/products/{id} [delete]
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"id": id.String(), "status": "deleted"}})
}
