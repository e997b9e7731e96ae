package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazelmart/catalog/internal/service"
	"github.com/hazelmart/catalog/pkg/httputil"
	"github.com/hazelmart/catalog/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// UpsertReviewRequest is the JSON request body for writing a review. A
// second submission by the same user replaces their earlier review.
type UpsertReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// --- Handlers ---

// ListReviews handles GET /api/v1/products/{productId}/reviews
// @Summary List product reviews
// @Description Returns a product's reviews with author profiles and the rating aggregate
// @Tags reviews
// @Produce json
// @Param productId path string true "Product UUID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/products/{productId}/reviews [get]
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if productID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "product id is required"},
		})
		return
	}

	result, err := h.service.ListReviews(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// UpsertReview handles PUT /api/v1/products/{productId}/reviews
// @Summary Write a review
// @Description Creates or replaces the calling user's review of a product
// @Tags reviews
// @Accept json
// @Produce json
// @Param productId path string true "Product UUID"
// @Param request body UpsertReviewRequest true "Review to write"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/products/{productId}/reviews [put]
func (h *ReviewHandler) UpsertReview(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	var req UpsertReviewRequest
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

	if err := h.service.UpsertReview(r.Context(), productID, userID, req.Rating, req.Comment); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "saved"}})
}

// DeleteReview handles DELETE /api/v1/admin/products/{productId}/reviews/{reviewId}
// Deleting a review that does not exist is a success, so the operation can
// be retried safely.
// @Summary Delete a review
// @Description Removes a review from a product and recomputes the rating aggregate
// @Tags admin
// @Produce json
// @Param productId path string true "Product UUID"
// @Param reviewId path string true "Review UUID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/admin/products/{productId}/reviews/{reviewId} [delete]
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	reviewID := chi.URLParam(r, "reviewId")

	if err := h.service.DeleteReview(r.Context(), productID, reviewID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "deleted"}})
}
