package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hazelmart/catalog/internal/domain"
	"github.com/hazelmart/catalog/internal/event"
	"github.com/hazelmart/catalog/internal/query"
	"github.com/hazelmart/catalog/internal/service"
	apperrors "github.com/hazelmart/catalog/pkg/errors"
	"github.com/hazelmart/catalog/pkg/httputil"
)

// ============================================================================
// Mock ProductRepository
// ============================================================================

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, plan query.Plan) ([]domain.Product, int, error) {
	args := m.Called(ctx, plan)
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) CountAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockProductRepository) ListCategories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) SaveReviewsIfVersion(ctx context.Context, productID string, reviews []domain.Review, stats domain.ReviewStats, expectedVersion int) (bool, error) {
	args := m.Called(ctx, productID, reviews, stats, expectedVersion)
	return args.Bool(0), args.Error(1)
}

func (m *mockProductRepository) AdjustStock(ctx context.Context, productID string, delta int) error {
	args := m.Called(ctx, productID, delta)
	return args.Error(0)
}

func (m *mockProductRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// ============================================================================
// Test helpers
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testEventProducer() *event.Producer {
	return event.NewProducer(nil, testLogger())
}

func testProductHandler(repo *mockProductRepository) *ProductHandler {
	svc := service.NewCatalogService(repo, testEventProducer(), testLogger())
	return NewProductHandler(svc, testLogger())
}

// setupProductRouter creates a chi router matching the production route
// layout for the catalog endpoints.
func setupProductRouter(handler *ProductHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", handler.ListProducts)
		r.Get("/{idOrSlug}", handler.GetProduct)
	})
	r.Get("/api/v1/categories", handler.ListCategories)
	r.Route("/api/v1/admin/products", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Post("/", handler.CreateProduct)
		r.Put("/{id}", handler.UpdateProduct)
		r.Delete("/{id}", handler.DeleteProduct)
	})
	return r
}

// decodeResponse reads the response body into the standard Response struct.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp
}

// sampleProduct returns a product suitable for test assertions.
func sampleProduct() *domain.Product {
	now := time.Now().UTC()
	return &domain.Product{
		ID:          validProductID,
		Name:        "Gold Ring",
		Slug:        "gold-ring",
		Category:    "Gold",
		Type:        "ring",
		ListedPrice: 59900,
		ActualPrice: 49900,
		Stock:       5,
		Images:      []domain.ProductImage{{URL: "https://img.hazelmart.dev/gold-ring.jpg"}},
		Reviews:     []domain.Review{},
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

const validProductID = "550e8400-e29b-41d4-a716-446655440001"

// ============================================================================
// GET /api/v1/products - ListProducts
// ============================================================================

func TestListProductsEndpoint_Success(t *testing.T) {
	repo := new(mockProductRepository)
	router := setupProductRouter(testProductHandler(repo))

	repo.On("List", mock.Anything, mock.Anything).Return([]domain.Product{*sampleProduct()}, 30, nil)
	repo.On("CountAll", mock.Anything).Return(30, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(30), data["count"])
	assert.Equal(t, float64(query.DefaultPerPage), data["res_per_page"])
	assert.Equal(t, float64(1), data["page"])
}

func TestListProductsEndpoint_ForwardsFilters(t *testing.T) {
	repo := new(mockProductRepository)
	router := setupProductRouter(testProductHandler(repo))

	repo.On("List", mock.Anything, mock.MatchedBy(func(p query.Plan) bool {
		return p.Keyword == "ring" && p.Equals["category"] == "Gold" && p.Page == 2
	})).Return([]domain.Product{}, 3, nil)
	repo.On("CountAll", mock.Anything).Return(30, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?keyword=ring&category=Gold&page=2", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeResponse(t, rec).Data.(map[string]any)
	assert.Equal(t, float64(3), data["count"])
	repo.AssertExpectations(t)
}

func TestListProductsEndpoint_InvalidPage_Returns400(t *testing.T) {
	repo := new(mockProductRepository)
	router := setupProductRouter(testProductHandler(repo))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?page=abc", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "List")
}

// ============================================================================
// GET /api/v1/products/{idOrSlug} - GetProduct
// ============================================================================

func TestGetProductEndpoint_ByID(t *testing.T) {
	repo := new(mockProductRepository)
	router := setupProductRouter(testProductHandler(repo))

	repo.On("GetByID", mock.Anything, validProductID).Return(sampleProduct(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+validProductID, nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	repo.AssertNotCalled(t, "GetBySlug")
}

func TestGetProductEndpoint_BySlug(t *testing.T) {
	repo := new(mockProductRepository)
	router := setupProductRouter(testProductHandler(repo))

	repo.On("GetBySlug", mock.Anything, "gold-ring").Return(sampleProduct(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/gold-ring", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	repo.AssertNotCalled(t, "GetByID")
}

func TestGetProductEndpoint_NotFound(t *testing.T) {
	repo := new(mockProductRepository)
	router := setupProductRouter(testProductHandler(repo))

	repo.On("GetBySlug", mock.Anything, "missing-thing").Return(nil, apperrors.NotFound("product", "missing-thing"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/missing-thing", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

// ============================================================================
// GET /api/v1/categories - ListCategories
// ============================================================================

func TestListCategoriesEndpoint_Success(t *testing.T) {
	repo := new(mockProductRepository)
	router := setupProductRouter(testProductHandler(repo))

	repo.On("ListCategories", mock.Anything).Return([]string{"Gold", "Silver"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, []any{"Gold", "Silver"}, resp.Data)
}

// ============================================================================
// POST /api/v1/admin/products - CreateProduct
// ============================================================================

func TestCreateProductEndpoint_Success(t *testing.T) {
	repo := new(mockProductRepository)
	router := setupProductRouter(testProductHandler(repo))

	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	body := map[string]any{
		"name":         "Gold Ring",
		"category":     "Gold",
		"type":         "ring",
		"listed_price": 59900,
		"actual_price": 49900,
		"stock":        5,
	}
	payload, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	repo.AssertExpectations(t)
}

func TestCreateProductEndpoint_MissingName_Returns400(t *testing.T) {
	repo := new(mockProductRepository)
	router := setupProductRouter(testProductHandler(repo))

	payload, _ := json.Marshal(map[string]any{"actual_price": 100})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	repo.AssertNotCalled(t, "Create")
}

func TestCreateProductEndpoint_MalformedJSON_Returns400(t *testing.T) {
	repo := new(mockProductRepository)
	router := setupProductRouter(testProductHandler(repo))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateProductEndpoint_WrongContentType_Returns415(t *testing.T) {
	repo := new(mockProductRepository)
	router := setupProductRouter(testProductHandler(repo))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", bytes.NewReader([]byte("name=x")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

// ============================================================================
// PUT /api/v1/admin/products/{id} - UpdateProduct
// ============================================================================

func TestUpdateProductEndpoint_Success(t *testing.T) {
	repo := new(mockProductRepository)
	router := setupProductRouter(testProductHandler(repo))

	repo.On("GetByID", mock.Anything, validProductID).Return(sampleProduct(), nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(p *domain.Product) bool {
		return p.Stock == 8
	})).Return(nil)

	payload, _ := json.Marshal(map[string]any{"stock": 8})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/products/"+validProductID, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}

func TestUpdateProductEndpoint_InvalidUUID_Returns400(t *testing.T) {
	repo := new(mockProductRepository)
	router := setupProductRouter(testProductHandler(repo))

	payload, _ := json.Marshal(map[string]any{"stock": 8})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/products/not-a-uuid", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "GetByID")
}

// ============================================================================
// DELETE /api/v1/admin/products/{id} - DeleteProduct
// ============================================================================

func TestDeleteProductEndpoint_Success(t *testing.T) {
	repo := new(mockProductRepository)
	router := setupProductRouter(testProductHandler(repo))

	repo.On("Delete", mock.Anything, validProductID).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/products/"+validProductID, nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}

func TestDeleteProductEndpoint_ServiceError_Returns500(t *testing.T) {
	repo := new(mockProductRepository)
	router := setupProductRouter(testProductHandler(repo))

	repo.On("Delete", mock.Anything, validProductID).Return(fmt.Errorf("connection reset"))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/products/"+validProductID, nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
