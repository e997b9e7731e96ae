package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/hazelmart/catalog/internal/domain"
	"github.com/hazelmart/catalog/internal/event"
	"github.com/hazelmart/catalog/internal/query"
	"github.com/hazelmart/catalog/internal/repository"
	apperrors "github.com/hazelmart/catalog/pkg/errors"
	"github.com/hazelmart/catalog/pkg/slug"
)

// CatalogService implements the business logic for product catalog
// operations.
type CatalogService struct {
	repo     repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(repo repository.ProductRepository, producer *event.Producer, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name        string
	Description string
	Category    string
	Type        string
	ListedPrice int64
	ActualPrice int64
	Stock       int
	Images      []domain.ProductImage
}

// UpdateProductInput holds the parameters for updating a product. Nil
// fields are left unchanged.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Category    *string
	Type        *string
	ListedPrice *int64
	ActualPrice *int64
	Stock       *int
	Images      []domain.ProductImage
}

// ProductListResult is the outcome of a catalog listing. Count follows the
// filtered-or-total policy: the filtered count when it differs from the
// grand total, otherwise the grand total.
type ProductListResult struct {
	Products   []domain.Product `json:"products"`
	Count      int              `json:"count"`
	ResPerPage int              `json:"res_per_page"`
	Page       int              `json:"page"`
}

// CreateProduct creates a new product with the given input.
func (s *CatalogService) CreateProduct(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if input.ListedPrice < 0 || input.ActualPrice < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}
	if input.Stock < 0 {
		return nil, apperrors.InvalidInput("stock must not be negative")
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Slug:        slug.Generate(input.Name),
		Description: input.Description,
		Category:    input.Category,
		Type:        input.Type,
		ListedPrice: input.ListedPrice,
		ActualPrice: input.ActualPrice,
		Stock:       input.Stock,
		Images:      input.Images,
		Reviews:     []domain.Review{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if product.Images == nil {
		product.Images = []domain.ProductImage{}
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	if err := s.producer.PublishProductCreated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	return product, nil
}

// GetProduct retrieves a product by its ID.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return product, nil
}

// GetProductBySlug retrieves a product by its slug.
func (s *CatalogService) GetProductBySlug(ctx context.Context, slugStr string) (*domain.Product, error) {
	product, err := s.repo.GetBySlug(ctx, slugStr)
	if err != nil {
		return nil, fmt.Errorf("get product by slug: %w", err)
	}
	return product, nil
}

// ListProducts resolves the raw query values into a read plan, executes it,
// and reports the count per the filtered-or-total policy.
func (s *CatalogService) ListProducts(ctx context.Context, values url.Values) (*ProductListResult, error) {
	plan, err := query.Build(values)
	if err != nil {
		return nil, err
	}

	products, filtered, err := s.repo.List(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	total, err := s.repo.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	count := total
	if filtered != total {
		count = filtered
	}

	return &ProductListResult{
		Products:   products,
		Count:      count,
		ResPerPage: plan.PerPage,
		Page:       plan.Page,
	}, nil
}

// ListCategories returns the distinct category names in the catalog.
func (s *CatalogService) ListCategories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// UpdateProduct applies a partial update to an existing product.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, input *UpdateProductInput) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("product name must not be empty")
		}
		product.Name = *input.Name
		product.Slug = slug.Generate(*input.Name)
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Category != nil {
		product.Category = *input.Category
	}
	if input.Type != nil {
		product.Type = *input.Type
	}
	if input.ListedPrice != nil {
		if *input.ListedPrice < 0 {
			return nil, apperrors.InvalidInput("listed price must not be negative")
		}
		product.ListedPrice = *input.ListedPrice
	}
	if input.ActualPrice != nil {
		if *input.ActualPrice < 0 {
			return nil, apperrors.InvalidInput("actual price must not be negative")
		}
		product.ActualPrice = *input.ActualPrice
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, apperrors.InvalidInput("stock must not be negative")
		}
		product.Stock = *input.Stock
	}
	if input.Images != nil {
		product.Images = input.Images
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	if err := s.producer.PublishProductUpdated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.updated event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", product.ID),
	)

	return product, nil
}

// DeleteProduct removes a product from the catalog.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if err := s.producer.PublishProductDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.deleted event",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", id),
	)

	return nil
}
