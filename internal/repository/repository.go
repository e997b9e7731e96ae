package repository

import (
	"context"

	"github.com/hazelmart/catalog/internal/domain"
	"github.com/hazelmart/catalog/internal/query"
)

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// Create inserts a new product into the store.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetBySlug retrieves a product by its URL-friendly slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)

	// List executes the read plan and returns the matching page of products
	// along with the count of all products matching the plan's filters,
	// ignoring pagination.
	List(ctx context.Context, plan query.Plan) ([]domain.Product, int, error)

	// CountAll returns the unconstrained total number of products.
	CountAll(ctx context.Context) (int, error)

	// ListCategories returns the distinct category names in use.
	ListCategories(ctx context.Context) ([]string, error)

	// Update modifies an existing product in the store.
	Update(ctx context.Context, product *domain.Product) error

	// SaveReviewsIfVersion writes the product's review sequence and derived
	// rating aggregate only if the stored version still equals
	// expectedVersion, bumping the version on success. Returns false when
	// the version moved, so the caller can retry from a fresh read.
	SaveReviewsIfVersion(ctx context.Context, productID string, reviews []domain.Review, stats domain.ReviewStats, expectedVersion int) (bool, error)

	// AdjustStock changes a product's stock by delta, flooring at zero.
	AdjustStock(ctx context.Context, productID string, delta int) error

	// Delete removes a product from the store by its identifier.
	Delete(ctx context.Context, id string) error
}

// CartRepository defines the interface for cart persistence operations.
type CartRepository interface {
	// Get retrieves a user's cart. Returns NotFound when the user has no
	// cart yet.
	Get(ctx context.Context, userID string) (*domain.Cart, error)

	// Save persists the cart unconditionally.
	Save(ctx context.Context, cart *domain.Cart) error

	// SaveIfVersion persists the cart only if the stored version still
	// equals expectedVersion, bumping the version on success. Returns false
	// when the version moved, so the caller can retry from a fresh read.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error)

	// Delete removes a user's cart.
	Delete(ctx context.Context, userID string) error
}
