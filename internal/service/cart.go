package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazelmart/catalog/internal/domain"
	"github.com/hazelmart/catalog/internal/event"
	"github.com/hazelmart/catalog/internal/repository"
	apperrors "github.com/hazelmart/catalog/pkg/errors"
)

// MaxItemsPerCart is the maximum number of distinct items allowed in a cart.
const MaxItemsPerCart = 50

// ReplaceItemInput is one entry of a bulk cart replace. The product
// snapshot is resolved server-side; only identity and quantity come from
// the client.
type ReplaceItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// CartService implements the cart consolidation workflow: read the cart,
// apply the mutation against it, and write it back under a version check,
// retrying from a fresh read on conflict.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(carts repository.CartRepository, products repository.ProductRepository, producer *event.Producer, logger *slog.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		producer: producer,
		logger:   logger,
	}
}

// GetCart retrieves the cart for a user. If no cart exists, returns an
// empty cart; carts are created lazily on first add.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	cart, err := s.loadOrEmpty(ctx, userID)
	if err != nil {
		return nil, err
	}

	return cart, nil
}

// AddItem consolidates a bulk add into the user's cart. The product must
// resolve in the catalog; its name, image, price, and stock are captured
// into the item at this instant.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be greater than 0")
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, fmt.Errorf("resolve product: %w", err)
	}
	snap := product.Snapshot()

	return s.consolidate(ctx, userID, "item added to cart", func(cart domain.Cart) (domain.Cart, error) {
		if cart.FindItemIndex(productID) < 0 && len(cart.Items) >= MaxItemsPerCart {
			return cart, apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d items", MaxItemsPerCart))
		}
		return domain.AddItem(cart, productID, quantity, snap, time.Now().UTC())
	})
}

// ReplaceItems replaces the user's cart wholesale with the supplied items.
// Last writer wins at whole-cart granularity; no merging is performed.
func (s *CartService) ReplaceItems(ctx context.Context, userID string, inputs []ReplaceItemInput) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if len(inputs) > MaxItemsPerCart {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d items", MaxItemsPerCart))
	}

	items := make([]domain.CartItem, 0, len(inputs))
	for _, in := range inputs {
		if in.ProductID == "" {
			return nil, apperrors.InvalidInput("product id is required")
		}
		if in.Quantity <= 0 {
			return nil, apperrors.InvalidInput("quantity must be greater than 0")
		}
		product, err := s.products.GetByID(ctx, in.ProductID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NotFound("product", in.ProductID)
			}
			return nil, fmt.Errorf("resolve product: %w", err)
		}
		snap := product.Snapshot()
		items = append(items, domain.CartItem{
			ProductID: in.ProductID,
			Name:      snap.Name,
			ImageURL:  snap.ImageURL,
			Price:     snap.Price,
			Stock:     snap.Stock,
			Quantity:  in.Quantity,
		})
	}

	return s.consolidate(ctx, userID, "cart replaced", func(cart domain.Cart) (domain.Cart, error) {
		return domain.ReplaceItems(cart, items, time.Now().UTC()), nil
	})
}

// IncrementItem raises an item's quantity by one, bounded by the stock
// captured in the item's snapshot.
func (s *CartService) IncrementItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	return s.consolidate(ctx, userID, "cart item incremented", func(cart domain.Cart) (domain.Cart, error) {
		return domain.IncrementItem(cart, productID, time.Now().UTC())
	})
}

// DecrementItem lowers an item's quantity by one, with a floor of 1.
func (s *CartService) DecrementItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	return s.consolidate(ctx, userID, "cart item decremented", func(cart domain.Cart) (domain.Cart, error) {
		return domain.DecrementItem(cart, productID, time.Now().UTC())
	})
}

// RemoveItem deletes an item from the cart. Removing an absent product is
// an idempotent success.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	return s.consolidate(ctx, userID, "cart item removed", func(cart domain.Cart) (domain.Cart, error) {
		return domain.RemoveItem(cart, productID, time.Now().UTC()), nil
	})
}

// ClearCart drops the user's cart entirely.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.InvalidInput("user id is required")
	}

	if err := s.carts.Delete(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("user_id", userID),
	)

	return nil
}

// consolidate runs the read-apply-write cycle for a cart mutation with
// optimistic-lock retries. The apply function receives the freshly read
// cart each attempt and returns the new state.
func (s *CartService) consolidate(ctx context.Context, userID, logMsg string, apply func(domain.Cart) (domain.Cart, error)) (*domain.Cart, error) {
	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		cart, err := s.loadOrEmpty(ctx, userID)
		if err != nil {
			return nil, err
		}
		expectedVersion := cart.Version

		updated, err := apply(*cart)
		if err != nil {
			return nil, mapCartError(err, userID)
		}

		ok, err := s.carts.SaveIfVersion(ctx, &updated, expectedVersion)
		if err != nil {
			return nil, fmt.Errorf("save cart: %w", err)
		}
		if !ok {
			continue
		}

		if err := s.producer.PublishCartUpdated(ctx, &updated); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}

		s.logger.InfoContext(ctx, logMsg,
			slog.String("user_id", userID),
			slog.Int("item_count", updated.ItemCount()),
		)

		return &updated, nil
	}

	return nil, apperrors.Conflict("cart was modified concurrently, please retry")
}

// loadOrEmpty reads the user's cart, substituting a fresh empty cart when
// none exists yet.
func (s *CartService) loadOrEmpty(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			empty := domain.NewCart(userID, time.Now().UTC())
			return &empty, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// mapCartError translates domain consolidation errors into user-visible
// failures.
func mapCartError(err error, userID string) error {
	switch {
	case errors.Is(err, domain.ErrCartItemNotFound):
		return apperrors.NotFound("cart item", userID)
	case errors.Is(err, domain.ErrStockExceeded):
		return apperrors.InvalidInput("quantity would exceed available stock")
	case errors.Is(err, domain.ErrQuantityFloor):
		return apperrors.InvalidInput("quantity cannot go below 1")
	case errors.Is(err, domain.ErrQuantityNotPositive):
		return apperrors.InvalidInput("quantity must be greater than 0")
	default:
		return err
	}
}
