package domain

import (
	"errors"
	"time"
)

// Cart consolidation errors. Callers translate these into user-visible
// failures at the transport boundary.
var (
	ErrQuantityNotPositive = errors.New("quantity must be positive")
	ErrStockExceeded       = errors.New("quantity exceeds available stock")
	ErrQuantityFloor       = errors.New("quantity cannot go below 1")
	ErrCartItemNotFound    = errors.New("cart item not found")
)

// Cart represents a user's shopping cart. One cart exists per user; Version
// guards the read-modify-write cycle against concurrent consolidation.
type Cart struct {
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem represents a single item in the cart, keyed by product id. The
// name, image, price, and stock fields are a snapshot captured when the item
// was inserted, not a live view of the product.
type CartItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url,omitempty"`
	Price     int64  `json:"price"`
	Stock     int    `json:"stock"`
	Quantity  int    `json:"quantity"`
}

// NewCart returns an empty cart for the given user.
func NewCart(userID string, now time.Time) Cart {
	return Cart{
		UserID:    userID,
		Items:     []CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TotalAmount calculates the total price of all items in the cart (in cents).
func (c *Cart) TotalAmount() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}

// ItemCount returns the total number of units in the cart.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// FindItemIndex returns the index of the cart item matching the given
// product id, or -1 if not found.
func (c *Cart) FindItemIndex(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c Cart) withItems(items []CartItem, now time.Time) Cart {
	c.Items = items
	c.UpdatedAt = now
	return c
}

func copyItems(items []CartItem) []CartItem {
	out := make([]CartItem, len(items))
	copy(out, items)
	return out
}

// AddItem consolidates a bulk add into the cart and returns the new cart
// state. If the product is already present its quantity is incremented by
// qty with no stock clamp; otherwise a new item is appended capturing the
// supplied snapshot. The input cart is not modified.
func AddItem(cart Cart, productID string, qty int, snap ProductSnapshot, now time.Time) (Cart, error) {
	if qty <= 0 {
		return cart, ErrQuantityNotPositive
	}

	items := copyItems(cart.Items)
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity += qty
			return cart.withItems(items, now), nil
		}
	}

	items = append(items, CartItem{
		ProductID: productID,
		Name:      snap.Name,
		ImageURL:  snap.ImageURL,
		Price:     snap.Price,
		Stock:     snap.Stock,
		Quantity:  qty,
	})
	return cart.withItems(items, now), nil
}

// ReplaceItems replaces the cart's item sequence wholesale. No merging is
// performed; the supplied sequence wins at whole-cart granularity.
func ReplaceItems(cart Cart, items []CartItem, now time.Time) Cart {
	return cart.withItems(copyItems(items), now)
}

// IncrementItem raises the quantity of an existing item by one. Unlike the
// bulk add path, the increment is bounded by the stock captured in the
// item's snapshot.
func IncrementItem(cart Cart, productID string, now time.Time) (Cart, error) {
	idx := cart.FindItemIndex(productID)
	if idx < 0 {
		return cart, ErrCartItemNotFound
	}

	items := copyItems(cart.Items)
	if items[idx].Stock <= 0 || items[idx].Quantity+1 > items[idx].Stock {
		return cart, ErrStockExceeded
	}
	items[idx].Quantity++
	return cart.withItems(items, now), nil
}

// DecrementItem lowers the quantity of an existing item by one. The minimum
// quantity is 1; removal is a separate explicit operation.
func DecrementItem(cart Cart, productID string, now time.Time) (Cart, error) {
	idx := cart.FindItemIndex(productID)
	if idx < 0 {
		return cart, ErrCartItemNotFound
	}

	items := copyItems(cart.Items)
	if items[idx].Quantity-1 < 1 {
		return cart, ErrQuantityFloor
	}
	items[idx].Quantity--
	return cart.withItems(items, now), nil
}

// RemoveItem deletes the item matching the given product id. Removing an
// absent id is a no-op, not an error.
func RemoveItem(cart Cart, productID string, now time.Time) Cart {
	items := make([]CartItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		if item.ProductID == productID {
			continue
		}
		items = append(items, item)
	}
	return cart.withItems(items, now)
}
