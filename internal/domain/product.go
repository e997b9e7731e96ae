package domain

import (
	"time"
)

// Product represents a product in the catalog. Reviews are embedded in the
// product aggregate and rewritten as a whole together with the derived
// Rating and ReviewCount fields; Version guards that read-modify-write cycle.
type Product struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Slug        string         `json:"slug"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Type        string         `json:"type"`
	ListedPrice int64          `json:"listed_price"`
	ActualPrice int64          `json:"actual_price"`
	Stock       int            `json:"stock"`
	Images      []ProductImage `json:"images"`
	Reviews     []Review       `json:"reviews"`
	Rating      float64        `json:"rating"`
	ReviewCount int            `json:"review_count"`
	Version     int            `json:"version"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ProductImage represents an image associated with a product.
type ProductImage struct {
	URL       string `json:"url"`
	AltText   string `json:"alt_text,omitempty"`
	SortOrder int    `json:"sort_order"`
}

// FirstImageURL returns the URL of the first listed image, or "" when the
// product has no images. Cart items capture this as their display image.
func (p *Product) FirstImageURL() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

// Snapshot captures the product fields a cart item denormalizes at
// insertion time.
func (p *Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		Name:     p.Name,
		ImageURL: p.FirstImageURL(),
		Price:    p.ActualPrice,
		Stock:    p.Stock,
	}
}

// ProductSnapshot is a point-in-time copy of the product fields a cart item
// carries. Price and stock are as of the last consolidation, not live.
type ProductSnapshot struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
	Price    int64  `json:"price"`
	Stock    int    `json:"stock"`
}
