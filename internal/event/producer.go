package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazelmart/catalog/internal/domain"
	pkgkafka "github.com/hazelmart/catalog/pkg/kafka"
)

// Kafka topic constants for catalog domain events.
const (
	TopicProductCreated = "hazelmart.product.created"
	TopicProductUpdated = "hazelmart.product.updated"
	TopicProductDeleted = "hazelmart.product.deleted"
	TopicReviewUpdated  = "hazelmart.review.updated"
	TopicCartUpdated    = "hazelmart.cart.updated"
)

// Aggregate type constants.
const (
	AggregateTypeProduct = "product"
	AggregateTypeCart    = "cart"
)

// Source identifier for events originating from the catalog service.
const SourceCatalogService = "catalog-service"

// ProductData is the payload for product.created and product.updated events.
type ProductData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	ListedPrice int64  `json:"listed_price"`
	ActualPrice int64  `json:"actual_price"`
	Stock       int    `json:"stock"`
}

// ProductDeletedData is the payload for a product.deleted event.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// ReviewUpdatedData is the payload for a review.updated event, carrying the
// recomputed aggregate after any review mutation.
type ReviewUpdatedData struct {
	ProductID   string  `json:"product_id"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
}

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	UserID      string         `json:"user_id"`
	Items       []CartItemData `json:"items"`
	ItemCount   int            `json:"item_count"`
	TotalAmount int64          `json:"total_amount"`
}

// CartItemData is the item payload within cart events.
type CartItemData struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// Producer publishes catalog domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the catalog service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func productData(product *domain.Product) ProductData {
	return ProductData{
		ID:          product.ID,
		Name:        product.Name,
		Slug:        product.Slug,
		Category:    product.Category,
		Type:        product.Type,
		ListedPrice: product.ListedPrice,
		ActualPrice: product.ActualPrice,
		Stock:       product.Stock,
	}
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	if p.kafka == nil {
		return nil
	}

	event, err := pkgkafka.NewEvent(TopicProductCreated, product.ID, AggregateTypeProduct, SourceCatalogService, productData(product))
	if err != nil {
		return fmt.Errorf("create product.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProductCreated, event); err != nil {
		return fmt.Errorf("publish product.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published product.created event",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	return nil
}

// PublishProductUpdated publishes a product.updated event.
func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product) error {
	if p.kafka == nil {
		return nil
	}

	event, err := pkgkafka.NewEvent(TopicProductUpdated, product.ID, AggregateTypeProduct, SourceCatalogService, productData(product))
	if err != nil {
		return fmt.Errorf("create product.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProductUpdated, event); err != nil {
		return fmt.Errorf("publish product.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published product.updated event",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	return nil
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, id string) error {
	if p.kafka == nil {
		return nil
	}

	event, err := pkgkafka.NewEvent(TopicProductDeleted, id, AggregateTypeProduct, SourceCatalogService, ProductDeletedData{ID: id})
	if err != nil {
		return fmt.Errorf("create product.deleted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProductDeleted, event); err != nil {
		return fmt.Errorf("publish product.deleted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published product.deleted event",
		slog.String("product_id", id),
	)

	return nil
}

// PublishReviewUpdated publishes a review.updated event carrying the new
// rating aggregate.
func (p *Producer) PublishReviewUpdated(ctx context.Context, productID string, stats domain.ReviewStats) error {
	if p.kafka == nil {
		return nil
	}

	data := ReviewUpdatedData{
		ProductID:   productID,
		Rating:      stats.Rating,
		ReviewCount: stats.Count,
	}

	event, err := pkgkafka.NewEvent(TopicReviewUpdated, productID, AggregateTypeProduct, SourceCatalogService, data)
	if err != nil {
		return fmt.Errorf("create review.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewUpdated, event); err != nil {
		return fmt.Errorf("publish review.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.updated event",
		slog.String("product_id", productID),
		slog.Int("review_count", stats.Count),
	)

	return nil
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	if p.kafka == nil {
		return nil
	}

	items := make([]CartItemData, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = CartItemData{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		}
	}

	data := CartUpdatedData{
		UserID:      cart.UserID,
		Items:       items,
		ItemCount:   cart.ItemCount(),
		TotalAmount: cart.TotalAmount(),
	}

	event, err := pkgkafka.NewEvent(TopicCartUpdated, cart.UserID, AggregateTypeCart, SourceCatalogService, data)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartUpdated, event); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("user_id", cart.UserID),
		slog.Int("item_count", cart.ItemCount()),
	)

	return nil
}
