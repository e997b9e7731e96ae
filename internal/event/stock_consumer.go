package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazelmart/catalog/internal/repository"
	apperrors "github.com/hazelmart/catalog/pkg/errors"
	pkgkafka "github.com/hazelmart/catalog/pkg/kafka"
)

// TopicOrderPlaced is published by the order service when a checkout
// completes. The catalog consumes it to decrement stock.
const TopicOrderPlaced = "hazelmart.order.placed"

// OrderPlacedData is the payload of an order.placed event. Only the line
// items matter to the catalog.
type OrderPlacedData struct {
	OrderID string          `json:"order_id"`
	UserID  string          `json:"user_id"`
	Items   []OrderLineData `json:"items"`
}

// OrderLineData is one purchased line in an order.placed event.
type OrderLineData struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// StockConsumer keeps product stock in sync with completed orders. Handling
// is idempotent per event id, so redelivered messages do not decrement
// twice.
type StockConsumer struct {
	products repository.ProductRepository
	logger   *slog.Logger
}

// NewStockConsumer creates the order.placed handler backed by the product
// repository.
func NewStockConsumer(products repository.ProductRepository, logger *slog.Logger) *StockConsumer {
	return &StockConsumer{
		products: products,
		logger:   logger,
	}
}

// Handler returns the Kafka handler wrapped with event-id deduplication.
func (c *StockConsumer) Handler(store pkgkafka.IdempotencyStore) pkgkafka.Handler {
	return pkgkafka.IdempotentHandler(store, c.handle, c.logger)
}

func (c *StockConsumer) handle(ctx context.Context, event *pkgkafka.Event) error {
	var data OrderPlacedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal order.placed data: %w", err)
	}

	for _, line := range data.Items {
		if line.Quantity <= 0 {
			continue
		}
		err := c.products.AdjustStock(ctx, line.ProductID, -line.Quantity)
		if err != nil {
			// A product deleted after the order was placed is not worth a
			// redelivery loop.
			if errors.Is(err, apperrors.ErrNotFound) {
				c.logger.WarnContext(ctx, "stock sync skipped unknown product",
					slog.String("order_id", data.OrderID),
					slog.String("product_id", line.ProductID),
				)
				continue
			}
			return fmt.Errorf("adjust stock for %s: %w", line.ProductID, err)
		}
	}

	c.logger.InfoContext(ctx, "stock synced from order",
		slog.String("order_id", data.OrderID),
		slog.Int("lines", len(data.Items)),
	)

	return nil
}
