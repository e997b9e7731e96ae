package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazelmart/catalog/internal/service"
	"github.com/hazelmart/catalog/pkg/health"
	"github.com/hazelmart/catalog/pkg/middleware"
)

// NewRouter creates a chi router with all catalog service routes registered.
func NewRouter(
	catalogService *service.CatalogService,
	reviewService *service.ReviewService,
	cartService *service.CartService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsAllowedOrigins []string,
	environment string,
	pprofAllowedCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: corsAllowedOrigins,
		ExposedHeaders: []string{"X-Correlation-ID", "X-User-ID"},
		Environment:    environment,
	}))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("catalog"))
	r.Use(middleware.Tracing("catalog"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Profiling endpoints, gated by an IP allowlist
	middleware.RegisterPprof(r, pprofAllowedCIDRs, logger)

	productHandler := NewProductHandler(catalogService, logger)
	reviewHandler := NewReviewHandler(reviewService, logger)
	cartHandler := NewCartHandler(cartService, logger)

	// Public catalog endpoints
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(60))
			r.Get("/", productHandler.ListProducts)
			r.Get("/{idOrSlug}", productHandler.GetProduct)
			r.Get("/{productId}/reviews", reviewHandler.ListReviews)
		})

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Use(UserIDFromHeader)
			r.Put("/{productId}/reviews", reviewHandler.UpsertReview)
		})
	})

	r.With(middleware.CacheControl(300)).Get("/api/v1/categories", productHandler.ListCategories)

	// Cart endpoints, all scoped to the authenticated user
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(UserIDFromHeader)

		r.Get("/", cartHandler.GetCart)
		r.Delete("/", cartHandler.ClearCart)
		r.Post("/items", cartHandler.AddItem)
		r.Put("/items", cartHandler.ReplaceItems)
		r.Post("/items/{productId}/increment", cartHandler.IncrementItem)
		r.Post("/items/{productId}/decrement", cartHandler.DecrementItem)
		r.Delete("/items/{productId}", cartHandler.RemoveItem)
	})

	// Admin endpoints, exposed only on the internal network behind the
	// gateway's admin route policy
	r.Route("/api/v1/admin/products", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", productHandler.CreateProduct)
		r.Put("/{id}", productHandler.UpdateProduct)
		r.Delete("/{id}", productHandler.DeleteProduct)
		r.Delete("/{productId}/reviews/{reviewId}", reviewHandler.DeleteReview)
	})

	return r
}
