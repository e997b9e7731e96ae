package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazelmart/catalog/internal/directory"
	"github.com/hazelmart/catalog/internal/domain"
	"github.com/hazelmart/catalog/internal/event"
	"github.com/hazelmart/catalog/internal/repository"
	apperrors "github.com/hazelmart/catalog/pkg/errors"
)

// maxSaveRetries bounds the read-apply-write retries under write conflict
// before the operation is surfaced as a Conflict.
const maxSaveRetries = 3

// UserDirectory resolves user ids to display profiles.
type UserDirectory interface {
	GetUsers(ctx context.Context, userIDs []string) (map[string]directory.UserProfile, error)
}

// ReviewWithAuthor is a review joined with its author's display profile.
// Author is nil when the directory could not resolve the user.
type ReviewWithAuthor struct {
	domain.Review
	Author *directory.UserProfile `json:"author,omitempty"`
}

// ReviewListResult contains a product's reviews and aggregate.
type ReviewListResult struct {
	Reviews     []ReviewWithAuthor `json:"reviews"`
	Rating      float64            `json:"rating"`
	ReviewCount int                `json:"review_count"`
}

// ReviewService implements the review aggregation workflow: read the
// product aggregate, apply the mutation to the review sequence, and write
// it back under a version check, retrying from a fresh read on conflict.
type ReviewService struct {
	repo     repository.ProductRepository
	users    UserDirectory
	producer *event.Producer
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(repo repository.ProductRepository, users UserDirectory, producer *event.Producer, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		repo:     repo,
		users:    users,
		producer: producer,
		logger:   logger,
	}
}

// UpsertReview writes or replaces the calling user's review on a product
// and recomputes the rating aggregate.
func (s *ReviewService) UpsertReview(ctx context.Context, productID, userID string, rating int, comment string) error {
	if productID == "" {
		return apperrors.InvalidInput("product id is required")
	}
	if userID == "" {
		return apperrors.InvalidInput("user id is required")
	}
	if rating < 1 || rating > 5 {
		return apperrors.InvalidInput("rating must be between 1 and 5")
	}

	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		product, err := s.repo.GetByID(ctx, productID)
		if err != nil {
			return fmt.Errorf("get product for review: %w", err)
		}

		reviews, stats := domain.UpsertReview(product.Reviews, userID, rating, comment, time.Now().UTC())

		ok, err := s.repo.SaveReviewsIfVersion(ctx, productID, reviews, stats, product.Version)
		if err != nil {
			return fmt.Errorf("save reviews: %w", err)
		}
		if !ok {
			continue
		}

		s.publishReviewUpdated(ctx, productID, stats)

		s.logger.InfoContext(ctx, "review upserted",
			slog.String("product_id", productID),
			slog.String("user_id", userID),
			slog.Int("rating", rating),
			slog.Int("review_count", stats.Count),
		)

		return nil
	}

	return apperrors.Conflict("product reviews were modified concurrently, please retry")
}

// DeleteReview removes a review from a product by review id. Deleting an
// absent review succeeds without modifying anything.
func (s *ReviewService) DeleteReview(ctx context.Context, productID, reviewID string) error {
	if productID == "" {
		return apperrors.InvalidInput("product id is required")
	}
	if reviewID == "" {
		return apperrors.InvalidInput("review id is required")
	}

	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		product, err := s.repo.GetByID(ctx, productID)
		if err != nil {
			return fmt.Errorf("get product for review delete: %w", err)
		}

		reviews, stats := domain.RemoveReview(product.Reviews, reviewID)
		if len(reviews) == len(product.Reviews) {
			// Nothing to remove. Idempotent success.
			return nil
		}

		ok, err := s.repo.SaveReviewsIfVersion(ctx, productID, reviews, stats, product.Version)
		if err != nil {
			return fmt.Errorf("save reviews: %w", err)
		}
		if !ok {
			continue
		}

		s.publishReviewUpdated(ctx, productID, stats)

		s.logger.InfoContext(ctx, "review deleted",
			slog.String("product_id", productID),
			slog.String("review_id", reviewID),
			slog.Int("review_count", stats.Count),
		)

		return nil
	}

	return apperrors.Conflict("product reviews were modified concurrently, please retry")
}

// ListReviews returns a product's review sequence with each author resolved
// to a display profile. Unresolvable authors are returned without a
// profile rather than failing the listing.
func (s *ReviewService) ListReviews(ctx context.Context, productID string) (*ReviewListResult, error) {
	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product for reviews: %w", err)
	}

	userIDs := make([]string, 0, len(product.Reviews))
	for _, r := range product.Reviews {
		userIDs = append(userIDs, r.UserID)
	}

	profiles, err := s.users.GetUsers(ctx, userIDs)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to resolve review authors",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		profiles = map[string]directory.UserProfile{}
	}

	reviews := make([]ReviewWithAuthor, len(product.Reviews))
	for i, r := range product.Reviews {
		reviews[i] = ReviewWithAuthor{Review: r}
		if profile, ok := profiles[r.UserID]; ok {
			p := profile
			reviews[i].Author = &p
		}
	}

	return &ReviewListResult{
		Reviews:     reviews,
		Rating:      product.Rating,
		ReviewCount: product.ReviewCount,
	}, nil
}

func (s *ReviewService) publishReviewUpdated(ctx context.Context, productID string, stats domain.ReviewStats) {
	if err := s.producer.PublishReviewUpdated(ctx, productID, stats); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.updated event",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
}
