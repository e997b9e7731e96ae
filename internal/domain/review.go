package domain

import (
	"time"

	"github.com/google/uuid"
)

// Review represents a product review submitted by a user. A user holds at
// most one review per product; UpsertReviews enforces that.
type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReviewStats holds the rating aggregate derived from a review sequence.
type ReviewStats struct {
	Rating float64 `json:"rating"`
	Count  int     `json:"count"`
}

// ComputeReviewStats returns the arithmetic mean of the ratings and the
// sequence length. The mean of an empty sequence is exactly 0, never NaN.
func ComputeReviewStats(reviews []Review) ReviewStats {
	if len(reviews) == 0 {
		return ReviewStats{Rating: 0, Count: 0}
	}
	var sum int
	for _, r := range reviews {
		sum += r.Rating
	}
	return ReviewStats{
		Rating: float64(sum) / float64(len(reviews)),
		Count:  len(reviews),
	}
}

// UpsertReview applies a review write for userID against the current
// sequence and returns the new sequence plus recomputed stats. An existing
// review by the same user is updated in place, keeping its identity and
// position; otherwise a new review is appended. The input slice is not
// modified.
func UpsertReview(reviews []Review, userID string, rating int, comment string, now time.Time) ([]Review, ReviewStats) {
	out := make([]Review, len(reviews))
	copy(out, reviews)

	for i := range out {
		if out[i].UserID == userID {
			out[i].Rating = rating
			out[i].Comment = comment
			out[i].UpdatedAt = now
			return out, ComputeReviewStats(out)
		}
	}

	out = append(out, Review{
		ID:        uuid.NewString(),
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return out, ComputeReviewStats(out)
}

// RemoveReview deletes the review with the given id and returns the new
// sequence plus recomputed stats. Removing an absent id is a no-op, not an
// error. The input slice is not modified.
func RemoveReview(reviews []Review, reviewID string) ([]Review, ReviewStats) {
	out := make([]Review, 0, len(reviews))
	for _, r := range reviews {
		if r.ID == reviewID {
			continue
		}
		out = append(out, r)
	}
	return out, ComputeReviewStats(out)
}
