package repositories

import (
	"errors"
	"fmt"

	"pasar/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMReviewRepository is a GORM implementation of ReviewRepository.
type GORMReviewRepository struct {
	db *gorm.DB
}

// NewGORMReviewRepository creates a new instance of GORMReviewRepository.
func NewGORMReviewRepository(db *gorm.DB) *GORMReviewRepository {
	return &GORMReviewRepository{
		db: db,
	}
}

// CreateIfEligible inserts the review after re-checking the full eligibility
// predicate inside the transaction. A cached CanReview answer is never
// trusted: completion status and uniqueness are both re-read here, and the
// unique (order, reviewer) index backstops a concurrent double submit.
func (r *GORMReviewRepository) CreateIfEligible(review *models.Review) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, "id = ?", review.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("order %s: %w", review.OrderID, models.ErrNotFound)
			}
			return fmt.Errorf("failed to get order %s: %w", review.OrderID, err)
		}
		if order.Status != models.OrderCompleted {
			return fmt.Errorf("order %s is %s, reviews require completion: %w", order.ID, order.Status, models.ErrNotEligible)
		}

		var count int64
		err := tx.Model(&models.Review{}).
			Where("order_id = ? AND reviewer_id = ?", review.OrderID, review.ReviewerID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to count reviews for order %s: %w", review.OrderID, err)
		}
		if count > 0 {
			return fmt.Errorf("order %s already reviewed by %s: %w", review.OrderID, review.ReviewerID, models.ErrNotEligible)
		}

		if review.ID == "" {
			review.ID = uuid.New().String()
		}
		if err := tx.Create(review).Error; err != nil {
			return fmt.Errorf("review for order %s by %s: %w", review.OrderID, review.ReviewerID, models.ErrNotEligible)
		}
		return nil
	})
}

// ExistsForOrderAndReviewer reports whether a review already exists for the
// (order, reviewer) pair.
func (r *GORMReviewRepository) ExistsForOrderAndReviewer(orderID, reviewerID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Review{}).
		Where("order_id = ? AND reviewer_id = ?", orderID, reviewerID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count reviews for order %s: %w", orderID, err)
	}
	return count > 0, nil
}

// ListByOrder returns the reviews recorded against an order.
func (r *GORMReviewRepository) ListByOrder(orderID string) ([]models.Review, error) {
	var reviews []models.Review
	if err := r.db.Where("order_id = ?", orderID).Order("created_at asc").Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("failed to list reviews for order %s: %w", orderID, err)
	}
	return reviews, nil
}
