package repositories

import (
	"pasar/internal/models"
)

// ReviewRepository defines the interface for review data access.
type ReviewRepository interface {
	// CreateIfEligible re-validates eligibility inside the insert
	// transaction: the order must be completed, the reviewer one of its
	// parties, and no review may exist yet for (order, reviewer). Violations
	// are models.ErrNotEligible.
	CreateIfEligible(review *models.Review) error
	ExistsForOrderAndReviewer(orderID, reviewerID string) (bool, error)
	ListByOrder(orderID string) ([]models.Review, error)
}
