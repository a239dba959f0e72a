package services

import (
	"fmt"
	"time"

	"pasar/internal/models"
	"pasar/internal/repositories"

	"github.com/google/uuid"
)

// SubmitReviewInput carries a party's post-completion feedback.
type SubmitReviewInput struct {
	OrderID    string
	ReviewerID string
	RevieweeID string
	Rating     int
	Comment    string
}

// ReviewService gates mutual feedback: one review per (order, direction),
// unlocked only by terminal completion.
type ReviewService struct {
	reviewRepo repositories.ReviewRepository
	orderRepo  repositories.OrderRepository
	events     EventPublisher
}

// NewReviewService creates a new ReviewService.
func NewReviewService(reviewRepo repositories.ReviewRepository, orderRepo repositories.OrderRepository, events EventPublisher) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		orderRepo:  orderRepo,
		events:     events,
	}
}

// ListForOrder returns the reviews recorded against an order.
func (s *ReviewService) ListForOrder(orderID string) ([]models.Review, error) {
	return s.reviewRepo.ListByOrder(orderID)
}

// CanReview reports whether the actor may still review the order: the order
// is completed, the actor is one of its parties, and no review exists yet
// for that (order, actor) pair. The answer can go stale; SubmitReview
// re-validates regardless.
func (s *ReviewService) CanReview(orderID, actorID string) (bool, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return false, err
	}
	if order.Status != models.OrderCompleted {
		return false, nil
	}
	if actorID != order.BuyerID && actorID != order.SellerID {
		return false, nil
	}
	exists, err := s.reviewRepo.ExistsForOrderAndReviewer(orderID, actorID)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// SubmitReview validates the rating and parties, then inserts the review
// through the repository's transactional eligibility re-check. A cached
// CanReview answer is never trusted.
func (s *ReviewService) SubmitReview(input SubmitReviewInput) (*models.Review, error) {
	if input.OrderID == "" || input.ReviewerID == "" || input.RevieweeID == "" {
		return nil, fmt.Errorf("order_id, reviewer_id and reviewee_id are required: %w", models.ErrInvalidInput)
	}
	// Out-of-range ratings are rejected, never clamped.
	if input.Rating < 1 || input.Rating > 5 {
		return nil, fmt.Errorf("rating must be an integer between 1 and 5: %w", models.ErrInvalidInput)
	}

	order, err := s.orderRepo.GetByID(input.OrderID)
	if err != nil {
		return nil, err
	}
	validPair := (input.ReviewerID == order.BuyerID && input.RevieweeID == order.SellerID) ||
		(input.ReviewerID == order.SellerID && input.RevieweeID == order.BuyerID)
	if !validPair {
		return nil, fmt.Errorf("reviewer and reviewee must be the order's buyer and seller in opposite roles: %w", models.ErrNotEligible)
	}

	review := &models.Review{
		ID:         uuid.New().String(),
		OrderID:    input.OrderID,
		ReviewerID: input.ReviewerID,
		RevieweeID: input.RevieweeID,
		Rating:     input.Rating,
		Comment:    input.Comment,
		CreatedAt:  time.Now(),
	}
	if err := s.reviewRepo.CreateIfEligible(review); err != nil {
		return nil, err
	}

	emitEvent(s.events, "review", review.ID, "", "created", input.ReviewerID)
	return review, nil
}
