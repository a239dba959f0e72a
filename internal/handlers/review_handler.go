package handlers

import (
	"log"

	"pasar/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ReviewHandler handles HTTP requests for post-completion reviews.
type ReviewHandler struct {
	service *services.ReviewService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(service *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{
		service: service,
	}
}

// RegisterRoutes registers the review routes with the Fiber app.
func (h *ReviewHandler) RegisterRoutes(router fiber.Router) {
	reviewRoutes := router.Group("/orders/:id/reviews")
	reviewRoutes.Get("/", h.HandleListReviews)
	reviewRoutes.Get("/eligibility", h.HandleCanReview)
	reviewRoutes.Post("/", h.HandleSubmitReview)
}

// HandleListReviews returns the reviews recorded against an order.
func (h *ReviewHandler) HandleListReviews(c *fiber.Ctx) error {
	reviews, err := h.service.ListForOrder(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reviews)
}

// HandleCanReview reports whether the authenticated actor may still review
// the order. The answer is advisory; submission re-validates server-side.
func (h *ReviewHandler) HandleCanReview(c *fiber.Ctx) error {
	eligible, err := h.service.CanReview(c.Params("id"), actorID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"can_review": eligible,
	})
}

type submitReviewRequest struct {
	RevieweeID string `json:"reviewee_id" validate:"required"`
	Rating     int    `json:"rating" validate:"required,min=1,max=5"`
	Comment    string `json:"comment" validate:"omitempty,max=2000"`
}

// HandleSubmitReview records the authenticated actor's feedback.
func (h *ReviewHandler) HandleSubmitReview(c *fiber.Ctx) error {
	var req submitReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}

	review, err := h.service.SubmitReview(services.SubmitReviewInput{
		OrderID:    c.Params("id"),
		ReviewerID: actorID(c),
		RevieweeID: req.RevieweeID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if err != nil {
		log.Printf("Error submitting review for order %s: %v", c.Params("id"), err)
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}
