package handlers

import (
	"log"

	"pasar/internal/models"
	"pasar/internal/services"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for order fulfillment.
type OrderHandler struct {
	service *services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service: service,
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/:id", h.HandleGetOrder)
	orderRoutes.Get("/:id/history", h.HandleGetHistory)
	orderRoutes.Post("/:id/pickup", h.HandleSchedulePickup)
	orderRoutes.Post("/:id/advance", h.HandleAdvance)
	orderRoutes.Post("/:id/confirm", h.HandleConfirmDelivery)
	orderRoutes.Post("/:id/cancel", h.HandleCancel)
}

// HandleGetOrder retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrder(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}

// HandleGetHistory retrieves the order's append-only status log.
func (h *OrderHandler) HandleGetHistory(c *fiber.Ctx) error {
	history, err := h.service.History(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(history)
}

type schedulePickupRequest struct {
	Date    string `json:"date" validate:"required"`
	Time    string `json:"time" validate:"omitempty"`
	Address string `json:"address" validate:"required"`
	Notes   string `json:"notes" validate:"omitempty,max=1000"`
}

// HandleSchedulePickup is the seller arranging collection.
func (h *OrderHandler) HandleSchedulePickup(c *fiber.Ctx) error {
	var req schedulePickupRequest
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

	order, err := h.service.SchedulePickup(c.Params("id"), actorID(c), services.SchedulePickupInput{
		Date:    req.Date,
		Time:    req.Time,
		Address: req.Address,
		Notes:   req.Notes,
	})
	if err != nil {
		log.Printf("Error scheduling pickup for order %s: %v", c.Params("id"), err)
		return respondError(c, err)
	}
	return c.JSON(order)
}

type advanceOrderRequest struct {
	Status string `json:"status" validate:"required,oneof=in_transit delivered"`
}

// HandleAdvance moves fulfillment forward to in_transit or delivered.
func (h *OrderHandler) HandleAdvance(c *fiber.Ctx) error {
	var req advanceOrderRequest
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

	order, err := h.service.Advance(c.Params("id"), actorID(c), models.OrderStatus(req.Status))
	if err != nil {
		log.Printf("Error advancing order %s: %v", c.Params("id"), err)
		return respondError(c, err)
	}
	return c.JSON(order)
}

// HandleConfirmDelivery stamps the calling party's delivery confirmation.
func (h *OrderHandler) HandleConfirmDelivery(c *fiber.Ctx) error {
	order, err := h.service.ConfirmDelivery(c.Params("id"), actorID(c))
	if err != nil {
		log.Printf("Error confirming delivery on order %s: %v", c.Params("id"), err)
		return respondError(c, err)
	}
	return c.JSON(order)
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// HandleCancel terminates fulfillment with a reason.
func (h *OrderHandler) HandleCancel(c *fiber.Ctx) error {
	var req cancelOrderRequest
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

	order, err := h.service.Cancel(c.Params("id"), actorID(c), req.Reason)
	if err != nil {
		log.Printf("Error cancelling order %s: %v", c.Params("id"), err)
		return respondError(c, err)
	}
	return c.JSON(order)
}
