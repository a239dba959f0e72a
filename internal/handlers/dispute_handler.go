package handlers

import (
	"log"

	"pasar/internal/models"
	"pasar/internal/services"

	"github.com/gofiber/fiber/v2"
)

// DisputeHandler handles HTTP requests for dispute mediation.
type DisputeHandler struct {
	service *services.DisputeService
}

// NewDisputeHandler creates a new DisputeHandler.
func NewDisputeHandler(service *services.DisputeService) *DisputeHandler {
	return &DisputeHandler{
		service: service,
	}
}

// RegisterRoutes registers the dispute routes with the Fiber app.
func (h *DisputeHandler) RegisterRoutes(router fiber.Router) {
	disputeRoutes := router.Group("/disputes")
	disputeRoutes.Post("/", h.HandleOpen)
	disputeRoutes.Get("/:id", h.HandleGetDispute)
	disputeRoutes.Get("/:id/messages", h.HandleGetMessages)
	disputeRoutes.Post("/:id/messages", h.HandlePostMessage)
	disputeRoutes.Post("/:id/assign", h.HandleAssign)
	disputeRoutes.Post("/:id/request-response", h.HandleRequestResponse)
	disputeRoutes.Post("/:id/resolve", h.HandleResolve)
	disputeRoutes.Post("/:id/close", h.HandleClose)
}

type openDisputeRequest struct {
	OrderID     string `json:"order_id" validate:"required"`
	Reason      string `json:"reason" validate:"required,max=100"`
	Description string `json:"description" validate:"required,max=2000"`
}

// HandleOpen raises a dispute against an order.
func (h *DisputeHandler) HandleOpen(c *fiber.Ctx) error {
	var req openDisputeRequest
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

	dispute, err := h.service.Open(services.OpenDisputeInput{
		OrderID:     req.OrderID,
		RaisedBy:    actorID(c),
		Reason:      req.Reason,
		Description: req.Description,
	})
	if err != nil {
		log.Printf("Error opening dispute on order %s: %v", req.OrderID, err)
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dispute)
}

// HandleGetDispute retrieves a single dispute by its ID.
func (h *DisputeHandler) HandleGetDispute(c *fiber.Ctx) error {
	dispute, err := h.service.GetDispute(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dispute)
}

// HandleGetMessages retrieves the dispute's communication log.
func (h *DisputeHandler) HandleGetMessages(c *fiber.Ctx) error {
	messages, err := h.service.Messages(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(messages)
}

type postMessageRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

// HandlePostMessage appends to the dispute's communication log.
func (h *DisputeHandler) HandlePostMessage(c *fiber.Ctx) error {
	var req postMessageRequest
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

	message, err := h.service.PostMessage(c.Params("id"), actorID(c), req.Message, actorIsAdmin(c))
	if err != nil {
		log.Printf("Error posting message to dispute %s: %v", c.Params("id"), err)
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(message)
}

// HandleAssign puts the authenticated admin on the case.
func (h *DisputeHandler) HandleAssign(c *fiber.Ctx) error {
	dispute, err := h.service.Assign(c.Params("id"), actorID(c), actorIsAdmin(c))
	if err != nil {
		log.Printf("Error assigning dispute %s: %v", c.Params("id"), err)
		return respondError(c, err)
	}
	return c.JSON(dispute)
}

// HandleRequestResponse asks the parties for more information.
func (h *DisputeHandler) HandleRequestResponse(c *fiber.Ctx) error {
	dispute, err := h.service.RequestResponse(c.Params("id"), actorID(c), actorIsAdmin(c))
	if err != nil {
		log.Printf("Error requesting response on dispute %s: %v", c.Params("id"), err)
		return respondError(c, err)
	}
	return c.JSON(dispute)
}

type resolveDisputeRequest struct {
	Status          string `json:"status" validate:"required,oneof=resolved_buyer_favor resolved_seller_favor resolved_mutual"`
	Outcome         string `json:"outcome" validate:"required,oneof=resume cancel complete"`
	AdminNotes      string `json:"admin_notes" validate:"omitempty,max=2000"`
	ResolutionNotes string `json:"resolution_notes" validate:"omitempty,max=2000"`
}

// HandleResolve records the administrative verdict and restores the order.
func (h *DisputeHandler) HandleResolve(c *fiber.Ctx) error {
	var req resolveDisputeRequest
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

	dispute, err := h.service.Resolve(c.Params("id"), actorID(c), actorIsAdmin(c), services.ResolveDisputeInput{
		Status:          models.DisputeStatus(req.Status),
		Outcome:         models.OrderOutcome(req.Outcome),
		AdminNotes:      req.AdminNotes,
		ResolutionNotes: req.ResolutionNotes,
	})
	if err != nil {
		log.Printf("Error resolving dispute %s: %v", c.Params("id"), err)
		return respondError(c, err)
	}
	return c.JSON(dispute)
}

// HandleClose is the terminal administrative action after resolution.
func (h *DisputeHandler) HandleClose(c *fiber.Ctx) error {
	dispute, err := h.service.Close(c.Params("id"), actorID(c), actorIsAdmin(c))
	if err != nil {
		log.Printf("Error closing dispute %s: %v", c.Params("id"), err)
		return respondError(c, err)
	}
	return c.JSON(dispute)
}
