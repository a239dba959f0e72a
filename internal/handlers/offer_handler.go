package handlers

import (
	"log"

	"pasar/internal/models"
	"pasar/internal/services"

	"github.com/gofiber/fiber/v2"
)

// OfferHandler handles HTTP requests for offer negotiation.
type OfferHandler struct {
	service *services.OfferService
}

// NewOfferHandler creates a new OfferHandler.
func NewOfferHandler(service *services.OfferService) *OfferHandler {
	return &OfferHandler{
		service: service,
	}
}

// RegisterRoutes registers the offer routes with the Fiber app.
func (h *OfferHandler) RegisterRoutes(router fiber.Router) {
	offerRoutes := router.Group("/offers")
	offerRoutes.Post("/", h.HandlePropose)
	offerRoutes.Get("/:id", h.HandleGetOffer)
	offerRoutes.Get("/:id/chain", h.HandleGetChain)
	offerRoutes.Get("/:id/order", h.HandleGetOrder)
	offerRoutes.Post("/:id/respond", h.HandleRespond)
	offerRoutes.Post("/:id/accept-counter", h.HandleAcceptCounter)
	offerRoutes.Post("/:id/withdraw", h.HandleWithdraw)
	offerRoutes.Post("/:id/pay", h.HandleMarkPaid)
	// Invoked by the external scheduler tick; idempotent.
	offerRoutes.Post("/:id/expire", h.HandleExpire)
}

type proposeOfferRequest struct {
	ListingID string  `json:"listing_id" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Message   string  `json:"message" validate:"omitempty,max=1000"`
}

// HandlePropose creates a new pending offer from the authenticated buyer.
func (h *OfferHandler) HandlePropose(c *fiber.Ctx) error {
	var req proposeOfferRequest
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

	offer, err := h.service.Propose(services.ProposeOfferInput{
		ListingID: req.ListingID,
		BuyerID:   actorID(c),
		Amount:    req.Amount,
		Message:   req.Message,
	})
	if err != nil {
		log.Printf("Error proposing offer: %v", err)
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(offer)
}

// HandleGetOffer retrieves a single offer by its ID.
func (h *OfferHandler) HandleGetOffer(c *fiber.Ctx) error {
	offer, err := h.service.GetOffer(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(offer)
}

// HandleGetChain retrieves the offer plus its counter-offer ancestry.
func (h *OfferHandler) HandleGetChain(c *fiber.Ctx) error {
	chain, err := h.service.GetNegotiationChain(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(chain)
}

// HandleGetOrder retrieves the order bound to an accepted offer.
func (h *OfferHandler) HandleGetOrder(c *fiber.Ctx) error {
	order, err := h.service.GetOrderForOffer(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}

type respondOfferRequest struct {
	Action         string   `json:"action" validate:"required,oneof=accept decline counter"`
	CounterAmount  *float64 `json:"counter_amount" validate:"omitempty,gt=0"`
	CounterMessage string   `json:"counter_message" validate:"omitempty,max=1000"`
}

// HandleRespond is the seller's accept/decline/counter on a pending offer.
func (h *OfferHandler) HandleRespond(c *fiber.Ctx) error {
	var req respondOfferRequest
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

	offer, err := h.service.Respond(c.Params("id"), actorID(c), services.RespondAction(req.Action), req.CounterAmount, req.CounterMessage)
	if err != nil {
		log.Printf("Error responding to offer %s: %v", c.Params("id"), err)
		return respondError(c, err)
	}
	return c.JSON(offer)
}

// HandleAcceptCounter is the buyer accepting the seller's counter-offer.
func (h *OfferHandler) HandleAcceptCounter(c *fiber.Ctx) error {
	offer, err := h.service.AcceptCounter(c.Params("id"), actorID(c))
	if err != nil {
		log.Printf("Error accepting counter on offer %s: %v", c.Params("id"), err)
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(offer)
}

// HandleWithdraw retires the buyer's own offer.
func (h *OfferHandler) HandleWithdraw(c *fiber.Ctx) error {
	offer, err := h.service.Withdraw(c.Params("id"), actorID(c))
	if err != nil {
		log.Printf("Error withdrawing offer %s: %v", c.Params("id"), err)
		return respondError(c, err)
	}
	return c.JSON(offer)
}

// HandleMarkPaid records the payment acknowledgement on an accepted offer.
func (h *OfferHandler) HandleMarkPaid(c *fiber.Ctx) error {
	offer, err := h.service.MarkPaid(c.Params("id"), actorID(c))
	if err != nil {
		log.Printf("Error marking offer %s paid: %v", c.Params("id"), err)
		return respondError(c, err)
	}
	return c.JSON(offer)
}

// HandleExpire retires a stale offer. Idempotent: an offer that already
// progressed is returned unchanged.
func (h *OfferHandler) HandleExpire(c *fiber.Ctx) error {
	if !actorIsAdmin(c) {
		return respondError(c, models.ErrForbidden)
	}
	offer, err := h.service.ExpireIfStale(c.Params("id"))
	if err != nil {
		log.Printf("Error expiring offer %s: %v", c.Params("id"), err)
		return respondError(c, err)
	}
	return c.JSON(offer)
}
