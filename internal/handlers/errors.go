package handlers

import (
	"errors"

	"pasar/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// validate checks the request payload structs before anything reaches the
// services.
var validate = validator.New()

// statusForError maps the engine's error taxonomy onto HTTP statuses.
// StaleState and Conflict are expected, recoverable outcomes the client
// should surface for re-evaluation; they share 409.
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrStaleState),
		errors.Is(err, models.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, models.ErrNotEligible):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes the error with its mapped status.
func respondError(c *fiber.Ctx, err error) error {
	return c.Status(statusForError(err)).JSON(fiber.Map{
		"message": err.Error(),
	})
}

// actorID returns the authenticated actor set by the JWT middleware.
func actorID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

// actorIsAdmin returns the admin flag set by the JWT middleware.
func actorIsAdmin(c *fiber.Ctx) bool {
	admin, _ := c.Locals("is_admin").(bool)
	return admin
}
