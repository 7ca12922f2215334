package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"appraisal_backend/internal/valuation"
)

var engine *valuation.Engine

// Init wires the valuation engine into the handlers. Must run before the
// routes are registered.
func Init(e *valuation.Engine) {
	engine = e
}

// respondError maps engine errors onto HTTP responses. Anything outside
// the known taxonomy is logged and reported as a generic internal error.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, valuation.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Record not found",
		})
	case errors.Is(err, valuation.ErrDuplicate):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Record already exists",
		})
	case errors.Is(err, valuation.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	case errors.Is(err, valuation.ErrSyncFailed):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update records",
		})
	default:
		zap.L().Error("request failed",
			zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
}
