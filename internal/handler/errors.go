package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/counseling-api/internal/middleware"
	"github.com/noah-isme/counseling-api/internal/utils"
)

// ErrorHandler renders errors that escaped the handlers. Outside production the
// underlying message is returned to ease debugging.
func ErrorHandler(logger zerolog.Logger, production bool) fiber.ErrorHandler {
	log := logger.With().Str("component", "error_handler").Logger()

	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return utils.SendError(c, fiberErr.Code, fiberErr.Message)
		}

		log.Error().Err(err).
			Str("correlation_id", middleware.GetCorrelationID(c)).
			Str("path", c.Path()).
			Msg("unhandled request error")

		if production {
			return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
		}
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}
}
