package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/counseling-api/internal/auth"
	"github.com/noah-isme/counseling-api/internal/middleware"
	"github.com/noah-isme/counseling-api/internal/service"
	"github.com/noah-isme/counseling-api/internal/utils"
)

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	raw := strings.TrimSpace(c.Params(key))
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(value), nil
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func principalFromContext(c *fiber.Ctx) (auth.Principal, error) {
	principal, ok := middleware.PrincipalFromCtx(c)
	if !ok {
		return auth.Principal{}, service.ErrUnauthenticated
	}
	return principal, nil
}

// withIfMatch fills the expected version from the If-Match header when the body left it empty.
func withIfMatch(c *fiber.Ctx, version **int) error {
	if *version != nil {
		return nil
	}
	raw := strings.TrimSpace(c.Get(fiber.HeaderIfMatch))
	if raw == "" {
		return nil
	}
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return service.ErrInvalidVersionHeader
	}
	*version = &parsed
	return nil
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// respondError maps service errors onto the response envelope. Unknown errors are
// logged and handed to the application error handler.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error, action string) error {
	var validationErrors validator.ValidationErrors
	var fieldErr *service.ValidationError
	var transitionErr *service.TransitionError

	switch {
	case errors.As(err, &validationErrors):
		return utils.SendErrorWithDetails(c, fiber.StatusBadRequest, "validation failed", service.FieldErrors(validationErrors))
	case errors.As(err, &fieldErr):
		return utils.SendErrorWithDetails(c, fiber.StatusBadRequest, "validation failed", fieldErr.Fields)
	case errors.As(err, &transitionErr):
		return utils.SendError(c, fiber.StatusConflict, transitionErr.Error())
	case errors.Is(err, service.ErrInvalidVersionHeader):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrStudentNotFound),
		errors.Is(err, service.ErrAdminNotFound),
		errors.Is(err, service.ErrAppointmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrDuplicateEmail),
		errors.Is(err, service.ErrVersionConflict),
		errors.Is(err, service.ErrFeedbackNotAllowed):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUnauthenticated),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAccountNotProvisioned),
		errors.Is(err, service.ErrAccountInactive):
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotificationFailure):
		requestLogger(logger, c).Warn().Err(err).Msg(action)
		return utils.SendError(c, fiber.StatusBadGateway, err.Error())
	default:
		requestLogger(logger, c).Error().Err(err).Msg(action)
		return fmt.Errorf("%s: %w", action, err)
	}
}

func invalidPayload(c *fiber.Ctx) error {
	return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
}

func invalidIdentifier(c *fiber.Ctx) error {
	return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
}

func etag(version int) string {
	return `"` + strconv.Itoa(version) + `"`
}
