package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/counseling-api/internal/dto"
	"github.com/noah-isme/counseling-api/internal/service"
	"github.com/noah-isme/counseling-api/internal/utils"
)

// EmailHandler exposes the manual notification endpoints.
type EmailHandler struct {
	service service.NotificationService
	logger  zerolog.Logger
}

// NewEmailHandler constructs the handler.
func NewEmailHandler(service service.NotificationService, logger zerolog.Logger) *EmailHandler {
	return &EmailHandler{
		service: service,
		logger:  logger.With().Str("component", "email_handler").Logger(),
	}
}

// Register attaches email routes.
func (h *EmailHandler) Register(router fiber.Router) {
	router.Post("/appointment-confirmation", h.confirmation)
	router.Post("/reminder", h.reminder)
	router.Post("/follow-up", h.followUp)
	router.Post("/test", h.test)
}

func (h *EmailHandler) confirmation(c *fiber.Ctx) error {
	principal, err := principalFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve principal")
	}

	var payload dto.AppointmentEmailRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidPayload(c)
	}

	result, err := h.service.SendConfirmation(c.UserContext(), principal, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to send confirmation email")
	}

	return utils.SendSuccess(c, "appointment confirmation email sent successfully", result)
}

func (h *EmailHandler) reminder(c *fiber.Ctx) error {
	principal, err := principalFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve principal")
	}

	var payload dto.AppointmentEmailRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidPayload(c)
	}

	result, err := h.service.SendReminder(c.UserContext(), principal, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to send reminder email")
	}

	return utils.SendSuccess(c, "reminder email sent successfully", result)
}

func (h *EmailHandler) followUp(c *fiber.Ctx) error {
	principal, err := principalFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve principal")
	}

	var payload dto.FollowUpEmailRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidPayload(c)
	}

	result, err := h.service.SendFollowUp(c.UserContext(), principal, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to send follow-up email")
	}

	return utils.SendSuccess(c, "follow-up email sent successfully", result)
}

func (h *EmailHandler) test(c *fiber.Ctx) error {
	status := h.service.TestTransport(c.UserContext())
	if !status.Healthy {
		return c.Status(fiber.StatusBadGateway).JSON(utils.APIResponse{
			Success: false,
			Message: "email transport check failed",
			Data:    status,
		})
	}

	return utils.SendSuccess(c, "email configuration is working", status)
}
