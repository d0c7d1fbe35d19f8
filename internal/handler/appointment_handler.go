package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/counseling-api/internal/auth"
	"github.com/noah-isme/counseling-api/internal/dto"
	"github.com/noah-isme/counseling-api/internal/service"
	"github.com/noah-isme/counseling-api/internal/utils"
)

// AppointmentHandler exposes appointment booking and lifecycle endpoints.
type AppointmentHandler struct {
	service service.AppointmentService
	logger  zerolog.Logger
}

// NewAppointmentHandler constructs the handler.
func NewAppointmentHandler(service service.AppointmentService, logger zerolog.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
		logger:  logger.With().Str("component", "appointment_handler").Logger(),
	}
}

// Register attaches appointment routes. staff guards the counsellor-only actions.
func (h *AppointmentHandler) Register(router fiber.Router, staff fiber.Handler) {
	router.Get("", h.list)
	router.Post("", h.request)
	router.Get("/status/pending", staff, h.pending)
	router.Get("/:id", h.get)
	router.Put("/:id", staff, h.update)
	router.Delete("/:id", staff, h.delete)

	router.Patch("/:id/cancel", h.cancel)
	router.Patch("/:id/reschedule", h.reschedule)
	router.Patch("/:id/feedback", h.feedback)

	router.Patch("/:id/confirm", staff, h.confirm)
	router.Patch("/:id/start", staff, h.start)
	router.Patch("/:id/complete", staff, h.complete)
	router.Patch("/:id/no-show", staff, h.noShow)
	router.Patch("/:id/status", staff, h.markStatus)
}

func (h *AppointmentHandler) list(c *fiber.Ctx) error {
	principal, err := principalFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve principal")
	}

	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	req := dto.AppointmentListRequest{
		Page:      page,
		Limit:     limit,
		Search:    c.Query("search"),
		Status:    c.Query("status"),
		Type:      c.Query("type"),
		Priority:  c.Query("priority"),
		Date:      c.Query("date"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}

	response, err := h.service.List(c.UserContext(), principal, req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list appointments")
	}

	return utils.SendSuccess(c, "appointments retrieved", response)
}

func (h *AppointmentHandler) pending(c *fiber.Ctx) error {
	principal, err := principalFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve principal")
	}

	appointments, err := h.service.ListPending(c.UserContext(), principal)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list pending appointments")
	}

	return utils.SendSuccess(c, "pending appointments retrieved", appointments)
}

func (h *AppointmentHandler) get(c *fiber.Ctx) error {
	principal, err := principalFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve principal")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c)
	}

	appointment, err := h.service.Get(c.UserContext(), principal, id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch appointment")
	}

	c.Set(fiber.HeaderETag, etag(appointment.Version))
	return utils.SendSuccess(c, "appointment retrieved", appointment)
}

func (h *AppointmentHandler) request(c *fiber.Ctx) error {
	principal, err := principalFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve principal")
	}

	var payload dto.AppointmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidPayload(c)
	}

	appointment, err := h.service.Request(c.UserContext(), principal, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to request appointment")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "appointment requested successfully", appointment)
}

func (h *AppointmentHandler) update(c *fiber.Ctx) error {
	var payload dto.AppointmentUpdateRequest
	return h.mutate(c, &payload, &payload.Version, "appointment updated", func(principal auth.Principal, id uint) (dto.AppointmentResponse, error) {
		return h.service.Update(c.UserContext(), principal, id, payload)
	})
}

func (h *AppointmentHandler) confirm(c *fiber.Ctx) error {
	var payload dto.ConfirmAppointmentRequest
	return h.mutate(c, &payload, &payload.Version, "appointment confirmed successfully", func(principal auth.Principal, id uint) (dto.AppointmentResponse, error) {
		return h.service.Confirm(c.UserContext(), principal, id, payload)
	})
}

func (h *AppointmentHandler) start(c *fiber.Ctx) error {
	var payload dto.TransitionRequest
	return h.mutate(c, &payload, &payload.Version, "appointment started", func(principal auth.Principal, id uint) (dto.AppointmentResponse, error) {
		return h.service.Start(c.UserContext(), principal, id, payload)
	})
}

func (h *AppointmentHandler) complete(c *fiber.Ctx) error {
	var payload dto.CompleteAppointmentRequest
	return h.mutate(c, &payload, &payload.Version, "appointment completed successfully", func(principal auth.Principal, id uint) (dto.AppointmentResponse, error) {
		return h.service.Complete(c.UserContext(), principal, id, payload)
	})
}

func (h *AppointmentHandler) noShow(c *fiber.Ctx) error {
	var payload dto.TransitionRequest
	return h.mutate(c, &payload, &payload.Version, "appointment marked as no-show", func(principal auth.Principal, id uint) (dto.AppointmentResponse, error) {
		return h.service.MarkNoShow(c.UserContext(), principal, id, payload)
	})
}

func (h *AppointmentHandler) cancel(c *fiber.Ctx) error {
	var payload dto.CancelAppointmentRequest
	return h.mutate(c, &payload, &payload.Version, "appointment cancelled", func(principal auth.Principal, id uint) (dto.AppointmentResponse, error) {
		return h.service.Cancel(c.UserContext(), principal, id, payload)
	})
}

func (h *AppointmentHandler) reschedule(c *fiber.Ctx) error {
	var payload dto.RescheduleAppointmentRequest
	return h.mutate(c, &payload, &payload.Version, "appointment rescheduled", func(principal auth.Principal, id uint) (dto.AppointmentResponse, error) {
		return h.service.Reschedule(c.UserContext(), principal, id, payload)
	})
}

func (h *AppointmentHandler) markStatus(c *fiber.Ctx) error {
	var payload dto.StatusOverrideRequest
	return h.mutate(c, &payload, &payload.Version, "appointment status updated successfully", func(principal auth.Principal, id uint) (dto.AppointmentResponse, error) {
		return h.service.MarkStatus(c.UserContext(), principal, id, payload)
	})
}

func (h *AppointmentHandler) feedback(c *fiber.Ctx) error {
	var payload dto.FeedbackRequest
	return h.mutate(c, &payload, &payload.Version, "feedback submitted", func(principal auth.Principal, id uint) (dto.AppointmentResponse, error) {
		return h.service.SubmitFeedback(c.UserContext(), principal, id, payload)
	})
}

func (h *AppointmentHandler) delete(c *fiber.Ctx) error {
	principal, err := principalFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve principal")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c)
	}

	if err := h.service.Delete(c.UserContext(), principal, id); err != nil {
		return respondError(c, h.logger, err, "failed to delete appointment")
	}

	return utils.SendSuccess(c, "appointment deleted successfully", fiber.Map{"id": id})
}

// mutate decodes an optional body, merges If-Match into the expected version and runs fn.
func (h *AppointmentHandler) mutate(c *fiber.Ctx, payload interface{}, version **int, message string, fn func(principal auth.Principal, id uint) (dto.AppointmentResponse, error)) error {
	principal, err := principalFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve principal")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c)
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(payload); err != nil {
			return invalidPayload(c)
		}
	}
	if err := withIfMatch(c, version); err != nil {
		return respondError(c, h.logger, err, "invalid version header")
	}

	appointment, err := fn(principal, id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update appointment")
	}

	c.Set(fiber.HeaderETag, etag(appointment.Version))
	return utils.SendSuccess(c, message, appointment)
}
