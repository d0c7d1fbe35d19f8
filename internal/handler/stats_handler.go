package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/counseling-api/internal/service"
	"github.com/noah-isme/counseling-api/internal/utils"
)

// StatsHandler serves dashboard statistics.
type StatsHandler struct {
	service service.StatsService
	logger  zerolog.Logger
}

// NewStatsHandler constructs the handler.
func NewStatsHandler(service service.StatsService, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		service: service,
		logger:  logger.With().Str("component", "stats_handler").Logger(),
	}
}

// Register attaches the statistics routes.
func (h *StatsHandler) Register(router fiber.Router, staff fiber.Handler) {
	router.Get("/dashboard", h.dashboard)
	router.Get("/students", staff, h.students)
	router.Get("/appointments", h.appointments)
	router.Get("/calendar", h.calendar)
}

// StudentOverview is mounted under /students/stats/overview for older clients.
func (h *StatsHandler) StudentOverview(c *fiber.Ctx) error {
	return h.students(c)
}

func (h *StatsHandler) dashboard(c *fiber.Ctx) error {
	principal, err := principalFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve principal")
	}

	stats, err := h.service.Dashboard(c.UserContext(), principal)
	if err != nil {
		return respondError(c, h.logger, err, "failed to build dashboard stats")
	}

	return utils.SendSuccess(c, "dashboard stats retrieved", stats)
}

func (h *StatsHandler) students(c *fiber.Ctx) error {
	principal, err := principalFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve principal")
	}

	stats, err := h.service.Students(c.UserContext(), principal)
	if err != nil {
		return respondError(c, h.logger, err, "failed to build student stats")
	}

	return utils.SendSuccess(c, "student stats retrieved", stats)
}

func (h *StatsHandler) appointments(c *fiber.Ctx) error {
	principal, err := principalFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve principal")
	}

	stats, err := h.service.Appointments(c.UserContext(), principal)
	if err != nil {
		return respondError(c, h.logger, err, "failed to build appointment stats")
	}

	return utils.SendSuccess(c, "appointment stats retrieved", stats)
}

func (h *StatsHandler) calendar(c *fiber.Ctx) error {
	principal, err := principalFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve principal")
	}

	year, err := parseQueryInt(c, "year")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid year")
	}
	month, err := parseQueryInt(c, "month")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid month")
	}

	calendar, err := h.service.Calendar(c.UserContext(), principal, year, month)
	if err != nil {
		return respondError(c, h.logger, err, "failed to build calendar")
	}

	return utils.SendSuccess(c, "calendar retrieved", calendar)
}
