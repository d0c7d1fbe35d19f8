package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/counseling-api/internal/dto"
	"github.com/noah-isme/counseling-api/internal/service"
	"github.com/noah-isme/counseling-api/internal/utils"
)

// StudentHandler serves student profile and roster endpoints.
type StudentHandler struct {
	service service.StudentService
	logger  zerolog.Logger
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(service service.StudentService, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		service: service,
		logger:  logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register attaches student routes. self guards the profile routes and staff the roster routes.
func (h *StudentHandler) Register(router fiber.Router, self, staff fiber.Handler) {
	router.Get("/me", self, h.getOwn)
	router.Put("/me", self, h.updateOwn)

	router.Get("", staff, h.list)
	router.Post("", staff, h.create)
	router.Get("/:id", staff, h.get)
	router.Put("/:id", staff, h.update)
	router.Delete("/:id", staff, h.delete)
	router.Post("/:id/notes", staff, h.addNote)
}

func (h *StudentHandler) getOwn(c *fiber.Ctx) error {
	principal, err := principalFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve principal")
	}

	profile, err := h.service.GetOwnProfile(c.UserContext(), principal)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load profile")
	}

	return utils.SendSuccess(c, "profile retrieved", profile)
}

func (h *StudentHandler) updateOwn(c *fiber.Ctx) error {
	principal, err := principalFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve principal")
	}

	var payload dto.StudentProfileRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidPayload(c)
	}

	profile, err := h.service.UpdateOwnProfile(c.UserContext(), principal, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update profile")
	}

	return utils.SendSuccess(c, "profile updated", profile)
}

func (h *StudentHandler) list(c *fiber.Ctx) error {
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

	req := dto.StudentListRequest{
		Page:      page,
		Limit:     limit,
		Search:    c.Query("search"),
		Status:    c.Query("status"),
		RiskLevel: c.Query("riskLevel"),
		Class:     c.Query("class"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}

	response, err := h.service.List(c.UserContext(), principal, req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list students")
	}

	return utils.SendSuccess(c, "students retrieved", response)
}

func (h *StudentHandler) get(c *fiber.Ctx) error {
	principal, err := principalFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve principal")
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c)
	}

	student, err := h.service.Get(c.UserContext(), principal, id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch student")
	}

	return utils.SendSuccess(c, "student retrieved", student)
}

func (h *StudentHandler) create(c *fiber.Ctx) error {
	principal, err := principalFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve principal")
	}

	var payload dto.StudentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidPayload(c)
	}

	student, err := h.service.Create(c.UserContext(), principal, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create student")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "student created", student)
}

func (h *StudentHandler) update(c *fiber.Ctx) error {
	principal, err := principalFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve principal")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c)
	}

	var payload dto.StudentAdminRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidPayload(c)
	}

	student, err := h.service.Update(c.UserContext(), principal, id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update student")
	}

	return utils.SendSuccess(c, "student updated", student)
}

func (h *StudentHandler) delete(c *fiber.Ctx) error {
	principal, err := principalFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve principal")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c)
	}

	if err := h.service.Delete(c.UserContext(), principal, id); err != nil {
		return respondError(c, h.logger, err, "failed to delete student")
	}

	return utils.SendSuccess(c, "student deleted", fiber.Map{"id": id})
}

func (h *StudentHandler) addNote(c *fiber.Ctx) error {
	principal, err := principalFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve principal")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return invalidIdentifier(c)
	}

	var payload dto.CounselingNoteRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidPayload(c)
	}

	note, err := h.service.AddNote(c.UserContext(), principal, id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to add note")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "note added", note)
}
