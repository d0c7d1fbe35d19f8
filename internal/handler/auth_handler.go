package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/counseling-api/internal/auth"
	"github.com/noah-isme/counseling-api/internal/dto"
	"github.com/noah-isme/counseling-api/internal/middleware"
	"github.com/noah-isme/counseling-api/internal/service"
	"github.com/noah-isme/counseling-api/internal/utils"
)

// AuthHandler exposes login, signup and session endpoints.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register attaches the auth routes. optional resolves a bearer token when present so
// admins can create staff accounts through signup; required guards the session routes.
func (h *AuthHandler) Register(router fiber.Router, limit, optional, required fiber.Handler) {
	router.Post("/login", limit, h.login)
	router.Post("/signup", limit, optional, h.signup)

	router.Post("/logout", required, h.logout)
	router.Get("/me", required, h.me)
	router.Put("/change-password", required, h.changePassword)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidPayload(c)
	}

	response, err := h.service.Login(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to login")
	}

	return utils.SendSuccess(c, "login successful", response)
}

func (h *AuthHandler) signup(c *fiber.Ctx) error {
	var payload dto.SignupRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidPayload(c)
	}

	var caller *auth.Principal
	if principal, ok := middleware.PrincipalFromCtx(c); ok {
		caller = &principal
	}

	response, err := h.service.Signup(c.UserContext(), caller, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to sign up")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "account created", response)
}

// logout is stateless; clients discard the token.
func (h *AuthHandler) logout(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "logged out successfully", nil)
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	principal, err := principalFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve principal")
	}

	response, err := h.service.Me(c.UserContext(), principal)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load profile")
	}

	return utils.SendSuccess(c, "profile retrieved", response)
}

func (h *AuthHandler) changePassword(c *fiber.Ctx) error {
	principal, err := principalFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve principal")
	}

	var payload dto.ChangePasswordRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidPayload(c)
	}

	if err := h.service.ChangePassword(c.UserContext(), principal, payload); err != nil {
		return respondError(c, h.logger, err, "failed to change password")
	}

	return utils.SendSuccess(c, "password updated successfully", nil)
}
