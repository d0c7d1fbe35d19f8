package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/counseling-api/internal/auth"
	"github.com/noah-isme/counseling-api/internal/middleware"
	"github.com/noah-isme/counseling-api/internal/service"
)

// LiveFeedHandler upgrades authenticated requests to the appointment event websocket.
type LiveFeedHandler struct {
	feed   service.LiveFeed
	logger zerolog.Logger
}

// NewLiveFeedHandler creates a live feed handler.
func NewLiveFeedHandler(feed service.LiveFeed, logger zerolog.Logger) *LiveFeedHandler {
	return &LiveFeedHandler{
		feed:   feed,
		logger: logger.With().Str("component", "live_feed_handler").Logger(),
	}
}

// Register binds the websocket route. Authentication must run before it.
func (h *LiveFeedHandler) Register(router fiber.Router, authenticate fiber.Handler) {
	router.Get("/appointments", TokenFromQuery, authenticate, h.upgrade, websocket.New(h.handleConnection))
}

// TokenFromQuery lets browser websocket clients, which cannot set headers,
// pass their bearer token as ?access_token=.
func TokenFromQuery(c *fiber.Ctx) error {
	if c.Get(fiber.HeaderAuthorization) == "" {
		if token := c.Query("access_token"); token != "" {
			c.Request().Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
		}
	}
	return c.Next()
}

func (h *LiveFeedHandler) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

func (h *LiveFeedHandler) handleConnection(conn *websocket.Conn) {
	principal, ok := conn.Locals(middleware.PrincipalLocalKey).(auth.Principal)
	if !ok {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthenticated"))
		_ = conn.Close()
		return
	}

	log := h.logger.With().
		Uint("user_id", principal.ID).
		Str("role", principal.Role).
		Interface("correlation_id", conn.Locals("correlation_id")).
		Logger()

	log.Info().Msg("live feed websocket connected")
	h.feed.ServeConnection(conn, principal)
	log.Info().Msg("live feed websocket disconnected")
}
