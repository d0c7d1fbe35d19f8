package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/noah-isme/counseling-api/internal/observability"
)

const (
	correlationHeader      = "X-Correlation-ID"
	requestIDHeader        = "X-Request-ID"
	correlationIDLocalsKey = "correlation_id"
)

// CorrelationID tags each request with an id taken from X-Correlation-ID,
// then X-Request-ID, else a fresh UUID. The id is echoed back, stored in
// locals for the request logger and carried on the user context so services
// can log it from background work.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(correlationHeader))
		if id == "" {
			id = strings.TrimSpace(c.Get(requestIDHeader))
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(correlationIDLocalsKey, id)
		c.Set(correlationHeader, id)
		c.SetUserContext(observability.WithCorrelationID(c.UserContext(), id))

		return c.Next()
	}
}

// GetCorrelationID returns the id bound to the request, if any.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(correlationIDLocalsKey).(string); ok {
		return id
	}
	return observability.CorrelationID(c.UserContext())
}
