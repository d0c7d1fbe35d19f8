package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/counseling-api/internal/auth"
	"github.com/noah-isme/counseling-api/internal/service"
	"github.com/noah-isme/counseling-api/internal/utils"
)

// PrincipalLocalKey is the fiber.Locals key holding the resolved auth.Principal.
const PrincipalLocalKey = "principal"

// TokenResolver turns a bearer token into a freshly loaded principal.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (auth.Principal, error)
}

// Authenticate rejects requests without a valid bearer token for an active account.
func Authenticate(resolver TokenResolver, logger zerolog.Logger) fiber.Handler {
	return authenticate(resolver, logger, true)
}

// OptionalAuthenticate resolves the principal when a token is supplied and lets anonymous requests through.
func OptionalAuthenticate(resolver TokenResolver, logger zerolog.Logger) fiber.Handler {
	return authenticate(resolver, logger, false)
}

func authenticate(resolver TokenResolver, logger zerolog.Logger, required bool) fiber.Handler {
	log := logger.With().Str("component", "auth_middleware").Logger()

	return func(c *fiber.Ctx) error {
		token, present := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !present {
			if required {
				return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
			}
			return c.Next()
		}
		if token == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		principal, err := resolver.ResolveToken(c.UserContext(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				return utils.SendError(c, fiber.StatusUnauthorized, "token expired")
			case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, service.ErrUnauthenticated):
				return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
			default:
				log.Error().Err(err).Str("correlation_id", GetCorrelationID(c)).Msg("failed to resolve principal")
				return utils.SendError(c, fiber.StatusInternalServerError, "unable to authenticate request")
			}
		}

		c.Locals(PrincipalLocalKey, principal)
		c.Locals("user_id", principal.ID)
		c.Locals("user_role", principal.Role)
		c.SetUserContext(auth.WithPrincipal(c.UserContext(), principal))

		return c.Next()
	}
}

// PrincipalFromCtx returns the principal bound by Authenticate.
func PrincipalFromCtx(c *fiber.Ctx) (auth.Principal, bool) {
	if c == nil {
		return auth.Principal{}, false
	}
	if principal, ok := c.Locals(PrincipalLocalKey).(auth.Principal); ok {
		return principal, true
	}
	return auth.FromContext(c.UserContext())
}

// bearerToken reports whether an Authorization header was sent and extracts its token.
func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}

	const bearer = "bearer "
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", true
	}
	return strings.TrimSpace(header[len(bearer):]), true
}
