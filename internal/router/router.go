package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/counseling-api/internal/config"
	"github.com/noah-isme/counseling-api/internal/handler"
	"github.com/noah-isme/counseling-api/internal/middleware"
	"github.com/noah-isme/counseling-api/internal/models"
	"github.com/noah-isme/counseling-api/internal/observability"
	"github.com/noah-isme/counseling-api/internal/utils"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler          *handler.AuthHandler
	StudentHandler       *handler.StudentHandler
	AppointmentHandler   *handler.AppointmentHandler
	StatsHandler         *handler.StatsHandler
	EmailHandler         *handler.EmailHandler
	ActivityHandler      *handler.ActivityHandler
	LiveFeedHandler      *handler.LiveFeedHandler
	Authenticate         fiber.Handler
	OptionalAuthenticate fiber.Handler
	LoginLimiter         fiber.Handler
	HealthProbes         map[string]handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	authenticate := deps.Authenticate
	if authenticate == nil {
		authenticate = denyAnonymous
	}
	optional := deps.OptionalAuthenticate
	if optional == nil {
		optional = passThrough
	}
	limiter := deps.LoginLimiter
	if limiter == nil {
		limiter = passThrough
	}

	staff := middleware.RequireRole(models.RoleAdmin, models.RoleCounsellor)
	self := middleware.RequireRole(models.RoleStudent)

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"), limiter, optional, authenticate)
	}

	if deps.StudentHandler != nil {
		students := api.Group("/students", authenticate)
		if deps.StatsHandler != nil {
			students.Get("/stats/overview", staff, deps.StatsHandler.StudentOverview)
		}
		deps.StudentHandler.Register(students, self, staff)
	}

	if deps.AppointmentHandler != nil {
		deps.AppointmentHandler.Register(api.Group("/appointments", authenticate), staff)
	}

	if deps.StatsHandler != nil {
		deps.StatsHandler.Register(api.Group("/stats", authenticate), staff)
	}

	if deps.EmailHandler != nil {
		deps.EmailHandler.Register(api.Group("/email", authenticate))
	}

	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(api.Group("/activity", authenticate, staff))
	}

	if deps.LiveFeedHandler != nil {
		deps.LiveFeedHandler.Register(api.Group("/live"), authenticate)
	}
}

func passThrough(c *fiber.Ctx) error {
	return c.Next()
}

func denyAnonymous(c *fiber.Ctx) error {
	return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
}
