package handler_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/counseling-api/internal/config"
	"github.com/noah-isme/counseling-api/internal/handler"
)

func TestHealthCheck(t *testing.T) {
	cfg := config.Config{AppName: "Counseling API", AppEnv: "test"}

	t.Run("healthy", func(t *testing.T) {
		app := fiber.New()
		app.Get("/health", handler.HealthCheck(cfg, map[string]handler.HealthProbe{
			"database": func(context.Context) error { return nil },
		}))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("degraded", func(t *testing.T) {
		app := fiber.New()
		app.Get("/health", handler.HealthCheck(cfg, map[string]handler.HealthProbe{
			"database": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		}))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), `"redis":"down"`)
		require.Contains(t, string(body), `"database":"up"`)
	})
}

func TestErrorHandlerHidesDetailsInProduction(t *testing.T) {
	cases := []struct {
		name       string
		production bool
		expected   string
	}{
		{name: "production", production: true, expected: "internal server error"},
		{name: "development", production: false, expected: "load appointment: disk on fire"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: handler.ErrorHandler(zerolog.Nop(), tc.production)})
			app.Get("/boom", func(c *fiber.Ctx) error {
				return errors.New("load appointment: disk on fire")
			})
			app.Get("/teapot", func(c *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTeapot, "short and stout")
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
			require.NoError(t, err)
			require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			require.Contains(t, string(body), tc.expected)

			resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/teapot", nil))
			require.NoError(t, err)
			require.Equal(t, fiber.StatusTeapot, resp.StatusCode)
		})
	}
}

func TestMetricsEndpointIsExposed(t *testing.T) {
	server := newTestServer(t)
	server.do(t, http.MethodGet, "/api/health", "", nil)

	resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "api_requests_total")
}
