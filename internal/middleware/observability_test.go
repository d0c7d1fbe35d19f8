package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/counseling-api/internal/observability"
)

func TestObservabilityCountsAPIRequests(t *testing.T) {
	app := fiber.New()
	app.Use(Observability(zerolog.Nop()))
	app.Get("/api/widgets/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})
	app.Get("/metrics-probe", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	requests := observability.APIRequests().WithLabelValues(http.MethodGet, "/api/widgets/:id", "404")
	errorsCounter := observability.APIErrors().WithLabelValues(http.MethodGet, "/api/widgets/:id", "404")
	beforeRequests := testutil.ToFloat64(requests)
	beforeErrors := testutil.ToFloat64(errorsCounter)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/widgets/7", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics-probe", nil), -1)
	require.NoError(t, err)

	require.Equal(t, beforeRequests+1, testutil.ToFloat64(requests))
	require.Equal(t, beforeErrors+1, testutil.ToFloat64(errorsCounter))
}

func TestLatencyBucket(t *testing.T) {
	require.Equal(t, "<=25ms", latencyBucket(10*time.Millisecond))
	require.Equal(t, "<=250ms", latencyBucket(200*time.Millisecond))
	require.Equal(t, ">500ms", latencyBucket(time.Second))
}
