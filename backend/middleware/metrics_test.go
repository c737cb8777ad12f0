package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsLabelsSurviveRequests(t *testing.T) {
	app := fiber.New()
	app.Use(MetricsMiddleware())
	app.Get("/lessons", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Post("/lessons", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })
	app.Delete("/lessons/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	requests := []struct{ method, path string }{
		{http.MethodGet, "/lessons"},
		{http.MethodPost, "/lessons"},
		{http.MethodDelete, "/lessons/1"},
		{http.MethodGet, "/lessons"},
		{http.MethodDelete, "/lessons/2"},
		{http.MethodPost, "/lessons"},
		{http.MethodGet, "/missing/" + strings.Repeat("x", 40)},
	}
	for _, r := range requests {
		resp, err := app.Test(httptest.NewRequest(r.method, r.path, nil), -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, family := range families {
		if family.GetName() != "learning_http_requests_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			counts[labels["method"]+" "+labels["route"]+" "+labels["status"]] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(2), counts["GET /lessons 200"])
	assert.Equal(t, float64(2), counts["POST /lessons 201"])
	assert.Equal(t, float64(2), counts["DELETE /lessons/:id 204"])
}
