package middleware

import (
	"strconv"
	"time"

	"learning-platform/backend/metrics"
	"learning-platform/backend/utils"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
)

// MetricsMiddleware records request counts and latency per route pattern.
// Label values outlive the request, so they are copied out of Fiber's
// reusable buffers.
func MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = utils.StatusFor(err)
		}

		route := fiberutils.CopyString(c.Route().Path)
		if route == "" || route == "/" {
			route = "unmatched"
		}
		method := fiberutils.CopyString(c.Method())
		metrics.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
		return err
	}
}
