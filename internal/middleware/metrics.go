package middleware

import (
	"strconv"
	"time"

	"github.com/case-conductor/backend/internal/metrics"
	"github.com/gofiber/fiber/v2"
)

// MetricsMiddleware records request counts and latency labelled by the
// matched route pattern, so ids in paths do not multiply series.
func MetricsMiddleware(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		if route == "" || route == "/" {
			route = "unmatched"
		}

		m.HTTPRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}
