package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/parkgrid/parkgrid-api/internal/metrics"
)

// Metrics records a counter and latency histogram per route.  The registered
// route path is used as the label so /api/vehicles/:id stays one series.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			labels := []string{c.Request().Method, path, strconv.Itoa(status)}
			metrics.HTTPRequestsTotal.WithLabelValues(labels...).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
