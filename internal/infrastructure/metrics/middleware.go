package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// unmatchedRoute labels requests that hit no registered route, so scanners
// probing random paths cannot blow up label cardinality.
const unmatchedRoute = "unmatched"

// Middleware records the duration of every request by method, route pattern
// and final status. A handler error is handed to echo's error handler first,
// so the status is the one the client received.
func Middleware(m *Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = unmatchedRoute
			}
			m.RecordHTTPRequest(
				c.Request().Method,
				route,
				strconv.Itoa(c.Response().Status),
				time.Since(start).Seconds(),
			)
			return nil
		}
	}
}
