package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/joacominatel/facade/internal/unitofwork"
)

const readinessTimeout = 3 * time.Second

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// ReadinessCheck reports whether one dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// PingableSession is a session that can check its connection.
type PingableSession interface {
	unitofwork.Session
	Ping(ctx context.Context) error
}

// UnitOfWorkCheck opens a unit of work and pings its session, so readiness
// covers the whole open, use, close path.
func UnitOfWorkCheck[S PingableSession](uow *unitofwork.Facade[S]) ReadinessCheck {
	return func(ctx context.Context) error {
		return uow.RunInUnitOfWork(ctx, func(ctx context.Context) error {
			session, err := unitofwork.CurrentSession(ctx, uow)
			if err != nil {
				return err
			}
			return session.Ping(ctx)
		})
	}
}

type healthHandler struct {
	checks map[string]ReadinessCheck
}

// RegisterHealthRoutes registers health check endpoints.
// these are public and don't require authentication.
func RegisterHealthRoutes(e *echo.Echo, checks map[string]ReadinessCheck) {
	h := &healthHandler{checks: checks}
	e.GET("/health", h.health)
	e.GET("/ready", h.ready)
}

// health returns the basic health status.
// used for liveness probes.
func (h *healthHandler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: "facade",
	})
}

// ready runs every readiness check. used for readiness probes.
func (h *healthHandler) ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	status := http.StatusOK
	resp := HealthResponse{Status: "ready", Service: "facade", Checks: map[string]string{}}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	return c.JSON(status, resp)
}
