package api

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joacominatel/facade/internal/application"
	"github.com/joacominatel/facade/internal/infrastructure/auth"
	"github.com/joacominatel/facade/internal/infrastructure/logging"
	"github.com/joacominatel/facade/internal/infrastructure/metrics"
)

// WriteScope is the token scope required by write endpoints.
const WriteScope = "notes:write"

// RouterConfig holds dependencies for route registration.
type RouterConfig struct {
	UnitOfWork        UnitOfWork
	CreateNoteUseCase *application.CreateNoteUseCase
	GetNoteUseCase    *application.GetNoteUseCase
	ListNotesUseCase  *application.ListNotesUseCase
	DeleteNoteUseCase *application.DeleteNoteUseCase
	JWTValidator      *auth.JWTValidator
	ReadinessChecks   map[string]ReadinessCheck
	Logger            *logging.Logger
	Metrics           *metrics.Metrics
}

// RegisterRoutes sets up all API routes on the server.
func RegisterRoutes(e *echo.Echo, config RouterConfig) {
	// prometheus metrics endpoint (no auth, standard scraping path)
	if config.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(
			config.Metrics.Registry,
			promhttp.HandlerOpts{
				Registry:          config.Metrics.Registry,
				EnableOpenMetrics: true,
			},
		)))

		// apply metrics middleware to all routes
		e.Use(metrics.Middleware(config.Metrics))
	}

	// every other request runs in its own unit of work; /ready opens its own
	e.Use(UnitOfWorkMiddleware(config.UnitOfWork, PublicRoutesSkipper(
		"/health",
		"/ready",
		"/metrics",
	)))

	// health endpoints (no auth required)
	RegisterHealthRoutes(e, config.ReadinessChecks)

	v1 := e.Group("/api/v1")

	requireAuth := AuthMiddleware(AuthConfig{
		JWTValidator: config.JWTValidator,
		Scope:        WriteScope,
	})

	noteHandler := NewNoteHandler(
		config.CreateNoteUseCase,
		config.GetNoteUseCase,
		config.ListNotesUseCase,
		config.DeleteNoteUseCase,
	)
	noteHandler.RegisterRoutes(v1, requireAuth)

	metricsEnabled := config.Metrics != nil
	config.Logger.Info("api routes registered",
		"version", "v1",
		"health_endpoints", []string{"/health", "/ready"},
		"metrics_enabled", metricsEnabled,
		"api_prefix", "/api/v1",
	)
}
