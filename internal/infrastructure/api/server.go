package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/joacominatel/facade/internal/infrastructure/logging"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// RequestTimeout is applied to the request context, so a unit of work
	// opened for the request inherits the deadline. Zero disables it.
	RequestTimeout time.Duration
	// BodyLimit caps request bodies, e.g. "64K". Empty disables it.
	BodyLimit string
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            ":8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RequestTimeout:  30 * time.Second,
		BodyLimit:       "64K",
	}
}

// Server wraps the Echo instance and provides lifecycle management.
type Server struct {
	echo   *echo.Echo
	config ServerConfig
	logger *logging.Logger
}

// NewServer creates a new HTTP server with Echo.
func NewServer(config ServerConfig, logger *logging.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	if config.BodyLimit != "" {
		e.Use(middleware.BodyLimit(config.BodyLimit))
	}
	if config.RequestTimeout > 0 {
		e.Use(middleware.ContextTimeout(config.RequestTimeout))
	}

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.HTTPErrorHandler = errorHandler(logger)

	return &Server{
		echo:   e,
		config: config,
		logger: logger.WithComponent("http_server"),
	}
}

// Echo returns the underlying Echo instance for route registration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start begins listening for HTTP requests.
// blocks until the server is stopped.
func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"port", s.config.Port,
		"request_timeout", s.config.RequestTimeout.String(),
		"body_limit", s.config.BodyLimit,
	)

	server := &http.Server{
		Addr:         s.config.Port,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	if err := s.echo.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server. In-flight requests finish, and with
// them the units of work they opened.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.echo.Shutdown(ctx)
}

// requestLogger logs one line per request; failed requests log at warn.
func requestLogger(logger *logging.Logger) echo.MiddlewareFunc {
	l := logger.WithComponent("http")

	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogLatency:  true,
		LogMethod:   true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level, msg := slog.LevelInfo, "request"
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			}
			if v.Error != nil {
				level, msg = slog.LevelWarn, "request error"
				attrs = append(attrs, "error", v.Error.Error())
			}
			l.Log(c.Request().Context(), level, msg, attrs...)
			return nil
		},
	})
}
