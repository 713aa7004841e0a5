package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/joacominatel/facade/internal/infrastructure/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsContextKey is the echo context key for the validated token claims.
	ClaimsContextKey contextKey = "auth_claims"
)

// UnitOfWork is what the request filter needs from a facade.
type UnitOfWork interface {
	RunInUnitOfWork(ctx context.Context, fn func(ctx context.Context) error) error
}

// UnitOfWorkMiddleware binds a unit of work to every request that passes
// through it. The session is opened before the handler runs and closed
// before the middleware returns, whatever the handler does.
func UnitOfWorkMiddleware(uow UnitOfWork, skipper func(c echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}

			req := c.Request()
			return uow.RunInUnitOfWork(req.Context(), func(ctx context.Context) error {
				c.SetRequest(req.WithContext(ctx))
				defer c.SetRequest(req)
				return next(c)
			})
		}
	}
}

// AuthConfig holds authentication middleware configuration.
type AuthConfig struct {
	JWTValidator *auth.JWTValidator

	// Scope, when set, must be granted by the token.
	Scope string

	// Skipper defines a function to skip auth for certain routes.
	Skipper func(c echo.Context) bool
}

// AuthMiddleware validates the bearer token and stores its claims on the
// echo context. Requests without a valid token get a 401.
func AuthMiddleware(config AuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// check if we should skip auth for this route
			if config.Skipper != nil && config.Skipper(c) {
				return next(c)
			}

			claims, err := config.JWTValidator.ValidateToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return echo.NewHTTPError(401, "authentication required: "+err.Error()).SetInternal(err)
			}
			if config.Scope != "" && !claims.HasScope(config.Scope) {
				return echo.NewHTTPError(403, "token lacks scope "+config.Scope)
			}

			c.Set(string(ClaimsContextKey), claims)
			return next(c)
		}
	}
}

// GetClaims retrieves the validated token claims from context.
// returns nil if the request was not authenticated.
func GetClaims(c echo.Context) *auth.Claims {
	if claims, ok := c.Get(string(ClaimsContextKey)).(*auth.Claims); ok {
		return claims
	}
	return nil
}

// PublicRoutesSkipper returns a skipper function that skips public routes.
func PublicRoutesSkipper(publicPaths ...string) func(echo.Context) bool {
	pathSet := make(map[string]bool)
	for _, p := range publicPaths {
		pathSet[p] = true
	}

	return func(c echo.Context) bool {
		return pathSet[c.Path()]
	}
}
