package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/joacominatel/facade/internal/domain"
	"github.com/joacominatel/facade/internal/infrastructure/auth"
	"github.com/joacominatel/facade/internal/infrastructure/logging"
	"github.com/joacominatel/facade/internal/unitofwork"
)

// toHTTPError maps an error returned by a handler onto a response.
// translated unit of work errors carry their kind; lifecycle errors are
// programming mistakes and always a 500.
func toHTTPError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if herr, ok := he.Internal.(*echo.HTTPError); ok {
			return herr
		}
		return he
	}

	switch {
	case unitofwork.IsLifecycle(err):
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenExpired), errors.Is(err, auth.ErrInvalidSignature),
		errors.Is(err, auth.ErrInvalidClaims):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case domain.IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var uowErr *unitofwork.Error
	if !errors.As(err, &uowErr) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	switch uowErr.Kind {
	case unitofwork.KindNotFound:
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	case unitofwork.KindConflict:
		return echo.NewHTTPError(http.StatusConflict, "resource already exists")
	case unitofwork.KindInvalid:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case unitofwork.KindUnavailable:
		return echo.NewHTTPError(http.StatusServiceUnavailable, "storage unavailable").SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message any    `json:"message"`
}

// errorHandler renders every handler error as an ErrorResponse. Server
// errors are logged with their internal cause.
func errorHandler(logger *logging.Logger) echo.HTTPErrorHandler {
	l := logger.WithComponent("http_error")

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		he := toHTTPError(err)
		if he.Code >= http.StatusInternalServerError {
			l.Error("server error",
				"status", he.Code,
				"error", err.Error(),
				"kind", unitofwork.KindOf(err).String(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(he.Code)
		} else {
			err = c.JSON(he.Code, ErrorResponse{
				Error:   http.StatusText(he.Code),
				Message: he.Message,
			})
		}
		if err != nil {
			l.Error("failed to send error response", "error", err.Error())
		}
	}
}
