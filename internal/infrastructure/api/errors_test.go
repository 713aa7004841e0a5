package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/joacominatel/facade/internal/domain"
	"github.com/joacominatel/facade/internal/infrastructure/auth"
	"github.com/joacominatel/facade/internal/unitofwork"
)

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "echo error", err: echo.NewHTTPError(http.StatusTeapot), want: http.StatusTeapot},
		{name: "lifecycle", err: unitofwork.ErrNoUnitOfWorkBound, want: http.StatusInternalServerError},
		{name: "auth", err: auth.ErrTokenExpired, want: http.StatusUnauthorized},
		{name: "validation", err: domain.ErrTitleEmpty, want: http.StatusBadRequest},
		{name: "wrapped validation", err: fmt.Errorf("%w: id", domain.ErrInvalidInput), want: http.StatusBadRequest},
		{name: "not found", err: unitofwork.NewError(unitofwork.KindNotFound, "op", domain.ErrNotFound), want: http.StatusNotFound},
		{name: "conflict", err: unitofwork.NewError(unitofwork.KindConflict, "op", nil), want: http.StatusConflict},
		{name: "invalid", err: unitofwork.NewError(unitofwork.KindInvalid, "op", nil), want: http.StatusBadRequest},
		{name: "unavailable", err: unitofwork.NewError(unitofwork.KindUnavailable, "op", nil), want: http.StatusServiceUnavailable},
		{name: "internal", err: unitofwork.NewError(unitofwork.KindInternal, "op", nil), want: http.StatusInternalServerError},
		{name: "plain", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toHTTPError(tt.err).Code)
		})
	}
}
