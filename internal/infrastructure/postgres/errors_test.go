package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/joacominatel/facade/internal/domain"
	"github.com/joacominatel/facade/internal/unitofwork"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind unitofwork.Kind
		wantIs   error
	}{
		{name: "no rows", err: pgx.ErrNoRows, wantKind: unitofwork.KindNotFound, wantIs: domain.ErrNotFound},
		{name: "unique", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation}, wantKind: unitofwork.KindConflict, wantIs: domain.ErrAlreadyExists},
		{name: "check", err: &pgconn.PgError{Code: pgerrcode.CheckViolation}, wantKind: unitofwork.KindInvalid, wantIs: domain.ErrInvalidInput},
		{name: "not null", err: &pgconn.PgError{Code: pgerrcode.NotNullViolation}, wantKind: unitofwork.KindInvalid, wantIs: domain.ErrInvalidInput},
		{name: "connection failure", err: &pgconn.PgError{Code: pgerrcode.ConnectionFailure}, wantKind: unitofwork.KindUnavailable},
		{name: "admin shutdown", err: &pgconn.PgError{Code: pgerrcode.AdminShutdown}, wantKind: unitofwork.KindUnavailable},
		{name: "deadline", err: context.DeadlineExceeded, wantKind: unitofwork.KindUnavailable},
		{name: "syntax", err: &pgconn.PgError{Code: pgerrcode.SyntaxError}, wantKind: unitofwork.KindInternal},
		{name: "other", err: errors.New("boom"), wantKind: unitofwork.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError("op", tt.err)
			assert.Equal(t, tt.wantKind, unitofwork.KindOf(got))
			if tt.wantIs != nil {
				assert.ErrorIs(t, got, tt.wantIs)
			}
		})
	}
}
