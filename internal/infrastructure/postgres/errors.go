package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/joacominatel/facade/internal/domain"
	"github.com/joacominatel/facade/internal/unitofwork"
)

// translateError maps pgx failures onto the unit of work's error kinds.
func translateError(op string, err error) error {
	var pgErr *pgconn.PgError
	var connectErr *pgconn.ConnectError

	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		return unitofwork.NewError(unitofwork.KindNotFound, op, domain.ErrNotFound)
	case errors.As(err, &pgErr):
		switch {
		case pgErr.Code == pgerrcode.UniqueViolation:
			return unitofwork.NewError(unitofwork.KindConflict, op,
				fmt.Errorf("%w: %s", domain.ErrAlreadyExists, pgErr.ConstraintName))
		case pgerrcode.IsIntegrityConstraintViolation(pgErr.Code):
			return unitofwork.NewError(unitofwork.KindInvalid, op,
				fmt.Errorf("%w: %s", domain.ErrInvalidInput, pgErr.Message))
		case pgerrcode.IsConnectionException(pgErr.Code), pgErr.Code == pgerrcode.AdminShutdown:
			return unitofwork.NewError(unitofwork.KindUnavailable, op, err)
		}
	case errors.As(err, &connectErr), errors.Is(err, context.DeadlineExceeded):
		return unitofwork.NewError(unitofwork.KindUnavailable, op, err)
	}
	return unitofwork.NewError(unitofwork.KindInternal, op, err)
}
