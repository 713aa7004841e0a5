package domain

import "errors"

// common domain errors that cross entity boundaries.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidInput  = errors.New("invalid input")
)

// IsValidation reports whether err is one of the input validation failures
// raised by the domain's constructors.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrTitleEmpty) ||
		errors.Is(err, ErrTitleTooLong) ||
		errors.Is(err, ErrBodyTooLong)
}
