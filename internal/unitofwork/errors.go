package unitofwork

import (
	"errors"
	"fmt"
)

// LifecycleError is raised by the facade's own protocol checks.
// it is never handed to a receiver's translator: it reports misuse of the
// facade somewhere up the call stack, not a failure of the receiver's logic.
type LifecycleError struct {
	code    string
	message string
}

func (e *LifecycleError) Error() string {
	return e.message
}

// Code returns a short stable identifier, used as a metric label.
func (e *LifecycleError) Code() string {
	return e.code
}

// the closed set of lifecycle errors.
var (
	ErrUnitOfWorkAlreadyBound = &LifecycleError{
		code:    "unit_of_work_already_bound",
		message: "called with an existing session",
	}
	ErrNoUnitOfWorkBound = &LifecycleError{
		code:    "no_unit_of_work_bound",
		message: "WithUnitOfWork must be called under a higher call to RunInUnitOfWork",
	}
	ErrTransactionAlreadyBound = &LifecycleError{
		code:    "transaction_already_bound",
		message: "current context is already in a transaction",
	}
)

// IsLifecycle reports whether err is, or wraps, a LifecycleError.
func IsLifecycle(err error) bool {
	var le *LifecycleError
	return errors.As(err, &le)
}

// Kind classifies a translated failure.
// translators map arbitrary receiver failures onto this closed set.
type Kind int

const (
	// KindInternal is the catch-all for failures nobody classified.
	KindInternal Kind = iota
	// KindNotFound means the requested entity does not exist.
	KindNotFound
	// KindConflict means the write collides with existing state.
	KindConflict
	// KindInvalid means the input was rejected.
	KindInvalid
	// KindUnavailable means the storage engine could not be reached.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalid:
		return "invalid"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is the single translated error type that leaves the facade for
// receiver failures.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// NewError builds a translated error of the given kind.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return e.Op
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain,
// or KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// DefaultTranslate returns err unchanged when it already is a translated
// *Error, otherwise wraps it as KindInternal with err as the cause.
func DefaultTranslate(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindInternal, Op: "error occurred during session", Err: err}
}

// translate applies a receiver's translator, keeping the contract total:
// a nil translation falls back to DefaultTranslate.
func translate(fn func(error) error, err error) error {
	if fn == nil {
		return DefaultTranslate(err)
	}
	if translated := fn(err); translated != nil {
		return translated
	}
	return DefaultTranslate(err)
}
