package unitofwork

import (
	"context"
	"errors"
	"fmt"

	"github.com/joacominatel/facade/internal/infrastructure/logging"
)

// Facade enforces the opening, closing and disposal of sessions and
// transactions for one storage engine.
type Facade[S Session] struct {
	engine   Engine[S]
	logger   *logging.Logger
	observer Observer
}

// New creates a facade over engine. A nil logger discards output.
func New[S Session](engine Engine[S], logger *logging.Logger) *Facade[S] {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Facade[S]{
		engine:   engine,
		logger:   logger.WithComponent("unit_of_work"),
		observer: nopObserver{},
	}
}

// WithObserver attaches a lifecycle observer.
func (f *Facade[S]) WithObserver(o Observer) *Facade[S] {
	if o != nil {
		f.observer = o
	}
	return f
}

// Bound reports whether ctx is inside a unit of work of this facade.
func (f *Facade[S]) Bound(ctx context.Context) bool {
	return sessionBound(ctx, f)
}

// CurrentSession returns the session bound to ctx by f.
func CurrentSession[S Session](ctx context.Context, f *Facade[S]) (S, error) {
	var zero S
	session, _, err := currentSession(ctx, f)
	if err != nil {
		f.violation(err)
		return zero, err
	}
	return session.(S), nil
}

// RunInUnitOfWork opens a session, binds it to the context passed to fn and
// closes it once fn returns.
func (f *Facade[S]) RunInUnitOfWork(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := CallInUnitOfWork(ctx, f, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// CallInUnitOfWork opens a session, binds it to the context passed to fn and
// closes it once fn returns, handing back fn's result.
//
// It fails with ErrUnitOfWorkAlreadyBound, without opening anything, when ctx
// already carries a session of f. The session is unbound before it is closed.
// A close failure is returned when fn succeeded; when fn failed, fn's error
// wins and the close failure is only logged.
func CallInUnitOfWork[S Session, T any](ctx context.Context, f *Facade[S], fn func(ctx context.Context) (T, error)) (result T, err error) {
	// reserve the slot first so a bound context never opens a session
	scopeCtx, sl, err := bindSession(ctx, f, nil)
	if err != nil {
		f.violation(err)
		return result, err
	}

	session, err := f.engine.Open(ctx)
	if err != nil {
		sl.unbindSession()
		return result, err
	}
	sl.setSession(session)
	f.observer.SessionOpened()
	f.logger.SessionOpened()

	defer func() {
		p := recover()
		sl.unbindSession()

		primary := err
		if p != nil {
			primary = fmt.Errorf("panic: %v", p)
		}
		if closeErr := f.closeSession(ctx, session, primary); closeErr != nil {
			err = closeErr
		}
		if p != nil {
			panic(p)
		}
	}()

	return fn(scopeCtx)
}

// EnsureUnitOfWork runs fn in the unit of work already bound to ctx, or in a
// fresh one when there is none.
func EnsureUnitOfWork[S Session, T any](ctx context.Context, f *Facade[S], fn func(ctx context.Context) (T, error)) (T, error) {
	if f.Bound(ctx) {
		return fn(ctx)
	}
	return CallInUnitOfWork(ctx, f, fn)
}

// closeSession closes session once. It returns the close failure only when
// there is no primary failure to protect.
func (f *Facade[S]) closeSession(ctx context.Context, session S, primary error) error {
	closeErr := session.Close(ctx)
	f.observer.SessionClosed()
	if closeErr == nil {
		f.logger.SessionClosed()
		return nil
	}
	if primary != nil {
		f.cleanupFailed(StageClose, primary, closeErr)
		return nil
	}
	return fmt.Errorf("closing session: %w", closeErr)
}

// WithUnitOfWork hands the session bound to ctx to the receiver.
//
// A LifecycleError coming out of Receive was raised by a nested facade call
// and is returned as is. Any other failure goes through the receiver's
// translator.
func WithUnitOfWork[S Session, T any](ctx context.Context, f *Facade[S], r SessionReceiver[S, T]) (T, error) {
	var zero T
	session, err := CurrentSession(ctx, f)
	if err != nil {
		return zero, err
	}

	result, err := r.Receive(ctx, session)
	if err == nil {
		return result, nil
	}
	if IsLifecycle(err) {
		return zero, err
	}
	return zero, translate(r.TranslateError, err)
}

// InSessionTransaction runs a plain receiver through InTransaction with
// no-op hooks.
func InSessionTransaction[S Session, T any](ctx context.Context, f *Facade[S], r SessionReceiver[S, T]) (T, error) {
	return InTransaction(ctx, f, WithNopHooks(r))
}

// RunInTransaction is InTransaction for callers that do not need the session
// itself, only a transaction around fn.
func (f *Facade[S]) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error, hooks Hooks) error {
	_, err := InTransaction[S, struct{}](ctx, f, hooksReceiver[S]{fn: fn, hooks: hooks})
	return err
}

// InTransaction begins a transaction on the bound session, runs the receiver
// and commits, or rolls back on failure.
//
// Success runs Receive, PreCommit, Commit, PostCommit. Failure of Receive or
// PreCommit translates the failure, then runs PreRollback, Rollback and
// PostRollback, and returns the translated error. A nested call fails with
// ErrTransactionAlreadyBound, which skips translation and makes the outer
// transaction roll back with it.
func InTransaction[S Session, T any](ctx context.Context, f *Facade[S], r TransactionReceiver[S, T]) (T, error) {
	return WithUnitOfWork[S, T](ctx, f, passthrough[S, T](func(ctx context.Context, session S) (T, error) {
		return transact(ctx, f, session, r)
	}))
}

func transact[S Session, T any](ctx context.Context, f *Facade[S], session S, r TransactionReceiver[S, T]) (result T, err error) {
	var zero T
	_, sl, err := currentSession(ctx, f)
	if err != nil {
		return zero, err
	}
	if _, bound := sl.currentTransaction(); bound {
		f.violation(ErrTransactionAlreadyBound)
		return zero, ErrTransactionAlreadyBound
	}

	tx, err := session.Begin(ctx)
	if err != nil {
		return zero, err
	}
	if err := sl.bindTransaction(tx); err != nil {
		f.violation(err)
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			f.cleanupFailed(StageRollback, err, rbErr)
		}
		f.observer.TransactionFinished(OutcomeRolledBack)
		return zero, err
	}

	resolved := false
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if !resolved {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				f.cleanupFailed(StageRollback, fmt.Errorf("panic: %v", p), rbErr)
			}
			f.observer.TransactionFinished(OutcomeRolledBack)
		}
		sl.unbindTransaction()
		panic(p)
	}()

	result, err = r.Receive(ctx, session)
	if err == nil {
		err = r.PreCommit(ctx, session)
	}
	if err != nil {
		failure := err
		if !IsLifecycle(err) {
			failure = translate(r.TranslateError, err)
		}

		preErr := r.PreRollback(ctx, session)
		resolved = true
		rbErr := tx.Rollback(ctx)
		sl.unbindTransaction()
		f.observer.TransactionFinished(OutcomeRolledBack)
		f.logger.TransactionRolledBack(err)

		if rbErr != nil {
			f.cleanupFailed(StageRollback, failure, rbErr)
		}
		if preErr != nil {
			f.cleanupFailed(StagePreRollback, failure, preErr)
			return zero, failure
		}
		if postErr := r.PostRollback(ctx, session); postErr != nil {
			f.cleanupFailed(StagePostRollback, failure, postErr)
		}
		return zero, failure
	}

	resolved = true
	commitErr := tx.Commit(ctx)
	sl.unbindTransaction()
	if commitErr != nil {
		f.observer.TransactionFinished(OutcomeCommitFailed)
		return zero, commitErr
	}
	f.observer.TransactionFinished(OutcomeCommitted)
	f.logger.TransactionCommitted()

	if err := r.PostCommit(ctx, session); err != nil {
		if IsLifecycle(err) {
			return zero, err
		}
		return zero, DefaultTranslate(err)
	}
	return result, nil
}

func (f *Facade[S]) violation(err error) {
	var le *LifecycleError
	if errors.As(err, &le) {
		f.observer.LifecycleViolation(le.Code())
	}
	f.logger.LifecycleViolation(err)
}

func (f *Facade[S]) cleanupFailed(stage string, primary, secondary error) {
	f.observer.CleanupFailed(stage)
	f.logger.CleanupFailed(stage, primary, secondary)
}
