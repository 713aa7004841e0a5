package unitofwork

import "context"

// SessionReceiver is caller logic run against the bound session by
// WithUnitOfWork.
type SessionReceiver[S Session, T any] interface {
	// Receive does the persistence work.
	Receive(ctx context.Context, session S) (T, error)

	// TranslateError is called with any failure from Receive that is not a
	// LifecycleError. It must return a non-nil error; the facade falls back
	// to DefaultTranslate if it does not.
	TranslateError(err error) error
}

// TransactionReceiver adds hooks around the transaction outcome.
//
// PreCommit runs after Receive; a failure aborts the commit and rolls back.
// PostCommit runs after the commit. PreRollback runs before the rollback,
// which happens even if PreRollback fails, but then PostRollback is skipped.
type TransactionReceiver[S Session, T any] interface {
	SessionReceiver[S, T]
	PreCommit(ctx context.Context, session S) error
	PostCommit(ctx context.Context, session S) error
	PreRollback(ctx context.Context, session S) error
	PostRollback(ctx context.Context, session S) error
}

// SessionFunc adapts a function to SessionReceiver with DefaultTranslate as
// its translator.
type SessionFunc[S Session, T any] func(ctx context.Context, session S) (T, error)

// Receive calls fn.
func (fn SessionFunc[S, T]) Receive(ctx context.Context, session S) (T, error) {
	return fn(ctx, session)
}

// TranslateError applies DefaultTranslate.
func (fn SessionFunc[S, T]) TranslateError(err error) error {
	return DefaultTranslate(err)
}

// Translating pairs fn with a custom translator.
func Translating[S Session, T any](fn SessionFunc[S, T], translate func(error) error) SessionReceiver[S, T] {
	return translatingReceiver[S, T]{fn: fn, translate: translate}
}

type translatingReceiver[S Session, T any] struct {
	fn        SessionFunc[S, T]
	translate func(error) error
}

func (r translatingReceiver[S, T]) Receive(ctx context.Context, session S) (T, error) {
	return r.fn(ctx, session)
}

func (r translatingReceiver[S, T]) TranslateError(err error) error {
	return translate(r.translate, err)
}

// NopHooks provides do-nothing transaction hooks. Embed it in a receiver that
// only cares about some of them.
type NopHooks[S Session] struct{}

func (NopHooks[S]) PreCommit(context.Context, S) error    { return nil }
func (NopHooks[S]) PostCommit(context.Context, S) error   { return nil }
func (NopHooks[S]) PreRollback(context.Context, S) error  { return nil }
func (NopHooks[S]) PostRollback(context.Context, S) error { return nil }

// WithNopHooks lifts a SessionReceiver into a TransactionReceiver whose hooks
// do nothing.
func WithNopHooks[S Session, T any](r SessionReceiver[S, T]) TransactionReceiver[S, T] {
	return nopHooksReceiver[S, T]{SessionReceiver: r}
}

type nopHooksReceiver[S Session, T any] struct {
	SessionReceiver[S, T]
	NopHooks[S]
}

// Hooks are session-agnostic transaction callbacks for RunInTransaction.
// nil fields are skipped; a nil Translate means DefaultTranslate.
type Hooks struct {
	PreCommit    func(ctx context.Context) error
	PostCommit   func(ctx context.Context) error
	PreRollback  func(ctx context.Context) error
	PostRollback func(ctx context.Context) error
	Translate    func(err error) error
}

func callHook(ctx context.Context, hook func(context.Context) error) error {
	if hook == nil {
		return nil
	}
	return hook(ctx)
}

type hooksReceiver[S Session] struct {
	fn    func(ctx context.Context) error
	hooks Hooks
}

func (r hooksReceiver[S]) Receive(ctx context.Context, _ S) (struct{}, error) {
	return struct{}{}, r.fn(ctx)
}

func (r hooksReceiver[S]) TranslateError(err error) error {
	return translate(r.hooks.Translate, err)
}

func (r hooksReceiver[S]) PreCommit(ctx context.Context, _ S) error {
	return callHook(ctx, r.hooks.PreCommit)
}

func (r hooksReceiver[S]) PostCommit(ctx context.Context, _ S) error {
	return callHook(ctx, r.hooks.PostCommit)
}

func (r hooksReceiver[S]) PreRollback(ctx context.Context, _ S) error {
	return callHook(ctx, r.hooks.PreRollback)
}

func (r hooksReceiver[S]) PostRollback(ctx context.Context, _ S) error {
	return callHook(ctx, r.hooks.PostRollback)
}

// passthrough runs fn without translating its failures. The transaction
// layer uses it to ride on WithUnitOfWork after doing its own translation.
type passthrough[S Session, T any] func(ctx context.Context, session S) (T, error)

func (fn passthrough[S, T]) Receive(ctx context.Context, session S) (T, error) {
	return fn(ctx, session)
}

func (fn passthrough[S, T]) TranslateError(err error) error {
	return err
}
