// Package unitofwork binds a storage session to a context for the span of a
// unit of work and layers transactions with commit and rollback hooks on top.
//
// A scope is opened with RunInUnitOfWork or CallInUnitOfWork. Code running
// under that scope reaches the bound session with WithUnitOfWork, or wraps its
// work in a transaction with InTransaction. Sessions are closed and
// transactions resolved on every exit path, panics included.
package unitofwork

import (
	"context"
	"fmt"
	"sync"
)

// Session is an open handle on a storage engine.
// Close is called exactly once by the facade.
type Session interface {
	Close(ctx context.Context) error
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction is an open transaction over a Session.
// the facade calls exactly one of Commit or Rollback.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Engine opens sessions. It must be safe for concurrent use.
type Engine[S Session] interface {
	Open(ctx context.Context) (S, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc[S Session] func(ctx context.Context) (S, error)

// Open calls fn.
func (fn EngineFunc[S]) Open(ctx context.Context) (S, error) {
	return fn(ctx)
}

// LazyEngine builds its underlying engine on the first Open.
// concurrent first callers block until the build finishes; a failed build is
// retried by the next caller, a successful one is kept for good.
type LazyEngine[S Session] struct {
	build func(ctx context.Context) (Engine[S], error)

	mu     sync.Mutex
	engine Engine[S]
}

// NewLazyEngine creates a lazily built engine.
func NewLazyEngine[S Session](build func(ctx context.Context) (Engine[S], error)) *LazyEngine[S] {
	return &LazyEngine[S]{build: build}
}

// Open builds the engine if needed and opens a session on it.
func (l *LazyEngine[S]) Open(ctx context.Context) (S, error) {
	engine, err := l.Engine(ctx)
	if err != nil {
		var zero S
		return zero, err
	}
	return engine.Open(ctx)
}

// Engine returns the built engine, building it first if needed.
func (l *LazyEngine[S]) Engine(ctx context.Context) (Engine[S], error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.engine != nil {
		return l.engine, nil
	}

	engine, err := l.build(ctx)
	if err != nil {
		return nil, fmt.Errorf("building storage engine: %w", err)
	}
	l.engine = engine
	return engine, nil
}

// Close releases the built engine when it has a Close method.
// a never-built engine is a no-op.
func (l *LazyEngine[S]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if closer, ok := l.engine.(interface{ Close() }); ok {
		closer.Close()
	}
	l.engine = nil
}
