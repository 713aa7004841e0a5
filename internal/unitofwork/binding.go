package unitofwork

import (
	"context"
	"sync"
)

// bindingKey scopes bindings to one facade, so facades over different
// engines can be nested without seeing each other's sessions.
type bindingKey struct {
	owner any
}

// slots holds what a scope has bound. A scope gets fresh slots; unbinding
// clears them in place so contexts that escaped the scope see nothing bound.
type slots struct {
	mu      sync.Mutex
	session Session
	bound   bool
	tx      Transaction
}

func lookupSlots(ctx context.Context, owner any) *slots {
	sl, _ := ctx.Value(bindingKey{owner: owner}).(*slots)
	return sl
}

// sessionBound reports whether ctx already carries a live session for owner.
func sessionBound(ctx context.Context, owner any) bool {
	sl := lookupSlots(ctx, owner)
	if sl == nil {
		return false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.bound
}

// bindSession returns a context carrying session for owner.
func bindSession(ctx context.Context, owner any, session Session) (context.Context, *slots, error) {
	if sessionBound(ctx, owner) {
		return ctx, nil, ErrUnitOfWorkAlreadyBound
	}
	sl := &slots{session: session, bound: true}
	return context.WithValue(ctx, bindingKey{owner: owner}, sl), sl, nil
}

// setSession fills a slot reserved by bindSession.
func (sl *slots) setSession(session Session) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.session = session
}

// currentSession returns the live session bound for owner.
func currentSession(ctx context.Context, owner any) (Session, *slots, error) {
	sl := lookupSlots(ctx, owner)
	if sl == nil {
		return nil, nil, ErrNoUnitOfWorkBound
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if !sl.bound {
		return nil, nil, ErrNoUnitOfWorkBound
	}
	return sl.session, sl, nil
}

// unbindSession clears the session and any transaction. Idempotent.
func (sl *slots) unbindSession() {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.session = nil
	sl.bound = false
	sl.tx = nil
}

func (sl *slots) bindTransaction(tx Transaction) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.tx != nil {
		return ErrTransactionAlreadyBound
	}
	sl.tx = tx
	return nil
}

func (sl *slots) currentTransaction() (Transaction, bool) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.tx, sl.tx != nil
}

// unbindTransaction clears the transaction slot. Idempotent.
func (sl *slots) unbindTransaction() {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.tx = nil
}
