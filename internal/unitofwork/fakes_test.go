package unitofwork_test

import (
	"context"
	"errors"
	"sync"

	"github.com/joacominatel/facade/internal/infrastructure/logging"
	"github.com/joacominatel/facade/internal/unitofwork"
)

var (
	errReceive     = errors.New("receive failed")
	errPreCommit   = errors.New("pre-commit failed")
	errPreRollback = errors.New("pre-rollback failed")
	errStorage     = errors.New("storage failed")
)

// recorder collects the observable order of calls.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) count(event string) int {
	n := 0
	for _, e := range r.list() {
		if e == event {
			n++
		}
	}
	return n
}

type fakeEngine struct {
	rec         *recorder
	openErr     error
	closeErr    error
	beginErr    error
	commitErr   error
	rollbackErr error
	// rollbackPanic, when set, is raised by Rollback after it is recorded
	rollbackPanic any
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{rec: &recorder{}}
}

func (e *fakeEngine) Open(ctx context.Context) (*fakeSession, error) {
	e.rec.add("open")
	if e.openErr != nil {
		return nil, e.openErr
	}
	return &fakeSession{engine: e}, nil
}

type fakeSession struct {
	engine *fakeEngine
}

func (s *fakeSession) Close(ctx context.Context) error {
	s.engine.rec.add("close")
	return s.engine.closeErr
}

func (s *fakeSession) Begin(ctx context.Context) (unitofwork.Transaction, error) {
	s.engine.rec.add("begin")
	if s.engine.beginErr != nil {
		return nil, s.engine.beginErr
	}
	return &fakeTx{engine: s.engine}, nil
}

type fakeTx struct {
	engine *fakeEngine
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.engine.rec.add("commit")
	return t.engine.commitErr
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.engine.rec.add("rollback")
	if t.engine.rollbackPanic != nil {
		panic(t.engine.rollbackPanic)
	}
	return t.engine.rollbackErr
}

func newFacade(engine *fakeEngine) *unitofwork.Facade[*fakeSession] {
	return unitofwork.New[*fakeSession](engine, logging.Discard())
}

// scriptedReceiver records each hook into the engine's recorder and fails
// where told to.
type scriptedReceiver struct {
	rec *recorder

	receive        func(ctx context.Context, s *fakeSession) (string, error)
	preCommitErr   error
	postCommitErr  error
	preRollbackErr error
	translate      func(err error) error

	translated []error
}

func (r *scriptedReceiver) Receive(ctx context.Context, s *fakeSession) (string, error) {
	r.rec.add("receive")
	if r.receive == nil {
		return "", nil
	}
	return r.receive(ctx, s)
}

func (r *scriptedReceiver) TranslateError(err error) error {
	r.rec.add("translate")
	r.translated = append(r.translated, err)
	if r.translate != nil {
		return r.translate(err)
	}
	return unitofwork.DefaultTranslate(err)
}

func (r *scriptedReceiver) PreCommit(ctx context.Context, s *fakeSession) error {
	r.rec.add("pre_commit")
	return r.preCommitErr
}

func (r *scriptedReceiver) PostCommit(ctx context.Context, s *fakeSession) error {
	r.rec.add("post_commit")
	return r.postCommitErr
}

func (r *scriptedReceiver) PreRollback(ctx context.Context, s *fakeSession) error {
	r.rec.add("pre_rollback")
	return r.preRollbackErr
}

func (r *scriptedReceiver) PostRollback(ctx context.Context, s *fakeSession) error {
	r.rec.add("post_rollback")
	return nil
}

type countingObserver struct {
	mu         sync.Mutex
	opened     int
	closed     int
	outcomes   []unitofwork.Outcome
	violations []string
	cleanups   []string
}

func (o *countingObserver) SessionOpened() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened++
}

func (o *countingObserver) SessionClosed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed++
}

func (o *countingObserver) TransactionFinished(outcome unitofwork.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *countingObserver) LifecycleViolation(code string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.violations = append(o.violations, code)
}

func (o *countingObserver) CleanupFailed(stage string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cleanups = append(o.cleanups, stage)
}
