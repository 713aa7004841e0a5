package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/joacominatel/facade/internal/unitofwork"
)

// Querier is an interface that both the pool and pgx.Tx satisfy.
// allows repositories to work with either direct pool or transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is what the engine needs from a connection pool.
// *pgxpool.Pool satisfies it, and so does pgxmock's pool in tests.
type Pool interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// ErrSessionClosed is returned when a closed session is used again.
var ErrSessionClosed = errors.New("postgres session is closed")

// Engine opens sessions on a pgx pool.
type Engine struct {
	pool Pool
}

// NewEngine creates an engine over pool.
func NewEngine(pool Pool) *Engine {
	return &Engine{pool: pool}
}

// Open returns a new session. Connections are taken from the pool per
// statement, or held for the span of a transaction.
func (e *Engine) Open(ctx context.Context) (*Session, error) {
	return &Session{pool: e.pool}, nil
}

// Close shuts down the pool.
func (e *Engine) Close() {
	e.pool.Close()
}

// Session is a unit-of-work handle over the pool.
type Session struct {
	pool Pool

	mu     sync.Mutex
	tx     pgx.Tx
	closed bool
}

var _ unitofwork.Session = (*Session)(nil)

// Querier returns the active transaction, or the pool when there is none.
func (s *Session) Querier() Querier {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return closedQuerier{}
	}
	if s.tx != nil {
		return s.tx
	}
	return s.pool
}

// Ping verifies the database answers.
func (s *Session) Ping(ctx context.Context) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// Begin starts a transaction that subsequent Querier calls route through.
func (s *Session) Begin(ctx context.Context) (unitofwork.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	s.tx = tx
	return &Tx{session: s, tx: tx}, nil
}

// Close ends the session. A transaction still open at this point is rolled
// back.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.tx != nil {
		tx := s.tx
		s.tx = nil
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			return fmt.Errorf("rolling back abandoned transaction: %w", err)
		}
	}
	return nil
}

func (s *Session) release(tx pgx.Tx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == tx {
		s.tx = nil
	}
}

// Tx is a transaction begun by a Session.
type Tx struct {
	session *Session
	tx      pgx.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	defer t.session.release(t.tx)
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Rollback aborts the transaction.
func (t *Tx) Rollback(ctx context.Context) error {
	defer t.session.release(t.tx)
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rolling back transaction: %w", err)
	}
	return nil
}

type closedQuerier struct{}

func (closedQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, ErrSessionClosed
}

func (closedQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, ErrSessionClosed
}

func (closedQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	return errRow{err: ErrSessionClosed}
}

type errRow struct {
	err error
}

func (r errRow) Scan(...any) error {
	return r.err
}
