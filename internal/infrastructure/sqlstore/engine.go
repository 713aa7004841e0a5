// Package sqlstore is the database/sql storage engine, backed by the pure Go
// modernc.org/sqlite driver. It mirrors the postgres package so the notes
// service can run without a database server.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	// Register modernc SQLite driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/joacominatel/facade/internal/unitofwork"
)

// ErrSessionClosed is returned when a closed session is used again.
var ErrSessionClosed = errors.New("sql session is closed")

// Querier runs statements on the session's connection or transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) Row
}

// Row is the result of QueryRowContext.
type Row interface {
	Scan(dest ...any) error
}

// dbQuerier is satisfied by *sql.Conn and *sql.Tx.
type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlQuerier struct {
	dbQuerier
}

func (q sqlQuerier) QueryRowContext(ctx context.Context, query string, args ...any) Row {
	return q.dbQuerier.QueryRowContext(ctx, query, args...)
}

// closedQuerier fails every statement of a closed session.
type closedQuerier struct{}

func (closedQuerier) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, ErrSessionClosed
}

func (closedQuerier) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, ErrSessionClosed
}

func (closedQuerier) QueryRowContext(context.Context, string, ...any) Row {
	return errRow{err: ErrSessionClosed}
}

type errRow struct {
	err error
}

func (r errRow) Scan(...any) error {
	return r.err
}

// OpenSQLite opens the database at path with the pragmas the store relies on.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", buildDSN(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	if path == ":memory:" {
		// every connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping database: %w", err)
	}
	return db, nil
}

func buildDSN(path string) string {
	if path == ":memory:" {
		return "file::memory:?cache=shared&_pragma=foreign_keys(ON)"
	}
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
}

// Engine opens sessions holding one pooled connection each.
type Engine struct {
	db *sql.DB
}

// NewEngine creates an engine over db.
func NewEngine(db *sql.DB) *Engine {
	return &Engine{db: db}
}

// Open reserves a connection for the session.
func (e *Engine) Open(ctx context.Context) (*Session, error) {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: acquire connection: %w", err)
	}
	return &Session{conn: conn}, nil
}

// Close closes the database.
func (e *Engine) Close() {
	_ = e.db.Close()
}

// Session is a unit-of-work handle holding one connection.
type Session struct {
	conn *sql.Conn

	mu     sync.Mutex
	tx     *sql.Tx
	closed bool
}

var _ unitofwork.Session = (*Session)(nil)

// Querier returns the active transaction, or the connection when there is
// none.
func (s *Session) Querier() Querier {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return closedQuerier{}
	}
	if s.tx != nil {
		return sqlQuerier{s.tx}
	}
	return sqlQuerier{s.conn}
}

// Ping verifies the connection is alive.
func (s *Session) Ping(ctx context.Context) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}
	if err := s.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// Begin starts a transaction on the session's connection.
func (s *Session) Begin(ctx context.Context) (unitofwork.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin transaction: %w", err)
	}
	s.tx = tx
	return &Tx{session: s, tx: tx}, nil
}

// Close returns the connection to the pool, rolling back a transaction that
// is still open.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.tx != nil {
		if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			errs = append(errs, fmt.Errorf("sqlite: roll back abandoned transaction: %w", err))
		}
		s.tx = nil
	}
	if err := s.conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("sqlite: release connection: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Session) release(tx *sql.Tx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == tx {
		s.tx = nil
	}
}

// Tx is a transaction begun by a Session.
type Tx struct {
	session *Session
	tx      *sql.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	defer t.session.release(t.tx)
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Rollback aborts the transaction.
func (t *Tx) Rollback(ctx context.Context) error {
	defer t.session.release(t.tx)
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("sqlite: rollback: %w", err)
	}
	return nil
}
