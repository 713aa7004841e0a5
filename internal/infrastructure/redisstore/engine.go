// Package redisstore is a storage engine over redis. A session holds one
// connection; a transaction queues writes in a MULTI/EXEC pipeline that is
// sent on commit and dropped on rollback.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joacominatel/facade/internal/infrastructure/logging"
	"github.com/joacominatel/facade/internal/unitofwork"
)

const defaultConnectTimeout = 10 * time.Second

// ErrSessionClosed is returned when a closed session is used again.
var ErrSessionClosed = errors.New("redis session is closed")

// NewClient creates a redis client from a redis:// url.
func NewClient(url string, logger *logging.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	opts.DialTimeout = defaultConnectTimeout
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolSize = 50
	opts.MinIdleConns = 5

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.WithComponent("redis").Info("redis connected", "addr", opts.Addr)
	return client, nil
}

// Engine opens sessions on a redis client.
type Engine struct {
	client *redis.Client
}

// NewEngine creates an engine over client.
func NewEngine(client *redis.Client) *Engine {
	return &Engine{client: client}
}

// Open takes a dedicated connection from the client's pool.
func (e *Engine) Open(ctx context.Context) (*Session, error) {
	return &Session{conn: e.client.Conn()}, nil
}

// Close closes the client.
func (e *Engine) Close() {
	_ = e.client.Close()
}

// Session holds one redis connection.
type Session struct {
	conn *redis.Conn

	mu     sync.Mutex
	pipe   redis.Pipeliner
	closed bool
}

var _ unitofwork.Session = (*Session)(nil)

// Reader returns the connection. Reads always go straight to redis, since
// commands queued in a transaction have no result until it commits.
func (s *Session) Reader() redis.Cmdable {
	return s.conn
}

// Writer returns the transaction pipeline when one is open, otherwise the
// connection.
func (s *Session) Writer() redis.Cmdable {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pipe != nil {
		return s.pipe
	}
	return s.conn
}

// Ping verifies redis answers.
func (s *Session) Ping(ctx context.Context) error {
	if err := s.conn.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Begin opens a MULTI/EXEC pipeline.
func (s *Session) Begin(ctx context.Context) (unitofwork.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	s.pipe = s.conn.TxPipeline()
	return &Tx{session: s, pipe: s.pipe}, nil
}

// Close drops any queued commands and returns the connection to the pool.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.pipe != nil {
		s.pipe.Discard()
		s.pipe = nil
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("releasing redis connection: %w", err)
	}
	return nil
}

func (s *Session) release(pipe redis.Pipeliner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pipe == pipe {
		s.pipe = nil
	}
}

// Tx is a queued MULTI/EXEC block.
type Tx struct {
	session *Session
	pipe    redis.Pipeliner
}

// Commit sends the queued commands. A missing key reported by one of them
// is not a failure.
func (t *Tx) Commit(ctx context.Context) error {
	defer t.session.release(t.pipe)
	if _, err := t.pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis exec: %w", err)
	}
	return nil
}

// Rollback drops the queued commands.
func (t *Tx) Rollback(ctx context.Context) error {
	defer t.session.release(t.pipe)
	t.pipe.Discard()
	return nil
}

// TranslateError maps redis failures onto the unit of work's error kinds.
func TranslateError(op string, err error) error {
	var netErr interface{ Timeout() bool }
	switch {
	case errors.Is(err, redis.Nil):
		return unitofwork.NewError(unitofwork.KindNotFound, op, err)
	case errors.Is(err, redis.ErrClosed), errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return unitofwork.NewError(unitofwork.KindUnavailable, op, err)
	}
	return unitofwork.NewError(unitofwork.KindInternal, op, err)
}
