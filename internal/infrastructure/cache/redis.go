package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joacominatel/facade/internal/domain"
	"github.com/joacominatel/facade/internal/infrastructure/logging"
	"github.com/joacominatel/facade/internal/infrastructure/redisstore"
	"github.com/joacominatel/facade/internal/unitofwork"
)

const (
	notePrefix = "facade:note:"
	listPrefix = "facade:notes:list:"

	// DefaultTTL bounds how long a cached entry can outlive a missed
	// invalidation.
	DefaultTTL = 5 * time.Minute

	scanBatch = 100
)

// ErrCacheMiss is returned when a key is not cached.
var ErrCacheMiss = errors.New("cache miss")

// cachedNote is the json shape of a note in redis.
type cachedNote struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCached(n *domain.Note) cachedNote {
	return cachedNote{
		ID:        n.ID().String(),
		Title:     n.Title().String(),
		Body:      n.Body(),
		CreatedAt: n.CreatedAt(),
		UpdatedAt: n.UpdatedAt(),
	}
}

func (c cachedNote) toNote() (*domain.Note, error) {
	id, err := domain.ParseNoteID(c.ID)
	if err != nil {
		return nil, err
	}
	return domain.ReconstructNote(id, domain.TitleFromTrusted(c.Title), c.Body, c.CreatedAt, c.UpdatedAt), nil
}

// Store keeps notes and list pages in redis. Every call joins the redis unit
// of work bound to ctx, or opens its own.
type Store struct {
	uow    *unitofwork.Facade[*redisstore.Session]
	ttl    time.Duration
	logger *logging.Logger
}

// NewStore creates a note cache over the redis facade.
func NewStore(uow *unitofwork.Facade[*redisstore.Session], ttl time.Duration, logger *logging.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		uow:    uow,
		ttl:    ttl,
		logger: logger.WithComponent("note_cache"),
	}
}

func noteKey(id domain.NoteID) string {
	return notePrefix + id.String()
}

func listKey(limit, offset int) string {
	return listPrefix + strconv.Itoa(limit) + ":" + strconv.Itoa(offset)
}

// session runs fn against a redis session, translating failures with op.
func session[T any](ctx context.Context, s *Store, op string, fn func(ctx context.Context, rs *redisstore.Session) (T, error)) (T, error) {
	return unitofwork.EnsureUnitOfWork(ctx, s.uow, func(ctx context.Context) (T, error) {
		return unitofwork.WithUnitOfWork[*redisstore.Session, T](ctx, s.uow, unitofwork.Translating[*redisstore.Session, T](
			fn,
			func(err error) error { return redisstore.TranslateError(op, err) },
		))
	})
}

func (s *Store) get(ctx context.Context, op, key string, dest any) error {
	_, err := session(ctx, s, op, func(ctx context.Context, rs *redisstore.Session) (struct{}, error) {
		raw, err := rs.Reader().Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return struct{}{}, ErrCacheMiss
		}
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, json.Unmarshal(raw, dest)
	})
	return err
}

func (s *Store) put(ctx context.Context, op, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	_, err = session(ctx, s, op, func(ctx context.Context, rs *redisstore.Session) (struct{}, error) {
		return struct{}{}, rs.Writer().Set(ctx, key, raw, s.ttl).Err()
	})
	return err
}

// GetNote returns a cached note, or ErrCacheMiss.
func (s *Store) GetNote(ctx context.Context, id domain.NoteID) (*domain.Note, error) {
	var c cachedNote
	if err := s.get(ctx, "reading cached note", noteKey(id), &c); err != nil {
		return nil, err
	}
	return c.toNote()
}

// PutNote caches a note.
func (s *Store) PutNote(ctx context.Context, note *domain.Note) error {
	return s.put(ctx, "caching note", noteKey(note.ID()), toCached(note))
}

// GetList returns a cached list page, or ErrCacheMiss.
func (s *Store) GetList(ctx context.Context, limit, offset int) ([]*domain.Note, error) {
	var page []cachedNote
	if err := s.get(ctx, "reading cached notes", listKey(limit, offset), &page); err != nil {
		return nil, err
	}

	notes := make([]*domain.Note, 0, len(page))
	for _, c := range page {
		note, err := c.toNote()
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, nil
}

// PutList caches a list page.
func (s *Store) PutList(ctx context.Context, limit, offset int, notes []*domain.Note) error {
	page := make([]cachedNote, 0, len(notes))
	for _, n := range notes {
		page = append(page, toCached(n))
	}
	return s.put(ctx, "caching notes", listKey(limit, offset), page)
}

// InvalidateNote drops a note and every list page in one MULTI/EXEC.
func (s *Store) InvalidateNote(ctx context.Context, id domain.NoteID) error {
	return s.invalidate(ctx, "invalidating note", []string{noteKey(id)}, listPrefix)
}

// InvalidateLists drops every cached list page.
func (s *Store) InvalidateLists(ctx context.Context) error {
	return s.invalidate(ctx, "invalidating note lists", nil, listPrefix)
}

// InvalidateAll drops every cached note and list page.
func (s *Store) InvalidateAll(ctx context.Context) error {
	return s.invalidate(ctx, "invalidating note cache", nil, notePrefix, listPrefix)
}

func (s *Store) invalidate(ctx context.Context, op string, keys []string, prefixes ...string) error {
	_, err := unitofwork.EnsureUnitOfWork(ctx, s.uow, func(ctx context.Context) (struct{}, error) {
		return unitofwork.InTransaction[*redisstore.Session, struct{}](ctx, s.uow, &invalidation{
			op:       op,
			keys:     keys,
			prefixes: prefixes,
			logger:   s.logger,
		})
	})
	return err
}

// invalidation collects matching keys with SCAN, which runs immediately,
// and queues their deletion in the transaction.
type invalidation struct {
	unitofwork.NopHooks[*redisstore.Session]
	op       string
	keys     []string
	prefixes []string
	logger   *logging.Logger

	deleted int
}

func (i *invalidation) Receive(ctx context.Context, rs *redisstore.Session) (struct{}, error) {
	keys := append([]string(nil), i.keys...)
	for _, prefix := range i.prefixes {
		iter := rs.Reader().Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return struct{}{}, err
		}
	}
	if len(keys) == 0 {
		return struct{}{}, nil
	}
	i.deleted = len(keys)
	return struct{}{}, rs.Writer().Del(ctx, keys...).Err()
}

func (i *invalidation) TranslateError(err error) error {
	return redisstore.TranslateError(i.op, err)
}

func (i *invalidation) PostCommit(ctx context.Context, rs *redisstore.Session) error {
	i.logger.Debug("cache invalidated", "op", i.op, "keys", i.deleted)
	return nil
}

// HealthCheck verifies redis is responding.
func (s *Store) HealthCheck(ctx context.Context) error {
	_, err := session(ctx, s, "pinging redis", func(ctx context.Context, rs *redisstore.Session) (struct{}, error) {
		return struct{}{}, rs.Ping(ctx)
	})
	return err
}
