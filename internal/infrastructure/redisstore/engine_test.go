package redisstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/facade/internal/infrastructure/logging"
	"github.com/joacominatel/facade/internal/infrastructure/redisstore"
	"github.com/joacominatel/facade/internal/unitofwork"
)

func newFacade(t *testing.T) (*miniredis.Miniredis, *unitofwork.Facade[*redisstore.Session]) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redisstore.NewClient("redis://"+mr.Addr(), logging.Discard())
	require.NoError(t, err)
	engine := redisstore.NewEngine(client)
	t.Cleanup(engine.Close)
	return mr, unitofwork.New[*redisstore.Session](engine, logging.Discard())
}

func setInTx(ctx context.Context, uow *unitofwork.Facade[*redisstore.Session], key, value string, fail error) error {
	_, err := unitofwork.InSessionTransaction[*redisstore.Session, struct{}](ctx, uow, unitofwork.SessionFunc[*redisstore.Session, struct{}](
		func(ctx context.Context, s *redisstore.Session) (struct{}, error) {
			if err := s.Writer().Set(ctx, key, value, 0).Err(); err != nil {
				return struct{}{}, err
			}
			return struct{}{}, fail
		}))
	return err
}

func TestTransaction_CommitSendsQueuedWrites(t *testing.T) {
	mr, uow := newFacade(t)

	err := uow.RunInUnitOfWork(context.Background(), func(ctx context.Context) error {
		if err := setInTx(ctx, uow, "greeting", "hello", nil); err != nil {
			return err
		}
		got, err := unitofwork.WithUnitOfWork[*redisstore.Session, string](ctx, uow, unitofwork.SessionFunc[*redisstore.Session, string](
			func(ctx context.Context, s *redisstore.Session) (string, error) {
				return s.Reader().Get(ctx, "greeting").Result()
			}))
		if err != nil {
			return err
		}
		assert.Equal(t, "hello", got)
		return nil
	})

	require.NoError(t, err)
	v, err := mr.Get("greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestTransaction_RollbackDropsQueuedWrites(t *testing.T) {
	mr, uow := newFacade(t)
	abort := errors.New("abort")

	err := uow.RunInUnitOfWork(context.Background(), func(ctx context.Context) error {
		return setInTx(ctx, uow, "greeting", "hello", abort)
	})

	assert.ErrorIs(t, err, abort)
	assert.False(t, mr.Exists("greeting"))
}

func TestSession_WritesOutsideTransactionApplyImmediately(t *testing.T) {
	mr, uow := newFacade(t)

	err := uow.RunInUnitOfWork(context.Background(), func(ctx context.Context) error {
		_, err := unitofwork.WithUnitOfWork[*redisstore.Session, struct{}](ctx, uow, unitofwork.SessionFunc[*redisstore.Session, struct{}](
			func(ctx context.Context, s *redisstore.Session) (struct{}, error) {
				require.NoError(t, s.Ping(ctx))
				return struct{}{}, s.Writer().Set(ctx, "k", "v", 0).Err()
			}))
		return err
	})

	require.NoError(t, err)
	assert.True(t, mr.Exists("k"))
}

func TestSession_ClosedSessionRejectsBegin(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	session, err := redisstore.NewEngine(client).Open(ctx)
	require.NoError(t, err)
	require.NoError(t, session.Close(ctx))
	require.NoError(t, session.Close(ctx))

	_, err = session.Begin(ctx)
	assert.ErrorIs(t, err, redisstore.ErrSessionClosed)
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := redisstore.NewClient("://nope", logging.Discard())

	assert.ErrorContains(t, err, "parsing redis url")
}

func TestTranslateError(t *testing.T) {
	assert.Equal(t, unitofwork.KindNotFound, unitofwork.KindOf(redisstore.TranslateError("get", redis.Nil)))
	assert.Equal(t, unitofwork.KindUnavailable, unitofwork.KindOf(redisstore.TranslateError("get", redis.ErrClosed)))
	assert.Equal(t, unitofwork.KindInternal, unitofwork.KindOf(redisstore.TranslateError("get", errors.New("WRONGTYPE"))))
}
