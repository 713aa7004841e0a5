package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/facade/internal/infrastructure/postgres"
)

func TestSession_CloseRollsBackOpenTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectRollback()

	session, err := postgres.NewEngine(mock).Open(ctx)
	require.NoError(t, err)
	_, err = session.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, session.Close(ctx))
	require.NoError(t, session.Close(ctx), "closing twice is a no-op")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_ClosedSessionRejectsWork(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	ctx := context.Background()

	session, err := postgres.NewEngine(mock).Open(ctx)
	require.NoError(t, err)
	require.NoError(t, session.Close(ctx))

	_, err = session.Begin(ctx)
	assert.ErrorIs(t, err, postgres.ErrSessionClosed)
	_, err = session.Querier().Exec(ctx, "SELECT 1")
	assert.ErrorIs(t, err, postgres.ErrSessionClosed)
	assert.ErrorIs(t, session.Querier().QueryRow(ctx, "SELECT 1").Scan(), postgres.ErrSessionClosed)
}

func TestTx_CommitFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	session, err := postgres.NewEngine(mock).Open(ctx)
	require.NoError(t, err)
	tx, err := session.Begin(ctx)
	require.NoError(t, err)

	err = tx.Commit(ctx)
	assert.ErrorContains(t, err, "committing transaction")
	assert.NoError(t, session.Close(ctx), "a resolved transaction is not rolled back on close")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_Ping(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	ctx := context.Background()

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("down"))

	session, err := postgres.NewEngine(mock).Open(ctx)
	require.NoError(t, err)

	assert.NoError(t, session.Ping(ctx))
	assert.ErrorContains(t, session.Ping(ctx), "pinging database")

	require.NoError(t, session.Close(ctx))
	assert.ErrorIs(t, session.Ping(ctx), postgres.ErrSessionClosed, "a closed session does not reach the pool")
	assert.NoError(t, mock.ExpectationsWereMet())
}
