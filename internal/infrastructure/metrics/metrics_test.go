package metrics_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/facade/internal/infrastructure/logging"
	"github.com/joacominatel/facade/internal/infrastructure/metrics"
	"github.com/joacominatel/facade/internal/unitofwork"
)

type nopSession struct{}

func (nopSession) Begin(context.Context) (unitofwork.Transaction, error) { return nopTx{}, nil }
func (nopSession) Close(context.Context) error                           { return nil }

type nopTx struct{}

func (nopTx) Commit(context.Context) error   { return nil }
func (nopTx) Rollback(context.Context) error { return nil }

func TestMetrics_ObservesFacade(t *testing.T) {
	m := metrics.New()
	engine := unitofwork.EngineFunc[nopSession](func(context.Context) (nopSession, error) {
		return nopSession{}, nil
	})
	uow := unitofwork.New[nopSession](engine, logging.Discard()).WithObserver(m)

	err := uow.RunInUnitOfWork(context.Background(), func(ctx context.Context) error {
		assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsOpen))

		require.NoError(t, uow.RunInTransaction(ctx, func(context.Context) error { return nil }, unitofwork.Hooks{}))
		_ = uow.RunInTransaction(ctx, func(context.Context) error { return errors.New("nope") }, unitofwork.Hooks{})
		return uow.RunInUnitOfWork(ctx, func(context.Context) error { return nil })
	})

	assert.ErrorIs(t, err, unitofwork.ErrUnitOfWorkAlreadyBound)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsOpened))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsClosed))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionsOpen))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transactions.WithLabelValues("committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transactions.WithLabelValues("rolled_back")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LifecycleViolations.WithLabelValues("unit_of_work_already_bound")))
}

func TestMetrics_CleanupFailures(t *testing.T) {
	m := metrics.New()

	m.CleanupFailed(unitofwork.StageRollback)
	m.CleanupFailed(unitofwork.StageRollback)
	m.CleanupFailed(unitofwork.StageClose)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CleanupFailures.WithLabelValues("rollback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CleanupFailures.WithLabelValues("close")))
}

func TestMetrics_RecordRetentionRun(t *testing.T) {
	m := metrics.New()

	m.RecordRetentionRun(4, 0.2)
	m.RecordRetentionRun(0, 0.1)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.NotesPurged))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RetentionRunDuration))
}

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	m := metrics.New()
	e := echo.New()
	e.Use(metrics.Middleware(m))
	e.GET("/api/v1/notes/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "note not found")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/notes/123", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration, "http_request_duration_seconds"))
	count, err := testutil.GatherAndCount(m.Registry, "http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
