package unitofwork_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/facade/internal/unitofwork"
)

func TestDissociated_GetOutsideScopeOpensFreshSession(t *testing.T) {
	engine := newFakeEngine()
	f := newFacade(engine)
	loads := 0
	load := unitofwork.SessionFunc[*fakeSession, int](func(ctx context.Context, s *fakeSession) (int, error) {
		loads++
		return loads, nil
	})

	ref, err := unitofwork.CallInUnitOfWork(context.Background(), f, func(ctx context.Context) (*unitofwork.Dissociated[int], error) {
		return unitofwork.Dissociate[*fakeSession, int](f, load), nil
	})
	require.NoError(t, err)

	first, err := ref.Get(context.Background())
	require.NoError(t, err)
	second, err := ref.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second, "every Get loads again")
	assert.Equal(t, 3, engine.rec.count("open"))
	assert.Equal(t, 3, engine.rec.count("close"))
}

func TestDissociated_GetInsideScopeReusesSession(t *testing.T) {
	engine := newFakeEngine()
	f := newFacade(engine)
	ref := unitofwork.Dissociate[*fakeSession, string](f, unitofwork.SessionFunc[*fakeSession, string](
		func(ctx context.Context, s *fakeSession) (string, error) {
			return "loaded", nil
		}))

	got, err := unitofwork.CallInUnitOfWork(context.Background(), f, func(ctx context.Context) (string, error) {
		return ref.Get(ctx)
	})

	require.NoError(t, err)
	assert.Equal(t, "loaded", got)
	assert.Equal(t, 1, engine.rec.count("open"))
}

func TestDissociated_GetTranslatesFailures(t *testing.T) {
	f := newFacade(newFakeEngine())
	ref := unitofwork.Dissociate[*fakeSession, string](f, unitofwork.Translating[*fakeSession, string](
		func(ctx context.Context, s *fakeSession) (string, error) {
			return "", errStorage
		},
		func(err error) error {
			return unitofwork.NewError(unitofwork.KindNotFound, "load", err)
		}))

	_, err := ref.Get(context.Background())

	assert.ErrorIs(t, err, errStorage)
	assert.Equal(t, unitofwork.KindNotFound, unitofwork.KindOf(err))
}
