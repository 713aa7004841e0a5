package application_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/joacominatel/facade/internal/domain"
	"github.com/joacominatel/facade/internal/infrastructure/logging"
	"github.com/joacominatel/facade/internal/unitofwork"
)

type mockNoteRepository struct {
	mock.Mock
}

func (m *mockNoteRepository) Save(ctx context.Context, note *domain.Note) error {
	return m.Called(ctx, note).Error(0)
}

func (m *mockNoteRepository) FindByID(ctx context.Context, id domain.NoteID) (*domain.Note, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Note), args.Error(1)
}

func (m *mockNoteRepository) List(ctx context.Context, limit, offset int) ([]*domain.Note, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Note), args.Error(1)
}

func (m *mockNoteRepository) Delete(ctx context.Context, id domain.NoteID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockNoteRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type mockNoteCache struct {
	mock.Mock
}

func (m *mockNoteCache) InvalidateNote(ctx context.Context, id domain.NoteID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockNoteCache) InvalidateLists(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockNoteCache) InvalidateAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// stubEngine is a storage engine whose transactions only count outcomes.
type stubEngine struct {
	opened, commits, rollbacks int
}

func (e *stubEngine) Open(ctx context.Context) (*stubSession, error) {
	e.opened++
	return &stubSession{engine: e}, nil
}

type stubSession struct {
	engine *stubEngine
}

func (s *stubSession) Begin(ctx context.Context) (unitofwork.Transaction, error) {
	return stubTx{engine: s.engine}, nil
}

func (s *stubSession) Close(ctx context.Context) error { return nil }

type stubTx struct {
	engine *stubEngine
}

func (t stubTx) Commit(ctx context.Context) error {
	t.engine.commits++
	return nil
}

func (t stubTx) Rollback(ctx context.Context) error {
	t.engine.rollbacks++
	return nil
}

func newUnitOfWork() (*stubEngine, *unitofwork.Facade[*stubSession]) {
	engine := &stubEngine{}
	return engine, unitofwork.New[*stubSession](engine, logging.Discard())
}

func mustNote(title string) *domain.Note {
	t, err := domain.NewTitle(title)
	if err != nil {
		panic(err)
	}
	note, err := domain.NewNote(t, "")
	if err != nil {
		panic(err)
	}
	return note
}
