package application

import (
	"context"

	"github.com/joacominatel/facade/internal/domain"
	"github.com/joacominatel/facade/internal/unitofwork"
)

// UnitOfWork is the session and transaction boundary seen by use cases.
// *unitofwork.Facade satisfies it for any storage engine.
type UnitOfWork interface {
	// Bound reports whether ctx already carries a unit of work.
	Bound(ctx context.Context) bool

	// RunInUnitOfWork opens a session for the duration of fn.
	RunInUnitOfWork(ctx context.Context, fn func(ctx context.Context) error) error

	// RunInTransaction wraps fn in a transaction on the bound session.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error, hooks unitofwork.Hooks) error
}

// ensureUnitOfWork runs fn in the caller's unit of work, or opens one. HTTP
// requests arrive with one bound; the retention worker does not.
func ensureUnitOfWork(ctx context.Context, uow UnitOfWork, fn func(ctx context.Context) error) error {
	if uow.Bound(ctx) {
		return fn(ctx)
	}
	return uow.RunInUnitOfWork(ctx, fn)
}

// NoteCache is the cache the use cases invalidate after their writes commit.
type NoteCache interface {
	InvalidateNote(ctx context.Context, id domain.NoteID) error
	InvalidateLists(ctx context.Context) error
	InvalidateAll(ctx context.Context) error
}

// NopNoteCache is used when no cache is configured.
type NopNoteCache struct{}

func (NopNoteCache) InvalidateNote(context.Context, domain.NoteID) error { return nil }
func (NopNoteCache) InvalidateLists(context.Context) error               { return nil }
func (NopNoteCache) InvalidateAll(context.Context) error                 { return nil }

// NoteLoader fetches a note on demand.
type NoteLoader interface {
	Get(ctx context.Context) (*domain.Note, error)
}

// NoteRefs creates a loader for one note id.
type NoteRefs func(id domain.NoteID) NoteLoader

// DissociatedNotes creates loaders that keep working after the unit of work
// that created them has closed. Each Get joins the caller's unit of work or
// opens a fresh one.
func DissociatedNotes[S unitofwork.Session](uow *unitofwork.Facade[S], repo domain.NoteRepository) NoteRefs {
	return func(id domain.NoteID) NoteLoader {
		return unitofwork.Dissociate[S, *domain.Note](uow, unitofwork.SessionFunc[S, *domain.Note](
			func(ctx context.Context, _ S) (*domain.Note, error) {
				return repo.FindByID(ctx, id)
			}))
	}
}

// noteRef pairs an id with its loader.
type noteRef struct {
	id     domain.NoteID
	loader NoteLoader
}

func (r noteRef) ID() domain.NoteID {
	return r.id
}

func (r noteRef) Get(ctx context.Context) (*domain.Note, error) {
	return r.loader.Get(ctx)
}
