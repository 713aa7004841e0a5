package cache

import (
	"context"
	"errors"
	"time"

	"github.com/joacominatel/facade/internal/domain"
	"github.com/joacominatel/facade/internal/infrastructure/logging"
)

// NoteRepositoryWithCache wraps a NoteRepository with read-through caching.
// Writes go straight to the repository; callers invalidate the cache once
// their transaction has committed. A nil store disables caching.
type NoteRepositoryWithCache struct {
	repo   domain.NoteRepository
	store  *Store
	logger *logging.Logger
}

// NewNoteRepositoryWithCache creates a cached note repository.
func NewNoteRepositoryWithCache(repo domain.NoteRepository, store *Store, logger *logging.Logger) *NoteRepositoryWithCache {
	return &NoteRepositoryWithCache{
		repo:   repo,
		store:  store,
		logger: logger.WithComponent("note_repository_cache"),
	}
}

// Save delegates to the underlying repository.
func (r *NoteRepositoryWithCache) Save(ctx context.Context, note *domain.Note) error {
	return r.repo.Save(ctx, note)
}

// FindByID checks redis first, then the repository, caching what it finds.
// Redis failures fall back to the repository.
func (r *NoteRepositoryWithCache) FindByID(ctx context.Context, id domain.NoteID) (*domain.Note, error) {
	if r.store == nil {
		return r.repo.FindByID(ctx, id)
	}

	note, err := r.store.GetNote(ctx, id)
	if err == nil {
		return note, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		r.logger.Warn("cache read failed, falling back to database", "note_id", id.String(), "error", err)
	}

	note, err = r.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.store.PutNote(ctx, note); err != nil {
		r.logger.Warn("failed to cache note", "note_id", id.String(), "error", err)
	}
	return note, nil
}

// List checks redis for the page first.
func (r *NoteRepositoryWithCache) List(ctx context.Context, limit, offset int) ([]*domain.Note, error) {
	if r.store == nil {
		return r.repo.List(ctx, limit, offset)
	}

	notes, err := r.store.GetList(ctx, limit, offset)
	if err == nil {
		return notes, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		r.logger.Warn("cache read failed, falling back to database", "limit", limit, "offset", offset, "error", err)
	}

	notes, err = r.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	if err := r.store.PutList(ctx, limit, offset, notes); err != nil {
		r.logger.Warn("failed to cache notes", "error", err)
	}
	return notes, nil
}

// Delete delegates to the underlying repository.
func (r *NoteRepositoryWithCache) Delete(ctx context.Context, id domain.NoteID) error {
	return r.repo.Delete(ctx, id)
}

// DeleteCreatedBefore delegates to the underlying repository.
func (r *NoteRepositoryWithCache) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.repo.DeleteCreatedBefore(ctx, cutoff)
}

var _ domain.NoteRepository = (*NoteRepositoryWithCache)(nil)
