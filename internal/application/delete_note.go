package application

import (
	"context"
	"fmt"

	"github.com/joacominatel/facade/internal/domain"
	"github.com/joacominatel/facade/internal/infrastructure/logging"
	"github.com/joacominatel/facade/internal/unitofwork"
)

// DeleteNoteUseCase removes notes.
type DeleteNoteUseCase struct {
	uow      UnitOfWork
	noteRepo domain.NoteRepository
	cache    NoteCache
	logger   *logging.Logger
}

// NewDeleteNoteUseCase creates a new DeleteNoteUseCase.
func NewDeleteNoteUseCase(uow UnitOfWork, noteRepo domain.NoteRepository, cache NoteCache, logger *logging.Logger) *DeleteNoteUseCase {
	return &DeleteNoteUseCase{
		uow:      uow,
		noteRepo: noteRepo,
		cache:    cache,
		logger:   logger.WithComponent("delete_note"),
	}
}

// Execute deletes the note and, once committed, evicts it from the cache.
func (uc *DeleteNoteUseCase) Execute(ctx context.Context, id string) error {
	noteID, err := domain.ParseNoteID(id)
	if err != nil {
		return fmt.Errorf("%w: note id: %v", domain.ErrInvalidInput, err)
	}

	err = ensureUnitOfWork(ctx, uc.uow, func(ctx context.Context) error {
		return uc.uow.RunInTransaction(ctx, func(ctx context.Context) error {
			return uc.noteRepo.Delete(ctx, noteID)
		}, unitofwork.Hooks{
			PostCommit: func(ctx context.Context) error {
				if err := uc.cache.InvalidateNote(ctx, noteID); err != nil {
					uc.logger.Warn("failed to invalidate deleted note", "note_id", noteID.String(), "error", err)
				}
				return nil
			},
		})
	})
	if err != nil {
		return err
	}

	uc.logger.Info("note deleted", "note_id", noteID.String())
	return nil
}
