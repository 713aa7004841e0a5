package application

import (
	"context"
	"fmt"

	"github.com/joacominatel/facade/internal/domain"
	"github.com/joacominatel/facade/internal/infrastructure/logging"
	"github.com/joacominatel/facade/internal/unitofwork"
)

// CreateNoteUseCase handles the creation of new notes.
type CreateNoteUseCase struct {
	uow      UnitOfWork
	noteRepo domain.NoteRepository
	cache    NoteCache
	logger   *logging.Logger
}

// NewCreateNoteUseCase creates a new CreateNoteUseCase.
func NewCreateNoteUseCase(
	uow UnitOfWork,
	noteRepo domain.NoteRepository,
	cache NoteCache,
	logger *logging.Logger,
) *CreateNoteUseCase {
	return &CreateNoteUseCase{
		uow:      uow,
		noteRepo: noteRepo,
		cache:    cache,
		logger:   logger.WithComponent("create_note"),
	}
}

// CreateNoteInput contains the data needed to create a note.
type CreateNoteInput struct {
	// Title is required, 1-200 characters after trimming
	Title string

	// Body is optional
	Body string
}

// CreateNoteOutput contains the created note.
type CreateNoteOutput struct {
	Note *domain.Note
}

// Execute validates the input and saves the note in its own transaction.
// the insert is read back before commit; once committed, cached list pages
// are dropped so the new note shows up.
func (uc *CreateNoteUseCase) Execute(ctx context.Context, input CreateNoteInput) (*CreateNoteOutput, error) {
	title, err := domain.NewTitle(input.Title)
	if err != nil {
		uc.logger.Info("create note failed: invalid title", "error", err.Error())
		return nil, err
	}

	note, err := domain.NewNote(title, input.Body)
	if err != nil {
		uc.logger.Info("create note failed: invalid note", "error", err.Error())
		return nil, err
	}

	hooks := unitofwork.Hooks{
		PreCommit: func(ctx context.Context) error {
			saved, err := uc.noteRepo.FindByID(ctx, note.ID())
			if err != nil {
				return fmt.Errorf("reading back note: %w", err)
			}
			if saved.Title() != note.Title() {
				return fmt.Errorf("note %s was not stored as written", note.ID())
			}
			return nil
		},
		PostCommit: func(ctx context.Context) error {
			if err := uc.cache.InvalidateLists(ctx); err != nil {
				uc.logger.Warn("failed to invalidate note lists", "error", err)
			}
			return nil
		},
		PostRollback: func(ctx context.Context) error {
			// the read-back may have cached a note that never committed
			if err := uc.cache.InvalidateNote(ctx, note.ID()); err != nil {
				uc.logger.Warn("failed to invalidate rolled back note", "note_id", note.ID().String(), "error", err)
			}
			return nil
		},
	}

	err = ensureUnitOfWork(ctx, uc.uow, func(ctx context.Context) error {
		return uc.uow.RunInTransaction(ctx, func(ctx context.Context) error {
			return uc.noteRepo.Save(ctx, note)
		}, hooks)
	})
	if err != nil {
		uc.logger.Error("create note failed: save error",
			"note_id", note.ID().String(),
			"error", err.Error(),
		)
		return nil, err
	}

	uc.logger.Info("note created",
		"note_id", note.ID().String(),
		"title", note.Title().String(),
	)

	return &CreateNoteOutput{Note: note}, nil
}
