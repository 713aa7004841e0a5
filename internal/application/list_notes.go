package application

import (
	"context"

	"github.com/joacominatel/facade/internal/domain"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ListNotesInput is a page request. Out of range values are clamped.
type ListNotesInput struct {
	Limit  int
	Offset int
}

// ListNotesUseCase pages through notes, newest first.
type ListNotesUseCase struct {
	uow      UnitOfWork
	noteRepo domain.NoteRepository
}

// NewListNotesUseCase creates a new ListNotesUseCase.
func NewListNotesUseCase(uow UnitOfWork, noteRepo domain.NoteRepository) *ListNotesUseCase {
	return &ListNotesUseCase{uow: uow, noteRepo: noteRepo}
}

// Execute returns one page of notes.
func (uc *ListNotesUseCase) Execute(ctx context.Context, input ListNotesInput) ([]*domain.Note, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := max(input.Offset, 0)

	var notes []*domain.Note
	err := ensureUnitOfWork(ctx, uc.uow, func(ctx context.Context) error {
		var err error
		notes, err = uc.noteRepo.List(ctx, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	return notes, nil
}
