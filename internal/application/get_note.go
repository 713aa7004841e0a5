package application

import (
	"context"
	"fmt"

	"github.com/joacominatel/facade/internal/domain"
)

// GetNoteUseCase hands out notes by id.
type GetNoteUseCase struct {
	refs NoteRefs
}

// NewGetNoteUseCase creates a new GetNoteUseCase.
func NewGetNoteUseCase(refs NoteRefs) *GetNoteUseCase {
	return &GetNoteUseCase{refs: refs}
}

// Execute parses id and returns a reference to the note. Nothing is read
// until the reference's Get, which may happen after the caller's unit of
// work has closed.
func (uc *GetNoteUseCase) Execute(ctx context.Context, id string) (domain.NoteRef, error) {
	noteID, err := domain.ParseNoteID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: note id: %v", domain.ErrInvalidInput, err)
	}
	return noteRef{id: noteID, loader: uc.refs(noteID)}, nil
}
