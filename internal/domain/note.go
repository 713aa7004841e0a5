package domain

import (
	"context"
	"errors"
	"time"
)

// Note is the entity served by the notes API.
type Note struct {
	id        NoteID
	title     Title
	body      string
	createdAt time.Time
	updatedAt time.Time
}

// MaxBodyLength bounds a note body in bytes.
const MaxBodyLength = 10000

var ErrBodyTooLong = errors.New("note body must be at most 10000 bytes")

// NewNote creates a new Note with a fresh id.
func NewNote(title Title, body string) (*Note, error) {
	if len(body) > MaxBodyLength {
		return nil, ErrBodyTooLong
	}

	now := time.Now().UTC()
	return &Note{
		id:        NewNoteID(),
		title:     title,
		body:      body,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructNote recreates a Note from stored data.
// use this when loading from a store, not for creating new notes.
func ReconstructNote(id NoteID, title Title, body string, createdAt, updatedAt time.Time) *Note {
	return &Note{
		id:        id,
		title:     title,
		body:      body,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the note's unique identifier.
func (n *Note) ID() NoteID {
	return n.id
}

// Title returns the note's title.
func (n *Note) Title() Title {
	return n.title
}

// Body returns the note's body.
func (n *Note) Body() string {
	return n.body
}

// CreatedAt returns when the note was created.
func (n *Note) CreatedAt() time.Time {
	return n.createdAt
}

// UpdatedAt returns when the note was last updated.
func (n *Note) UpdatedAt() time.Time {
	return n.updatedAt
}

// Edit replaces the note's content.
func (n *Note) Edit(title Title, body string) error {
	if len(body) > MaxBodyLength {
		return ErrBodyTooLong
	}
	n.title = title
	n.body = body
	n.updatedAt = time.Now().UTC()
	return nil
}

// NoteRepository defines persistence for notes.
// every method must run inside a unit of work opened by the caller.
type NoteRepository interface {
	// Save inserts a note. A duplicate id is a conflict.
	Save(ctx context.Context, note *Note) error

	// FindByID retrieves a note, failing with ErrNotFound when there is none.
	FindByID(ctx context.Context, id NoteID) (*Note, error)

	// List returns notes newest first.
	List(ctx context.Context, limit, offset int) ([]*Note, error)

	// Delete removes a note, failing with ErrNotFound when there is none.
	Delete(ctx context.Context, id NoteID) error

	// DeleteCreatedBefore removes notes older than cutoff and returns how many went.
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NoteRef is a note that can be fetched again after the unit of work that
// found it has closed.
type NoteRef interface {
	ID() NoteID
	Get(ctx context.Context) (*Note, error)
}
