package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// NoteID represents a unique identifier for a note.
// wrapping uuid to enforce type safety and prevent mixing with other ids.
type NoteID struct {
	value uuid.UUID
}

// NewNoteID creates a new random NoteID.
func NewNoteID() NoteID {
	return NoteID{value: uuid.New()}
}

// ParseNoteID parses a string into a NoteID.
func ParseNoteID(s string) (NoteID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NoteID{}, fmt.Errorf("invalid note id: %w", err)
	}
	return NoteID{value: id}, nil
}

// NoteIDFromUUID creates a NoteID from an existing uuid.
func NoteIDFromUUID(id uuid.UUID) NoteID {
	return NoteID{value: id}
}

// String returns the string representation of the NoteID.
func (id NoteID) String() string {
	return id.value.String()
}

// UUID returns the underlying uuid value.
func (id NoteID) UUID() uuid.UUID {
	return id.value
}

// IsZero returns true if the NoteID is not set.
func (id NoteID) IsZero() bool {
	return id.value == uuid.Nil
}

// Title represents a validated note title.
// must be 1-200 characters after trimming surrounding whitespace.
type Title struct {
	value string
}

const MaxTitleLength = 200

var (
	ErrTitleEmpty   = errors.New("title cannot be empty")
	ErrTitleTooLong = errors.New("title must be at most 200 characters")
)

// NewTitle creates a new Title from a string, validating its length.
func NewTitle(s string) (Title, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Title{}, ErrTitleEmpty
	}
	if utf8.RuneCountInString(s) > MaxTitleLength {
		return Title{}, ErrTitleTooLong
	}
	return Title{value: s}, nil
}

// TitleFromTrusted creates a Title without validation.
// only use this when loading from a store where data is already validated.
func TitleFromTrusted(s string) Title {
	return Title{value: s}
}

// String returns the string representation of the Title.
func (t Title) String() string {
	return t.value
}
