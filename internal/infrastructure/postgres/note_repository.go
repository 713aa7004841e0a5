package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/joacominatel/facade/internal/domain"
	"github.com/joacominatel/facade/internal/unitofwork"
)

// NoteRepository implements domain.NoteRepository using Postgres.
// every call needs a unit of work bound to ctx by the caller.
type NoteRepository struct {
	uow *unitofwork.Facade[*Session]
}

// NewNoteRepository creates a new NoteRepository.
func NewNoteRepository(uow *unitofwork.Facade[*Session]) *NoteRepository {
	return &NoteRepository{uow: uow}
}

var _ domain.NoteRepository = (*NoteRepository)(nil)

// withQuerier runs fn against the bound session's querier, translating any
// failure with the op name.
func withQuerier[T any](ctx context.Context, uow *unitofwork.Facade[*Session], op string, fn func(ctx context.Context, q Querier) (T, error)) (T, error) {
	return unitofwork.WithUnitOfWork[*Session, T](ctx, uow, unitofwork.Translating[*Session, T](
		func(ctx context.Context, s *Session) (T, error) {
			return fn(ctx, s.Querier())
		},
		func(err error) error {
			return translateError(op, err)
		},
	))
}

// Save inserts a note.
func (r *NoteRepository) Save(ctx context.Context, note *domain.Note) error {
	const query = `
		INSERT INTO facade.notes (id, title, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := withQuerier(ctx, r.uow, "saving note", func(ctx context.Context, q Querier) (struct{}, error) {
		_, err := q.Exec(ctx, query,
			note.ID().UUID(),
			note.Title().String(),
			nullableString(note.Body()),
			note.CreatedAt(),
			note.UpdatedAt(),
		)
		return struct{}{}, err
	})
	return err
}

// FindByID retrieves a note by its ID.
func (r *NoteRepository) FindByID(ctx context.Context, id domain.NoteID) (*domain.Note, error) {
	const query = `
		SELECT id, title, body, created_at, updated_at
		FROM facade.notes
		WHERE id = $1
	`

	return withQuerier(ctx, r.uow, "finding note", func(ctx context.Context, q Querier) (*domain.Note, error) {
		return scanNote(q.QueryRow(ctx, query, id.UUID()))
	})
}

// List returns notes newest first.
func (r *NoteRepository) List(ctx context.Context, limit, offset int) ([]*domain.Note, error) {
	const query = `
		SELECT id, title, body, created_at, updated_at
		FROM facade.notes
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`

	return withQuerier(ctx, r.uow, "listing notes", func(ctx context.Context, q Querier) ([]*domain.Note, error) {
		rows, err := q.Query(ctx, query, limit, offset)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		notes := []*domain.Note{}
		for rows.Next() {
			note, err := scanNote(rows)
			if err != nil {
				return nil, err
			}
			notes = append(notes, note)
		}
		return notes, rows.Err()
	})
}

// Delete removes a note.
func (r *NoteRepository) Delete(ctx context.Context, id domain.NoteID) error {
	const query = `DELETE FROM facade.notes WHERE id = $1`

	_, err := withQuerier(ctx, r.uow, "deleting note", func(ctx context.Context, q Querier) (struct{}, error) {
		result, err := q.Exec(ctx, query, id.UUID())
		if err != nil {
			return struct{}{}, err
		}
		if result.RowsAffected() == 0 {
			return struct{}{}, domain.ErrNotFound
		}
		return struct{}{}, nil
	})
	return err
}

// DeleteCreatedBefore removes notes created before cutoff.
func (r *NoteRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM facade.notes WHERE created_at < $1`

	return withQuerier(ctx, r.uow, "purging notes", func(ctx context.Context, q Querier) (int64, error) {
		result, err := q.Exec(ctx, query, cutoff)
		if err != nil {
			return 0, err
		}
		return result.RowsAffected(), nil
	})
}

func scanNote(row pgx.Row) (*domain.Note, error) {
	var (
		id        string
		title     string
		body      *string
		createdAt time.Time
		updatedAt time.Time
	)

	if err := row.Scan(&id, &title, &body, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	// if parsing fails, we have data corruption
	noteID, err := domain.ParseNoteID(id)
	if err != nil {
		return nil, fmt.Errorf("corrupted note id in database: %w", err)
	}

	return domain.ReconstructNote(
		noteID,
		domain.TitleFromTrusted(title),
		derefString(body),
		createdAt,
		updatedAt,
	), nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
