package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/joacominatel/facade/internal/domain"
	"github.com/joacominatel/facade/internal/unitofwork"
)

var noteColumns = []string{"id", "title", "body", "created_at", "updated_at"}

// NoteRepository implements domain.NoteRepository on SQLite.
// every call needs a unit of work bound to ctx by the caller.
type NoteRepository struct {
	uow *unitofwork.Facade[*Session]
}

// NewNoteRepository creates a new NoteRepository.
func NewNoteRepository(uow *unitofwork.Facade[*Session]) *NoteRepository {
	return &NoteRepository{uow: uow}
}

var _ domain.NoteRepository = (*NoteRepository)(nil)

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
	query, args, err := squirrel.
		Insert("notes").
		Columns(noteColumns...).
		Values(
			note.ID().String(),
			note.Title().String(),
			nullableString(note.Body()),
			note.CreatedAt().UnixNano(),
			note.UpdatedAt().UnixNano(),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build insert note: %w", err)
	}

	_, err = withQuerier(ctx, r.uow, "saving note", func(ctx context.Context, q Querier) (struct{}, error) {
		_, err := q.ExecContext(ctx, query, args...)
		return struct{}{}, err
	})
	return err
}

// FindByID retrieves a note by its ID.
func (r *NoteRepository) FindByID(ctx context.Context, id domain.NoteID) (*domain.Note, error) {
	query, args, err := squirrel.
		Select(noteColumns...).
		From("notes").
		Where(squirrel.Eq{"id": id.String()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build select note: %w", err)
	}

	return withQuerier(ctx, r.uow, "finding note", func(ctx context.Context, q Querier) (*domain.Note, error) {
		return scanNote(q.QueryRowContext(ctx, query, args...))
	})
}

// List returns notes newest first.
func (r *NoteRepository) List(ctx context.Context, limit, offset int) ([]*domain.Note, error) {
	query, args, err := squirrel.
		Select(noteColumns...).
		From("notes").
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build list notes: %w", err)
	}

	return withQuerier(ctx, r.uow, "listing notes", func(ctx context.Context, q Querier) ([]*domain.Note, error) {
		rows, err := q.QueryContext(ctx, query, args...)
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
	query, args, err := squirrel.
		Delete("notes").
		Where(squirrel.Eq{"id": id.String()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build delete note: %w", err)
	}

	_, err = withQuerier(ctx, r.uow, "deleting note", func(ctx context.Context, q Querier) (struct{}, error) {
		n, err := exec(ctx, q, query, args)
		if err != nil {
			return struct{}{}, err
		}
		if n == 0 {
			return struct{}{}, domain.ErrNotFound
		}
		return struct{}{}, nil
	})
	return err
}

// DeleteCreatedBefore removes notes created before cutoff.
func (r *NoteRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := squirrel.
		Delete("notes").
		Where(squirrel.Lt{"created_at": cutoff.UnixNano()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("sqlite: build purge notes: %w", err)
	}

	return withQuerier(ctx, r.uow, "purging notes", func(ctx context.Context, q Querier) (int64, error) {
		return exec(ctx, q, query, args)
	})
}

func exec(ctx context.Context, q Querier, query string, args []any) (int64, error) {
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanNote(row Row) (*domain.Note, error) {
	var (
		id        string
		title     string
		body      sql.NullString
		createdAt int64
		updatedAt int64
	)

	if err := row.Scan(&id, &title, &body, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	noteID, err := domain.ParseNoteID(id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: corrupted note id: %w", err)
	}

	return domain.ReconstructNote(
		noteID,
		domain.TitleFromTrusted(title),
		body.String,
		time.Unix(0, createdAt).UTC(),
		time.Unix(0, updatedAt).UTC(),
	), nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// translateError maps sqlite failures onto the unit of work's error kinds.
func translateError(op string, err error) error {
	var sqliteErr *sqlite.Error

	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, sql.ErrNoRows):
		return unitofwork.NewError(unitofwork.KindNotFound, op, domain.ErrNotFound)
	case errors.As(err, &sqliteErr):
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT:
			return unitofwork.NewError(unitofwork.KindConflict, op,
				fmt.Errorf("%w: %s", domain.ErrAlreadyExists, sqliteErr.Error()))
		case sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return unitofwork.NewError(unitofwork.KindInvalid, op,
				fmt.Errorf("%w: %s", domain.ErrInvalidInput, sqliteErr.Error()))
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return unitofwork.NewError(unitofwork.KindUnavailable, op, err)
		}
	case errors.Is(err, sql.ErrConnDone), errors.Is(err, context.DeadlineExceeded):
		return unitofwork.NewError(unitofwork.KindUnavailable, op, err)
	}
	return unitofwork.NewError(unitofwork.KindInternal, op, err)
}
