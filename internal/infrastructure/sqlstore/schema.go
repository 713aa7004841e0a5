package sqlstore

import (
	"context"

	"github.com/joacominatel/facade/internal/unitofwork"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS notes (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL CHECK (length(title) > 0),
		body        TEXT,
		created_at  INTEGER NOT NULL,
		updated_at  INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS notes_created_at_idx ON notes (created_at DESC, id)`,
}

// Migrate creates the notes schema in a single transaction.
func Migrate(ctx context.Context, uow *unitofwork.Facade[*Session]) error {
	return uow.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		_, err := unitofwork.InSessionTransaction[*Session, struct{}](ctx, uow, unitofwork.SessionFunc[*Session, struct{}](
			func(ctx context.Context, s *Session) (struct{}, error) {
				for _, stmt := range schema {
					if _, err := s.Querier().ExecContext(ctx, stmt); err != nil {
						return struct{}{}, err
					}
				}
				return struct{}{}, nil
			}))
		return err
	})
}
