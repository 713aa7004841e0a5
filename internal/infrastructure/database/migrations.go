package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/joacominatel/facade/internal/infrastructure/logging"
	"github.com/joacominatel/facade/internal/infrastructure/postgres"
	"github.com/joacominatel/facade/internal/unitofwork"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const bootstrapSQL = `
	CREATE SCHEMA IF NOT EXISTS facade;
	CREATE TABLE IF NOT EXISTS facade.schema_migrations (
		version     VARCHAR(32) PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);
`

// Migration represents a single database migration.
type Migration struct {
	Version     string
	Description string
	UpSQL       string
	DownSQL     string
}

// Migrator applies migrations, each one in its own transaction.
type Migrator struct {
	uow    *unitofwork.Facade[*postgres.Session]
	files  fs.FS
	logger *logging.Logger
}

// NewMigrator creates a migrator over the embedded migrations.
func NewMigrator(uow *unitofwork.Facade[*postgres.Session], logger *logging.Logger) *Migrator {
	return &Migrator{
		uow:    uow,
		files:  migrationsFS,
		logger: logger.WithComponent("migrator"),
	}
}

// Run applies all pending migrations inside one unit of work.
func (m *Migrator) Run(ctx context.Context) error {
	m.logger.MigrationStarted()

	migrations, err := m.loadMigrations()
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	return m.uow.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		if err := m.exec(ctx, bootstrapSQL); err != nil {
			return fmt.Errorf("creating migrations table: %w", err)
		}

		appliedCount := 0
		for _, migration := range migrations {
			applied, err := m.applyMigration(ctx, migration)
			if err != nil {
				m.logger.MigrationFailed(migration.Version, migration.Description, err)
				return fmt.Errorf("applying migration %s: %w", migration.Version, err)
			}
			if applied {
				appliedCount++
			}
		}

		m.logger.MigrationCompleted(appliedCount)
		return nil
	})
}

// parseMigrationName splits 000001_description.up.sql into its parts.
func parseMigrationName(name string) (version, description, direction string, ok bool) {
	base, found := strings.CutSuffix(name, ".up.sql")
	direction = "up"
	if !found {
		if base, found = strings.CutSuffix(name, ".down.sql"); !found {
			return "", "", "", false
		}
		direction = "down"
	}

	version, description, found = strings.Cut(base, "_")
	if !found || version == "" || description == "" {
		return "", "", "", false
	}
	return version, description, direction, true
}

// loadMigrations reads the up and down scripts, sorted by version.
// versions without an up script are skipped.
func (m *Migrator) loadMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(m.files, "migrations")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	byVersion := make(map[string]*Migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, description, direction, ok := parseMigrationName(entry.Name())
		if !ok {
			continue
		}

		// fs paths always use forward slashes
		content, err := fs.ReadFile(m.files, "migrations/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading migration file %s: %w", entry.Name(), err)
		}

		mig, exists := byVersion[version]
		if !exists {
			mig = &Migration{Version: version, Description: description}
			byVersion[version] = mig
		}
		if direction == "up" {
			mig.UpSQL = string(content)
		} else {
			mig.DownSQL = string(content)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, mig := range byVersion {
		if mig.UpSQL != "" {
			migrations = append(migrations, *mig)
		}
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// applyMigration applies a single migration if not already applied.
// returns true if migration was applied, false if already applied.
func (m *Migrator) applyMigration(ctx context.Context, migration Migration) (bool, error) {
	applied, err := m.isApplied(ctx, migration.Version)
	if err != nil {
		return false, fmt.Errorf("checking migration status: %w", err)
	}
	if applied {
		m.logger.MigrationSkipped(migration.Version, migration.Description)
		return false, nil
	}

	_, err = unitofwork.InTransaction[*postgres.Session, struct{}](ctx, m.uow, &migrationReceiver{
		migration: migration,
		logger:    m.logger,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (m *Migrator) isApplied(ctx context.Context, version string) (bool, error) {
	return unitofwork.WithUnitOfWork[*postgres.Session, bool](ctx, m.uow, unitofwork.SessionFunc[*postgres.Session, bool](
		func(ctx context.Context, s *postgres.Session) (bool, error) {
			var exists bool
			err := s.Querier().QueryRow(ctx,
				`SELECT EXISTS(SELECT 1 FROM facade.schema_migrations WHERE version = $1)`,
				version,
			).Scan(&exists)
			return exists, err
		}))
}

func (m *Migrator) exec(ctx context.Context, sql string) error {
	_, err := unitofwork.WithUnitOfWork[*postgres.Session, struct{}](ctx, m.uow, unitofwork.SessionFunc[*postgres.Session, struct{}](
		func(ctx context.Context, s *postgres.Session) (struct{}, error) {
			_, err := s.Querier().Exec(ctx, sql)
			return struct{}{}, err
		}))
	return err
}

// AppliedMigrations returns the applied migration versions in order.
// must run inside a unit of work.
func (m *Migrator) AppliedMigrations(ctx context.Context) ([]string, error) {
	return unitofwork.WithUnitOfWork[*postgres.Session, []string](ctx, m.uow, unitofwork.SessionFunc[*postgres.Session, []string](
		func(ctx context.Context, s *postgres.Session) ([]string, error) {
			rows, err := s.Querier().Query(ctx, `SELECT version FROM facade.schema_migrations ORDER BY version`)
			if err != nil {
				return nil, fmt.Errorf("querying migrations: %w", err)
			}
			defer rows.Close()

			var versions []string
			for rows.Next() {
				var version string
				if err := rows.Scan(&version); err != nil {
					return nil, fmt.Errorf("scanning version: %w", err)
				}
				versions = append(versions, version)
			}
			return versions, rows.Err()
		}))
}

// migrationReceiver runs one migration script and records it. The success
// log line is emitted only once the transaction has committed.
type migrationReceiver struct {
	unitofwork.NopHooks[*postgres.Session]
	migration Migration
	logger    *logging.Logger
}

func (r *migrationReceiver) Receive(ctx context.Context, s *postgres.Session) (struct{}, error) {
	if _, err := s.Querier().Exec(ctx, r.migration.UpSQL); err != nil {
		return struct{}{}, fmt.Errorf("executing migration: %w", err)
	}
	if _, err := s.Querier().Exec(ctx,
		`INSERT INTO facade.schema_migrations (version, description) VALUES ($1, $2)`,
		r.migration.Version, r.migration.Description,
	); err != nil {
		return struct{}{}, fmt.Errorf("recording migration: %w", err)
	}
	return struct{}{}, nil
}

func (r *migrationReceiver) TranslateError(err error) error {
	return unitofwork.DefaultTranslate(err)
}

func (r *migrationReceiver) PostCommit(ctx context.Context, s *postgres.Session) error {
	r.logger.MigrationApplied(r.migration.Version, r.migration.Description)
	return nil
}
