package database

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/facade/internal/infrastructure/logging"
	"github.com/joacominatel/facade/internal/infrastructure/postgres"
	"github.com/joacominatel/facade/internal/unitofwork"
)

func testFiles() fstest.MapFS {
	return fstest.MapFS{
		"migrations/000002_second.up.sql":   {Data: []byte("CREATE TABLE facade.second")},
		"migrations/000001_first.up.sql":    {Data: []byte("CREATE TABLE facade.first")},
		"migrations/000001_first.down.sql":  {Data: []byte("DROP TABLE facade.first")},
		"migrations/000003_orphan.down.sql": {Data: []byte("DROP TABLE facade.orphan")},
		"migrations/README.md":              {Data: []byte("not a migration")},
	}
}

func newTestMigrator(t *testing.T) (pgxmock.PgxPoolIface, *Migrator) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	uow := unitofwork.New[*postgres.Session](postgres.NewEngine(mock), logging.Discard())
	m := NewMigrator(uow, logging.Discard())
	m.files = testFiles()
	return mock, m
}

func expectStatus(mock pgxmock.PgxPoolIface, version string, applied bool) {
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(version).
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(applied))
}

func TestParseMigrationName(t *testing.T) {
	tests := []struct {
		name      string
		version   string
		desc      string
		direction string
		ok        bool
	}{
		{"000001_create_notes.up.sql", "000001", "create_notes", "up", true},
		{"000001_create_notes.down.sql", "000001", "create_notes", "down", true},
		{"000001.up.sql", "", "", "", false},
		{"000001_create_notes.sql", "", "", "", false},
		{"README.md", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, desc, direction, ok := parseMigrationName(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.version, version)
			assert.Equal(t, tt.desc, desc)
			assert.Equal(t, tt.direction, direction)
		})
	}
}

func TestMigrator_LoadMigrations(t *testing.T) {
	_, m := newTestMigrator(t)

	migrations, err := m.loadMigrations()

	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "000001", migrations[0].Version)
	assert.Equal(t, "DROP TABLE facade.first", migrations[0].DownSQL)
	assert.Equal(t, "000002", migrations[1].Version)
	assert.Empty(t, migrations[1].DownSQL)
}

func TestMigrator_EmbeddedMigrationsLoad(t *testing.T) {
	m := &Migrator{files: migrationsFS, logger: logging.Discard()}

	migrations, err := m.loadMigrations()

	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, "000001", migrations[0].Version)
	assert.Contains(t, migrations[0].UpSQL, "facade.notes")
}

func TestMigrator_Run(t *testing.T) {
	t.Run("Should apply pending migrations one transaction each", func(t *testing.T) {
		mock, m := newTestMigrator(t)

		mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS facade").
			WillReturnResult(pgxmock.NewResult("CREATE", 0))
		expectStatus(mock, "000001", true)
		expectStatus(mock, "000002", false)
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE facade.second").
			WillReturnResult(pgxmock.NewResult("CREATE", 0))
		mock.ExpectExec("INSERT INTO facade.schema_migrations").
			WithArgs("000002", "second").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, m.Run(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should roll back and stop on a failing migration", func(t *testing.T) {
		mock, m := newTestMigrator(t)

		mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS facade").
			WillReturnResult(pgxmock.NewResult("CREATE", 0))
		expectStatus(mock, "000001", false)
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE facade.first").
			WillReturnError(errors.New("syntax error"))
		mock.ExpectRollback()

		err := m.Run(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "applying migration 000001")
		assert.Contains(t, err.Error(), "syntax error")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMigrator_AppliedMigrations(t *testing.T) {
	mock, m := newTestMigrator(t)
	mock.ExpectQuery("SELECT version FROM facade.schema_migrations").
		WillReturnRows(mock.NewRows([]string{"version"}).AddRow("000001").AddRow("000002"))

	var versions []string
	err := m.uow.RunInUnitOfWork(context.Background(), func(ctx context.Context) error {
		var err error
		versions, err = m.AppliedMigrations(ctx)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"000001", "000002"}, versions)
	assert.NoError(t, mock.ExpectationsWereMet())
}
