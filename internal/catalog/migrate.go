package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/gofrs/flock"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"recbase/internal/services"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

// migrator returns the store's migrate instance. The migrate drivers take
// ownership of a pooled connection, so one instance is reused per store.
func (s *Store) migrator() (*migrate.Migrate, error) {
	if s.migrations != nil {
		return s.migrations, nil
	}
	var (
		driver database.Driver
		dir    string
		err    error
	)
	switch s.dialect {
	case dialectPostgres:
		dir = "migrations/postgres"
		driver, err = postgres.WithInstance(s.db, &postgres.Config{})
	default:
		dir = "migrations/sqlite"
		driver, err = sqlite.WithInstance(s.db, &sqlite.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}

	sub, err := fs.Sub(migrationFS, dir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, s.dialect.String(), driver)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	s.migrations = m
	return m, nil
}

// withMigrationLock serializes schema changes across processes sharing a
// SQLite file. PostgreSQL uses the advisory lock taken by the migrate driver.
func (s *Store) withMigrationLock(fn func() error) error {
	if s.dialect != dialectSQLite || s.location == ":memory:" {
		return fn()
	}
	lock := flock.New(s.location + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_ = lock.Unlock()
	}()
	return fn()
}

func (s *Store) migrateUp() error {
	err := s.withMigrationLock(func() error {
		m, err := s.migrator()
		if err != nil {
			return err
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("run up migrations: %w", err)
		}
		return nil
	})
	if err != nil {
		return services.Wrap(services.ErrStorageUnavailable, services.StagePersist, "migrate", s.location, err)
	}
	return nil
}

// schemaVersion reports the applied migration version.
func (s *Store) schemaVersion() (uint, bool, error) {
	m, err := s.migrator()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}
