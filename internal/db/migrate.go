package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies all pending schema migrations for the active driver.
// It returns the schema version after the run.
func (d *Database) Migrate() (uint, error) {
	dir := "migrations/sqlite"
	if d.driver == driverPostgres {
		dir = "migrations/postgres"
	}

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return 0, fmt.Errorf("create migration source: %w", err)
	}

	var m *migrate.Migrate
	if d.driver == driverPostgres {
		m, err = migrate.NewWithSourceInstance("iofs", src, d.dsn)
		if err != nil {
			return 0, fmt.Errorf("create migrate instance: %w", err)
		}
		defer m.Close()
	} else {
		// The sqlite3 driver closes the *sql.DB it was handed, so the
		// migrator is not closed here; only its source is released.
		defer src.Close()
		drv, err := sqlite3.WithInstance(d.db, &sqlite3.Config{})
		if err != nil {
			return 0, fmt.Errorf("create migrate driver: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", src, driverSQLite, drv)
		if err != nil {
			return 0, fmt.Errorf("create migrate instance: %w", err)
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}
