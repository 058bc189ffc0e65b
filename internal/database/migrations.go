package database

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
)

// schemaTables lists the tables each migration version creates.
var schemaTables = []struct {
	version uint
	table   string
}{
	{1, "profiles"},
	{2, "assessments"},
}

// SchemaTables returns the tables present once migrations up to version are
// applied, in creation order.
func SchemaTables(version uint) []string {
	tables := []string{}
	for _, t := range schemaTables {
		if t.version <= version {
			tables = append(tables, t.table)
		}
	}
	return tables
}

// MigrationRunner applies the SQL files under migrations/ (profiles and
// assessments tables).
type MigrationRunner struct {
	migrate *migrate.Migrate
	log     *logrus.Logger
}

// NewMigrationRunner creates a new migration runner
func NewMigrationRunner(databaseURL, migrationsPath string, logger *logrus.Logger) (*MigrationRunner, error) {
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		databaseURL,
	)
	if err != nil {
		return nil, fmt.Errorf("creating migration instance: %w", err)
	}

	return &MigrationRunner{
		migrate: m,
		log:     logger,
	}, nil
}

// Up runs all pending migrations
func (mr *MigrationRunner) Up() error {
	mr.log.Info("Running database migrations up")

	if err := mr.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			mr.log.Info("No pending migrations to run")
			return nil
		}
		return fmt.Errorf("running migrations up: %w", err)
	}

	mr.logVersion("Migrations completed successfully")
	return nil
}

// Down rolls back one migration
func (mr *MigrationRunner) Down() error {
	return mr.Steps(-1)
}

// Steps applies n pending migrations, or rolls back -n when n is negative.
// Stepping past the first or last migration is a no-op.
func (mr *MigrationRunner) Steps(n int) error {
	if n == 0 {
		return nil
	}
	mr.log.WithField("steps", n).Info("Stepping database migrations")

	if err := mr.migrate.Steps(n); err != nil {
		var short migrate.ErrShortLimit
		switch {
		case errors.Is(err, migrate.ErrNoChange), errors.Is(err, fs.ErrNotExist):
			mr.log.Info("No migrations to step through")
			return nil
		case errors.As(err, &short):
			mr.log.WithField("short", short.Short).Info("Fewer migrations available than requested")
		default:
			return fmt.Errorf("stepping migrations by %d: %w", n, err)
		}
	}

	mr.logVersion("Migration steps completed successfully")
	return nil
}

func (mr *MigrationRunner) logVersion(msg string) {
	version, dirty, err := mr.migrate.Version()
	if err != nil {
		mr.log.WithError(err).Warn("Could not get migration version")
		return
	}
	mr.log.WithFields(logrus.Fields{
		"version": version,
		"dirty":   dirty,
		"tables":  SchemaTables(version),
	}).Info(msg)
}

// Version returns the current migration version. A database without any
// applied migration reports version 0.
func (mr *MigrationRunner) Version() (uint, bool, error) {
	version, dirty, err := mr.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Close closes the migration runner
func (mr *MigrationRunner) Close() error {
	sourceErr, dbErr := mr.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("closing migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("closing migration database: %w", dbErr)
	}
	return nil
}
