package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations
var migrationFS embed.FS

// Migrate applies pending schema migrations for the store's dialect.
// It is safe to call on an up-to-date database.
func (s *Store) Migrate(ctx context.Context) error {
	src, err := iofs.New(migrationFS, "migrations/"+dialectDir(s.driver))
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	var (
		driver database.Driver
		closer func()
	)
	switch s.driver {
	case DriverPostgres:
		// The postgres migrate driver closes the *sql.DB it was given, so it gets its own.
		sqlDB, err := sql.Open(DriverPostgres, s.dsn)
		if err != nil {
			return fmt.Errorf("failed to open migration connection: %w", err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return fmt.Errorf("failed to ping migration connection: %w", err)
		}
		driver, err = postgres.WithInstance(sqlDB, &postgres.Config{})
		if err != nil {
			_ = sqlDB.Close()
			return fmt.Errorf("failed to create migration driver: %w", err)
		}
		closer = func() {
			if err := driver.Close(); err != nil {
				s.logger.Warn("failed to close migration database", zap.Error(err))
			}
		}
	case DriverSQLite:
		// Closing the sqlite migrate driver would close the shared pool; only the source is released.
		driver, err = sqlite.WithInstance(s.db.DB, &sqlite.Config{})
		if err != nil {
			return fmt.Errorf("failed to create migration driver: %w", err)
		}
		closer = func() {}
	default:
		return fmt.Errorf("sqlstore: unsupported driver %q", s.driver)
	}
	defer closer()

	m, err := migrate.NewWithInstance("iofs", src, dialectDir(s.driver), driver)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			s.logger.Warn("failed to close migration source", zap.Error(err))
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		s.logger.Info("no migrations to apply (database up-to-date)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, _ := m.Version()
	s.logger.Info("applied migrations", zap.Uint("version", version))
	return nil
}

func dialectDir(driver string) string {
	if driver == DriverPostgres {
		return "postgres"
	}
	return "sqlite"
}
