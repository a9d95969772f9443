package db

import (
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// LedgerMigrationsTable tracks the order ledger schema version. It is kept
// apart from the default table so the ledger can share a database.
const LedgerMigrationsTable = "ledger_schema_migrations"

//go:embed migrations/*.sql
var migrationsFS embed.FS

func ledgerSource() (source.Driver, error) {
	return iofs.New(migrationsFS, "migrations")
}

// RunMigrations brings the orders and order_items tables up to the latest
// embedded version.
func RunMigrations(dsn string, logger *log.Logger) error {
	if dsn == "" {
		return errors.New("ledger migrations: ORDER_DB_DSN not set")
	}

	m, err := newLedgerMigrator(dsn)
	if err != nil {
		return err
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Printf("ledger migrations: close: %v", errors.Join(srcErr, dbErr))
		}
	}()

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Printf("ledger migrations: schema already current")
	case err != nil:
		return fmt.Errorf("ledger migrations: up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("ledger migrations: version: %w", err)
	}
	if dirty {
		return fmt.Errorf("ledger migrations: version %d is dirty", version)
	}
	logger.Printf("ledger migrations: schema at version %d", version)
	return nil
}

func newLedgerMigrator(dsn string) (*migrate.Migrate, error) {
	src, err := ledgerSource()
	if err != nil {
		return nil, fmt.Errorf("ledger migrations: source: %w", err)
	}

	conn, err := openDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger migrations: open db: %w", err)
	}

	target, err := postgres.WithInstance(conn, &postgres.Config{MigrationsTable: LedgerMigrationsTable})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ledger migrations: db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("ledger", src, "postgres", target)
	if err != nil {
		_ = target.Close()
		return nil, fmt.Errorf("ledger migrations: %w", err)
	}
	return m, nil
}
