/*
Package sqlite opens a SQLite-backed store.TxStore.

PURPOSE:
  Opens the database file, applies the embedded migrations and hands the
  handle to sqlstore, which owns every query. This package only knows how
  to get a SQLite database into the right shape.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

IN-MEMORY DATABASES:
  Every connection to ":memory:" gets its own empty database, so the pool
  is capped at one connection. Tests rely on this.

MIGRATIONS:
  migrations/*.sql are embedded and applied with golang-migrate on New().
  The sqlite3 migrate driver closes the database when closed, so the
  migrate instance is dropped without Close and the handle stays open.

USAGE:
  st, err := sqlite.New("./data/cardledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

SEE ALSO:
  - store/sqlstore/sqlstore.go: queries and transactions
  - store/postgres/postgres.go: the PostgreSQL counterpart
*/
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/card-ledger/store/sqlstore"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// New opens the database at path and migrates it to the latest schema.
// Use MemoryPath for an in-memory database.
func New(path string) (*sqlstore.Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return sqlstore.New(db, sqlstore.SQLite), nil
}

// Migrate applies every pending up migration to db.
func Migrate(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
