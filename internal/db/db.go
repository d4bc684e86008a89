// Package db provides database initialization and access for the catalog.
// SQLite is the default store; Postgres is available through the pgx driver.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// Driver names accepted by Connect.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// sqliteDriver is go-sqlite3 with lower() replaced by a Unicode-aware
// version matching strings.ToLower. The built-in one folds ASCII only.
const sqliteDriver = "sqlite3_hb"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("lower", strings.ToLower, true)
		},
	})
	sqlx.BindDriver(sqliteDriver, sqlx.QUESTION)
}

// DefaultPath returns the default database path: ~/.config/hb/catalog.db
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "hb", "catalog.db"), nil
}

// Connect opens the database for the given driver. For SQLite the source is a
// file path; for Postgres it is a connection string.
func Connect(driver, source string) (*sqlx.DB, error) {
	switch driver {
	case "", DriverSQLite, "sqlite":
		return Open(source)
	case DriverPostgres, "postgres":
		return OpenPostgres(source)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open opens (or creates) a SQLite database at the given path,
// enables WAL mode and foreign keys, and runs migrations.
func Open(path string) (*sqlx.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
	}

	// Pragmas in the DSN apply to every pooled connection, not just the first.
	db, err := sqlx.Open(sqliteDriver, path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := configure(db); err != nil {
		return nil, closeOnError(db, err)
	}

	if err := migrate(db, sqliteDialect); err != nil {
		return nil, closeOnError(db, fmt.Errorf("running migrations: %w", err))
	}

	return db, nil
}

// OpenPostgres connects to Postgres using the pgx stdlib driver and runs migrations.
func OpenPostgres(dsn string) (*sqlx.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres connection string is required")
	}

	db, err := sqlx.Open(DriverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, closeOnError(db, fmt.Errorf("connecting to postgres: %w", err))
	}

	if err := migrate(db, postgresDialect); err != nil {
		return nil, closeOnError(db, fmt.Errorf("running migrations: %w", err))
	}

	return db, nil
}

// configure sets SQLite pragmas for WAL mode and foreign keys.
func configure(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	}

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("executing %s: %w", p, err)
		}
	}

	return nil
}

func closeOnError(db *sqlx.DB, err error) error {
	if closeErr := db.Close(); closeErr != nil {
		return fmt.Errorf("%w (also failed to close: %v)", err, closeErr)
	}
	return err
}
