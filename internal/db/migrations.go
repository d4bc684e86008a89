package db

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// dialect holds the schema statements for one database engine.
type dialect struct {
	name      string
	tables    []string
	indexes   []string
	addColumn func(db *sqlx.DB, table, column, definition string) error
}

// columnMigrations are additive changes applied after table creation.
// Each is idempotent.
var columnMigrations = []struct {
	table, column, definition string
}{
	{"properties", "currency", "TEXT NOT NULL DEFAULT 'USD'"},
}

var sqliteDialect = dialect{
	name: "sqlite",
	tables: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			first_name    TEXT    NOT NULL DEFAULT '',
			last_name     TEXT    NOT NULL DEFAULT '',
			email         TEXT    NOT NULL UNIQUE,
			password_hash TEXT    NOT NULL,
			role          TEXT    NOT NULL CHECK (role IN ('Broker', 'Seeker')),
			created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS properties (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			property_type TEXT    NOT NULL,
			location      TEXT    NOT NULL,
			price         INTEGER NOT NULL,
			description   TEXT,
			features      TEXT,
			broker_id     INTEGER NOT NULL REFERENCES users(id),
			created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS property_images (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			property_id   INTEGER NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
			image_url     TEXT    NOT NULL,
			display_order INTEGER NOT NULL DEFAULT 0,
			created_at    DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (property_id, image_url)
		)`,
	},
	indexes:   commonIndexes,
	addColumn: addColumnIfNotExists,
}

var postgresDialect = dialect{
	name: "postgres",
	tables: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            BIGSERIAL PRIMARY KEY,
			first_name    VARCHAR(50)  NOT NULL DEFAULT '',
			last_name     VARCHAR(50)  NOT NULL DEFAULT '',
			email         VARCHAR(100) NOT NULL UNIQUE,
			password_hash TEXT         NOT NULL,
			role          VARCHAR(20)  NOT NULL CHECK (role IN ('Broker', 'Seeker')),
			created_at    TIMESTAMPTZ  DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS properties (
			id            BIGSERIAL PRIMARY KEY,
			property_type VARCHAR(50)  NOT NULL,
			location      VARCHAR(300) NOT NULL,
			price         BIGINT       NOT NULL,
			description   TEXT,
			features      TEXT,
			broker_id     BIGINT       NOT NULL REFERENCES users(id),
			created_at    TIMESTAMPTZ  DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS property_images (
			id            BIGSERIAL PRIMARY KEY,
			property_id   BIGINT       NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
			image_url     VARCHAR(500) NOT NULL,
			display_order INTEGER      NOT NULL DEFAULT 0,
			created_at    TIMESTAMPTZ  DEFAULT now(),
			UNIQUE (property_id, image_url)
		)`,
	},
	indexes: commonIndexes,
	addColumn: func(db *sqlx.DB, table, column, definition string) error {
		_, err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", table, column, definition))
		return err
	},
}

var commonIndexes = []string{
	`CREATE INDEX IF NOT EXISTS ix_properties_location ON properties(location)`,
	`CREATE INDEX IF NOT EXISTS ix_properties_price ON properties(price)`,
	`CREATE INDEX IF NOT EXISTS ix_properties_property_type ON properties(property_type)`,
	`CREATE INDEX IF NOT EXISTS ix_properties_created_at ON properties(created_at)`,
	`CREATE INDEX IF NOT EXISTS ix_property_images_order ON property_images(property_id, display_order)`,
}

// migrate runs all migrations for the dialect in order.
func migrate(db *sqlx.DB, d dialect) error {
	for i, m := range d.tables {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("%s migration %d: %w", d.name, i, err)
		}
	}

	for _, cm := range columnMigrations {
		if err := d.addColumn(db, cm.table, cm.column, cm.definition); err != nil {
			return fmt.Errorf("adding %s.%s: %w", cm.table, cm.column, err)
		}
	}

	for i, idx := range d.indexes {
		if _, err := db.Exec(idx); err != nil {
			return fmt.Errorf("%s index %d: %w", d.name, i, err)
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a SQLite table if it doesn't already exist.
func addColumnIfNotExists(db *sqlx.DB, table, column, definition string) error {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("checking table info: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			slog.Warn("closing rows", "error", cerr)
		}
	}()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("scanning column info: %w", err)
		}
		if name == column {
			return nil // column already exists
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating columns: %w", err)
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}
