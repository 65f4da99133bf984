package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// pragma is a connection setting applied on open. Want is what
// "PRAGMA <name>" reads back once the setting took effect.
type pragma struct {
	Name  string
	Value string
	Want  string
}

var pragmas = []pragma{
	{Name: "journal_mode", Value: "WAL", Want: "wal"},
	{Name: "synchronous", Value: "NORMAL", Want: "1"},
	{Name: "busy_timeout", Value: "5000", Want: "5000"},
	{Name: "foreign_keys", Value: "ON", Want: "1"},
}

// migration upgrades a journal written by an older schema. Version is the
// user_version the database has after it ran.
type migration struct {
	Version int
	Name    string
	SQL     string
}

var migrations = []migration{
	{
		Version: 1,
		Name:    "cycle index",
		SQL:     `CREATE INDEX IF NOT EXISTS idx_events_cycle ON events(run_id, cycle, seq)`,
	},
}

// schemaVersion is the user_version of a fully migrated journal.
var schemaVersion = migrations[len(migrations)-1].Version

// Store is a SQLite journal of simulation runs. A single connection is
// kept open; the journal participant is its only writer.
type Store struct {
	db *sql.DB
}

// Open creates or opens the journal at path, applies the connection
// pragmas and brings the schema up to date. Opening the same path again is
// safe.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has one writer; a second pooled connection only buys SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.Name, p.Value)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", p.Name, err)
		}
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database. Closing a zero Store is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the connection for reports the Store has no method for.
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate creates missing tables and runs every migration newer than the
// database's user_version, in order.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	for _, m := range migrations {
		if m.Version <= version {
			continue
		}
		if _, err := db.Exec(m.SQL); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			return fmt.Errorf("migration %d (%s): set version: %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// readPragma returns the current value of a pragma as text.
func (s *Store) readPragma(name string) (string, error) {
	var v string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&v); err != nil {
		return "", fmt.Errorf("failed to read pragma %s: %w", name, err)
	}
	return v, nil
}
