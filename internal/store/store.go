// Package store provides SQLite-based persistence for switchd.
//
// Two things survive restarts: the last confirmed active machine, read
// once at startup to seed the engine, and a history of confirmed
// switches for the status surface.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"switchd/internal/machine"
)

// Schema for the switchd state store.
const schema = `
CREATE TABLE IF NOT EXISTS ownership (
    id           INTEGER PRIMARY KEY CHECK (id = 1),
    last_active  TEXT NOT NULL,
    updated_ns   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS switch_history (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp_ns  INTEGER NOT NULL,
    machine       TEXT NOT NULL,
    input         TEXT NOT NULL,
    origin        TEXT NOT NULL,
    attempts      INTEGER NOT NULL,
    monitor_index INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_timestamp ON switch_history(timestamp_ns);
`

// Store is the SQLite state store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// LoadLastActive returns the persisted last active machine. ok is false
// when no record exists yet (fresh install).
func (s *Store) LoadLastActive() (m machine.Identity, ok bool, err error) {
	var raw string
	err = s.db.QueryRow(`SELECT last_active FROM ownership WHERE id = 1`).Scan(&raw)
	if err == sql.ErrNoRows {
		return machine.Unknown, false, nil
	}
	if err != nil {
		return machine.Unknown, false, fmt.Errorf("load last active: %w", err)
	}

	m, err = machine.ParseIdentity(raw)
	if err != nil {
		// A corrupt record seeds nothing; the first confirmed transition
		// will overwrite it.
		return machine.Unknown, false, nil
	}
	return m, true, nil
}

// SaveLastActive durably records the active machine. The write completes
// before returning.
func (s *Store) SaveLastActive(m machine.Identity, at time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO ownership (id, last_active, updated_ns) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_active = excluded.last_active, updated_ns = excluded.updated_ns`,
		string(m), at.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save last active: %w", err)
	}
	return nil
}

// RecordSwitch appends a confirmed switch to the history.
func (s *Store) RecordSwitch(e *SwitchEntry) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO switch_history (timestamp_ns, machine, input, origin, attempts, monitor_index)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.TimestampNs, string(e.Machine), string(e.Input), e.Origin, e.Attempts, e.MonitorIndex,
	)
	if err != nil {
		return 0, fmt.Errorf("record switch: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record switch id: %w", err)
	}
	e.ID = id
	return id, nil
}

// History returns the most recent switches, newest first.
func (s *Store) History(limit int) ([]SwitchEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, timestamp_ns, machine, input, origin, attempts, monitor_index
		FROM switch_history ORDER BY timestamp_ns DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []SwitchEntry
	for rows.Next() {
		var e SwitchEntry
		var m, input string
		if err := rows.Scan(&e.ID, &e.TimestampNs, &m, &input, &e.Origin, &e.Attempts, &e.MonitorIndex); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Machine = machine.Identity(m)
		e.Input = machine.InputSource(input)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
