package metrics

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists session history, state transitions, and errors to SQLite
// so runs can be compared and problems diagnosed after the fact.
type Store struct {
	conn      *sql.DB
	path      string
	sessionID int64
}

// ErrorEntry is a recorded per-cycle failure.
type ErrorEntry struct {
	At      time.Time
	Kind    string
	Message string
}

// Open opens or creates the metrics database and applies migrations.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite works best with a single connection
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	s := &Store{conn: conn, path: dbPath}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close ends the open session, if any, and closes the database.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// StartSession inserts a session row and remembers its ID for subsequent
// records.
func (s *Store) StartSession(method, profile string) error {
	result, err := s.conn.Exec(`
		INSERT INTO sessions (started_at, detection_method, profile)
		VALUES (?, ?, ?)
	`, time.Now(), method, profile)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	s.sessionID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get session id: %w", err)
	}
	return nil
}

// EndSession stamps the session with its final counters.
func (s *Store) EndSession(stats Stats) error {
	if s.sessionID == 0 {
		return nil
	}
	_, err := s.conn.Exec(`
		UPDATE sessions
		SET ended_at = ?,
		    cycles = ?,
		    errors = ?,
		    presses = ?,
		    releases = ?,
		    state_changes = ?,
		    avg_cycle_us = ?,
		    max_cycle_us = ?
		WHERE id = ?
	`, time.Now(), stats.Cycles, stats.Errors, stats.Presses, stats.Releases,
		stats.StateChanges, stats.AvgCycle.Microseconds(), stats.MaxCycle.Microseconds(),
		s.sessionID)
	if err != nil {
		return fmt.Errorf("failed to finalize session: %w", err)
	}
	return nil
}

// RecordTransition logs a confirmed sprint state flip.
func (s *Store) RecordTransition(active bool, confidence float64) error {
	_, err := s.conn.Exec(`
		INSERT INTO transitions (session_id, at, active, confidence)
		VALUES (?, ?, ?, ?)
	`, s.sessionID, time.Now(), active, confidence)
	if err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	return nil
}

// RecordError logs a per-cycle failure.
func (s *Store) RecordError(kind, message string) error {
	_, err := s.conn.Exec(`
		INSERT INTO errors (session_id, at, kind, message)
		VALUES (?, ?, ?, ?)
	`, s.sessionID, time.Now(), kind, message)
	if err != nil {
		return fmt.Errorf("failed to record error: %w", err)
	}
	return nil
}

// RecentErrors returns the newest errors across all sessions, newest first.
func (s *Store) RecentErrors(limit int) ([]ErrorEntry, error) {
	rows, err := s.conn.Query(`
		SELECT at, kind, message
		FROM errors
		ORDER BY at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query errors: %w", err)
	}
	defer rows.Close()

	var entries []ErrorEntry
	for rows.Next() {
		var e ErrorEntry
		if err := rows.Scan(&e.At, &e.Kind, &e.Message); err != nil {
			return nil, fmt.Errorf("failed to scan error row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SessionCount returns the number of recorded sessions.
func (s *Store) SessionCount() (int, error) {
	var count int
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

func (s *Store) migrate() error {
	if _, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var version int
	err := s.conn.QueryRow(`
		SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1
	`).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range storeMigrations {
		if m.version <= version {
			continue
		}

		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
		}
		if err := m.up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.description, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}
	}
	return nil
}

type storeMigration struct {
	version     int
	description string
	up          func(*sql.Tx) error
}

var storeMigrations = []storeMigration{
	{
		version:     1,
		description: "Create sessions table",
		up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE sessions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					started_at TIMESTAMP NOT NULL,
					ended_at TIMESTAMP,
					detection_method TEXT NOT NULL,
					profile TEXT,
					cycles INTEGER NOT NULL DEFAULT 0,
					errors INTEGER NOT NULL DEFAULT 0,
					presses INTEGER NOT NULL DEFAULT 0,
					releases INTEGER NOT NULL DEFAULT 0,
					state_changes INTEGER NOT NULL DEFAULT 0,
					avg_cycle_us INTEGER NOT NULL DEFAULT 0,
					max_cycle_us INTEGER NOT NULL DEFAULT 0
				)
			`)
			return err
		},
	},
	{
		version:     2,
		description: "Create transitions and errors tables",
		up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TABLE transitions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					session_id INTEGER REFERENCES sessions(id),
					at TIMESTAMP NOT NULL,
					active BOOLEAN NOT NULL,
					confidence REAL NOT NULL
				)
			`); err != nil {
				return err
			}
			_, err := tx.Exec(`
				CREATE TABLE errors (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					session_id INTEGER REFERENCES sessions(id),
					at TIMESTAMP NOT NULL,
					kind TEXT NOT NULL,
					message TEXT NOT NULL
				)
			`)
			return err
		},
	},
	{
		version:     3,
		description: "Index errors by time",
		up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX idx_errors_at ON errors(at)`)
			return err
		},
	},
}
