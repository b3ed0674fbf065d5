// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"nickandperla.net/calcpad/internal/eval"
	apperrors "nickandperla.net/calcpad/internal/errors"
)

// Current schema version
const SchemaVersion = "1"

// SQLite is a SQLite-backed store.
type SQLite struct {
	mu   sync.Mutex
	db   *sql.DB
	opts options
}

// NewSQLite creates a new SQLite store at the given path.
func NewSQLite(path string, opts ...Option) (*SQLite, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageRead, "open database").
			WithContext("path", path)
	}

	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			expression TEXT NOT NULL,
			result REAL NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageWrite, "create tables").
			WithContext("path", path)
	}

	s := &SQLite{db: db, opts: buildOptions(opts)}

	// Check/set schema version (use unlocked versions since we're in init)
	version, err := s.getMetadataUnlocked(keySchemaVersion)
	if err != nil {
		db.Close()
		return nil, err
	}
	switch version {
	case "":
		if err := s.setMetadataUnlocked(keySchemaVersion, SchemaVersion); err != nil {
			db.Close()
			return nil, err
		}
	case SchemaVersion:
	default:
		db.Close()
		return nil, apperrors.New(apperrors.ErrCodeStorageRead,
			fmt.Sprintf("unsupported schema version: %s (expected %s)", version, SchemaVersion))
	}

	return s, nil
}

// Settings returns the saved settings.
func (s *SQLite) Settings() (eval.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return settingsFromMetadata(s.getMetadataUnlocked, s.opts.defaults)
}

// PutSettings replaces the saved settings in one transaction.
func (s *SQLite) PutSettings(settings eval.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStorageWrite, "begin settings update")
	}
	for k, v := range settingsToMetadata(settings) {
		if _, err := tx.Exec(upsertMetadata, k, v); err != nil {
			tx.Rollback()
			return apperrors.Wrap(err, apperrors.ErrCodeStorageWrite, "save settings").
				WithContext("key", k)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStorageWrite, "commit settings")
	}
	return nil
}

// AppendHistory records a calculation and trims old entries.
func (s *SQLite) AppendHistory(expression string, result float64) (HistoryEntry, error) {
	entry := HistoryEntry{
		ID:         ulid.Make().String(),
		Expression: expression,
		Result:     result,
		Timestamp:  s.opts.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return HistoryEntry{}, apperrors.Wrap(err, apperrors.ErrCodeStorageWrite, "begin history append")
	}
	_, err = tx.Exec(
		"INSERT INTO history (id, expression, result, created_at) VALUES (?, ?, ?, ?)",
		entry.ID, entry.Expression, entry.Result, entry.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		tx.Rollback()
		return HistoryEntry{}, apperrors.Wrap(err, apperrors.ErrCodeStorageWrite, "append history")
	}
	_, err = tx.Exec(`
		DELETE FROM history WHERE seq NOT IN (
			SELECT seq FROM history ORDER BY seq DESC LIMIT ?
		)
	`, s.opts.maxHistory)
	if err != nil {
		tx.Rollback()
		return HistoryEntry{}, apperrors.Wrap(err, apperrors.ErrCodeStorageWrite, "trim history")
	}
	if err := tx.Commit(); err != nil {
		return HistoryEntry{}, apperrors.Wrap(err, apperrors.ErrCodeStorageWrite, "commit history append")
	}
	return entry, nil
}

// History returns up to limit entries, newest first.
func (s *SQLite) History(limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryHistory(
		"SELECT id, expression, result, created_at FROM history ORDER BY seq DESC LIMIT ?",
		limit,
	)
}

// SearchHistory returns entries whose expression contains query.
func (s *SQLite) SearchHistory(query string) ([]HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryHistory(
		"SELECT id, expression, result, created_at FROM history WHERE instr(expression, ?) > 0 ORDER BY seq DESC",
		query,
	)
}

// queryHistory runs a history query. Caller must hold the lock.
func (s *SQLite) queryHistory(query string, args ...any) ([]HistoryEntry, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageRead, "query history")
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		var ts string
		if err := rows.Scan(&e.ID, &e.Expression, &e.Result, &ts); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageRead, "scan history")
		}
		e.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageRead, "parse history timestamp").
				WithContext("id", e.ID)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageRead, "read history")
	}
	return entries, nil
}

// ClearHistory removes every entry.
func (s *SQLite) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec("DELETE FROM history"); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStorageWrite, "clear history")
	}
	return nil
}

// MemoryValue returns the memory register.
func (s *SQLite) MemoryValue() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.getMetadataUnlocked(keyMemoryValue)
	if err != nil {
		return 0, err
	}
	return parseValue(v), nil
}

// SetMemoryValue replaces the memory register.
func (s *SQLite) SetMemoryValue(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setMetadataUnlocked(keyMemoryValue, formatValue(v))
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// getMetadataUnlocked retrieves metadata without locking (caller must hold lock).
func (s *SQLite) getMetadataUnlocked(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeStorageRead, "read metadata").
			WithContext("key", key)
	}
	return value, nil
}

const upsertMetadata = `
	INSERT INTO metadata (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
`

// setMetadataUnlocked stores metadata without locking (caller must hold lock).
func (s *SQLite) setMetadataUnlocked(key, value string) error {
	if _, err := s.db.Exec(upsertMetadata, key, value); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStorageWrite, "write metadata").
			WithContext("key", key)
	}
	return nil
}
