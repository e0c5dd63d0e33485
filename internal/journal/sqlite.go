package journal

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultLimit = 50

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens the journal at dbPath.
// Use ":memory:" for an in-memory journal, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "create journal directory").
				WithContext("path", dbPath).
				Build()
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryJournal, "open sqlite database").
			WithContext("path", dbPath).
			Build()
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, ferrors.WrapError(err, ferrors.CategoryJournal, "initialize schema").Build()
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS operations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		op TEXT NOT NULL,
		target TEXT NOT NULL,
		outcome TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		details TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_operations_target ON operations(target);
	CREATE INDEX IF NOT EXISTS idx_operations_timestamp ON operations(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append records e. A zero At is stamped with the current time.
func (s *SQLiteStore) Append(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var details []byte
	if len(e.Details) > 0 {
		var err error
		details, err = json.Marshal(e.Details)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryJournal, "marshal details").Build()
		}
	}

	at := e.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO operations (op, target, outcome, reason, error, duration_ms, timestamp, details) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		e.Op, e.Target, string(e.Outcome), e.Reason, e.Error, e.Duration.Milliseconds(), at.UnixMilli(), details,
	)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryJournal, "insert operation").
			WithContext("op", e.Op).
			Build()
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, op, target, outcome, reason, error, duration_ms, timestamp, details FROM operations ORDER BY id DESC LIMIT ?",
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryJournal, "query operations").Build()
	}
	defer func() { _ = rows.Close() }()

	return scanEntries(rows)
}

// ByTarget returns the latest entries for one target, newest first.
func (s *SQLiteStore) ByTarget(ctx context.Context, target string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, op, target, outcome, reason, error, duration_ms, timestamp, details FROM operations WHERE target = ? ORDER BY id DESC LIMIT ?",
		target, normalizeLimit(limit),
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryJournal, "query operations").
			WithContext("target", target).
			Build()
	}
	defer func() { _ = rows.Close() }()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			outcome    string
			durationMS int64
			atMS       int64
			details    []byte
		)
		if err := rows.Scan(&e.ID, &e.Op, &e.Target, &outcome, &e.Reason, &e.Error, &durationMS, &atMS, &details); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryJournal, "scan operation").Build()
		}
		e.Outcome = Outcome(outcome)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.At = time.UnixMilli(atMS)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, ferrors.WrapError(err, ferrors.CategoryJournal, "unmarshal details").Build()
			}
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryJournal, "iterate rows").Build()
	}
	return entries, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
