package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteDocumentStore persists documents to SQLite.
// It is suitable for single-process production use.
type SQLiteDocumentStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

var _ DocumentStore = (*SQLiteDocumentStore)(nil)

// NewSQLiteDocumentStore creates a new SQLite document store.
// The path should be a file path (e.g., "./callwise.db") or ":memory:" for
// testing.
func NewSQLiteDocumentStore(path string) (*SQLiteDocumentStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ref TEXT NOT NULL UNIQUE,
			raw_text TEXT NOT NULL DEFAULT '',
			facts TEXT NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'reserved',
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteDocumentStore{db: db}, nil
}

// Reserve implements DocumentStore. Reserving an already-known ref returns
// the existing identifier, so repeated ingestion of the same artifact never
// duplicates rows.
func (s *SQLiteDocumentStore) Reserve(ctx context.Context, ref string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO documents (ref, updated_at)
		VALUES (?, ?)
		ON CONFLICT(ref) DO UPDATE SET updated_at = excluded.updated_at
		RETURNING id
	`, ref, time.Now().UTC().Format(time.RFC3339Nano)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("reserve document: %w", err)
	}
	return id, nil
}

// Finalize implements DocumentStore. Writing the same identifier twice
// overwrites in place.
func (s *SQLiteDocumentStore) Finalize(ctx context.Context, id int64, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if id == 0 {
		return ErrNoDocumentID
	}

	facts := rec.Facts
	if facts == nil {
		facts = map[string]string{}
	}
	factsJSON, err := json.Marshal(facts)
	if err != nil {
		return fmt.Errorf("encode facts: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET raw_text = ?, facts = ?, status = 'finalized', updated_at = ?
		WHERE id = ?
	`, rec.RawText, string(factsJSON), time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("finalize document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize document: %w", err)
	}
	if n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// Get implements DocumentStore.
func (s *SQLiteDocumentStore) Get(ctx context.Context, ref string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var doc Document
	var factsJSON, updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, ref, raw_text, facts, status, updated_at
		FROM documents
		WHERE ref = ?
	`, ref).Scan(&doc.ID, &doc.Ref, &doc.RawText, &factsJSON, &doc.Status, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	if err := json.Unmarshal([]byte(factsJSON), &doc.Facts); err != nil {
		return nil, fmt.Errorf("decode facts: %w", err)
	}
	doc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &doc, nil
}

// Count returns the number of persisted documents. Used by tests to assert
// re-ingestion upserts instead of duplicating.
func (s *SQLiteDocumentStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Close implements DocumentStore.
func (s *SQLiteDocumentStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
