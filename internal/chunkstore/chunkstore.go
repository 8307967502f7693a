// Package chunkstore implements a chunkserver's local state: an in-memory
// staging buffer for phase one of a write, and a durable sqlite-backed store
// for committed chunk payloads.
package chunkstore

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNoStagedData is returned by Commit when handle was never staged.
var ErrNoStagedData = errors.New("NO_STAGED_DATA")

// ErrNotFound is returned by Read when handle has no committed content.
var ErrNotFound = errors.New("NOT_FOUND")

// Chunk is a committed chunk row.
type Chunk struct {
	Handle  string
	Content string
	Version int
	LastMod float64
}

// Store holds the staging buffer and the durable sqlite payload table.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	staging map[string]string
}

// Open opens (creating if needed) the chunk payload database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=30000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open chunkstore: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping chunkstore: %w", err)
	}
	s := &Store{db: db, staging: make(map[string]string)}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS stored_chunks (
		handle TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		version INTEGER NOT NULL,
		last_mod REAL NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("chunkstore schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Stage holds content in memory for handle, overwriting any previously
// staged value. Never touches the durable store.
func (s *Store) Stage(handle, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staging[handle] = content
}

// Commit moves handle's staged content into the durable store with
// insert-or-replace semantics, then clears the staging entry. A commit
// without a prior stage fails with ErrNoStagedData.
func (s *Store) Commit(handle string, simulatedTime float64) (string, error) {
	s.mu.Lock()
	content, ok := s.staging[handle]
	s.mu.Unlock()
	if !ok {
		return "", ErrNoStagedData
	}

	_, err := s.db.Exec(`INSERT OR REPLACE INTO stored_chunks (handle, data, version, last_mod)
		VALUES (?, ?, 1, ?)`, handle, content, simulatedTime)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	delete(s.staging, handle)
	s.mu.Unlock()

	return content, nil
}

// Read returns committed content for handle, or ErrNotFound.
func (s *Store) Read(handle string) (string, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM stored_chunks WHERE handle = ?`, handle).Scan(&data)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return data, nil
}

// StagingSize reports how many handles currently sit in the staging
// buffer, used for the admin/status "storage_usage" metric.
func (s *Store) StagingSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.staging)
}
