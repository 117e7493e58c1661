// Copyright 2025 Real Good Apps, LLC
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package store

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists blobs to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite-backed store.
// The path should be a file path (e.g., "./rules.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// each new connection would otherwise see
	// its own empty in-memory database
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS revisions (
			name     TEXT NOT NULL,
			revision TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			created  TEXT NOT NULL,
			blob     BLOB NOT NULL,
			PRIMARY KEY (name, revision)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_revisions_name
		ON revisions(name, sequence)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Put implements Store.
func (s *SQLiteStore) Put(name string, blob []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrStoreClosed
	}

	// Appending rather than replacing keeps every
	// earlier revision addressable by GetRevision.
	rev := uuid.New().String()
	_, err := s.db.Exec(`
		INSERT INTO revisions (name, revision, sequence, created, blob)
		VALUES (
			?, ?,
			COALESCE((SELECT MAX(sequence) FROM revisions WHERE name = ?), 0) + 1,
			?, ?
		)
	`, name, rev, name, time.Now().UTC().Format(time.RFC3339Nano), blob)

	if err != nil {
		return "", fmt.Errorf("put revision: %w", err)
	}
	return rev, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var blob []byte
	err := s.db.QueryRow(`
		SELECT blob FROM revisions
		WHERE name = ?
		ORDER BY sequence DESC LIMIT 1
	`, name).Scan(&blob)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get blob: %w", err)
	}
	return blob, nil
}

// Revisions implements Store.
func (s *SQLiteStore) Revisions(name string) ([]Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT revision, sequence, created, LENGTH(blob)
		FROM revisions
		WHERE name = ?
		ORDER BY sequence
	`, name)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		var rev Revision
		var created string
		if err := rows.Scan(&rev.ID, &rev.Seq, &created, &rev.Size); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		rev.Name = name
		rev.Created, _ = time.Parse(time.RFC3339Nano, created)
		revs = append(revs, rev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}

	return revs, nil
}

// GetRevision implements Store.
func (s *SQLiteStore) GetRevision(name, rev string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var blob []byte
	err := s.db.QueryRow(`
		SELECT blob FROM revisions
		WHERE name = ? AND revision = ?
	`, name, rev).Scan(&blob)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get revision: %w", err)
	}
	return blob, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		DELETE FROM revisions WHERE name = ?
	`, name)
	if err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
