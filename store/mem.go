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
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store for testing.
// Data is lost when the process exits.
type MemStore struct {
	mu     sync.RWMutex
	data   map[string][]memRevision // name -> revisions in append order
	closed bool
}

type memRevision struct {
	id      string
	seq     int64
	created time.Time
	blob    []byte
}

// NewMemStore creates a new in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		data: make(map[string][]memRevision),
	}
}

// Put implements Store.
func (m *MemStore) Put(name string, blob []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", ErrStoreClosed
	}

	revs := m.data[name]
	var seq int64 = 1
	if len(revs) > 0 {
		seq = revs[len(revs)-1].seq + 1
	}

	// copy so the caller can't mutate what we stored
	stored := make([]byte, len(blob))
	copy(stored, blob)

	id := uuid.New().String()
	m.data[name] = append(revs, memRevision{
		id:      id,
		seq:     seq,
		created: time.Now().UTC(),
		blob:    stored,
	})
	return id, nil
}

// Get implements Store.
func (m *MemStore) Get(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	revs := m.data[name]
	if len(revs) == 0 {
		return nil, ErrNotFound
	}
	return cloneBytes(revs[len(revs)-1].blob), nil
}

// Revisions implements Store.
func (m *MemStore) Revisions(name string) ([]Revision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	revs := m.data[name]
	if len(revs) == 0 {
		return nil, nil
	}

	// append order is sequence order
	out := make([]Revision, 0, len(revs))
	for i := range revs {
		out = append(out, Revision{
			Name:    name,
			ID:      revs[i].id,
			Seq:     revs[i].seq,
			Created: revs[i].created,
			Size:    int64(len(revs[i].blob)),
		})
	}
	return out, nil
}

// GetRevision implements Store.
func (m *MemStore) GetRevision(name, rev string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	for _, r := range m.data[name] {
		if r.id == rev {
			return cloneBytes(r.blob), nil
		}
	}
	return nil, ErrNotFound
}

// Delete implements Store.
func (m *MemStore) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, name)
	return nil
}

// Close implements Store.
func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the total number of revisions across all names.
// Useful for testing.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, revs := range m.data {
		count += len(revs)
	}
	return count
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
