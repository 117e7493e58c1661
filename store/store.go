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

// Package store persists rule definitions.
//
// A Store keeps named blobs as an append-only sequence of
// revisions, so an operator can always roll back to an earlier
// version of a definition. Two implementations are provided:
// SQLiteStore for durable single-process use and MemStore for
// testing.
//
// Independently of storage, Seal and OpenSealed convert raw
// definition bytes to and from a compressed, authenticated blob
// format suitable for moving definitions between systems.
package store

import (
	"errors"
	"time"
)

// Store persists named blobs as appended revisions.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put appends a new revision of the named blob and
	// returns its revision ID. Earlier revisions are kept.
	Put(name string, blob []byte) (string, error)

	// Get retrieves the most recent revision of the named blob.
	// Returns ErrNotFound if the name has never been stored.
	Get(name string) ([]byte, error)

	// Revisions returns metadata for every revision of the
	// named blob, oldest first. Returns an empty list (not an
	// error) if the name has never been stored.
	Revisions(name string) ([]Revision, error)

	// GetRevision retrieves one specific revision of the named
	// blob. Returns ErrNotFound if it doesn't exist.
	GetRevision(name, rev string) ([]byte, error)

	// Delete removes the named blob and all of its revisions.
	// Returns nil if the name has never been stored.
	Delete(name string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Revision provides revision metadata without loading the blob.
type Revision struct {
	// Name is the blob name the revision belongs to.
	Name string
	// ID is the revision ID returned by Put.
	ID string
	// Seq orders revisions of the same name;
	// higher means more recent.
	Seq int64
	// Created is the time the revision was stored.
	Created time.Time
	// Size is the size of the stored blob in bytes.
	Size int64
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates the blob or revision doesn't exist.
	ErrNotFound = errors.New("blob not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("store closed")
)
