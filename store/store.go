// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package store implements durable, exact-key persistence for grains,
// links, credits, the access log, the embedding-model registry, and peer
// clusters (§4.C). It is the exclusive owner of durable state; the ANN
// index and gossip overlay borrow from it but never persist on its
// behalf.
package store

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/pebble"

	"github.com/synapsenet/core/metrics"
)

// CurrentSchemaVersion is the schema version this build understands.
// Opening a store written by a newer version fails with ErrSchemaTooNew
// rather than silently misreading records.
const CurrentSchemaVersion uint32 = 1

var (
	ErrStorageUnavailable = errors.New("store: backend unavailable")
	ErrCorruptedRecord    = errors.New("store: corrupted record")
	ErrSchemaTooNew        = errors.New("store: schema version is newer than this build understands")
	ErrNotFound           = errors.New("store: key not found")
)

// Store is a single-node durable keyed store backed by Pebble, an
// embedded LSM key-value engine. Mutations are serialized through a
// single mutex (exclusive-writer, many-reader, per §5); Pebble itself
// allows concurrent reads while a write is in flight, so reads are never
// blocked by the mutex beyond the brief critical section of the write
// call itself.
type Store struct {
	mu sync.Mutex
	db *pebble.DB

	creditSeq atomic.Uint64
	accessSeq atomic.Uint64

	metrics *metrics.Node
}

// SetMetrics attaches a metrics.Node the store reports its grain count
// to; pass nil to stop reporting.
func (s *Store) SetMetrics(m *metrics.Node) {
	s.metrics = m
	if m != nil {
		if n, err := s.CountGrains(); err == nil {
			m.StoreGrains.Set(float64(n))
		}
	}
}

// Open opens (creating if necessary) a Pebble-backed store at dir and
// checks its schema version.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	val, closer, err := s.db.Get(keySchemaVersion)
	if errors.Is(err, pebble.ErrNotFound) {
		return s.db.Set(keySchemaVersion, encodeU32(CurrentSchemaVersion), pebble.Sync)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer closer.Close()

	version := decodeU32(val)
	if version > CurrentSchemaVersion {
		return fmt.Errorf("%w: store is at version %d, build understands up to %d", ErrSchemaTooNew, version, CurrentSchemaVersion)
	}
	return nil
}

// SchemaVersion returns the schema version recorded in the store.
func (s *Store) SchemaVersion() (uint32, error) {
	val, closer, err := s.db.Get(keySchemaVersion)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer closer.Close()
	return decodeU32(val), nil
}
