// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/cockroachdb/pebble"

	"github.com/synapsenet/core/grain"
)

// InsertGrain persists g, idempotent on id: re-inserting the same id is a
// no-op that still returns nil (§4.C). Fails only on backend I/O faults.
func (s *Store) InsertGrain(g *grain.Grain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := grainKey(g.ID)
	if _, closer, err := s.db.Get(key); err == nil {
		closer.Close()
		return nil
	} else if !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	wire, err := g.Encode()
	if err != nil {
		return fmt.Errorf("%w: encode grain: %v", ErrCorruptedRecord, err)
	}
	val := appendCreatedAt(wire, nowMillis())
	if err := s.db.Set(key, val, pebble.Sync); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if s.metrics != nil {
		s.metrics.StoreGrains.Inc()
	}
	return nil
}

// GetGrain looks up a grain by exact id.
func (s *Store) GetGrain(id grain.ID) (*grain.Grain, bool, error) {
	val, closer, err := s.db.Get(grainKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer closer.Close()

	wire, _ := stripCreatedAt(val)
	g, err := grain.Decode(wire)
	if err != nil {
		return nil, false, fmt.Errorf("%w: decode grain: %v", ErrCorruptedRecord, err)
	}
	return g, true, nil
}

// CountGrains returns the number of distinct grains persisted.
func (s *Store) CountGrains() (int, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: grainPrefix(),
		UpperBound: prefixUpperBound(grainPrefix()),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n, nil
}

// GetAllGrains returns every grain, ordered by created_at descending, for
// rebuild/export use only (§4.C) — it is not meant for hot-path queries.
func (s *Store) GetAllGrains() ([]*grain.Grain, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: grainPrefix(),
		UpperBound: prefixUpperBound(grainPrefix()),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer iter.Close()

	type stamped struct {
		g         *grain.Grain
		createdAt int64
	}
	var all []stamped
	for iter.First(); iter.Valid(); iter.Next() {
		wire, createdAt := stripCreatedAt(iter.Value())
		g, err := grain.Decode(wire)
		if err != nil {
			return nil, fmt.Errorf("%w: decode grain: %v", ErrCorruptedRecord, err)
		}
		all = append(all, stamped{g: g, createdAt: createdAt})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].createdAt > all[j].createdAt })

	out := make([]*grain.Grain, len(all))
	for i, s := range all {
		out[i] = s.g
	}
	return out, nil
}

func appendCreatedAt(wire []byte, createdAt int64) []byte {
	out := make([]byte, len(wire)+8)
	copy(out, wire)
	binary.BigEndian.PutUint64(out[len(wire):], uint64(createdAt))
	return out
}

func stripCreatedAt(val []byte) (wire []byte, createdAt int64) {
	if len(val) < 8 {
		return val, 0
	}
	n := len(val) - 8
	return val[:n], int64(binary.BigEndian.Uint64(val[n:]))
}
