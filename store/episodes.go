// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"
)

// AppendEpisode writes the next step of a goal's memory chain. Episodes
// are never updated once written, only appended (§4.H).
func (s *Store) AppendEpisode(e Episode) error {
	if e.Timestamp == 0 {
		e.Timestamp = nowMillis()
	}
	val, err := cbor.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: encode episode: %v", ErrCorruptedRecord, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Set(episodeKey(e.GoalID, e.Step), val, pebble.Sync); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// GetMemoryChain returns every episode recorded for goalID, in step order.
func (s *Store) GetMemoryChain(goalID string) ([]Episode, error) {
	prefix := episodePrefix(goalID)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer iter.Close()

	var out []Episode
	for iter.First(); iter.Valid(); iter.Next() {
		var e Episode
		if err := cbor.Unmarshal(iter.Value(), &e); err != nil {
			return nil, fmt.Errorf("%w: decode episode: %v", ErrCorruptedRecord, err)
		}
		out = append(out, e)
	}
	return out, nil
}
