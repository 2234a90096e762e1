// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"

	"github.com/synapsenet/core/grain"
)

// RecordGrainAccess appends an access event for id, feeding the PoE reuse
// score (§4.E). Events are append-only and subject to TTL cleanup.
func (s *Store) RecordGrainAccess(id grain.ID, peer string, accessType AccessType) error {
	evt := AccessEvent{GrainID: id, PeerID: peer, Type: accessType, Timestamp: nowMillis()}
	val, err := cbor.Marshal(evt)
	if err != nil {
		return fmt.Errorf("%w: encode access event: %v", ErrCorruptedRecord, err)
	}
	seq := s.accessSeq.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Set(accessKey(id, seq), val, pebble.Sync); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// GetGrainAccessEvents returns every recorded access event for id.
func (s *Store) GetGrainAccessEvents(id grain.ID) ([]AccessEvent, error) {
	prefix := accessPrefix(id)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer iter.Close()

	var events []AccessEvent
	for iter.First(); iter.Valid(); iter.Next() {
		var evt AccessEvent
		if err := cbor.Unmarshal(iter.Value(), &evt); err != nil {
			return nil, fmt.Errorf("%w: decode access event: %v", ErrCorruptedRecord, err)
		}
		events = append(events, evt)
	}
	return events, nil
}

// GetGrainAccessCount is a cheap count of GetGrainAccessEvents.
func (s *Store) GetGrainAccessCount(id grain.ID) (int, error) {
	events, err := s.GetGrainAccessEvents(id)
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

// CleanupOldAccessEvents deletes every access event with a timestamp
// strictly before cutoffMS, returning the number removed.
func (s *Store) CleanupOldAccessEvents(cutoffMS int64) (int, error) {
	prefix := []byte{prefixAccess}
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer iter.Close()

	var stale [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		var evt AccessEvent
		if err := cbor.Unmarshal(iter.Value(), &evt); err != nil {
			continue
		}
		if evt.Timestamp < cutoffMS {
			stale = append(stale, append([]byte(nil), iter.Key()...))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.db.NewBatch()
	for _, k := range stale {
		if err := batch.Delete(k, nil); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return len(stale), nil
}
