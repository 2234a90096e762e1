// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"
)

// InsertLink persists a directed, signed edge between two grains.
func (s *Store) InsertLink(l Link) error {
	val, err := cbor.Marshal(l)
	if err != nil {
		return fmt.Errorf("%w: encode link: %v", ErrCorruptedRecord, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Set(linkKey(l.ID), val, pebble.Sync); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// InsertCredit appends a reward record. Credits are never updated, only
// accumulated; GetNodeNGT sums them on read.
func (s *Store) InsertCredit(c Credit) error {
	val, err := cbor.Marshal(c)
	if err != nil {
		return fmt.Errorf("%w: encode credit: %v", ErrCorruptedRecord, err)
	}
	seq := s.creditSeq.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Set(creditKey(c.NodePK, seq), val, pebble.Sync); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// GetNodeNGT sums every credit recorded for nodePK.
func (s *Store) GetNodeNGT(nodePK []byte) (float64, error) {
	prefix := creditPrefix(nodePK)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer iter.Close()

	var total float64
	for iter.First(); iter.Valid(); iter.Next() {
		var c Credit
		if err := cbor.Unmarshal(iter.Value(), &c); err != nil {
			return 0, fmt.Errorf("%w: decode credit: %v", ErrCorruptedRecord, err)
		}
		total += c.NGT
	}
	return total, nil
}
