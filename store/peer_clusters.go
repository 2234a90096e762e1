// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"
)

// UpsertPeerCluster records (or refreshes) a peer's affinity for a topic.
// Topics are opaque byte strings; equality is byte-identity (§9).
func (s *Store) UpsertPeerCluster(topic, peer string, similarity float32) error {
	entry := PeerClusterEntry{Topic: topic, PeerID: peer, Similarity: similarity, LastSeen: nowMillis()}
	val, err := cbor.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: encode cluster entry: %v", ErrCorruptedRecord, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Set(clusterKey(topic, peer), val, pebble.Sync); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// GetClusterPeers returns up to limit peers for topic, ordered by
// similarity descending.
func (s *Store) GetClusterPeers(topic string, limit int) ([]PeerClusterEntry, error) {
	prefix := clusterPrefix(topic)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer iter.Close()

	var all []PeerClusterEntry
	for iter.First(); iter.Valid(); iter.Next() {
		var e PeerClusterEntry
		if err := cbor.Unmarshal(iter.Value(), &e); err != nil {
			return nil, fmt.Errorf("%w: decode cluster entry: %v", ErrCorruptedRecord, err)
		}
		all = append(all, e)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Similarity > all[j].Similarity })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// GetPeerTopics returns every (topic, similarity) pair recorded for peer,
// obtained by scanning the full cluster table — acceptable given clusters
// are a bounded housekeeping table, not a hot path.
func (s *Store) GetPeerTopics(peer string) ([]PeerClusterEntry, error) {
	prefix := []byte{prefixCluster}
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer iter.Close()

	var out []PeerClusterEntry
	for iter.First(); iter.Valid(); iter.Next() {
		if !strings.HasSuffix(string(iter.Key()), "/"+peer) {
			continue
		}
		var e PeerClusterEntry
		if err := cbor.Unmarshal(iter.Value(), &e); err != nil {
			return nil, fmt.Errorf("%w: decode cluster entry: %v", ErrCorruptedRecord, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// CleanupStaleClusters removes cluster entries last seen before cutoffMS.
func (s *Store) CleanupStaleClusters(cutoffMS int64) (int, error) {
	prefix := []byte{prefixCluster}
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
		var e PeerClusterEntry
		if err := cbor.Unmarshal(iter.Value(), &e); err != nil {
			continue
		}
		if e.LastSeen < cutoffMS {
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

// ClusterStats returns the distinct topic count and distinct peer count
// across the whole cluster table.
func (s *Store) ClusterStats() (topics int, peers int, err error) {
	prefix := []byte{prefixCluster}
	iter, iterErr := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if iterErr != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, iterErr)
	}
	defer iter.Close()

	topicSet := make(map[string]struct{})
	peerSet := make(map[string]struct{})
	for iter.First(); iter.Valid(); iter.Next() {
		var e PeerClusterEntry
		if decErr := cbor.Unmarshal(iter.Value(), &e); decErr != nil {
			continue
		}
		topicSet[e.Topic] = struct{}{}
		peerSet[e.PeerID] = struct{}{}
	}
	return len(topicSet), len(peerSet), nil
}
