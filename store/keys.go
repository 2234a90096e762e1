// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"encoding/binary"

	"github.com/synapsenet/core/grain"
)

// Key prefixes partition the flat Pebble keyspace into the logical tables
// of §4.C. Each prefix is one byte so lexicographic iteration (used for
// scans and ordered traversal) stays cheap to reason about.
const (
	prefixGrain     byte = 'g'
	prefixLink      byte = 'l'
	prefixCredit    byte = 'c'
	prefixAccess    byte = 'a'
	prefixEmbedding byte = 'e'
	prefixCluster   byte = 'p'
	prefixEpisode   byte = 'm'
)

var keySchemaVersion = []byte("schema_version")

func grainKey(id grain.ID) []byte {
	k := make([]byte, 1+len(id))
	k[0] = prefixGrain
	copy(k[1:], id[:])
	return k
}

func grainPrefix() []byte { return []byte{prefixGrain} }

func linkKey(id [32]byte) []byte {
	k := make([]byte, 1+len(id))
	k[0] = prefixLink
	copy(k[1:], id[:])
	return k
}

// creditKey orders credits by node then by a monotonically increasing
// sequence number, so GetNodeNGT can scan a single contiguous range.
func creditKey(nodePK []byte, seq uint64) []byte {
	k := make([]byte, 1+len(nodePK)+1+8)
	k[0] = prefixCredit
	copy(k[1:], nodePK)
	k[1+len(nodePK)] = '/'
	binary.BigEndian.PutUint64(k[2+len(nodePK):], seq)
	return k
}

func creditPrefix(nodePK []byte) []byte {
	k := make([]byte, 1+len(nodePK)+1)
	k[0] = prefixCredit
	copy(k[1:], nodePK)
	k[1+len(nodePK)] = '/'
	return k
}

func accessKey(id grain.ID, seq uint64) []byte {
	k := make([]byte, 1+len(id)+1+8)
	k[0] = prefixAccess
	copy(k[1:], id[:])
	k[1+len(id)] = '/'
	binary.BigEndian.PutUint64(k[2+len(id):], seq)
	return k
}

func accessPrefix(id grain.ID) []byte {
	k := make([]byte, 1+len(id)+1)
	k[0] = prefixAccess
	copy(k[1:], id[:])
	k[1+len(id)] = '/'
	return k
}

func embeddingModelKey(name string) []byte {
	k := make([]byte, 1+len(name))
	k[0] = prefixEmbedding
	copy(k[1:], name)
	return k
}

func embeddingModelPrefix() []byte { return []byte{prefixEmbedding} }

// clusterKey orders entries by topic then peer, so GetClusterPeers can
// scan one topic's range and sort by similarity in memory.
func clusterKey(topic, peer string) []byte {
	k := make([]byte, 1+len(topic)+1+len(peer))
	k[0] = prefixCluster
	copy(k[1:], topic)
	k[1+len(topic)] = '/'
	copy(k[2+len(topic):], peer)
	return k
}

func clusterPrefix(topic string) []byte {
	k := make([]byte, 1+len(topic)+1)
	k[0] = prefixCluster
	copy(k[1:], topic)
	k[1+len(topic)] = '/'
	return k
}

// episodeKey orders episodes by goal then by step, so a goal's memory
// chain can be scanned in execution order.
func episodeKey(goalID string, step uint32) []byte {
	k := make([]byte, 1+len(goalID)+1+4)
	k[0] = prefixEpisode
	copy(k[1:], goalID)
	k[1+len(goalID)] = '/'
	binary.BigEndian.PutUint32(k[2+len(goalID):], step)
	return k
}

func episodePrefix(goalID string) []byte {
	k := make([]byte, 1+len(goalID)+1)
	k[0] = prefixEpisode
	copy(k[1:], goalID)
	k[1+len(goalID)] = '/'
	return k
}

// prefixUpperBound returns the smallest key greater than every key with
// the given prefix, for use as a Pebble iterator upper bound.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil // prefix is all 0xff; unbounded
}

func encodeU32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func decodeU32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

func encodeU64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func decodeU64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
