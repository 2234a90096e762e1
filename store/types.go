// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package store

import "github.com/synapsenet/core/grain"

// Link is a directed, signed, weighted edge between two grains, with a
// human-readable rationale (§3). Links ride alongside grains in the
// store but are not consulted by the consensus core.
type Link struct {
	ID        [32]byte
	From      grain.ID
	To        grain.ID
	Weight    float32
	Rationale string
	AuthorPK  []byte
	Sig       []byte
	Timestamp int64
}

// Credit is an append-only reward record. Balances are the sum of all
// credits for a node_pk (§3).
type Credit struct {
	GrainID   grain.ID
	NodePK    []byte
	NGT       float64
	Reason    string
	Timestamp int64
}

// AccessType enumerates why a grain was touched, feeding the PoE reuse
// score (§4.E).
type AccessType uint8

const (
	AccessSearch AccessType = iota
	AccessRetrieve
	AccessReference
)

func (t AccessType) String() string {
	switch t {
	case AccessSearch:
		return "search"
	case AccessRetrieve:
		return "retrieve"
	case AccessReference:
		return "reference"
	default:
		return "unknown"
	}
}

// AccessEvent is an append-only, TTL-cleaned record of grain access (§3).
type AccessEvent struct {
	GrainID   grain.ID
	PeerID    string
	Type      AccessType
	Timestamp int64
}

// EmbeddingModel describes a registered embedding model's shape.
type EmbeddingModel struct {
	Name    string
	Dim     int
	SizeMB  float64
}

// PeerClusterEntry records one peer's affinity for a topic, upserted by
// (topic, peer_id) (§3).
type PeerClusterEntry struct {
	Topic      string
	PeerID     string
	Similarity float32
	LastSeen   int64
}

// Episode is one synthesized step of a Reasoning Orchestrator run,
// appended to a goal's memory chain (§4.H).
type Episode struct {
	GoalID          string
	Step            uint32
	Query           string
	QueryVec        []float32
	RetrievedGrains []grain.ID
	Synthesis       string
	Confidence      float32
	Signatures      [][]byte
	Timestamp       int64
}
