// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package swarm

import "sync"

// InMemoryReputation is a simple ReputationLedger backed by a map,
// suitable for a single node's view of swarm participants; production
// deployments may back this with the Store's own reputation tracking.
type InMemoryReputation struct {
	mu    sync.Mutex
	nodes map[string]NodeWeight
}

// NewInMemoryReputation seeds every node at reputation=1.0, reuse=0.0
// (i.e. NodeWeight() == 1.0) until adjusted or explicitly set.
func NewInMemoryReputation() *InMemoryReputation {
	return &InMemoryReputation{nodes: make(map[string]NodeWeight)}
}

func (r *InMemoryReputation) get(nodeID string) NodeWeight {
	nw, ok := r.nodes[nodeID]
	if !ok {
		return NodeWeight{NodeID: nodeID, Reputation: 1.0, ReuseScore: 0.0}
	}
	return nw
}

// Set overrides a node's reputation/reuse pair directly, useful for tests
// and for seeding values computed elsewhere (e.g. the PoE reuse score).
func (r *InMemoryReputation) Set(nw NodeWeight) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[nw.NodeID] = nw
}

// Adjust applies delta to nodeID's reputation, clamped to [0,1].
func (r *InMemoryReputation) Adjust(nodeID string, delta float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	nw := r.get(nodeID)
	nw.Reputation = clamp01(nw.Reputation + delta)
	r.nodes[nodeID] = nw
}

// NodeWeight returns the node's current weight multiplier.
func (r *InMemoryReputation) NodeWeight(nodeID string) NodeWeight {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(nodeID)
}
