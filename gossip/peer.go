// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package gossip

import (
	"time"

	"github.com/synapsenet/core/ratelimit"
)

// goodBehaviorReward is the reputation bump for a confirmed-useful
// interaction (e.g. a query response containing a previously unknown,
// valid grain). Not stated explicitly in the reference material; fixed
// here as a tunable constant (§8 Open Questions).
const goodBehaviorReward = 0.1

// evictionThreshold is the reputation floor below which a peer is
// disconnected and dropped from the table on the next sweep.
const evictionThreshold = -10.0

// PeerInfo is the per-peer state an overlay node tracks.
type PeerInfo struct {
	ID             string
	Addresses      []string
	ConnectedAt    time.Time
	LastSeen       time.Time
	GrainsReceived uint64
	GrainsSent     uint64
	Reputation     float64

	window *ratelimit.Window
}

func newPeer(id string, addrs []string, now time.Time) *PeerInfo {
	return &PeerInfo{
		ID:          id,
		Addresses:   addrs,
		ConnectedAt: now,
		LastSeen:    now,
		window:      ratelimit.New(grainsPerWindow, grainWindowPeriod),
	}
}

const (
	grainsPerWindow   = 100
	grainWindowPeriod = 60 * time.Second
)

// peerTable is owned exclusively by the overlay's event loop; every
// other caller reaches it only through channel messages (§5).
type peerTable struct {
	peers map[string]*PeerInfo
}

func newPeerTable() *peerTable {
	return &peerTable{peers: make(map[string]*PeerInfo)}
}

func (t *peerTable) ensure(id string, addrs []string, now time.Time) *PeerInfo {
	p, ok := t.peers[id]
	if !ok {
		p = newPeer(id, addrs, now)
		t.peers[id] = p
		return p
	}
	p.LastSeen = now
	if len(addrs) > 0 {
		p.Addresses = addrs
	}
	return p
}

func (t *peerTable) get(id string) (*PeerInfo, bool) {
	p, ok := t.peers[id]
	return p, ok
}

func (t *peerTable) adjustReputation(id string, delta float64) {
	if p, ok := t.peers[id]; ok {
		p.Reputation += delta
	}
}

// sweep evicts every peer below evictionThreshold, returning their ids.
func (t *peerTable) sweep() []string {
	var evicted []string
	for id, p := range t.peers {
		if p.Reputation < evictionThreshold {
			evicted = append(evicted, id)
			delete(t.peers, id)
		}
	}
	return evicted
}

func (t *peerTable) all() []*PeerInfo {
	out := make([]*PeerInfo, 0, len(t.peers))
	for _, p := range t.peers {
		out = append(out, p)
	}
	return out
}
