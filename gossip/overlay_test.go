// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package gossip

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/synapsenet/core/crypto"
	"github.com/synapsenet/core/grain"
	"github.com/synapsenet/core/index"
	"github.com/synapsenet/core/store"
)

const testDim = 4

// memTransport wires two or more overlays together in-process: Send and
// Broadcast hand payloads directly to the peers' HandleMessage.
type memTransport struct {
	selfID string
	mu     sync.Mutex
	peers  map[string]*Overlay
}

func newMemTransport(selfID string) *memTransport {
	return &memTransport{selfID: selfID, peers: make(map[string]*Overlay)}
}

func (t *memTransport) link(peerID string, o *Overlay) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers[peerID] = o
}

func (t *memTransport) Send(peerID, topic string, payload []byte) error {
	t.mu.Lock()
	peer, ok := t.peers[peerID]
	t.mu.Unlock()
	if !ok {
		return nil
	}
	return peer.HandleMessage(t.selfID, topic, payload)
}

func (t *memTransport) Broadcast(topic string, payload []byte) error {
	t.mu.Lock()
	targets := make([]*Overlay, 0, len(t.peers))
	for _, p := range t.peers {
		targets = append(targets, p)
	}
	t.mu.Unlock()
	for _, p := range targets {
		if err := p.HandleMessage(t.selfID, topic, payload); err != nil {
			// receive-path errors are informational in the real protocol;
			// tests still want to observe them via return for assertions
			// on the single-peer cases below.
			_ = err
		}
	}
	return nil
}

func mkVec(lead float32) []float32 {
	v := make([]float32, testDim)
	v[0] = lead
	return v
}

func newNode(t *testing.T, id string) (*Overlay, *memTransport, *index.Index, *store.Store) {
	t.Helper()
	idx := index.New(index.DefaultConfig(testDim))
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	transport := newMemTransport(id)
	verifier := crypto.NewVerifier()
	o := New(id, transport, idx, st, verifier)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go o.Run(ctx)

	return o, transport, idx, st
}

func mkSignedGrain(t *testing.T, lead float32) *grain.Grain {
	t.Helper()
	signer, err := crypto.NewClassicalSigner()
	require.NoError(t, err)
	g, err := grain.New(mkVec(lead), grain.Meta{}, signer)
	require.NoError(t, err)
	return g
}

func TestPublishGrainDeliversAndAcks(t *testing.T) {
	a, transportA, _, _ := newNode(t, "node-a")
	b, transportB, _, storeB := newNode(t, "node-b")
	transportA.link("node-b", b)
	transportB.link("node-a", a)

	g := mkSignedGrain(t, 1)
	require.NoError(t, a.PublishGrain(g))

	require.Eventually(t, func() bool {
		_, ok, err := storeB.GetGrain(g.ID)
		return err == nil && ok
	}, time.Second, 5*time.Millisecond)

	// b's ack on grains.ack credits node-b once on a.
	rep, ok := a.PeerReputation("node-b")
	require.True(t, ok)
	require.InDelta(t, goodBehaviorReward, rep, 1e-9)
}

func TestDuplicateGrainDroppedSilently(t *testing.T) {
	_, transportA, idxA, storeA := newNode(t, "node-a")
	g := mkSignedGrain(t, 1)
	payload, err := encodeMsg(grainsPutMsg{SenderID: "node-b", Grain: g})
	require.NoError(t, err)

	a := New("node-a", transportA, idxA, storeA, crypto.NewVerifier())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	require.NoError(t, a.HandleMessage("node-b", TopicGrainsPut, payload))
	require.NoError(t, a.HandleMessage("node-b", TopicGrainsPut, payload))

	n, err := storeA.CountGrains()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestCorruptedSignatureDropsAndPenalizes(t *testing.T) {
	a, transportA, idxA, storeA := newNode(t, "node-a")
	_ = transportA
	g := mkSignedGrain(t, 1)
	g.Sig[0] ^= 0xFF // tamper one byte

	payload, err := encodeMsg(grainsPutMsg{SenderID: "node-c", Grain: g})
	require.NoError(t, err)

	err = a.HandleMessage("node-c", TopicGrainsPut, payload)
	require.Error(t, err)

	n, cerr := storeA.CountGrains()
	require.NoError(t, cerr)
	require.Equal(t, 0, n)

	rep, ok := a.PeerReputation("node-c")
	require.True(t, ok)
	require.InDelta(t, -1.0, rep, 1e-9)
	_ = idxA
}

func TestRateLimitDropsOver100PerWindow(t *testing.T) {
	a, _, _, storeA := newNode(t, "node-a")

	for i := 0; i < 101; i++ {
		g := mkSignedGrain(t, float32(i))
		payload, err := encodeMsg(grainsPutMsg{SenderID: "node-d", Grain: g})
		require.NoError(t, err)
		_ = a.HandleMessage("node-d", TopicGrainsPut, payload)
	}

	n, err := storeA.CountGrains()
	require.NoError(t, err)
	require.Equal(t, 100, n)

	rep, ok := a.PeerReputation("node-d")
	require.True(t, ok)
	require.InDelta(t, -0.5, rep, 1e-9)
}

func TestDistributedQueryMergesTopK(t *testing.T) {
	a, transportA, _, _ := newNode(t, "node-a")
	b, transportB, idxB, _ := newNode(t, "node-b")
	transportA.link("node-b", b)
	transportB.link("node-a", a)

	gb := mkSignedGrain(t, 5)
	require.NoError(t, idxB.Add(gb))

	ctx := context.Background()
	results, err := a.Query(ctx, mkVec(5), 3, 100*time.Millisecond)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, gb.ID, results[0].GrainID)
}
