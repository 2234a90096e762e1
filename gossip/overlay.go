// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package gossip

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/synapsenet/core/crypto"
	"github.com/synapsenet/core/grain"
	"github.com/synapsenet/core/index"
	"github.com/synapsenet/core/log"
	"github.com/synapsenet/core/metrics"
)

var (
	// ErrDeserialize is returned (and logged, never surfaced to the
	// sender) when an inbound payload fails to decode.
	ErrDeserialize = errors.New("gossip: malformed message")
	// ErrUnknownTopic is returned for a topic the overlay doesn't handle.
	ErrUnknownTopic = errors.New("gossip: unknown topic")
)

// Transport is the wire boundary the overlay sends through; a concrete
// implementation owns sockets, TLS, peer_exchange signatures, and so on.
type Transport interface {
	Send(peerID, topic string, payload []byte) error
	Broadcast(topic string, payload []byte) error
}

// Persister is the subset of the Store the overlay needs to land
// received grains.
type Persister interface {
	InsertGrain(g *grain.Grain) error
}

// Searcher is the subset of the ANN index the overlay needs to answer
// distributed queries locally.
type Searcher interface {
	Search(query []float32, k int) ([]index.Result, error)
}

// queryState tracks one in-flight distributed top-k query (§4.F).
type queryState struct {
	k        int
	deadline time.Time
	results  map[grain.ID]float32 // coalesced by grain id, keeping highest similarity
	done     chan struct{}
}

// Overlay is the gossip engine: one instance per node. Its peer table
// and in-flight query state are owned exclusively by its event loop;
// everything else communicates with it through the command channel.
type Overlay struct {
	selfID    string
	transport Transport
	index     Searcher
	store     Persister
	verifier  crypto.Verifier
	log       log.Logger
	metrics   *metrics.Node

	cmds chan func(*overlayState)
}

type overlayState struct {
	peers    *peerTable
	sent     map[grain.ID]struct{}
	received map[grain.ID]struct{}
	acked    map[grain.ID]struct{}
	queries  map[string]*queryState
}

// New builds an overlay for selfID, talking through transport, landing
// grains in store, and answering local searches via idx.
func New(selfID string, transport Transport, idx Searcher, store Persister, verifier crypto.Verifier) *Overlay {
	return &Overlay{
		selfID:    selfID,
		transport: transport,
		index:     idx,
		store:     store,
		verifier:  verifier,
		log:       log.NewNoOp(),
		cmds:      make(chan func(*overlayState), 256),
	}
}

// SetLogger replaces the overlay's logger; pass nil to mute it.
func (o *Overlay) SetLogger(l log.Logger) {
	if l == nil {
		l = log.NewNoOp()
	}
	o.log = l
}

// SetMetrics attaches a metrics.Node the overlay reports traffic
// counters to; pass nil to stop reporting.
func (o *Overlay) SetMetrics(m *metrics.Node) {
	o.metrics = m
}

// Run drives the event loop until ctx is cancelled. It is the sole
// owner of peer and query state; call it from one goroutine.
func (o *Overlay) Run(ctx context.Context) {
	state := &overlayState{
		peers:    newPeerTable(),
		sent:     make(map[grain.ID]struct{}),
		received: make(map[grain.ID]struct{}),
		acked:    make(map[grain.ID]struct{}),
		queries:  make(map[string]*queryState),
	}

	sweep := time.NewTicker(60 * time.Second)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			state.peers.sweep()
		case fn := <-o.cmds:
			fn(state)
		}
	}
}

// submit runs fn on the event loop and blocks until it completes.
func (o *Overlay) submit(fn func(*overlayState)) {
	done := make(chan struct{})
	o.cmds <- func(s *overlayState) {
		fn(s)
		close(done)
	}
	<-done
}

// PublishGrain serializes g, remembers it in the sent-set so rebroadcasts
// are skipped, and floods it on TopicGrainsPut.
func (o *Overlay) PublishGrain(g *grain.Grain) error {
	var already bool
	o.submit(func(s *overlayState) {
		if _, ok := s.sent[g.ID]; ok {
			already = true
			return
		}
		s.sent[g.ID] = struct{}{}
	})
	if already {
		return nil
	}

	payload, err := encodeMsg(grainsPutMsg{SenderID: o.selfID, Grain: g})
	if err != nil {
		return fmt.Errorf("gossip: encode grains.put: %w", err)
	}
	if o.metrics != nil {
		o.metrics.GossipSent.Inc()
	}
	return o.transport.Broadcast(TopicGrainsPut, payload)
}

// HandleMessage dispatches an inbound payload from fromPeer on topic,
// applying the receive protocol in §4.F. Errors are informational only:
// the protocol never propagates a rejection back to the sender.
func (o *Overlay) HandleMessage(fromPeer, topic string, payload []byte) error {
	switch topic {
	case TopicGrainsPut:
		return o.handleGrainsPut(fromPeer, payload)
	case TopicGrainsAck:
		return o.handleGrainsAck(fromPeer, payload)
	case TopicQueryKNN:
		return o.handleQueryKNN(fromPeer, payload)
	case TopicQueryResp:
		return o.handleQueryResp(fromPeer, payload)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
}

func (o *Overlay) handleGrainsPut(fromPeer string, payload []byte) error {
	var msg grainsPutMsg
	if err := decodeMsg(payload, &msg); err != nil {
		o.submit(func(s *overlayState) {
			s.peers.ensure(fromPeer, nil, time.Now())
			s.peers.adjustReputation(fromPeer, -1.0)
		})
		o.log.Warn("grains.put deserialize failed", "peer", fromPeer, "err", err)
		if o.metrics != nil {
			o.metrics.GossipDropped.Inc()
		}
		return fmt.Errorf("%w: %v", ErrDeserialize, err)
	}
	g := msg.Grain

	var (
		dropped    bool
		rateLimited bool
	)
	o.submit(func(s *overlayState) {
		now := time.Now()
		s.peers.ensure(fromPeer, nil, now)

		if _, ok := s.received[g.ID]; ok {
			dropped = true
			return
		}

		peer, _ := s.peers.get(fromPeer)
		if !peer.window.Allow(now) {
			rateLimited = true
			s.peers.adjustReputation(fromPeer, -0.5)
			return
		}
	})
	if dropped {
		return nil
	}
	if rateLimited {
		o.log.Warn("grains.put rate limited", "peer", fromPeer)
		if o.metrics != nil {
			o.metrics.GossipDropped.Inc()
		}
		return fmt.Errorf("gossip: peer %s rate limited", fromPeer)
	}

	if err := grain.Verify(g, o.verifier); err != nil {
		o.submit(func(s *overlayState) { s.peers.adjustReputation(fromPeer, -1.0) })
		o.log.Warn("grains.put signature invalid", "peer", fromPeer, "grain", g.ID)
		if o.metrics != nil {
			o.metrics.GossipDropped.Inc()
		}
		return fmt.Errorf("gossip: grain signature invalid: %w", err)
	}

	if err := o.store.InsertGrain(g); err != nil {
		return fmt.Errorf("gossip: persist grain: %w", err)
	}

	o.submit(func(s *overlayState) {
		s.received[g.ID] = struct{}{}
		if peer, ok := s.peers.get(fromPeer); ok {
			peer.GrainsReceived++
		}
	})
	o.log.Debug("grain received", "peer", fromPeer, "grain", g.ID)
	if o.metrics != nil {
		o.metrics.GossipReceived.Inc()
	}

	ack, err := encodeMsg(grainsAckMsg{SenderID: o.selfID, GrainID: g.ID})
	if err != nil {
		return fmt.Errorf("gossip: encode ack: %w", err)
	}
	return o.transport.Broadcast(TopicGrainsAck, ack)
}

func (o *Overlay) handleGrainsAck(fromPeer string, payload []byte) error {
	var msg grainsAckMsg
	if err := decodeMsg(payload, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDeserialize, err)
	}
	o.submit(func(s *overlayState) {
		s.peers.ensure(fromPeer, nil, time.Now())
		if _, ok := s.acked[msg.GrainID]; !ok {
			s.acked[msg.GrainID] = struct{}{}
			s.peers.adjustReputation(fromPeer, goodBehaviorReward)
		}
	})
	return nil
}

func (o *Overlay) handleQueryKNN(fromPeer string, payload []byte) error {
	var msg queryKNNMsg
	if err := decodeMsg(payload, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDeserialize, err)
	}
	results, err := o.index.Search(msg.Vector, msg.K)
	if err != nil {
		return fmt.Errorf("gossip: local search for query %s: %w", msg.QueryID, err)
	}
	hits := make([]QueryHit, len(results))
	for i, r := range results {
		hits[i] = QueryHit{GrainID: r.GrainID, Similarity: r.Similarity}
	}
	resp, err := encodeMsg(queryRespMsg{SenderID: o.selfID, QueryID: msg.QueryID, Results: hits})
	if err != nil {
		return fmt.Errorf("gossip: encode query.resp: %w", err)
	}
	return o.transport.Send(fromPeer, TopicQueryResp, resp)
}

func (o *Overlay) handleQueryResp(fromPeer string, payload []byte) error {
	var msg queryRespMsg
	if err := decodeMsg(payload, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDeserialize, err)
	}
	o.submit(func(s *overlayState) {
		q, ok := s.queries[msg.QueryID]
		if !ok {
			return
		}
		for _, hit := range msg.Results {
			if cur, ok := q.results[hit.GrainID]; !ok || hit.Similarity > cur {
				q.results[hit.GrainID] = hit.Similarity
			}
		}
	})
	return nil
}

// Query runs the distributed top-k protocol (§4.F): it mints a query
// id, publishes a TopicQueryKNN broadcast, waits up to timeout
// collecting responses, then merges and returns the best k.
func (o *Overlay) Query(ctx context.Context, vec []float32, k int, timeout time.Duration) ([]QueryHit, error) {
	queryID := uuid.New().String()
	done := make(chan struct{})

	o.submit(func(s *overlayState) {
		s.queries[queryID] = &queryState{
			k:        k,
			deadline: time.Now().Add(timeout),
			results:  make(map[grain.ID]float32),
			done:     done,
		}
	})
	defer o.submit(func(s *overlayState) { delete(s.queries, queryID) })

	payload, err := encodeMsg(queryKNNMsg{SenderID: o.selfID, QueryID: queryID, Vector: vec, K: k})
	if err != nil {
		return nil, fmt.Errorf("gossip: encode query.knn: %w", err)
	}
	if err := o.transport.Broadcast(TopicQueryKNN, payload); err != nil {
		return nil, fmt.Errorf("gossip: broadcast query.knn: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
	}

	var out []QueryHit
	o.submit(func(s *overlayState) {
		q, ok := s.queries[queryID]
		if !ok {
			return
		}
		out = make([]QueryHit, 0, len(q.results))
		for id, sim := range q.results {
			out = append(out, QueryHit{GrainID: id, Similarity: sim})
		}
	})

	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// PeerReputation returns a peer's current reputation, for diagnostics.
func (o *Overlay) PeerReputation(peerID string) (float64, bool) {
	var (
		rep float64
		ok  bool
	)
	o.submit(func(s *overlayState) {
		p, found := s.peers.get(peerID)
		if found {
			rep = p.Reputation
			ok = true
		}
	})
	return rep, ok
}

// PeerCount reports how many peers are currently tracked.
func (o *Overlay) PeerCount() int {
	var n int
	o.submit(func(s *overlayState) { n = len(s.peers.all()) })
	return n
}
