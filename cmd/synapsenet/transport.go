// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"net"
	"sync"
)

// loopbackTransport is a trivial gossip.Transport that delivers directly
// to peers registered in-process. It is the seam SPEC_FULL.md §4.F
// leaves pluggable: a production deployment swaps this for a real
// socket-based transport (the teacher's networking stack handles a
// different, Avalanche-specific wire protocol and does not fit here).
// This stands in for local development and single-process simulation.
type loopbackTransport struct {
	mu    sync.Mutex
	peers map[string]func(topic string, payload []byte)
}

func newLoopbackTransport() *loopbackTransport {
	return &loopbackTransport{peers: make(map[string]func(topic string, payload []byte))}
}

func (t *loopbackTransport) register(peerID string, onMessage func(topic string, payload []byte)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers[peerID] = onMessage
}

func (t *loopbackTransport) Send(peerID, topic string, payload []byte) error {
	t.mu.Lock()
	deliver, ok := t.peers[peerID]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("transport: unknown peer %s", peerID)
	}
	deliver(topic, payload)
	return nil
}

func (t *loopbackTransport) Broadcast(topic string, payload []byte) error {
	t.mu.Lock()
	targets := make([]func(string, []byte), 0, len(t.peers))
	for _, deliver := range t.peers {
		targets = append(targets, deliver)
	}
	t.mu.Unlock()
	for _, deliver := range targets {
		deliver(topic, payload)
	}
	return nil
}

// udpPeerAddr resolves a bootstrap peer string of the form "host:port"
// for mDNS-discovered or explicitly configured peers. Unused by
// loopbackTransport but kept as the seam a socket transport would start
// from.
func udpPeerAddr(ctx context.Context, hostport string) (*net.UDPAddr, error) {
	return net.ResolveUDPAddr("udp", hostport)
}
