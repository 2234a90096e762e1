// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package synapsenet

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/synapsenet/core/config"
	"github.com/synapsenet/core/crypto"
	"github.com/synapsenet/core/gossip"
	"github.com/synapsenet/core/index"
	"github.com/synapsenet/core/log"
	"github.com/synapsenet/core/metrics"
	"github.com/synapsenet/core/orchestrate"
	"github.com/synapsenet/core/poe"
	"github.com/synapsenet/core/sandbox"
	"github.com/synapsenet/core/store"
	"github.com/synapsenet/core/swarm"
)

// Node owns one SynapseNet node's full component set: its signer, its
// durable store and ANN index, the PoE scoring engine, the gossip
// overlay, a swarm consensus engine, the reasoning
// orchestrator, and the tool sandbox its plans invoke.
type Node struct {
	Config  config.Node
	Log     log.Logger
	Metrics *metrics.Node

	Signer crypto.Signer

	Store   *store.Store
	Index   *index.Index
	PoE     *poe.Engine
	Gossip  *gossip.Overlay
	Swarm   *swarm.Engine
	Plan    *orchestrate.Engine
	Sandbox *sandbox.Registry
}

// New constructs a Node from cfg: it opens the store at
// cfg.Storage.Path, builds the ANN index at cfg.Storage.HNSW's
// parameters, wires the PoE engine against both, and builds a gossip
// overlay, swarm engine, orchestrator, and sandbox registry ready for
// the caller to drive. transport is the concrete Transport
// implementation for the gossip overlay (§4.F leaves this pluggable:
// this core mandates no specific network stack).
func New(cfg config.Node, transport gossip.Transport) (*Node, error) {
	if err := cfg.Valid(); err != nil {
		return nil, fmt.Errorf("synapsenet: invalid config: %w", err)
	}

	logger := log.NewSlogLevel(cfg.Node.LogLevel)

	reg := prometheus.NewRegistry()
	m, err := metrics.NewNode(reg)
	if err != nil {
		return nil, fmt.Errorf("synapsenet: register metrics: %w", err)
	}

	signer, err := crypto.NewClassicalSigner()
	if err != nil {
		return nil, fmt.Errorf("synapsenet: build signer: %w", err)
	}

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("synapsenet: open store: %w", err)
	}
	st.SetMetrics(m)

	idx := index.New(index.Config{
		Dim:            cfg.AI.EmbeddingDim,
		MaxElements:    cfg.Storage.HNSW.MaxElements,
		M:              cfg.Storage.HNSW.M,
		EfConstruction: cfg.Storage.HNSW.EfConstruction,
	})

	poeEngine, err := poe.New(idx, st, poe.Weights{
		Novelty:   cfg.Economy.Alpha,
		Coherence: cfg.Economy.Beta,
		Reuse:     cfg.Economy.Gamma,
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("synapsenet: build poe engine: %w", err)
	}

	overlay := gossip.New(cfg.Node.ID, transport, idx, st, crypto.NewVerifier())
	overlay.SetLogger(logger)
	overlay.SetMetrics(m)

	reps := swarm.NewInMemoryReputation()
	swarmEngine := swarm.NewEngine(swarm.DefaultConfig(cfg.AI.EmbeddingDim), st, reps)
	swarmEngine.SetLogger(logger)
	swarmEngine.SetMetrics(m)

	planEngine := orchestrate.New(st, idx, overlay)
	planEngine.SetLogger(logger)

	registry := sandbox.NewRegistry()
	registry.SetMetrics(m)

	return &Node{
		Config:  cfg,
		Log:     logger,
		Metrics: m,
		Signer:  signer,
		Store:   st,
		Index:   idx,
		PoE:     poeEngine,
		Gossip:  overlay,
		Swarm:   swarmEngine,
		Plan:    planEngine,
		Sandbox: registry,
	}, nil
}

// Close releases the node's durable resources.
func (n *Node) Close() error {
	return n.Store.Close()
}
