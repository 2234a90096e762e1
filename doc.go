// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package synapsenet wires together the components of a SynapseNet
// node: signed content-addressed grains, a gossip overlay over them, a
// local ANN index for semantic retrieval, a swarm consensus engine for
// resolving competing hypotheses ("consensus of meaning"), a reasoning
// orchestrator that plans and executes multi-step goals against that
// memory, and a policy-gated sandbox for the tools an orchestrator
// plan invokes.
//
// Each concern lives in its own subpackage (crypto, grain, store,
// index, poe, gossip, swarm, orchestrate, sandbox, config, log,
// metrics); this package only holds the top-level Node type that
// constructs and owns them together. See cmd/synapsenet for a runnable
// node built on top of it.
package synapsenet
