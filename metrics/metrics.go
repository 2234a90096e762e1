// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics wires SynapseNet's gossip, swarm, sandbox, and store
// activity into Prometheus collectors, following the same
// Registry-holding wrapper the rest of the teacher codebase uses
// around prometheus.Registerer.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Node aggregates every counter/gauge a SynapseNet node exposes.
// Each component's SetMetrics receives the whole struct and increments
// only its own counters, so a package that only sends gossip traffic
// never touches sandbox counters.
type Node struct {
	Registry *prometheus.Registry

	GossipSent     prometheus.Counter
	GossipReceived prometheus.Counter
	GossipDropped  prometheus.Counter

	SwarmRounds    prometheus.Counter
	SwarmCommits   prometheus.Counter
	SwarmConverged prometheus.Counter

	SandboxExecutions  prometheus.Counter
	SandboxFailures    prometheus.Counter
	SandboxRateLimited prometheus.Counter

	StoreGrains prometheus.Gauge
}

// NewNode registers a full set of SynapseNet collectors against reg.
func NewNode(reg *prometheus.Registry) (*Node, error) {
	n := &Node{
		Registry: reg,
		GossipSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synapsenet_gossip_sent_total", Help: "Gossip messages sent.",
		}),
		GossipReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synapsenet_gossip_received_total", Help: "Gossip messages received.",
		}),
		GossipDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synapsenet_gossip_dropped_total", Help: "Gossip messages dropped by rate limiting or verification.",
		}),
		SwarmRounds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synapsenet_swarm_rounds_total", Help: "Swarm consensus rounds run.",
		}),
		SwarmCommits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synapsenet_swarm_commits_total", Help: "Goals that reached a committed best hypothesis.",
		}),
		SwarmConverged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synapsenet_swarm_converged_total", Help: "Goals that converged, with or without a commit.",
		}),
		SandboxExecutions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synapsenet_sandbox_executions_total", Help: "Tool executions attempted.",
		}),
		SandboxFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synapsenet_sandbox_failures_total", Help: "Tool executions that returned an error.",
		}),
		SandboxRateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synapsenet_sandbox_rate_limited_total", Help: "Tool calls rejected by a policy rate limit.",
		}),
		StoreGrains: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "synapsenet_store_grains", Help: "Grains currently held in the local store.",
		}),
	}
	for _, c := range []prometheus.Collector{
		n.GossipSent, n.GossipReceived, n.GossipDropped,
		n.SwarmRounds, n.SwarmCommits, n.SwarmConverged,
		n.SandboxExecutions, n.SandboxFailures, n.SandboxRateLimited,
		n.StoreGrains,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return n, nil
}
