// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrate

import (
	"context"
	"fmt"
	"time"

	"github.com/synapsenet/core/gossip"
	"github.com/synapsenet/core/grain"
	"github.com/synapsenet/core/index"
	"github.com/synapsenet/core/log"
	"github.com/synapsenet/core/store"
)

// Retriever is the local ANN search surface the orchestrator uses to
// gather context for a step.
type Retriever interface {
	Search(query []float32, k int) ([]index.Result, error)
}

// PeerRetriever optionally extends local search with a distributed
// top-k query over the gossip overlay.
type PeerRetriever interface {
	Query(ctx context.Context, vec []float32, k int, timeout time.Duration) ([]gossip.QueryHit, error)
}

// Synthesizer produces a step's answer from the retrieved grains. It is
// the orchestrator's hook for an embedding/LLM-backed implementation;
// the core only wires the contract.
type Synthesizer func(task *TaskNode, query string, retrieved []grain.ID) (synthesis string, confidence float32, sigs [][]byte)

// QueryFor derives a step's search text and vector from its task node.
type QueryFor func(task *TaskNode) (query string, vec []float32)

const defaultLocalK = 10

// Engine executes validated plans against a store and local index,
// optionally consulting peers for additional context (§4.H).
type Engine struct {
	st    *store.Store
	local Retriever
	peers PeerRetriever
	log   log.Logger
}

// New builds an engine. peers may be nil to skip distributed retrieval.
func New(st *store.Store, local Retriever, peers PeerRetriever) *Engine {
	return &Engine{st: st, local: local, peers: peers, log: log.NewNoOp()}
}

// SetLogger replaces the engine's logger; pass nil to mute it.
func (e *Engine) SetLogger(l log.Logger) {
	if l == nil {
		l = log.NewNoOp()
	}
	e.log = l
}

// Execute walks plan in topological order up to maxSteps completed
// tasks, synthesizing and persisting one episode per executed step.
// Tasks whose dependencies failed are cascaded to Failed without
// consuming step budget.
func (e *Engine) Execute(ctx context.Context, plan *Plan, maxSteps int, queryFor QueryFor, synthesize Synthesizer) (int, error) {
	if err := plan.Validate(); err != nil {
		return 0, err
	}
	order, err := plan.TopologicalOrder()
	if err != nil {
		return 0, err
	}

	steps := 0
	for _, id := range order {
		if steps >= maxSteps {
			break
		}
		task := plan.tasks[id]
		if task.Status == StatusDone || task.Status == StatusFailed {
			continue
		}

		if depsFailed(plan, task) {
			task.Status = StatusFailed
			e.log.Warn("task cascaded to failed", "goal", plan.GoalID, "task", task.ID)
			continue
		}

		task.Status = StatusReady
		task.Status = StatusRunning

		query, vec := queryFor(task)
		retrieved, err := e.retrieve(ctx, vec)
		if err != nil {
			task.Status = StatusFailed
			return steps, fmt.Errorf("orchestrate: retrieve context for task %s: %w", task.ID, err)
		}

		synthesis, confidence, sigs := synthesize(task, query, retrieved)

		episode := store.Episode{
			GoalID:          plan.GoalID,
			Step:            uint32(steps),
			Query:           query,
			QueryVec:        vec,
			RetrievedGrains: retrieved,
			Synthesis:       synthesis,
			Confidence:      confidence,
			Signatures:      sigs,
		}
		if err := e.st.AppendEpisode(episode); err != nil {
			task.Status = StatusFailed
			return steps, fmt.Errorf("orchestrate: append episode for task %s: %w", task.ID, err)
		}

		task.Status = StatusDone
		steps++
		e.log.Debug("task executed", "goal", plan.GoalID, "task", task.ID, "confidence", confidence)
	}

	return steps, nil
}

func depsFailed(plan *Plan, task *TaskNode) bool {
	for _, dep := range task.Deps {
		if d, ok := plan.tasks[dep]; ok && d.Status == StatusFailed {
			return true
		}
	}
	return false
}

// retrieve gathers local ANN hits and, if a peer retriever is wired,
// merges in a distributed top-k query.
func (e *Engine) retrieve(ctx context.Context, vec []float32) ([]grain.ID, error) {
	seen := make(map[grain.ID]struct{})
	var out []grain.ID

	if e.local != nil {
		local, err := e.local.Search(vec, defaultLocalK)
		if err != nil {
			return nil, err
		}
		for _, r := range local {
			if _, ok := seen[r.GrainID]; !ok {
				seen[r.GrainID] = struct{}{}
				out = append(out, r.GrainID)
			}
		}
	}

	if e.peers != nil {
		remote, err := e.peers.Query(ctx, vec, defaultLocalK, 2*time.Second)
		if err != nil {
			return nil, err
		}
		for _, r := range remote {
			if _, ok := seen[r.GrainID]; !ok {
				seen[r.GrainID] = struct{}{}
				out = append(out, r.GrainID)
			}
		}
	}

	return out, nil
}
