// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrate

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// ErrCyclicPlan is returned when a plan's dependency graph contains a
// cycle, so topological sort cannot cover every node.
var ErrCyclicPlan = errors.New("orchestrate: plan dependency graph is cyclic")

// ErrUnknownDependency is returned when a task names a dependency that
// isn't in the plan.
var ErrUnknownDependency = errors.New("orchestrate: unknown dependency")

// Plan is a goal's decomposition into a directed acyclic graph of tasks.
type Plan struct {
	GoalID string
	tasks  map[string]*TaskNode
	order  []string // insertion order, for a stable gonum node id assignment
	nodeID map[string]int64
}

// NewPlan starts an empty plan for goalID.
func NewPlan(goalID string) *Plan {
	return &Plan{
		GoalID: goalID,
		tasks:  make(map[string]*TaskNode),
		nodeID: make(map[string]int64),
	}
}

// AddTask inserts a task node, pending execution.
func (p *Plan) AddTask(t TaskNode) {
	if t.Status == "" {
		t.Status = StatusPending
	}
	if _, exists := p.tasks[t.ID]; !exists {
		p.nodeID[t.ID] = int64(len(p.order))
		p.order = append(p.order, t.ID)
	}
	p.tasks[t.ID] = &t
}

// Task looks up a task by id.
func (p *Plan) Task(id string) (*TaskNode, bool) {
	t, ok := p.tasks[id]
	return t, ok
}

// Tasks returns every task in insertion order.
func (p *Plan) Tasks() []*TaskNode {
	out := make([]*TaskNode, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.tasks[id])
	}
	return out
}

func (p *Plan) buildGraph() (*simple.DirectedGraph, error) {
	g := simple.NewDirectedGraph()
	for _, id := range p.order {
		g.AddNode(simple.Node(p.nodeID[id]))
	}
	for _, id := range p.order {
		t := p.tasks[id]
		for _, dep := range t.Deps {
			depID, ok := p.nodeID[dep]
			if !ok {
				return nil, fmt.Errorf("%w: task %q depends on %q", ErrUnknownDependency, t.ID, dep)
			}
			// an edge dep -> t: t depends on dep finishing first.
			g.SetEdge(simple.Edge{F: simple.Node(depID), T: simple.Node(p.nodeID[id])})
		}
	}
	return g, nil
}

// Validate checks that every dependency resolves to a task in the plan
// and that the dependency graph is acyclic (§4.H): a topological sort
// must be able to order every node.
func (p *Plan) Validate() error {
	g, err := p.buildGraph()
	if err != nil {
		return err
	}
	ordered, err := topo.Sort(g)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCyclicPlan, err)
	}
	if len(ordered) != len(p.order) {
		return ErrCyclicPlan
	}
	return nil
}

// TopologicalOrder returns task ids in an order consistent with their
// dependencies, suitable for sequential execution.
func (p *Plan) TopologicalOrder() ([]string, error) {
	g, err := p.buildGraph()
	if err != nil {
		return nil, err
	}
	ordered, err := topo.Sort(g)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCyclicPlan, err)
	}

	idToTask := make(map[int64]string, len(p.order))
	for id, nid := range p.nodeID {
		idToTask[nid] = id
	}

	out := make([]string, 0, len(ordered))
	for _, n := range ordered {
		out = append(out, idToTask[nodeIDOf(n)])
	}
	return out, nil
}

func nodeIDOf(n graph.Node) int64 { return n.ID() }
