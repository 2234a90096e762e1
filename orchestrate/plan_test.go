// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidatePlanAcyclic(t *testing.T) {
	p := NewPlan("goal-1")
	p.AddTask(TaskNode{ID: "a", Type: Research})
	p.AddTask(TaskNode{ID: "b", Type: Analysis, Deps: []string{"a"}})
	p.AddTask(TaskNode{ID: "c", Type: Computation, Deps: []string{"a", "b"}})

	require.NoError(t, p.Validate())

	order, err := p.TopologicalOrder()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestValidatePlanDetectsCycle(t *testing.T) {
	p := NewPlan("goal-2")
	p.AddTask(TaskNode{ID: "a", Deps: []string{"c"}})
	p.AddTask(TaskNode{ID: "b", Deps: []string{"a"}})
	p.AddTask(TaskNode{ID: "c", Deps: []string{"b"}})

	err := p.Validate()
	require.ErrorIs(t, err, ErrCyclicPlan)
}

func TestValidatePlanUnknownDependency(t *testing.T) {
	p := NewPlan("goal-3")
	p.AddTask(TaskNode{ID: "a", Deps: []string{"ghost"}})

	err := p.Validate()
	require.ErrorIs(t, err, ErrUnknownDependency)
}
