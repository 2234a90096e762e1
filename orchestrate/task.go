// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package orchestrate implements the Reasoning Orchestrator: it holds a
// goal's DAG of sub-tasks, built by the caller with NewPlan and AddTask,
// validates acyclicity, and walks the plan in topological order,
// synthesizing an episode per step (§4.H). It does not decompose a goal
// string into sub-tasks itself.
package orchestrate

// TaskType enumerates the kinds of sub-task a plan may contain.
type TaskType string

const (
	Research       TaskType = "research"
	Computation    TaskType = "computation"
	DataProcessing TaskType = "data_processing"
	CodeGeneration TaskType = "code_generation"
	FileOperation  TaskType = "file_operation"
	WebQuery       TaskType = "web_query"
	Analysis       TaskType = "analysis"
)

// Status tracks a task node's progress through a plan's execution.
type Status string

const (
	StatusPending   Status = "pending"
	StatusReady     Status = "ready"
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
)

// TaskNode is one sub-task in a plan's dependency graph.
type TaskNode struct {
	ID          string
	Description string
	Type        TaskType
	Deps        []string
	Status      Status
	Complexity  int
	Metadata    map[string]string
}
