// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package sandbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/synapsenet/core/metrics"
	"github.com/synapsenet/core/ratelimit"
)

// ToolFunc is a tool implementation. It runs inside the bounds handed
// to it and must use bounds.Dial/bounds.ResolvePath for any network or
// file access it needs.
type ToolFunc func(ctx context.Context, input []byte, bounds Bounds) ([]byte, error)

// Approver decides whether a tool call that requires approval may
// proceed. A nil Approver on the registry denies every such call.
type Approver func(tool string, input []byte) bool

type registeredTool struct {
	impl   ToolFunc
	policy Policy
	bounds Bounds
	minute *ratelimit.Window
	hour   *ratelimit.Window
}

// Registry maps tool names to policy-gated, resource-bounded
// implementations (§4.I).
type Registry struct {
	mu       sync.Mutex
	tools    map[string]*registeredTool
	stats    *statsTable
	Approver Approver
	metrics  *metrics.Node
}

// SetMetrics attaches a metrics.Node the registry reports execution
// counters to; pass nil to stop reporting.
func (r *Registry) SetMetrics(m *metrics.Node) {
	r.metrics = m
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*registeredTool),
		stats: newStatsTable(),
	}
}

// Register adds or replaces a tool's implementation, policy, and bounds.
func (r *Registry) Register(name string, impl ToolFunc, policy Policy, bounds Bounds) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt := &registeredTool{impl: impl, policy: policy, bounds: bounds}
	if policy.RateLimit.CallsPerMinute > 0 {
		rt.minute = ratelimit.New(policy.RateLimit.CallsPerMinute, time.Minute)
	}
	if policy.RateLimit.CallsPerHour > 0 {
		rt.hour = ratelimit.New(policy.RateLimit.CallsPerHour, time.Hour)
	}
	r.tools[name] = rt
}

// Stats returns a snapshot of the named tool's execution statistics.
func (r *Registry) Stats(name string) ToolStats {
	return r.stats.Get(name)
}

// Execute runs tool under its registered policy and bounds: it checks
// the policy (enabled, context, approval), applies the rate limit, then
// runs the implementation inside its bounded environment, recording
// (tool_name, success) statistics regardless of outcome (§4.I).
func (r *Registry) Execute(ctx context.Context, tool, execContext string, input []byte) ([]byte, error) {
	r.mu.Lock()
	rt, ok := r.tools[tool]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, tool)
	}
	if r.metrics != nil {
		r.metrics.SandboxExecutions.Inc()
	}

	if !rt.policy.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrToolDisabled, tool)
	}
	if !rt.policy.allowsContext(execContext) {
		return nil, fmt.Errorf("%w: %s in context %s", ErrContextNotAllowed, tool, execContext)
	}
	if rt.policy.RequiresApproval {
		if r.Approver == nil || !r.Approver(tool, input) {
			return nil, fmt.Errorf("%w: %s", ErrApprovalRequired, tool)
		}
	}

	now := time.Now()
	if rt.minute != nil && !rt.minute.Allow(now) {
		if r.metrics != nil {
			r.metrics.SandboxRateLimited.Inc()
		}
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, tool)
	}
	if rt.hour != nil && !rt.hour.Allow(now) {
		if r.metrics != nil {
			r.metrics.SandboxRateLimited.Inc()
		}
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, tool)
	}

	out, err := runBounded(ctx, rt.impl, input, rt.bounds)
	r.stats.record(tool, err == nil)
	if err != nil {
		if r.metrics != nil {
			r.metrics.SandboxFailures.Inc()
		}
		return nil, err
	}
	return out, nil
}

// runBounded executes impl under the cpu-limit deadline derived from
// bounds, distinguishing a caller-supplied context cancellation
// (ErrTimeout) from the bound's own cpu budget expiring
// (ErrCPULimitExceeded), and enforces the memory bound on the
// observable output size.
func runBounded(ctx context.Context, impl ToolFunc, input []byte, bounds Bounds) ([]byte, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if d := bounds.deadline(); d > 0 {
		runCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := impl(runCtx, input, bounds)
		done <- result{out, err}
	}()

	select {
	case <-runCtx.Done():
		if ctx.Err() != nil {
			return nil, ErrTimeout
		}
		return nil, ErrCPULimitExceeded
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrExecutionFailed, r.err)
		}
		if limit := bounds.memoryLimitBytes(); limit > 0 && int64(len(r.out)) > limit {
			return nil, ErrMemoryLimitExceeded
		}
		return r.out, nil
	}
}
