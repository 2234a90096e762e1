// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package sandbox

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func echoTool(_ context.Context, input []byte, _ Bounds) ([]byte, error) {
	return input, nil
}

func TestExecuteRunsEnabledTool(t *testing.T) {
	r := NewRegistry()
	r.Register("echo", echoTool, Policy{Enabled: true}, Bounds{})

	out, err := r.Execute(context.Background(), "echo", "", []byte("hi"))
	require.NoError(t, err)
	require.True(t, bytes.Equal([]byte("hi"), out))

	st := r.Stats("echo")
	require.Equal(t, uint64(1), st.Calls)
	require.Equal(t, uint64(1), st.Successes)
}

func TestExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(context.Background(), "ghost", "", nil)
	require.ErrorIs(t, err, ErrUnknownTool)
}

func TestExecuteDisabledTool(t *testing.T) {
	r := NewRegistry()
	r.Register("echo", echoTool, Policy{Enabled: false}, Bounds{})
	_, err := r.Execute(context.Background(), "echo", "", nil)
	require.ErrorIs(t, err, ErrToolDisabled)
}

func TestExecuteRejectsDisallowedContext(t *testing.T) {
	r := NewRegistry()
	r.Register("echo", echoTool, Policy{Enabled: true, AllowedContexts: []string{"planner"}}, Bounds{})

	_, err := r.Execute(context.Background(), "echo", "scratch", nil)
	require.ErrorIs(t, err, ErrContextNotAllowed)

	_, err = r.Execute(context.Background(), "echo", "planner", nil)
	require.NoError(t, err)
}

func TestExecuteRequiresApproval(t *testing.T) {
	r := NewRegistry()
	r.Register("echo", echoTool, Policy{Enabled: true, RequiresApproval: true}, Bounds{})

	_, err := r.Execute(context.Background(), "echo", "", nil)
	require.ErrorIs(t, err, ErrApprovalRequired)

	r.Approver = func(tool string, input []byte) bool { return tool == "echo" }
	_, err = r.Execute(context.Background(), "echo", "", nil)
	require.NoError(t, err)
}

func TestExecuteRateLimitsPerMinute(t *testing.T) {
	r := NewRegistry()
	r.Register("echo", echoTool, Policy{
		Enabled:   true,
		RateLimit: RateLimit{CallsPerMinute: 2},
	}, Bounds{})

	_, err := r.Execute(context.Background(), "echo", "", nil)
	require.NoError(t, err)
	_, err = r.Execute(context.Background(), "echo", "", nil)
	require.NoError(t, err)
	_, err = r.Execute(context.Background(), "echo", "", nil)
	require.ErrorIs(t, err, ErrRateLimited)
}

func TestExecuteCpuLimitExceeded(t *testing.T) {
	slow := func(ctx context.Context, input []byte, b Bounds) ([]byte, error) {
		select {
		case <-time.After(50 * time.Millisecond):
			return input, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r := NewRegistry()
	r.Register("slow", slow, Policy{Enabled: true}, Bounds{CPULimitMS: 5})

	_, err := r.Execute(context.Background(), "slow", "", nil)
	require.ErrorIs(t, err, ErrCPULimitExceeded)
}

func TestExecuteCallerTimeoutReportsTimeout(t *testing.T) {
	slow := func(ctx context.Context, input []byte, b Bounds) ([]byte, error) {
		select {
		case <-time.After(50 * time.Millisecond):
			return input, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r := NewRegistry()
	r.Register("slow", slow, Policy{Enabled: true}, Bounds{CPULimitMS: 1000})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := r.Execute(ctx, "slow", "", nil)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestExecuteMemoryLimitExceeded(t *testing.T) {
	big := func(_ context.Context, _ []byte, _ Bounds) ([]byte, error) {
		return make([]byte, 2<<20), nil
	}

	r := NewRegistry()
	r.Register("big", big, Policy{Enabled: true}, Bounds{MemoryLimitMB: 1})

	_, err := r.Execute(context.Background(), "big", "", nil)
	require.ErrorIs(t, err, ErrMemoryLimitExceeded)
}

func TestExecuteWrapsImplementationFailure(t *testing.T) {
	failing := func(_ context.Context, _ []byte, _ Bounds) ([]byte, error) {
		return nil, errors.New("boom")
	}

	r := NewRegistry()
	r.Register("fail", failing, Policy{Enabled: true}, Bounds{})

	_, err := r.Execute(context.Background(), "fail", "", nil)
	require.ErrorIs(t, err, ErrExecutionFailed)

	st := r.Stats("fail")
	require.Equal(t, uint64(1), st.Calls)
	require.Equal(t, uint64(1), st.Failures)
}

func TestFileAccessToolDeniedOutsideRoot(t *testing.T) {
	readFile := func(_ context.Context, input []byte, b Bounds) ([]byte, error) {
		if _, err := b.ResolvePath(string(input)); err != nil {
			return nil, err
		}
		return input, nil
	}

	r := NewRegistry()
	r.Register("read", readFile, Policy{Enabled: true}, Bounds{FileAccessPath: "/data/tool-root"})

	_, err := r.Execute(context.Background(), "read", "", []byte("../secret"))
	require.ErrorIs(t, err, ErrExecutionFailed)
}
