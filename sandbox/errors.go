// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package sandbox

import "errors"

// Failure modes a bounded tool execution can report (§4.I).
var (
	ErrTimeout             = errors.New("sandbox: execution timed out")
	ErrMemoryLimitExceeded = errors.New("sandbox: memory limit exceeded")
	ErrCPULimitExceeded    = errors.New("sandbox: cpu limit exceeded")
	ErrFileAccessDenied    = errors.New("sandbox: file access denied")
	ErrNetworkAccessDenied = errors.New("sandbox: network access denied")
	ErrExecutionFailed     = errors.New("sandbox: execution failed")

	ErrUnknownTool       = errors.New("sandbox: unknown tool")
	ErrToolDisabled      = errors.New("sandbox: tool disabled")
	ErrContextNotAllowed = errors.New("sandbox: context not allowed by policy")
	ErrApprovalRequired  = errors.New("sandbox: tool requires approval")
	ErrRateLimited       = errors.New("sandbox: rate limited")
)
