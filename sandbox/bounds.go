// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package sandbox

import (
	"context"
	"net"
	"path/filepath"
	"strings"
	"time"
)

// Bounds describes the resource envelope a tool execution runs inside
// (§4.I). Go has no per-goroutine CPU or memory ceiling primitive, so
// CPULimitMS is enforced as a wall-clock deadline and MemoryLimitMB is
// enforced as a best-effort cap on observable output size; both are
// approximations of the named failure modes, not hard isolation.
type Bounds struct {
	CPULimitMS     int
	MemoryLimitMB  int
	NetworkAllowed bool
	FileAccessPath string
	MaxFileSizeMB  int
}

// deadline returns the execution's wall-clock budget, or zero if unset.
func (b Bounds) deadline() time.Duration {
	if b.CPULimitMS <= 0 {
		return 0
	}
	return time.Duration(b.CPULimitMS) * time.Millisecond
}

// memoryLimitBytes returns the best-effort output-size ceiling, or zero
// if unset.
func (b Bounds) memoryLimitBytes() int64 {
	if b.MemoryLimitMB <= 0 {
		return 0
	}
	return int64(b.MemoryLimitMB) * 1 << 20
}

// fileSizeLimitBytes returns the max size a tool may read or write, or
// zero if unset.
func (b Bounds) fileSizeLimitBytes() int64 {
	if b.MaxFileSizeMB <= 0 {
		return 0
	}
	return int64(b.MaxFileSizeMB) * 1 << 20
}

// ResolvePath canonicalizes path and checks it stays within
// FileAccessPath. An empty FileAccessPath denies all file access.
func (b Bounds) ResolvePath(path string) (string, error) {
	if b.FileAccessPath == "" {
		return "", ErrFileAccessDenied
	}
	root, err := filepath.Abs(filepath.Clean(b.FileAccessPath))
	if err != nil {
		return "", ErrFileAccessDenied
	}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, full)
	}
	full, err = filepath.Abs(filepath.Clean(full))
	if err != nil {
		return "", ErrFileAccessDenied
	}
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", ErrFileAccessDenied
	}
	return full, nil
}

// CheckFileSize reports ErrFileAccessDenied if n exceeds MaxFileSizeMB.
func (b Bounds) CheckFileSize(n int64) error {
	if limit := b.fileSizeLimitBytes(); limit > 0 && n > limit {
		return ErrFileAccessDenied
	}
	return nil
}

// Dial is the only network entry point a bounded tool may use; it
// refuses to connect unless NetworkAllowed is set.
func (b Bounds) Dial(ctx context.Context, network, addr string) (net.Conn, error) {
	if !b.NetworkAllowed {
		return nil, ErrNetworkAccessDenied
	}
	var d net.Dialer
	return d.DialContext(ctx, network, addr)
}
