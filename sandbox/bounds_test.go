// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package sandbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePathStaysWithinRoot(t *testing.T) {
	b := Bounds{FileAccessPath: "/data/tool-root"}

	full, err := b.ResolvePath("notes/a.txt")
	require.NoError(t, err)
	require.Equal(t, "/data/tool-root/notes/a.txt", full)
}

func TestResolvePathRejectsEscape(t *testing.T) {
	b := Bounds{FileAccessPath: "/data/tool-root"}

	_, err := b.ResolvePath("../../etc/passwd")
	require.ErrorIs(t, err, ErrFileAccessDenied)
}

func TestResolvePathDeniesEmptyRoot(t *testing.T) {
	b := Bounds{}
	_, err := b.ResolvePath("a.txt")
	require.ErrorIs(t, err, ErrFileAccessDenied)
}

func TestCheckFileSizeEnforcesLimit(t *testing.T) {
	b := Bounds{MaxFileSizeMB: 1}
	require.NoError(t, b.CheckFileSize(1<<19))
	require.ErrorIs(t, b.CheckFileSize(2<<20), ErrFileAccessDenied)
}

func TestDialDeniedWithoutNetworkAllowed(t *testing.T) {
	b := Bounds{NetworkAllowed: false}
	_, err := b.Dial(context.Background(), "tcp", "example.invalid:80")
	require.ErrorIs(t, err, ErrNetworkAccessDenied)
}
