// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultNodeIsValid(t *testing.T) {
	require.NoError(t, DefaultNode().Valid())
}

func TestNodeValidRejectsZeroP2PPort(t *testing.T) {
	n := DefaultNode()
	n.P2P.Port = 0
	require.ErrorIs(t, n.Valid(), ErrInvalidP2PPort)
}

func TestNodeValidRejectsZeroEmbeddingDim(t *testing.T) {
	n := DefaultNode()
	n.AI.EmbeddingDim = 0
	require.ErrorIs(t, n.Valid(), ErrInvalidEmbeddingDim)
}

func TestNodeValidRejectsZeroHNSWParams(t *testing.T) {
	n := DefaultNode()
	n.Storage.HNSW.M = 0
	require.ErrorIs(t, n.Valid(), ErrInvalidHNSWParam)
}

func TestNodeValidRejectsOutOfRangeClusterThreshold(t *testing.T) {
	n := DefaultNode()
	n.Network.ClusterThreshold = 1.5
	require.ErrorIs(t, n.Valid(), ErrInvalidClusterThresh)
}

func TestNodeValidRejectsUnbalancedEconomyWeights(t *testing.T) {
	n := DefaultNode()
	n.Economy.Gamma = 0.9
	require.ErrorIs(t, n.Valid(), ErrInvalidEconomyWeights)
}

func TestNodeValidAcceptsEconomyWeightsWithinTolerance(t *testing.T) {
	n := DefaultNode()
	n.Economy.Alpha = 0.4005
	require.NoError(t, n.Valid())
}

func TestNodeValidRejectsUnknownTheme(t *testing.T) {
	n := DefaultNode()
	n.UI.Theme = "neon"
	require.ErrorIs(t, n.Valid(), ErrInvalidUITheme)
}

func TestNodeValidRejectsUnknownDefaultView(t *testing.T) {
	n := DefaultNode()
	n.UI.DefaultView = "timeline"
	require.ErrorIs(t, n.Valid(), ErrInvalidUIDefaultView)
}

func TestLoadNodeParsesYAMLAndAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	yaml := `
node:
  id: test-node
p2p:
  port: 9000
ai:
  embedding_dim: 512
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	n, err := LoadNode(path)
	require.NoError(t, err)
	require.Equal(t, "test-node", n.Node.ID)
	require.Equal(t, 9000, n.P2P.Port)
	require.Equal(t, 512, n.AI.EmbeddingDim)
	// untouched sections keep their defaults
	require.Equal(t, 16, n.Storage.HNSW.M)
	require.Equal(t, "auto", n.UI.Theme)
}

func TestLoadNodeRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	yaml := `
p2p:
  port: 0
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	_, err := LoadNode(path)
	require.ErrorIs(t, err, ErrInvalidP2PPort)
}
