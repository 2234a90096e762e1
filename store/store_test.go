// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/synapsenet/core/crypto"
	"github.com/synapsenet/core/grain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mkGrain(t *testing.T, tags ...string) *grain.Grain {
	t.Helper()
	signer, err := crypto.NewClassicalSigner()
	require.NoError(t, err)
	g, err := grain.New([]float32{0.1, 0.2, 0.3, 0.4}, grain.Meta{Tags: tags}, signer)
	require.NoError(t, err)
	return g
}

func TestInsertAndGetGrain(t *testing.T) {
	s := openTestStore(t)
	g := mkGrain(t, "x")

	require.NoError(t, s.InsertGrain(g))
	got, ok, err := s.GetGrain(g.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, g.ID, got.ID)

	n, err := s.CountGrains()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestInsertGrainIdempotent(t *testing.T) {
	s := openTestStore(t)
	g := mkGrain(t)
	require.NoError(t, s.InsertGrain(g))
	require.NoError(t, s.InsertGrain(g))

	n, err := s.CountGrains()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestGetAllGrainsOrderedByCreatedAtDesc(t *testing.T) {
	s := openTestStore(t)
	g1 := mkGrain(t, "first")
	require.NoError(t, s.InsertGrain(g1))
	time.Sleep(2 * time.Millisecond) // created_at has millisecond resolution
	g2 := mkGrain(t, "second")
	require.NoError(t, s.InsertGrain(g2))

	all, err := s.GetAllGrains()
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, g2.ID, all[0].ID)
	require.Equal(t, g1.ID, all[1].ID)
}

func TestCreditsSumPerNode(t *testing.T) {
	s := openTestStore(t)
	pk := []byte("node-a-pubkey-000000000000000000")

	require.NoError(t, s.InsertCredit(Credit{NodePK: pk, NGT: 1.5, Reason: "author"}))
	require.NoError(t, s.InsertCredit(Credit{NodePK: pk, NGT: 2.5, Reason: "voter"}))

	total, err := s.GetNodeNGT(pk)
	require.NoError(t, err)
	require.InDelta(t, 4.0, total, 1e-9)
}

func TestAccessLogRecordAndCleanup(t *testing.T) {
	s := openTestStore(t)
	g := mkGrain(t)
	require.NoError(t, s.InsertGrain(g))

	require.NoError(t, s.RecordGrainAccess(g.ID, "peer-1", AccessSearch))
	require.NoError(t, s.RecordGrainAccess(g.ID, "peer-2", AccessRetrieve))

	count, err := s.GetGrainAccessCount(g.ID)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	removed, err := s.CleanupOldAccessEvents(nowMillis() + 1_000_000)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	count, err = s.GetGrainAccessCount(g.ID)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestEmbeddingModelRegistry(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.RegisterEmbeddingModel("minilm-l6", 384, 90.5))

	m, ok, err := s.GetEmbeddingModel("minilm-l6")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 384, m.Dim)

	all, err := s.GetAllEmbeddingModels()
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestPeerClusterUpsertAndOrdering(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.UpsertPeerCluster("rust", "peer-a", 0.4))
	require.NoError(t, s.UpsertPeerCluster("rust", "peer-b", 0.9))
	require.NoError(t, s.UpsertPeerCluster("rust", "peer-a", 0.95)) // upsert, same key

	peers, err := s.GetClusterPeers("rust", 10)
	require.NoError(t, err)
	require.Len(t, peers, 2)
	require.Equal(t, "peer-a", peers[0].PeerID)
	require.InDelta(t, 0.95, peers[0].Similarity, 1e-6)

	topics, peerCount, err := s.ClusterStats()
	require.NoError(t, err)
	require.Equal(t, 1, topics)
	require.Equal(t, 2, peerCount)
}

func TestSchemaVersionRejectsNewerStore(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopen and bump the stored schema version past what this build
	// understands; the next open must refuse.
	s2, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s2.db.Set(keySchemaVersion, encodeU32(CurrentSchemaVersion+1), nil))
	require.NoError(t, s2.Close())

	_, err = Open(dir)
	require.ErrorIs(t, err, ErrSchemaTooNew)
}

func TestMemoryChainAppendAndOrder(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AppendEpisode(Episode{GoalID: "goal-1", Step: 0, Query: "first"}))
	require.NoError(t, s.AppendEpisode(Episode{GoalID: "goal-1", Step: 1, Query: "second"}))

	chain, err := s.GetMemoryChain("goal-1")
	require.NoError(t, err)
	require.Len(t, chain, 2)
	require.Equal(t, "first", chain[0].Query)
	require.Equal(t, "second", chain[1].Query)
}

func TestExportImportRoundTrip(t *testing.T) {
	s := openTestStore(t)
	g1 := mkGrain(t, "a")
	g2 := mkGrain(t, "b")
	require.NoError(t, s.InsertGrain(g1))
	require.NoError(t, s.InsertGrain(g2))

	dir := t.TempDir()
	files, count, err := s.ExportArchive(dir)
	require.NoError(t, err)
	require.Equal(t, 1, files)
	require.Equal(t, 2, count)

	imported, err := ImportArchive(dir)
	require.NoError(t, err)
	require.Len(t, imported, 2)
	require.ElementsMatch(t, []grain.ID{g1.ID, g2.ID}, []grain.ID{imported[0].ID, imported[1].ID})
}
