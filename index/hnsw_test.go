// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package index

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/synapsenet/core/crypto"
	"github.com/synapsenet/core/grain"
)

const testDim = 8

func mkVec(lead float32) []float32 {
	v := make([]float32, testDim)
	v[0] = lead
	for i := 1; i < testDim; i++ {
		v[i] = 0.01
	}
	return v
}

func mkTestGrain(t *testing.T, lead float32) *grain.Grain {
	t.Helper()
	signer, err := crypto.NewClassicalSigner()
	require.NoError(t, err)
	g, err := grain.New(mkVec(lead), grain.Meta{}, signer)
	require.NoError(t, err)
	return g
}

func TestAddAndSearchFindsClosest(t *testing.T) {
	idx := New(DefaultConfig(testDim))

	var grains []*grain.Grain
	for i := 0; i < 50; i++ {
		g := mkTestGrain(t, float32(i))
		grains = append(grains, g)
		require.NoError(t, idx.Add(g))
	}
	require.Equal(t, 50, idx.Len())

	query := mkVec(49)
	results, err := idx.Search(query, 5)
	require.NoError(t, err)
	require.Len(t, results, 5)
	require.Equal(t, grains[49].ID, results[0].GrainID)
}

func TestSearchResultsOrderedBySimilarityDesc(t *testing.T) {
	idx := New(DefaultConfig(testDim))
	for i := 0; i < 20; i++ {
		require.NoError(t, idx.Add(mkTestGrain(t, float32(i))))
	}

	results, err := idx.Search(mkVec(10), 10)
	require.NoError(t, err)
	for i := 1; i < len(results); i++ {
		require.GreaterOrEqual(t, results[i-1].Similarity, results[i].Similarity)
	}
}

func TestAddDimensionMismatch(t *testing.T) {
	idx := New(DefaultConfig(testDim))
	signer, err := crypto.NewClassicalSigner()
	require.NoError(t, err)
	g, err := grain.New([]float32{1, 2, 3}, grain.Meta{}, signer)
	require.NoError(t, err)

	err = idx.Add(g)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSearchDimensionMismatch(t *testing.T) {
	idx := New(DefaultConfig(testDim))
	require.NoError(t, idx.Add(mkTestGrain(t, 1)))

	_, err := idx.Search([]float32{1, 2}, 1)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestAddIdempotent(t *testing.T) {
	idx := New(DefaultConfig(testDim))
	g := mkTestGrain(t, 1)
	require.NoError(t, idx.Add(g))
	require.NoError(t, idx.Add(g))
	require.Equal(t, 1, idx.Len())
}

func TestIndexFull(t *testing.T) {
	cfg := DefaultConfig(testDim)
	cfg.MaxElements = 2
	idx := New(cfg)

	require.NoError(t, idx.Add(mkTestGrain(t, 1)))
	require.NoError(t, idx.Add(mkTestGrain(t, 2)))
	err := idx.Add(mkTestGrain(t, 3))
	require.ErrorIs(t, err, ErrIndexFull)
}

func TestRebuildReplacesGraph(t *testing.T) {
	idx := New(DefaultConfig(testDim))
	require.NoError(t, idx.Add(mkTestGrain(t, 1)))
	require.Equal(t, 1, idx.Len())

	var fresh []*grain.Grain
	for i := 0; i < 10; i++ {
		fresh = append(fresh, mkTestGrain(t, float32(i)))
	}
	idx.Rebuild(fresh)
	require.Equal(t, 10, idx.Len())

	results, err := idx.Search(mkVec(9), 1)
	require.NoError(t, err)
	require.Equal(t, fresh[9].ID, results[0].GrainID)
}

func TestSearchEmptyIndex(t *testing.T) {
	idx := New(DefaultConfig(testDim))
	results, err := idx.Search(mkVec(1), 5)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestManyGrainsRecall(t *testing.T) {
	idx := New(DefaultConfig(testDim))
	var ids []grain.ID
	for i := 0; i < 200; i++ {
		g := mkTestGrain(t, float32(i)*0.5)
		ids = append(ids, g.ID)
		require.NoError(t, idx.Add(g))
	}

	for _, target := range []int{0, 50, 199} {
		results, err := idx.Search(mkVec(float32(target)*0.5), 1)
		require.NoError(t, err)
		require.Len(t, results, 1, fmt.Sprintf("target=%d", target))
		require.Equal(t, ids[target], results[0].GrainID)
	}
}
