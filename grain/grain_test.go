// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package grain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/synapsenet/core/crypto"
)

func unitVec(n int, seed float32) []float32 {
	v := make([]float32, n)
	var sumsq float32
	for i := range v {
		v[i] = seed + float32(i)
		sumsq += v[i] * v[i]
	}
	norm := float32(1)
	if sumsq > 0 {
		norm = 1 / sqrt32(sumsq)
	}
	for i := range v {
		v[i] *= norm
	}
	return v
}

func sqrt32(f float32) float32 {
	x := f
	for i := 0; i < 20; i++ {
		x = 0.5 * (x + f/x)
	}
	return x
}

func newSignedGrain(t *testing.T, signer crypto.Signer, tags ...string) *Grain {
	t.Helper()
	meta := Meta{Tags: tags, Mime: "text/plain", EmbeddingModel: "test-model"}
	g, err := New(unitVec(8, 1), meta, signer)
	require.NoError(t, err)
	return g
}

func TestNewAndVerify(t *testing.T) {
	signer, err := crypto.NewClassicalSigner()
	require.NoError(t, err)
	g := newSignedGrain(t, signer, "alpha", "beta")

	require.NoError(t, Verify(g, crypto.NewVerifier()))
	require.False(t, g.ID.IsZero())
}

func TestVerifyDetectsTamperedVector(t *testing.T) {
	signer, err := crypto.NewClassicalSigner()
	require.NoError(t, err)
	g := newSignedGrain(t, signer)
	g.Vec[0] += 1

	err = Verify(g, crypto.NewVerifier())
	require.Error(t, err)
}

func TestDistinctGrainsHaveDistinctIDs(t *testing.T) {
	signer, err := crypto.NewClassicalSigner()
	require.NoError(t, err)
	g1 := newSignedGrain(t, signer, "a")
	g2 := newSignedGrain(t, signer, "b")
	require.NotEqual(t, g1.ID, g2.ID)
}

func TestWireRoundTrip(t *testing.T) {
	signer, err := crypto.NewPostQuantumSigner()
	require.NoError(t, err)
	g := newSignedGrain(t, signer, "pq")
	require.NoError(t, Verify(g, crypto.NewVerifier()))

	encoded, err := g.Encode()
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, g.ID, decoded.ID)
	require.Equal(t, g.Vec, decoded.Vec)
	require.Equal(t, g.Sig, decoded.Sig)
	require.Equal(t, g.Meta.Tags, decoded.Meta.Tags)
	require.NoError(t, Verify(decoded, crypto.NewVerifier()))
}

func TestDimensionMismatchRejected(t *testing.T) {
	signer, err := crypto.NewClassicalSigner()
	require.NoError(t, err)
	meta := Meta{EmbeddingDims: 16}
	_, err = New(unitVec(8, 1), meta, signer)
	require.Error(t, err)
}
