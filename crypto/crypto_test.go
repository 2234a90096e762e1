// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassicalSignVerify(t *testing.T) {
	signer, err := NewClassicalSigner()
	require.NoError(t, err)
	require.Equal(t, BackendClassical, signer.Backend())
	require.Len(t, signer.PublicKey(), ClassicalPublicKeySize)

	msg := []byte("grain canonical bytes")
	sig, err := signer.Sign(msg)
	require.NoError(t, err)
	require.Len(t, sig, ClassicalSignatureSize)

	v := NewVerifier()
	ok, err := v.Verify(signer.PublicKey(), msg, sig, BackendClassical)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = v.Verify(signer.PublicKey(), []byte("tampered"), sig, BackendClassical)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPostQuantumSignVerify(t *testing.T) {
	signer, err := NewPostQuantumSigner()
	require.NoError(t, err)
	require.Equal(t, BackendPostQuantum, signer.Backend())

	msg := []byte("grain canonical bytes")
	sig, err := signer.Sign(msg)
	require.NoError(t, err)

	v := NewVerifier()
	ok, err := v.Verify(signer.PublicKey(), msg, sig, BackendPostQuantum)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyUnknownBackend(t *testing.T) {
	v := NewVerifier()
	_, err := v.Verify(nil, nil, nil, Backend(99))
	require.ErrorIs(t, err, ErrUnknownBackend)
}

func TestVerifyOrErrorBadSignature(t *testing.T) {
	signer, err := NewClassicalSigner()
	require.NoError(t, err)
	v := NewVerifier()
	err = VerifyOrError(v, signer.PublicKey(), []byte("a"), []byte("not a signature at all padding!"), BackendClassical)
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestKeyLenForBackend(t *testing.T) {
	require.Equal(t, ClassicalPublicKeySize, KeyLenForBackend(BackendClassical))
	require.Equal(t, 0, KeyLenForBackend(BackendPostQuantum))
}

func TestTwoSidedHandshake(t *testing.T) {
	responder, err := GenerateKEMKeyPair()
	require.NoError(t, err)
	initiator, err := GenerateKEMKeyPair()
	require.NoError(t, err)

	ct1, ssInit, err := Encapsulate(responder.PublicKeyBytes())
	require.NoError(t, err)
	ssResp, err := responder.Decapsulate(ct1)
	require.NoError(t, err)
	require.Equal(t, ssInit, ssResp)

	ct2, ssResp2, err := Encapsulate(initiator.PublicKeyBytes())
	require.NoError(t, err)
	ssInit2, err := initiator.Decapsulate(ct2)
	require.NoError(t, err)
	require.Equal(t, ssResp2, ssInit2)

	keyA := DeriveSessionKey(ssInit, ssResp2)
	keyB := DeriveSessionKey(ssResp, ssInit2)
	require.Equal(t, keyA, keyB)
}

func TestHash256Concat(t *testing.T) {
	a := Hash256Concat([]byte("foo"), []byte("bar"))
	b := Hash256([]byte("foobar"))
	require.Equal(t, a, b)
}
