// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package crypto

import (
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/kem/kyber/kyber768"
)

// KEMPublicKeySize and KEMCiphertextSize describe the wire sizes of the
// Kyber768 key-encapsulation primitive used for the two-sided transport
// handshake (§4.A).
const (
	KEMPublicKeySize  = kyber768.PublicKeySize
	KEMCiphertextSize = kyber768.CiphertextSize
	sharedSecretSize  = kyber768.SharedKeySize
)

// KEMKeyPair is a Kyber768 keypair used by one side of a handshake.
type KEMKeyPair struct {
	pub  kyber768.PublicKey
	priv kyber768.PrivateKey
}

// GenerateKEMKeyPair creates a fresh Kyber768 keypair.
func GenerateKEMKeyPair() (*KEMKeyPair, error) {
	pub, priv, err := kyber768.GenerateKeyPair(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate kem keypair: %w", err)
	}
	return &KEMKeyPair{pub: *pub, priv: *priv}, nil
}

// PublicKeyBytes returns the wire form of the public key.
func (kp *KEMKeyPair) PublicKeyBytes() []byte {
	buf := make([]byte, kyber768.PublicKeySize)
	kp.pub.Pack(buf)
	return buf
}

// Encapsulate generates a shared secret and a ciphertext bound to the
// responder's public key. Used by the handshake initiator.
func Encapsulate(responderPub []byte) (ciphertext, sharedSecret []byte, err error) {
	if len(responderPub) != kyber768.PublicKeySize {
		return nil, nil, fmt.Errorf("crypto: responder public key must be %d bytes", kyber768.PublicKeySize)
	}
	var pk kyber768.PublicKey
	if err := pk.Unpack(responderPub); err != nil {
		return nil, nil, fmt.Errorf("crypto: unpack kem public key: %w", err)
	}
	ct := make([]byte, kyber768.CiphertextSize)
	ss := make([]byte, kyber768.SharedKeySize)
	seed := make([]byte, kyber768.EncapsulationSeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, nil, fmt.Errorf("crypto: seed kem encapsulation: %w", err)
	}
	pk.EncapsulateTo(ct, ss, seed)
	return ct, ss, nil
}

// Decapsulate recovers the shared secret from a ciphertext encapsulated to
// this keypair's public key. Used by the handshake responder, and again by
// the initiator for the responder's reciprocal encapsulation.
func (kp *KEMKeyPair) Decapsulate(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) != kyber768.CiphertextSize {
		return nil, fmt.Errorf("crypto: ciphertext must be %d bytes", kyber768.CiphertextSize)
	}
	ss := make([]byte, kyber768.SharedKeySize)
	kp.priv.DecapsulateTo(ss, ciphertext)
	return ss, nil
}

// DeriveSessionKey combines the two shared secrets produced by a two-sided
// handshake (initiator encapsulates to responder, responder encapsulates
// back) into a single 256-bit symmetric session key, per §4.A.
func DeriveSessionKey(initiatorSecret, responderSecret []byte) [HashSize]byte {
	return Hash256Concat(initiatorSecret, responderSecret)
}
