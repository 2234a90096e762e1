// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package crypto provides the unified classical/post-quantum signing
// surface used throughout SynapseNet: grain authorship, swarm artifact
// signatures, and epoch anchoring all go through Signer/Verifier rather
// than touching a concrete algorithm directly.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

// Backend tags the algorithm family used to produce a signature. Grains
// carry their backend in metadata so verification never has to guess.
type Backend uint8

const (
	// BackendClassical is Ed25519: 32-byte public key, 64-byte signature.
	BackendClassical Backend = iota
	// BackendPostQuantum is CRYSTALS-Dilithium (mode3): larger,
	// variable-length keys and signatures.
	BackendPostQuantum
)

func (b Backend) String() string {
	switch b {
	case BackendClassical:
		return "classical"
	case BackendPostQuantum:
		return "post-quantum"
	default:
		return "unknown"
	}
}

var (
	// ErrBadSignature is returned when a signature fails verification.
	ErrBadSignature = errors.New("crypto: bad signature")
	// ErrUnknownBackend is returned when a backend tag is not recognized.
	ErrUnknownBackend = errors.New("crypto: unknown backend")
	// ErrKeyLength is returned when a public key's length does not match its backend.
	ErrKeyLength = errors.New("crypto: public key length does not match backend")
)

const (
	ClassicalPublicKeySize = ed25519.PublicKeySize // 32
	ClassicalSignatureSize = ed25519.SignatureSize // 64
)

// Signer produces signatures for a single keypair under one backend.
type Signer interface {
	Sign(msg []byte) ([]byte, error)
	PublicKey() []byte
	Backend() Backend
}

// Verifier checks a signature against a public key under a named backend.
type Verifier interface {
	Verify(pk, msg, sig []byte, backend Backend) (bool, error)
}

// KeyLenForBackend reports the expected public key length for a backend,
// or 0 for backends with variable-length keys (post-quantum).
func KeyLenForBackend(b Backend) int {
	switch b {
	case BackendClassical:
		return ClassicalPublicKeySize
	default:
		return 0
	}
}

// classicalSigner wraps an Ed25519 keypair.
type classicalSigner struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// NewClassicalSigner generates a fresh Ed25519 signer.
func NewClassicalSigner() (Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate ed25519 key: %w", err)
	}
	return &classicalSigner{pub: pub, priv: priv}, nil
}

// NewClassicalSignerFromSeed builds a deterministic signer from a 32-byte seed.
func NewClassicalSignerFromSeed(seed []byte) (Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes", ErrKeyLength, ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &classicalSigner{pub: priv.Public().(ed25519.PublicKey), priv: priv}, nil
}

func (s *classicalSigner) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, msg), nil
}

func (s *classicalSigner) PublicKey() []byte { return append([]byte(nil), s.pub...) }

func (s *classicalSigner) Backend() Backend { return BackendClassical }

// pqSigner wraps a Dilithium (mode3) keypair.
type pqSigner struct {
	pub  mode3.PublicKey
	priv mode3.PrivateKey
}

// NewPostQuantumSigner generates a fresh Dilithium mode3 signer.
func NewPostQuantumSigner() (Signer, error) {
	pub, priv, err := mode3.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate dilithium key: %w", err)
	}
	return &pqSigner{pub: *pub, priv: *priv}, nil
}

func (s *pqSigner) Sign(msg []byte) ([]byte, error) {
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(&s.priv, msg, sig)
	return sig, nil
}

func (s *pqSigner) PublicKey() []byte {
	buf := make([]byte, mode3.PublicKeySize)
	s.pub.Pack(buf)
	return buf
}

func (s *pqSigner) Backend() Backend { return BackendPostQuantum }

// verifier is the canonical Verifier, stateless and safe for concurrent use.
type verifier struct{}

// NewVerifier returns the shared classical+post-quantum Verifier.
func NewVerifier() Verifier { return verifier{} }

func (verifier) Verify(pk, msg, sig []byte, backend Backend) (bool, error) {
	switch backend {
	case BackendClassical:
		if len(pk) != ClassicalPublicKeySize {
			return false, ErrKeyLength
		}
		return ed25519.Verify(ed25519.PublicKey(pk), msg, sig), nil
	case BackendPostQuantum:
		if len(pk) != mode3.PublicKeySize {
			return false, ErrKeyLength
		}
		if len(sig) != mode3.SignatureSize {
			return false, nil
		}
		var ppk mode3.PublicKey
		if err := ppk.Unpack(pk); err != nil {
			return false, fmt.Errorf("crypto: unpack dilithium key: %w", err)
		}
		return mode3.Verify(&ppk, msg, sig), nil
	default:
		return false, ErrUnknownBackend
	}
}

// VerifyOrError verifies and maps a false/failed result to ErrBadSignature,
// the discipline the rest of the core relies on: crypto failures are never
// silently downgraded.
func VerifyOrError(v Verifier, pk, msg, sig []byte, backend Backend) error {
	ok, err := v.Verify(pk, msg, sig, backend)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBadSignature
	}
	return nil
}
