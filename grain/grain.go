// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package grain defines the canonical signed record that flows through
// storage, gossip, and consensus: a content-addressed unit tying a
// semantic embedding vector to signed metadata.
package grain

import (
	"fmt"
	"time"

	"github.com/synapsenet/core/crypto"
)

// ID is a 32-byte content hash, computed over the grain's wire bytes.
type ID [crypto.HashSize]byte

func (id ID) String() string {
	return fmt.Sprintf("%x", id[:8])
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool {
	return id == ID{}
}

// Lifecycle enumerates the only transitions a grain goes through. Grains
// are immutable; they are never updated, only superseded.
type Lifecycle uint8

const (
	Created Lifecycle = iota
	Propagated
	Accessed
)

// Meta carries everything about a grain other than its vector and
// signature: who made it, when, under what embedding model, and how it is
// tagged for discovery.
type Meta struct {
	AuthorPK        []byte        `cbor:"1,keyasint"`
	CryptoBackend   crypto.Backend `cbor:"2,keyasint"`
	TimestampMS     int64         `cbor:"3,keyasint"`
	Tags            []string      `cbor:"4,keyasint"`
	Mime            string        `cbor:"5,keyasint"`
	Lang            string        `cbor:"6,keyasint"`
	Title           string        `cbor:"7,keyasint"`
	Summary         string        `cbor:"8,keyasint"`
	EmbeddingModel  string        `cbor:"9,keyasint"`
	EmbeddingDims   uint32        `cbor:"10,keyasint"`
}

// Grain is the central, immutable content unit of the system.
type Grain struct {
	ID   ID
	Vec  []float32
	Meta Meta
	Sig  []byte
}

// InvalidGrainError reports why a grain failed construction or verification.
type InvalidGrainError struct {
	Reason string
}

func (e *InvalidGrainError) Error() string { return "invalid grain: " + e.Reason }

func newInvalid(format string, args ...any) *InvalidGrainError {
	return &InvalidGrainError{Reason: fmt.Sprintf(format, args...)}
}

// New constructs and signs a grain: it canonically serializes (vec, meta),
// signs that serialization, appends the signature, and derives the id from
// the full wire bytes.
func New(vec []float32, meta Meta, signer crypto.Signer) (*Grain, error) {
	if len(vec) == 0 {
		return nil, newInvalid("vector must be non-empty")
	}
	if meta.EmbeddingDims == 0 {
		meta.EmbeddingDims = uint32(len(vec))
	}
	if int(meta.EmbeddingDims) != len(vec) {
		return nil, newInvalid("vector length %d does not match embedding_dimensions %d", len(vec), meta.EmbeddingDims)
	}
	meta.AuthorPK = signer.PublicKey()
	meta.CryptoBackend = signer.Backend()
	if meta.TimestampMS == 0 {
		meta.TimestampMS = time.Now().UnixMilli()
	}
	if err := checkKeyLen(meta); err != nil {
		return nil, err
	}

	signingBytes, err := canonicalSigningBytes(vec, meta)
	if err != nil {
		return nil, newInvalid("canonical serialization: %v", err)
	}
	sig, err := signer.Sign(signingBytes)
	if err != nil {
		return nil, newInvalid("sign: %v", err)
	}

	wire, err := encodeWire(vec, meta, sig)
	if err != nil {
		return nil, newInvalid("wire encode: %v", err)
	}
	id := ID(crypto.Hash256(wire))

	return &Grain{ID: id, Vec: vec, Meta: meta, Sig: sig}, nil
}

// Verify recomputes a grain's id and checks its signature against
// meta.author_pk under meta.crypto_backend. It returns nil only when both
// the id and the signature are valid.
func Verify(g *Grain, v crypto.Verifier) error {
	if len(g.Vec) == 0 {
		return newInvalid("vector must be non-empty")
	}
	if int(g.Meta.EmbeddingDims) != len(g.Vec) {
		return newInvalid("vector length %d does not match embedding_dimensions %d", len(g.Vec), g.Meta.EmbeddingDims)
	}
	if err := checkKeyLen(g.Meta); err != nil {
		return err
	}

	wire, err := encodeWire(g.Vec, g.Meta, g.Sig)
	if err != nil {
		return newInvalid("wire encode: %v", err)
	}
	wantID := ID(crypto.Hash256(wire))
	if wantID != g.ID {
		return newInvalid("id mismatch: computed %s, have %s", wantID, g.ID)
	}

	signingBytes, err := canonicalSigningBytes(g.Vec, g.Meta)
	if err != nil {
		return newInvalid("canonical serialization: %v", err)
	}
	ok, err := v.Verify(g.Meta.AuthorPK, signingBytes, g.Sig, g.Meta.CryptoBackend)
	if err != nil {
		return err
	}
	if !ok {
		return crypto.ErrBadSignature
	}
	return nil
}

func checkKeyLen(m Meta) error {
	want := crypto.KeyLenForBackend(m.CryptoBackend)
	if want != 0 && len(m.AuthorPK) != want {
		return newInvalid("author_pk length %d does not match backend %s", len(m.AuthorPK), m.CryptoBackend)
	}
	if want == 0 && len(m.AuthorPK) == 0 {
		return newInvalid("author_pk must be non-empty")
	}
	return nil
}

// Clone returns a deep-ish copy safe for concurrent readers; grains are
// shared-immutable in spirit, but the backing slices are copied so callers
// can never mutate a stored grain through an aliased handle.
func (g *Grain) Clone() *Grain {
	out := *g
	out.Vec = append([]float32(nil), g.Vec...)
	out.Sig = append([]byte(nil), g.Sig...)
	out.Meta.AuthorPK = append([]byte(nil), g.Meta.AuthorPK...)
	out.Meta.Tags = append([]string(nil), g.Meta.Tags...)
	return &out
}
