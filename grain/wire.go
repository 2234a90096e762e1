// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package grain

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/fxamacker/cbor/v2"
)

var canonicalCBOR cbor.EncMode

func init() {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("grain: build canonical cbor mode: %v", err))
	}
	canonicalCBOR = mode
}

// encodeVec packs a vector as little-endian f32, matching §6's
// "vec bytes little-endian f32 packed".
func encodeVec(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVec(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("grain: vector byte length %d not a multiple of 4", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}

// encodeMeta serializes Meta deterministically: CBOR's canonical encoding
// sorts map keys and uses the shortest-form integers, so two equal Meta
// values always produce byte-identical output.
func encodeMeta(m Meta) ([]byte, error) {
	return canonicalCBOR.Marshal(m)
}

func decodeMeta(buf []byte) (Meta, error) {
	var m Meta
	err := cbor.Unmarshal(buf, &m)
	return m, err
}

// canonicalSigningBytes is the message an author signs: vec and meta only,
// in the same length-delimited shape as the wire format minus the
// signature fields (§4.B: "canonical_bytes(vec, meta)").
func canonicalSigningBytes(vec []float32, m Meta) ([]byte, error) {
	metaBytes, err := encodeMeta(m)
	if err != nil {
		return nil, err
	}
	vecBytes := encodeVec(vec)

	var buf bytes.Buffer
	writeU32LenPrefixed(&buf, vecBytes)
	writeU32LenPrefixed(&buf, metaBytes)
	return buf.Bytes(), nil
}

// encodeWire produces the full canonical wire record of §6: vec_len, vec,
// meta_len, meta, sig_len, sig — the hash domain for a grain's id.
func encodeWire(vec []float32, m Meta, sig []byte) ([]byte, error) {
	metaBytes, err := encodeMeta(m)
	if err != nil {
		return nil, err
	}
	vecBytes := encodeVec(vec)

	var buf bytes.Buffer
	writeU32LenPrefixed(&buf, vecBytes)
	writeU32LenPrefixed(&buf, metaBytes)
	writeU32LenPrefixed(&buf, sig)
	return buf.Bytes(), nil
}

func writeU32LenPrefixed(buf *bytes.Buffer, payload []byte) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	buf.Write(lenBuf[:])
	buf.Write(payload)
}

func readU32LenPrefixed(r *bytes.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Encode serializes a full grain (including its id) to the wire format of
// §6, prefixed with the id itself so decoding does not need to recompute
// the hash just to route the bytes.
func (g *Grain) Encode() ([]byte, error) {
	wire, err := encodeWire(g.Vec, g.Meta, g.Sig)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(g.ID)+len(wire))
	out = append(out, g.ID[:]...)
	out = append(out, wire...)
	return out, nil
}

// Decode parses the wire format produced by Encode. It does not verify the
// signature; callers must call Verify separately.
func Decode(buf []byte) (*Grain, error) {
	if len(buf) < len(ID{}) {
		return nil, fmt.Errorf("grain: wire buffer too short")
	}
	var id ID
	copy(id[:], buf[:len(id)])
	r := bytes.NewReader(buf[len(id):])

	vecBytes, err := readU32LenPrefixed(r)
	if err != nil {
		return nil, fmt.Errorf("grain: read vec: %w", err)
	}
	vec, err := decodeVec(vecBytes)
	if err != nil {
		return nil, err
	}
	metaBytes, err := readU32LenPrefixed(r)
	if err != nil {
		return nil, fmt.Errorf("grain: read meta: %w", err)
	}
	meta, err := decodeMeta(metaBytes)
	if err != nil {
		return nil, fmt.Errorf("grain: decode meta: %w", err)
	}
	sig, err := readU32LenPrefixed(r)
	if err != nil {
		return nil, fmt.Errorf("grain: read sig: %w", err)
	}

	return &Grain{ID: id, Vec: vec, Meta: meta, Sig: sig}, nil
}
