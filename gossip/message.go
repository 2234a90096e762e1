// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package gossip

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/synapsenet/core/grain"
)

// canonicalCBOR is shared across message kinds; determinism doesn't
// matter for transport framing the way it does for grain signing, but
// a single encode mode keeps behavior uniform.
var canonicalCBOR cbor.EncMode

func init() {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("gossip: build cbor encode mode: %v", err))
	}
	canonicalCBOR = mode
}

// grainsPutMsg is the payload of a TopicGrainsPut publish.
type grainsPutMsg struct {
	SenderID string       `cbor:"1,keyasint"`
	Grain    *grain.Grain `cbor:"2,keyasint"`
}

// grainsAckMsg acknowledges a successfully stored grain.
type grainsAckMsg struct {
	SenderID string   `cbor:"1,keyasint"`
	GrainID  grain.ID `cbor:"2,keyasint"`
}

// queryKNNMsg is a distributed top-k search request.
type queryKNNMsg struct {
	SenderID string    `cbor:"1,keyasint"`
	QueryID  string    `cbor:"2,keyasint"`
	Vector   []float32 `cbor:"3,keyasint"`
	K        int       `cbor:"4,keyasint"`
}

// QueryHit is one match returned for a distributed query.
type QueryHit struct {
	GrainID    grain.ID `cbor:"1,keyasint"`
	Similarity float32  `cbor:"2,keyasint"`
}

// queryRespMsg answers a queryKNNMsg.
type queryRespMsg struct {
	SenderID string     `cbor:"1,keyasint"`
	QueryID  string     `cbor:"2,keyasint"`
	Results  []QueryHit `cbor:"3,keyasint"`
}

func encodeMsg(v any) ([]byte, error) {
	return canonicalCBOR.Marshal(v)
}

func decodeMsg(buf []byte, v any) error {
	return cbor.Unmarshal(buf, v)
}
