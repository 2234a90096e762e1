// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package crypto

import "github.com/zeebo/blake3"

// HashSize is the width of the collision-resistant hash used for grain
// and hypothesis content addressing.
const HashSize = 32

// Hash256 hashes msg with BLAKE3 to a 32-byte digest. This is the H(...)
// referenced throughout the specification (grain id, hypothesis id,
// KEM transcript binding).
func Hash256(msg []byte) [HashSize]byte {
	return blake3.Sum256(msg)
}

// Hash256Concat hashes the concatenation of parts without an intermediate
// allocation of the joined buffer.
func Hash256Concat(parts ...[]byte) [HashSize]byte {
	h := blake3.New()
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	var out [HashSize]byte
	copy(out[:], h.Sum(nil))
	return out
}
