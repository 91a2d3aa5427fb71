// Package merkle computes Merkle roots for block transaction sets. It is a
// pure function from leaf hashes to a single root, pairwise SHA-256
// concatenation bottom-up, duplicating the last leaf when a level has an
// odd count.
package merkle

import "crypto/sha256"

// Root computes the Merkle root of the given leaf hashes. A single leaf
// produces itself as the root; an empty leaf set produces the hash of an
// empty byte slice so callers never need a nil-check special case.
func Root(leaves [][]byte) []byte {
	if len(leaves) == 0 {
		h := sha256.Sum256(nil)
		return h[:]
	}

	level := make([][]byte, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([][]byte, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			combined := append(append([]byte{}, level[i]...), level[i+1]...)
			h := sha256.Sum256(combined)
			next = append(next, h[:])
		}
		level = next
	}
	return level[0]
}
