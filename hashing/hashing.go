// Package hashing wraps the fixed hash primitives used to derive txids,
// block hashes, and the Merkle tree (see package merkle).
package hashing

import (
	"crypto/sha256"

	"github.com/zenithcoin/zenithd/ids"
)

// HashLen is the length in bytes of a single SHA-256 digest.
const HashLen = sha256.Size

// ComputeHash256 returns the SHA-256 digest of b.
func ComputeHash256(b []byte) []byte {
	h := sha256.Sum256(b)
	return h[:]
}

// ComputeHash256Array is ComputeHash256 returning a fixed-size array.
func ComputeHash256Array(b []byte) [HashLen]byte { return sha256.Sum256(b) }

// ComputeID hashes b and returns the result as an ids.ID, matching the
// rule that txids and block hashes are SHA-256 of the canonical encoding.
func ComputeID(b []byte) ids.ID { return ids.ID(sha256.Sum256(b)) }

// DoubleSHA256 hashes b twice. The VDF input anchoring (previous block
// hash and height) uses a single SHA-256 via ComputeID, not this helper.
func DoubleSHA256(b []byte) ids.ID {
	first := sha256.Sum256(b)
	return ids.ID(sha256.Sum256(first[:]))
}
