// modulus.go derives the fixed RSA-like modulus every node's VDF
// evaluation and verification operate over. Real deployments of this
// construction (Chia, ICP) use a trusted setup or a class-group
// construction with no known factorization; deterministic from-a-seed
// generation is a stand-in good enough for a single test network where
// every node derives the same modulus from the same genesis seed.
package vdf

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand"
)

// GenerateModulus derives an RSA-like modulus of the given bit length
// from seed: every caller with the same (bits, seed) produces the same
// N, since math/rand.Rand seeded identically produces an identical
// stream and crypto/rand.Prime only consumes randomness from the reader
// it's given.
func GenerateModulus(bits int, seed int64) (Modulus, error) {
	src := mrand.New(mrand.NewSource(seed))
	p, err := rand.Prime(src, bits/2)
	if err != nil {
		return Modulus{}, err
	}
	q, err := rand.Prime(src, bits/2)
	if err != nil {
		return Modulus{}, err
	}
	return Modulus{N: new(big.Int).Mul(p, q)}, nil
}
