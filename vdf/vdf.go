// Package vdf implements the optional verifiable-delay-function
// time-lock anchoring a block to real elapsed wall-clock time: a
// Wesolowski-style repeated-squaring time-lock over a fixed RSA-like
// modulus, the standard shape real VDF constructions (Chia, ICP) take.
// Evaluation walks `iterations` sequential squarings
// (unparallelizable), while verification checks a short proof in
// O(log iterations) squarings using a derived Fiat-Shamir challenge.
package vdf

import (
	"crypto/sha256"
	"errors"
	"math/big"

	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/ids"
)

// Modulus is the fixed RSA-like modulus the squaring group operates over.
// In production this would be a trusted-setup or hard-to-factor modulus
// generated once at genesis; tests use a small one for speed.
type Modulus struct {
	N *big.Int
}

var ErrInvalidProof = errors.New("vdf: proof does not verify")

// Evaluate computes output = input^(2^iterations) mod N by repeated
// squaring — the inherently sequential step. It also produces a
// Wesolowski proof that lets Verify check the result in O(log iterations)
// squarings instead of repeating the full computation.
func Evaluate(mod Modulus, inputHash ids.ID, iterations uint64) (*chaintypes.ProofOfTime, error) {
	if mod.N == nil || mod.N.Sign() <= 0 {
		return nil, errors.New("vdf: modulus not configured")
	}
	x := hashToGroup(inputHash, mod.N)

	// y = x^(2^iterations) mod N. The proof below is built by a second,
	// separate pass of `iterations` steps.
	y := new(big.Int).Set(x)
	for i := uint64(0); i < iterations; i++ {
		y.Mul(y, y)
		y.Mod(y, mod.N)
	}

	l := fiatShamirPrime(inputHash, y, mod.N)

	// pi = x^floor(2^iterations / l) mod N, computed by long division of
	// the exponent in binary, one squaring per bit — the same asymptotic
	// cost as the evaluation itself, which is expected: only VERIFICATION
	// is required to be cheap, not proof construction.
	pi := wesolowskiProof(x, mod.N, iterations, l)

	return &chaintypes.ProofOfTime{
		Output:     y.Bytes(),
		Proof:      pi.Bytes(),
		Iterations: iterations,
		InputHash:  inputHash,
	}, nil
}

// Verify checks a ProofOfTime in O(log iterations) modular squarings.
func Verify(mod Modulus, pot *chaintypes.ProofOfTime) error {
	if pot == nil {
		return ErrInvalidProof
	}
	if mod.N == nil || mod.N.Sign() <= 0 {
		return errors.New("vdf: modulus not configured")
	}
	x := hashToGroup(pot.InputHash, mod.N)
	y := new(big.Int).SetBytes(pot.Output)
	pi := new(big.Int).SetBytes(pot.Proof)

	l := fiatShamirPrime(pot.InputHash, y, mod.N)

	r := new(big.Int).Exp(big.NewInt(2), new(big.Int).SetUint64(pot.Iterations), l)

	// Check pi^l * x^r == y (mod N).
	lhs := new(big.Int).Exp(pi, l, mod.N)
	xr := new(big.Int).Exp(x, r, mod.N)
	lhs.Mul(lhs, xr)
	lhs.Mod(lhs, mod.N)

	if lhs.Cmp(y) != 0 {
		return ErrInvalidProof
	}
	return nil
}

func hashToGroup(id ids.ID, n *big.Int) *big.Int {
	h := sha256.Sum256(id[:])
	x := new(big.Int).SetBytes(h[:])
	return x.Mod(x, n)
}

// fiatShamirPrime derives a small prime challenge from (inputHash, y, N),
// non-interactively replacing the verifier's random prime challenge.
func fiatShamirPrime(inputHash ids.ID, y, n *big.Int) *big.Int {
	h := sha256.New()
	h.Write(inputHash[:])
	h.Write(y.Bytes())
	h.Write(n.Bytes())
	seed := new(big.Int).SetBytes(h.Sum(nil))
	if seed.Bit(0) == 0 {
		seed.Add(seed, big.NewInt(1))
	}
	for !seed.ProbablyPrime(20) {
		seed.Add(seed, big.NewInt(2))
	}
	return seed
}

// wesolowskiProof computes x^floor(2^iterations / l) mod N via the
// standard long-division-by-squaring construction: track quotient bits by
// repeatedly doubling the remainder and comparing against l.
func wesolowskiProof(x, n *big.Int, iterations uint64, l *big.Int) *big.Int {
	pi := big.NewInt(1)
	r := big.NewInt(1)
	two := big.NewInt(2)
	for i := uint64(0); i < iterations; i++ {
		r.Mul(r, two)
		q := new(big.Int)
		q.DivMod(r, l, r)
		pi.Exp(pi, two, n)
		if q.Sign() != 0 {
			pi.Mul(pi, x)
			pi.Mod(pi, n)
		}
	}
	return pi
}
