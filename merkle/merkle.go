// Package merkle computes the fixed-arity binary Merkle root over a
// block's transactions: odd trailing hash duplicated at each level,
// SHA-256 throughout. The tree is recomputed per block rather than held
// as a persistent structure, which is all the block builder needs.
package merkle

import (
	"crypto/sha256"

	"github.com/zenithcoin/zenithd/ids"
)

// Root computes the Merkle root over leaves, in the order given. An empty
// leaf set hashes to the zero ID, matching a coinbase-only, empty block.
func Root(leaves []ids.ID) ids.ID {
	if len(leaves) == 0 {
		return ids.Empty
	}
	level := make([]ids.ID, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		next := make([]ids.ID, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, hashPair(level[i], level[i+1]))
			} else {
				// odd one out: duplicate it at this level
				next = append(next, hashPair(level[i], level[i]))
			}
		}
		level = next
	}
	return level[0]
}

func hashPair(a, b ids.ID) ids.ID {
	buf := make([]byte, 0, 64)
	buf = append(buf, a[:]...)
	buf = append(buf, b[:]...)
	return ids.ID(sha256.Sum256(buf))
}

// Proof is an inclusion proof for a single leaf: the sibling hash at each
// level and whether that sibling sits to the left of the subject node.
type Proof struct {
	Siblings []ids.ID
	IsLeft   []bool
}

// Prove builds an inclusion proof for leaves[index].
func Prove(leaves []ids.ID, index int) (Proof, error) {
	var proof Proof
	if index < 0 || index >= len(leaves) {
		return proof, errIndexOutOfRange
	}
	level := make([]ids.ID, len(leaves))
	copy(level, leaves)
	idx := index

	for len(level) > 1 {
		next := make([]ids.ID, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			var left, right ids.ID
			left = level[i]
			if i+1 < len(level) {
				right = level[i+1]
			} else {
				right = level[i]
			}
			if i == idx-idx%2 {
				if idx%2 == 0 {
					proof.Siblings = append(proof.Siblings, right)
					proof.IsLeft = append(proof.IsLeft, false)
				} else {
					proof.Siblings = append(proof.Siblings, left)
					proof.IsLeft = append(proof.IsLeft, true)
				}
			}
			next = append(next, hashPair(left, right))
		}
		idx /= 2
		level = next
	}
	return proof, nil
}

// Verify checks that leaf, combined with proof, produces root.
func Verify(root, leaf ids.ID, proof Proof) bool {
	cur := leaf
	for i, sib := range proof.Siblings {
		if proof.IsLeft[i] {
			cur = hashPair(sib, cur)
		} else {
			cur = hashPair(cur, sib)
		}
	}
	return cur == root
}

type merkleError string

func (e merkleError) Error() string { return string(e) }

const errIndexOutOfRange = merkleError("merkle: leaf index out of range")
