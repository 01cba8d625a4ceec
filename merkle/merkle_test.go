package merkle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenithcoin/zenithd/ids"
)

func leaf(b byte) ids.ID {
	var id ids.ID
	id[0] = b
	return id
}

func TestRootEmptyIsZero(t *testing.T) {
	assert.Equal(t, ids.Empty, Root(nil))
}

func TestRootSingleLeafIsLeaf(t *testing.T) {
	l := leaf(1)
	assert.Equal(t, l, Root([]ids.ID{l}))
}

func TestRootDeterministic(t *testing.T) {
	leaves := []ids.ID{leaf(1), leaf(2), leaf(3), leaf(4)}
	assert.Equal(t, Root(leaves), Root(leaves))
}

func TestRootOrderSensitive(t *testing.T) {
	a := Root([]ids.ID{leaf(1), leaf(2)})
	b := Root([]ids.ID{leaf(2), leaf(1)})
	assert.NotEqual(t, a, b)
}

// An odd trailing leaf is duplicated, so [a, b, c] must equal
// [a, b, c, c] at the first level's pairing.
func TestRootOddLeafDuplication(t *testing.T) {
	odd := Root([]ids.ID{leaf(1), leaf(2), leaf(3)})
	padded := Root([]ids.ID{
		hashPairExported(leaf(1), leaf(2)),
		hashPairExported(leaf(3), leaf(3)),
	})
	assert.Equal(t, padded, odd)
}

func hashPairExported(a, b ids.ID) ids.ID { return hashPair(a, b) }

func TestProveAndVerify(t *testing.T) {
	leaves := []ids.ID{leaf(1), leaf(2), leaf(3), leaf(4), leaf(5)}
	root := Root(leaves)

	for i := range leaves {
		proof, err := Prove(leaves, i)
		require.NoError(t, err)
		assert.True(t, Verify(root, leaves[i], proof), "leaf %d", i)
	}
}

func TestVerifyRejectsWrongLeaf(t *testing.T) {
	leaves := []ids.ID{leaf(1), leaf(2), leaf(3), leaf(4)}
	root := Root(leaves)

	proof, err := Prove(leaves, 0)
	require.NoError(t, err)
	assert.False(t, Verify(root, leaf(9), proof))
}

func TestProveIndexOutOfRange(t *testing.T) {
	_, err := Prove([]ids.ID{leaf(1)}, 3)
	require.Error(t, err)
}
