package vdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenithcoin/zenithd/ids"
)

// Small parameters keep the sequential evaluation fast enough for unit
// tests; the construction is identical at production sizes.
const (
	testBits       = 128
	testIterations = 64
	testSeed       = 1700000000
)

func testInput(b byte) ids.ID {
	var id ids.ID
	id[0] = b
	return id
}

func TestGenerateModulusDeterministic(t *testing.T) {
	a, err := GenerateModulus(testBits, testSeed)
	require.NoError(t, err)
	b, err := GenerateModulus(testBits, testSeed)
	require.NoError(t, err)
	assert.Equal(t, 0, a.N.Cmp(b.N))

	c, err := GenerateModulus(testBits, testSeed+1)
	require.NoError(t, err)
	assert.NotEqual(t, 0, a.N.Cmp(c.N))
}

func TestEvaluateVerifyRoundTrip(t *testing.T) {
	mod, err := GenerateModulus(testBits, testSeed)
	require.NoError(t, err)

	pot, err := Evaluate(mod, testInput(7), testIterations)
	require.NoError(t, err)
	require.NotNil(t, pot)
	assert.Equal(t, uint64(testIterations), pot.Iterations)

	require.NoError(t, Verify(mod, pot))
}

func TestVerifyRejectsTamperedOutput(t *testing.T) {
	mod, err := GenerateModulus(testBits, testSeed)
	require.NoError(t, err)

	pot, err := Evaluate(mod, testInput(7), testIterations)
	require.NoError(t, err)

	pot.Output[0] ^= 0xff
	assert.ErrorIs(t, Verify(mod, pot), ErrInvalidProof)
}

func TestVerifyRejectsWrongInput(t *testing.T) {
	mod, err := GenerateModulus(testBits, testSeed)
	require.NoError(t, err)

	pot, err := Evaluate(mod, testInput(7), testIterations)
	require.NoError(t, err)

	pot.InputHash = testInput(8)
	assert.Error(t, Verify(mod, pot))
}

func TestVerifyRejectsClaimedFewerIterations(t *testing.T) {
	mod, err := GenerateModulus(testBits, testSeed)
	require.NoError(t, err)

	pot, err := Evaluate(mod, testInput(7), testIterations)
	require.NoError(t, err)

	pot.Iterations = testIterations / 2
	assert.Error(t, Verify(mod, pot))
}

func TestVerifyNilProof(t *testing.T) {
	mod, err := GenerateModulus(testBits, testSeed)
	require.NoError(t, err)
	assert.ErrorIs(t, Verify(mod, nil), ErrInvalidProof)
}

func TestEvaluateDeterministic(t *testing.T) {
	mod, err := GenerateModulus(testBits, testSeed)
	require.NoError(t, err)

	a, err := Evaluate(mod, testInput(3), testIterations)
	require.NoError(t, err)
	b, err := Evaluate(mod, testInput(3), testIterations)
	require.NoError(t, err)
	assert.Equal(t, a.Output, b.Output)
	assert.Equal(t, a.Proof, b.Proof)
}
