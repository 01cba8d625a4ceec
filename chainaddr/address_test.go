package chainaddr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPubkeyHash(b byte) []byte {
	h := make([]byte, 20)
	h[0] = b
	return h
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	hash := testPubkeyHash(0x42)
	addr, err := Encode(VersionTestnet, hash)
	require.NoError(t, err)

	got, err := Decode(addr, VersionTestnet)
	require.NoError(t, err)
	assert.Equal(t, hash, got)
}

func TestDecodeRejectsWrongVersion(t *testing.T) {
	addr, err := Encode(VersionTestnet, testPubkeyHash(1))
	require.NoError(t, err)

	_, err = Decode(addr, VersionMainnet)
	assert.ErrorIs(t, err, ErrWrongVersion)
}

func TestDecodeRejectsCorruptedAddress(t *testing.T) {
	addr, err := Encode(VersionTestnet, testPubkeyHash(1))
	require.NoError(t, err)

	// Flip one character to another valid base58 digit.
	corrupted := []byte(addr)
	if corrupted[3] == '2' {
		corrupted[3] = '3'
	} else {
		corrupted[3] = '2'
	}
	_, err = Decode(string(corrupted), VersionTestnet)
	require.Error(t, err)
}

func TestDecodeRejectsShortInput(t *testing.T) {
	_, err := Decode("3yQ", VersionTestnet)
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestEncodeRejectsWrongHashLength(t *testing.T) {
	_, err := Encode(VersionTestnet, []byte{1, 2, 3})
	require.Error(t, err)
}

func TestDecodeAnyRecoversVersion(t *testing.T) {
	hash := testPubkeyHash(9)
	addr, err := Encode(VersionMainnet, hash)
	require.NoError(t, err)

	version, got, err := DecodeAny(addr)
	require.NoError(t, err)
	assert.Equal(t, VersionMainnet, version)
	assert.Equal(t, hash, got)
}

func TestWellFormed(t *testing.T) {
	addr, err := Encode(VersionTestnet, testPubkeyHash(5))
	require.NoError(t, err)

	assert.True(t, WellFormed(addr, VersionTestnet))
	assert.False(t, WellFormed(addr, VersionMainnet))
	assert.False(t, WellFormed("not-an-address", VersionTestnet))
}

func TestAmountString(t *testing.T) {
	assert.Equal(t, "0.00000000", Amount(0).String())
	assert.Equal(t, "1.00000000", Amount(UnitsPerCoin).String())
	assert.Equal(t, "1.00000001", Amount(UnitsPerCoin+1).String())
	assert.Equal(t, "0.50000000", Amount(UnitsPerCoin/2).String())
	assert.Equal(t, "21000000.00000000", Amount(21_000_000*UnitsPerCoin).String())
}

func TestAmountUnits(t *testing.T) {
	assert.Equal(t, uint64(123), Amount(123).Units())
}
