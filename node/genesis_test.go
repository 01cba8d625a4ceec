package node

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenithcoin/zenithd/chaintypes"
)

const testGenesisJSON = `{
	"timestamp": 1700000000,
	"treasuryAddress": "treasury",
	"allocations": [
		{"address": "addr-one", "value": 5000000000},
		{"address": "addr-two", "value": 2500000000}
	],
	"masternodes": [
		{
			"id": "0101010101010101010101010101010101010101",
			"publicKey": "0202020202020202020202020202020202020202020202020202020202020202",
			"tier": "gold",
			"collateral": 10000000000
		},
		{
			"id": "0303030303030303030303030303030303030303",
			"publicKey": "0404040404040404040404040404040404040404040404040404040404040404",
			"tier": "bronze",
			"collateral": 100000000
		}
	]
}`

func TestParseGenesisDoc(t *testing.T) {
	doc, err := ParseGenesisDoc([]byte(testGenesisJSON))
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), doc.Timestamp)
	assert.Len(t, doc.Allocations, 2)
	assert.Len(t, doc.Masternodes, 2)
}

func TestParseGenesisDocRejectsEmptyMasternodes(t *testing.T) {
	_, err := ParseGenesisDoc([]byte(`{"timestamp": 1, "masternodes": []}`))
	require.Error(t, err)
}

func TestParseGenesisDocRejectsZeroTimestamp(t *testing.T) {
	_, err := ParseGenesisDoc([]byte(`{"timestamp": 0, "masternodes": [{"id":"01","publicKey":"02","tier":"gold"}]}`))
	require.Error(t, err)
}

func TestGenesisBlockDeterministic(t *testing.T) {
	doc, err := ParseGenesisDoc([]byte(testGenesisJSON))
	require.NoError(t, err)

	a := doc.Block()
	b := doc.Block()
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Equal(t, a.Bytes(), b.Bytes())

	require.Len(t, a.Transactions, 1)
	assert.True(t, a.Transactions[0].IsCoinbase())
	assert.Equal(t, uint64(0), a.Header.Height)
	assert.Equal(t, doc.Timestamp, a.Header.Timestamp)
	assert.Equal(t, a.Transactions[0].TxID(), a.Header.MerkleRoot)
}

func TestGenesisMasternodeSet(t *testing.T) {
	doc, err := ParseGenesisDoc([]byte(testGenesisJSON))
	require.NoError(t, err)

	set, err := doc.MasternodeSet()
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
	assert.Equal(t, uint64(101), set.TotalWeight()) // gold 100 + bronze 1
	assert.Equal(t, uint64(68), set.Quorum())       // ceil(2*101/3)

	members := set.Members()
	idBytes, _ := hex.DecodeString("0101010101010101010101010101010101010101")
	assert.Equal(t, idBytes, members[0].ID.Bytes())
	assert.Equal(t, chaintypes.TierGold, members[0].Tier)
}

func TestGenesisMasternodeSetRejectsBadTier(t *testing.T) {
	doc, err := ParseGenesisDoc([]byte(testGenesisJSON))
	require.NoError(t, err)
	doc.Masternodes[0].Tier = "platinum"

	_, err = doc.MasternodeSet()
	require.Error(t, err)
}
