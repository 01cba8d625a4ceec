package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/config"
	"github.com/zenithcoin/zenithd/ids"
)

func mn(b byte) chaintypes.Masternode {
	var id ids.ShortID
	id[0] = b
	priv := make([]byte, 32)
	priv[0] = b
	return chaintypes.Masternode{ID: id, Tier: chaintypes.TierGold, PublicKey: priv}
}

func TestBuildIsDeterministic(t *testing.T) {
	cfg := config.DefaultTestnetConfig()
	cfg.TreasuryAddr = mustAddr(t, cfg)

	var prevHash ids.ID
	prevHash[0] = 0x01

	eligible := []chaintypes.Masternode{mn(1), mn(2)}

	c := Candidate{
		Height:            10,
		PreviousHash:      prevHash,
		EligibleForReward: eligible,
		Version:           1,
	}

	b1, err := Build(cfg, c)
	require.NoError(t, err)
	b2, err := Build(cfg, c)
	require.NoError(t, err)

	assert.Equal(t, b1.Hash(), b2.Hash())
	assert.Equal(t, cfg.TimestampForHeight(10), b1.Header.Timestamp)
	assert.True(t, b1.Transactions[0].IsCoinbase())
}

func TestBuildSortsFinalizedTxsByID(t *testing.T) {
	cfg := config.DefaultTestnetConfig()
	cfg.TreasuryAddr = mustAddr(t, cfg)

	var id1, id2 ids.ID
	id1[0] = 0xFF
	id2[0] = 0x01
	tx1 := &chaintypes.Transaction{Outputs: []chaintypes.TxOutput{{Value: 1, Address: "a"}}, LockTime: 7}
	tx2 := &chaintypes.Transaction{Outputs: []chaintypes.TxOutput{{Value: 2, Address: "b"}}, LockTime: 8}

	c := Candidate{
		Height:       5,
		FinalizedTxs: []*chaintypes.Transaction{tx1, tx2},
		Version:      1,
	}

	blk, err := Build(cfg, c)
	require.NoError(t, err)
	require.Len(t, blk.Transactions, 3) // coinbase + 2

	assert.True(t, blk.Transactions[1].TxID().Less(blk.Transactions[2].TxID()) ||
		blk.Transactions[1].TxID() == blk.Transactions[2].TxID())
}

func mustAddr(t *testing.T, cfg *config.Config) string {
	t.Helper()
	addr, err := masternodeAddress(cfg, mn(9))
	require.NoError(t, err)
	return addr
}
