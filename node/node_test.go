package node

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenithcoin/zenithd/chainaddr"
	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/config"
	"github.com/zenithcoin/zenithd/hashing"
	"github.com/zenithcoin/zenithd/ids"
	"github.com/zenithcoin/zenithd/logging"
	"github.com/zenithcoin/zenithd/xcrypto"
)

// newSoloNode builds an in-memory node whose masternode set is just the
// node itself (gold tier, so its own approval is a quorum) and whose
// genesis allocates one spendable UTXO to the node's key.
func newSoloNode(t *testing.T) (*Node, xcrypto.PrivateKey, chaintypes.OutPoint, string) {
	t.Helper()

	key, pub, err := xcrypto.GenerateKey()
	require.NoError(t, err)

	var nodeID ids.ShortID
	copy(nodeID[:], hashing.ComputeHash256(pub.Bytes())[:20])

	pubHash := hashing.ComputeHash256(pub.Bytes())[:20]
	addr, err := chainaddr.Encode(chainaddr.VersionTestnet, pubHash)
	require.NoError(t, err)

	doc := &GenesisDoc{
		Timestamp:       time.Now().Add(-config.DefaultTestnetConfig().BlockInterval).Unix(),
		TreasuryAddress: "treasury-test",
		Allocations:     []GenesisAllocation{{Address: addr, Value: 100 * 1e8}},
		Masternodes: []GenesisMasternode{{
			ID:         hex.EncodeToString(nodeID[:]),
			PublicKey:  hex.EncodeToString(pub.Bytes()),
			Tier:       "gold",
			Collateral: 100 * 1e8,
		}},
	}

	cfg := config.DefaultTestnetConfig()
	cfg.GenesisTimestamp = doc.Timestamp
	cfg.GenesisHash = doc.Block().Hash()
	cfg.NodeID = nodeID
	cfg.TreasuryAddr = doc.TreasuryAddress

	n, err := New(cfg, logging.NewNop(), Options{Genesis: doc, Key: key})
	require.NoError(t, err)
	t.Cleanup(func() { n.bus.Close() })

	coinbase := doc.Block().Transactions[0]
	op := chaintypes.OutPoint{TxID: coinbase.TxID(), Vout: 0}
	return n, key, op, addr
}

func spendTx(t *testing.T, key xcrypto.PrivateKey, op chaintypes.OutPoint, toAddr string, value uint64) *chaintypes.Transaction {
	t.Helper()
	tx := &chaintypes.Transaction{
		Version:   1,
		Inputs:    []chaintypes.TxInput{{OutPoint: op, PubKey: key.Public().Bytes()}},
		Outputs:   []chaintypes.TxOutput{{Value: value, Address: toAddr}},
		Timestamp: time.Now().Unix(),
	}
	tx.Inputs[0].Signature = key.Sign(tx.SigHash())
	return tx
}

func otherAddress(t *testing.T) string {
	t.Helper()
	_, pub, err := xcrypto.GenerateKey()
	require.NoError(t, err)
	addr, err := chainaddr.Encode(chainaddr.VersionTestnet, hashing.ComputeHash256(pub.Bytes())[:20])
	require.NoError(t, err)
	return addr
}

func TestNodeSeedsGenesis(t *testing.T) {
	n, _, op, addr := newSoloNode(t)

	assert.Equal(t, uint64(0), n.index.Height())

	u, ok, err := n.store.Get(op)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(100*1e8), u.Value)
	assert.Equal(t, addr, u.Address)

	st, err := n.tracker.State(op)
	require.NoError(t, err)
	assert.Equal(t, chaintypes.Unspent, st.Kind)
}

// A solo gold masternode's own approval is a full quorum, so a valid
// spend finalizes on submission.
func TestSubmitTxFinalizesWithSoloQuorum(t *testing.T) {
	n, key, op, _ := newSoloNode(t)
	dest := otherAddress(t)

	tx := spendTx(t, key, op, dest, 99*1e8) // 1 coin fee
	require.NoError(t, n.SubmitTx(tx, time.Now()))
	txID := tx.TxID()

	st, err := n.tracker.State(op)
	require.NoError(t, err)
	assert.Equal(t, chaintypes.SpentFinalized, st.Kind)
	assert.Equal(t, txID, st.TxID)

	newOp := chaintypes.OutPoint{TxID: txID, Vout: 0}
	u, ok, err := n.store.Get(newOp)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(99*1e8), u.Value)
	assert.Equal(t, dest, u.Address)

	fee, ok := n.votes.PopFee(txID)
	require.True(t, ok)
	assert.Equal(t, uint64(1e8), fee)
}

func TestSubmitTxRejectsDoubleSpend(t *testing.T) {
	n, key, op, _ := newSoloNode(t)

	first := spendTx(t, key, op, otherAddress(t), 90*1e8)
	require.NoError(t, n.SubmitTx(first, time.Now()))

	second := spendTx(t, key, op, otherAddress(t), 80*1e8)
	err := n.SubmitTx(second, time.Now())
	require.Error(t, err)

	// Only the first spend's output exists.
	_, ok, _ := n.store.Get(chaintypes.OutPoint{TxID: first.TxID(), Vout: 0})
	assert.True(t, ok)
	_, ok, _ = n.store.Get(chaintypes.OutPoint{TxID: second.TxID(), Vout: 0})
	assert.False(t, ok)
}

func TestProduceCommitsBlockWithFinalizedTx(t *testing.T) {
	n, key, op, _ := newSoloNode(t)

	tx := spendTx(t, key, op, otherAddress(t), 99*1e8)
	require.NoError(t, n.SubmitTx(tx, time.Now()))
	txID := tx.TxID()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n.produceAt(ctx, time.Now())

	require.Equal(t, uint64(1), n.index.Height())
	blk, ok := n.index.BlockAt(1)
	require.True(t, ok)
	require.Len(t, blk.Transactions, 2)
	assert.True(t, blk.Transactions[0].IsCoinbase())
	assert.Equal(t, txID, blk.Transactions[1].TxID())

	// The spent input is Confirmed once its block lands.
	st, err := n.tracker.State(op)
	require.NoError(t, err)
	assert.Equal(t, chaintypes.Confirmed, st.Kind)
	assert.Equal(t, uint64(1), st.BlockHeight)

	// The new block links to genesis.
	genesisHash, _ := n.index.HashAt(0)
	assert.Equal(t, genesisHash, blk.Header.PreviousHash)
}

func TestDescribeTx(t *testing.T) {
	n, key, op, _ := newSoloNode(t)

	tx := spendTx(t, key, op, otherAddress(t), 50*1e8)
	require.NoError(t, n.SubmitTx(tx, time.Now()))

	view := n.DescribeTx(tx.TxID())
	assert.Equal(t, "finalized", view.Decision)
	assert.True(t, view.InMempool)
}

func TestCurrentStatus(t *testing.T) {
	n, _, _, _ := newSoloNode(t)

	s := n.CurrentStatus()
	assert.Equal(t, uint64(0), s.Height)
	assert.NotEmpty(t, s.TipHash)
	assert.Equal(t, 0, s.Peers)
	assert.Equal(t, 0, s.PendingVotes)
}
