package finality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/config"
	"github.com/zenithcoin/zenithd/ids"
	"github.com/zenithcoin/zenithd/mempool"
	"github.com/zenithcoin/zenithd/utxo"
	"github.com/zenithcoin/zenithd/xcrypto"
)

type testVoter struct {
	priv xcrypto.PrivateKey
	mn   chaintypes.Masternode
}

func newTestVoter(t *testing.T, idByte byte, tier chaintypes.Tier) testVoter {
	t.Helper()
	priv, pub, err := xcrypto.GenerateKey()
	require.NoError(t, err)
	var sid ids.ShortID
	sid[0] = idByte
	return testVoter{priv: priv, mn: chaintypes.Masternode{ID: sid, PublicKey: pub.Bytes(), Tier: tier}}
}

func signVote(v testVoter, txID ids.ID, approve bool, ts int64) *chaintypes.Vote {
	vote := &chaintypes.Vote{TxID: txID, Voter: v.mn.ID, Approve: approve, Timestamp: ts}
	vote.Signature = v.priv.Sign(vote.SigHash())
	return vote
}

func setupEngine(t *testing.T, voters []testVoter) (*Engine, *utxo.Tracker, *mempool.Mempool, utxo.Store) {
	t.Helper()
	cfg := config.DefaultTestnetConfig()
	store := utxo.NewMemoryStore()
	tracker := utxo.NewTracker(store)
	mp, err := mempool.New(cfg)
	require.NoError(t, err)

	members := make([]chaintypes.Masternode, len(voters))
	for i, v := range voters {
		members[i] = v.mn
	}
	set := chaintypes.NewSet(members)
	eng := NewEngine(cfg, store, tracker, mp, set, nil, nil)
	return eng, tracker, mp, store
}

func TestEngineFinalizesOnQuorum(t *testing.T) {
	v1 := newTestVoter(t, 1, chaintypes.TierGold)
	v2 := newTestVoter(t, 2, chaintypes.TierGold)
	v3 := newTestVoter(t, 3, chaintypes.TierGold)
	eng, tracker, mp, store := setupEngine(t, []testVoter{v1, v2, v3})

	var inTxID ids.ID
	inTxID[0] = 0xAA
	op := chaintypes.OutPoint{TxID: inTxID, Vout: 0}
	tracker.Init(op)
	require.NoError(t, store.Put(&chaintypes.UTXO{OutPoint: op, Value: 100, Address: "spender"}))

	tx := &chaintypes.Transaction{
		Inputs:  []chaintypes.TxInput{{OutPoint: op}},
		Outputs: []chaintypes.TxOutput{{Value: 1, Address: "a"}},
	}
	require.NoError(t, mp.Add(tx, time.Now()))
	require.NoError(t, eng.Open(tx, 1, time.Now()))

	now := time.Now()
	d, err := eng.Vote(signVote(v1, tx.TxID(), true, now.Unix()), now)
	require.NoError(t, err)
	assert.Equal(t, Pending, d)

	d, err = eng.Vote(signVote(v2, tx.TxID(), true, now.Unix()), now)
	require.NoError(t, err)
	assert.Equal(t, Finalized, d)

	st, err := tracker.State(op)
	require.NoError(t, err)
	assert.Equal(t, chaintypes.SpentFinalized, st.Kind)
	assert.Equal(t, uint64(200), st.Votes, "the finalized record carries the approving weight")

	outOp := chaintypes.OutPoint{TxID: tx.TxID(), Vout: 0}
	created, ok, err := store.Get(outOp)
	require.NoError(t, err)
	require.True(t, ok, "finalization must create the output as a new UTXO")
	assert.Equal(t, uint64(1), created.Value)
	assert.Equal(t, "a", created.Address)

	outSt, err := tracker.State(outOp)
	require.NoError(t, err)
	assert.Equal(t, chaintypes.Unspent, outSt.Kind)

	fee, ok := eng.PopFee(tx.TxID())
	require.True(t, ok)
	assert.Equal(t, uint64(99), fee)
	_, ok = eng.PopFee(tx.TxID())
	assert.False(t, ok, "PopFee must clear the cached fee")
}

func TestEngineRejectsOnQuorumFailure(t *testing.T) {
	v1 := newTestVoter(t, 1, chaintypes.TierGold)
	v2 := newTestVoter(t, 2, chaintypes.TierGold)
	v3 := newTestVoter(t, 3, chaintypes.TierGold)
	eng, tracker, _, _ := setupEngine(t, []testVoter{v1, v2, v3})

	var inTxID ids.ID
	inTxID[0] = 0xBB
	op := chaintypes.OutPoint{TxID: inTxID, Vout: 0}
	tracker.Init(op)

	tx := &chaintypes.Transaction{
		Inputs:  []chaintypes.TxInput{{OutPoint: op}},
		Outputs: []chaintypes.TxOutput{{Value: 1, Address: "a"}},
	}
	require.NoError(t, eng.Open(tx, 1, time.Now()))

	now := time.Now()
	d, err := eng.Vote(signVote(v1, tx.TxID(), false, now.Unix()), now)
	require.NoError(t, err)
	assert.Equal(t, Pending, d)

	d, err = eng.Vote(signVote(v2, tx.TxID(), false, now.Unix()), now)
	require.NoError(t, err)
	assert.Equal(t, Rejected, d)

	st, err := tracker.State(op)
	require.NoError(t, err)
	assert.Equal(t, chaintypes.Unspent, st.Kind)
}

func TestEngineRejectsDoubleVote(t *testing.T) {
	v1 := newTestVoter(t, 1, chaintypes.TierGold)
	v2 := newTestVoter(t, 2, chaintypes.TierGold)
	eng, tracker, _, _ := setupEngine(t, []testVoter{v1, v2})

	var inTxID ids.ID
	inTxID[0] = 0xCC
	op := chaintypes.OutPoint{TxID: inTxID, Vout: 0}
	tracker.Init(op)

	tx := &chaintypes.Transaction{
		Inputs:  []chaintypes.TxInput{{OutPoint: op}},
		Outputs: []chaintypes.TxOutput{{Value: 1, Address: "a"}},
	}
	require.NoError(t, eng.Open(tx, 1, time.Now()))

	now := time.Now()
	_, err := eng.Vote(signVote(v1, tx.TxID(), true, now.Unix()), now)
	require.NoError(t, err)

	_, err = eng.Vote(signVote(v1, tx.TxID(), true, now.Unix()), now)
	require.Error(t, err)
	var dup *ErrDoubleVote
	assert.ErrorAs(t, err, &dup)
}

func TestEngineTimeoutRejects(t *testing.T) {
	v1 := newTestVoter(t, 1, chaintypes.TierGold)
	eng, tracker, mp, _ := setupEngine(t, []testVoter{v1})
	eng.cfg.VoteDeadline = time.Millisecond

	var inTxID ids.ID
	inTxID[0] = 0xDD
	op := chaintypes.OutPoint{TxID: inTxID, Vout: 0}
	tracker.Init(op)

	tx := &chaintypes.Transaction{
		Inputs:  []chaintypes.TxInput{{OutPoint: op}},
		Outputs: []chaintypes.TxOutput{{Value: 1, Address: "a"}},
	}
	require.NoError(t, mp.Add(tx, time.Now()))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, eng.Open(tx, 1, past))

	timedOut := eng.Timeout(time.Now())
	require.Len(t, timedOut, 1)
	assert.Equal(t, tx.TxID(), timedOut[0])

	st, err := tracker.State(op)
	require.NoError(t, err)
	assert.Equal(t, chaintypes.Unspent, st.Kind)
}

// A voter re-approving a retry of a timed-out spend is honest behavior:
// the first window is long decided, so the second approval on the same
// outpoint must not register as a Byzantine double vote.
func TestRetryAfterTimeoutIsNotDoubleVote(t *testing.T) {
	v1 := newTestVoter(t, 1, chaintypes.TierGold)
	v2 := newTestVoter(t, 2, chaintypes.TierGold)
	eng, tracker, mp, _ := setupEngine(t, []testVoter{v1, v2})
	eng.cfg.VoteDeadline = time.Millisecond

	var inTxID ids.ID
	inTxID[0] = 0xEE
	op := chaintypes.OutPoint{TxID: inTxID, Vout: 0}
	tracker.Init(op)

	first := &chaintypes.Transaction{
		Inputs:  []chaintypes.TxInput{{OutPoint: op}},
		Outputs: []chaintypes.TxOutput{{Value: 1, Address: "a"}},
	}
	require.NoError(t, mp.Add(first, time.Now()))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, eng.Open(first, 1, past))

	now := time.Now()
	_, err := eng.Vote(signVote(v1, first.TxID(), true, now.Unix()), now)
	require.NoError(t, err)

	require.Len(t, eng.Timeout(time.Now()), 1)

	// Retry: a different spend of the now-released outpoint.
	second := &chaintypes.Transaction{
		Inputs:  []chaintypes.TxInput{{OutPoint: op}},
		Outputs: []chaintypes.TxOutput{{Value: 2, Address: "b"}},
	}
	require.NoError(t, mp.Add(second, time.Now()))
	require.NoError(t, eng.Open(second, 2, time.Now()))

	now = time.Now()
	_, err = eng.Vote(signVote(v1, second.TxID(), true, now.Unix()), now)
	require.NoError(t, err)

	assert.Equal(t, SeverityNone, eng.byzantine.Score(v1.mn.ID))
	assert.False(t, eng.byzantine.Excluded(v1.mn.ID))
}

func TestByzantineTrackerEscalates(t *testing.T) {
	b := NewByzantineTracker()
	var voter ids.ShortID
	voter[0] = 1

	s := b.Record(voter, ViolationDoubleVote)
	assert.Equal(t, SeveritySevere, s)
	assert.False(t, b.Excluded(voter))

	s = b.Record(voter, ViolationDoubleVote)
	assert.Equal(t, SeverityCritical, s)
	assert.True(t, b.Excluded(voter))

	b.Reinstate(voter)
	assert.False(t, b.Excluded(voter))
}

func TestRateLimiterCapsPerRound(t *testing.T) {
	r := NewRateLimiter(2)
	var voter ids.ShortID
	voter[0] = 1

	assert.True(t, r.Allow(1, voter))
	assert.True(t, r.Allow(1, voter))
	assert.False(t, r.Allow(1, voter))

	// new round resets the count
	assert.True(t, r.Allow(2, voter))
}
