package consensus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/config"
	"github.com/zenithcoin/zenithd/ids"
)

func shortID(b byte) ids.ShortID {
	var s ids.ShortID
	s[0] = b
	return s
}

func buildSet(t *testing.T) (*chaintypes.Set, ids.ShortID) {
	t.Helper()
	self := shortID(1)
	members := []chaintypes.Masternode{
		{ID: self, Tier: chaintypes.TierGold},
		{ID: shortID(2), Tier: chaintypes.TierGold},
		{ID: shortID(3), Tier: chaintypes.TierGold},
	}
	return chaintypes.NewSet(members), self // W=300, Q=200
}

func sampleBlock(height uint64, prev ids.ID, version uint32) *chaintypes.Block {
	return &chaintypes.Block{
		Header: chaintypes.Header{Height: height, PreviousHash: prev, Version: version},
		Transactions: []*chaintypes.Transaction{
			{Version: 1, Outputs: []chaintypes.TxOutput{{Value: 1, Address: "coinbase"}}},
		},
	}
}

func TestEngineAgreesOnLocalCandidate(t *testing.T) {
	set, self := buildSet(t)
	cfg := config.DefaultTestnetConfig()
	eng := NewEngine(cfg, nil, set, nil, self)

	local := sampleBlock(5, ids.Empty, 1)
	now := time.Now()
	eng.BeginRound(local, now)

	// self(100) + v2(100) = 200 == Q(ceil(2*300/3)); agreement fires on
	// this very Observe call.
	outcome, _, _ := eng.Observe(shortID(2), &local.Header, now)
	assert.Equal(t, Agreed, outcome)

	height, hash := eng.Head()
	assert.Equal(t, uint64(5), height)
	assert.Equal(t, local.Hash(), hash)
}

func TestEngineNeedsReconciliationOnDivergentMajority(t *testing.T) {
	set, self := buildSet(t)
	cfg := config.DefaultTestnetConfig()
	eng := NewEngine(cfg, nil, set, nil, self)

	local := sampleBlock(5, ids.Empty, 1)
	divergent := sampleBlock(5, ids.Empty, 2) // different Version -> different hash
	now := time.Now()
	eng.BeginRound(local, now)

	// Two peers report the divergent candidate; self only reports local.
	outcome, _, winningHash := eng.Observe(shortID(2), &divergent.Header, now)
	assert.Equal(t, Pending, outcome)
	outcome, _, winningHash = eng.Observe(shortID(3), &divergent.Header, now)
	require.Equal(t, NeedsReconciliation, outcome)
	assert.Equal(t, divergent.Hash(), winningHash)
}

func TestEngineFailsAfterWindowWithNoQuorum(t *testing.T) {
	set := chaintypes.NewSet([]chaintypes.Masternode{
		{ID: shortID(1), Tier: chaintypes.TierGold},
		{ID: shortID(2), Tier: chaintypes.TierGold},
		{ID: shortID(3), Tier: chaintypes.TierGold},
	})
	cfg := config.DefaultTestnetConfig()
	eng := NewEngine(cfg, nil, set, nil, shortID(1))

	local := sampleBlock(5, ids.Empty, 1)
	now := time.Now()
	eng.BeginRound(local, now)

	// Only self (weight 100) ever reports; Q=200 never reached.
	outcome, _, _ := eng.Tick(now.Add(cfg.BlockCompareWindow + time.Second))
	assert.Equal(t, Failed, outcome)
}

func TestObserveIgnoresUnknownPeerAndDuplicateReport(t *testing.T) {
	set, self := buildSet(t)
	cfg := config.DefaultTestnetConfig()
	eng := NewEngine(cfg, nil, set, nil, self)

	local := sampleBlock(5, ids.Empty, 1)
	now := time.Now()
	eng.BeginRound(local, now)

	outcome, _, _ := eng.Observe(shortID(99), &local.Header, now) // not a member
	assert.Equal(t, Pending, outcome)

	outcome, _, _ = eng.Observe(self, &local.Header, now) // self already reported at BeginRound
	assert.Equal(t, Pending, outcome)
}

func TestAcceptReconciledAdvancesHead(t *testing.T) {
	set, self := buildSet(t)
	cfg := config.DefaultTestnetConfig()
	eng := NewEngine(cfg, nil, set, nil, self)

	block := sampleBlock(7, ids.Empty, 1)
	eng.AcceptReconciled(block)

	height, hash := eng.Head()
	assert.Equal(t, uint64(7), height)
	assert.Equal(t, block.Hash(), hash)
}
