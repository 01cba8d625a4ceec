package chainsync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenithcoin/zenithd/config"
	"github.com/zenithcoin/zenithd/ids"
)

// fakeChain is an in-memory LocalChain used only by tests, mirroring the
// Dialer/Listener fake pattern package peer's own tests use in place of a
// real network.
type fakeChain struct {
	hashes      map[uint64]ids.ID
	height      uint64
	rewoundTo   int64
}

func newFakeChain(height uint64) *fakeChain {
	c := &fakeChain{hashes: make(map[uint64]ids.ID), height: height, rewoundTo: -1}
	for h := uint64(0); h <= height; h++ {
		var id ids.ID
		id[0] = byte(h)
		c.hashes[h] = id
	}
	return c
}

func (c *fakeChain) Height() uint64 { return c.height }
func (c *fakeChain) HashAt(h uint64) (ids.ID, bool) {
	id, ok := c.hashes[h]
	return id, ok
}
func (c *fakeChain) Rewind(to uint64) error {
	c.rewoundTo = int64(to)
	c.height = to
	return nil
}

type fakeFetcher struct {
	hashes  map[uint64]ids.ID
	timeout map[uint64]bool
}

func (f *fakeFetcher) FetchHeaderHash(ctx context.Context, peer ids.ShortID, height uint64) (ids.ID, error) {
	if f.timeout[height] {
		return ids.Empty, ErrTimeout
	}
	return f.hashes[height], nil
}

func TestFindCommonAncestorMatchesAtDivergencePoint(t *testing.T) {
	local := newFakeChain(10)
	peer := &fakeFetcher{hashes: map[uint64]ids.ID{}}
	for h := uint64(0); h <= 10; h++ {
		peer.hashes[h] = local.hashes[h]
	}
	// Peer diverges above height 7: heights 8-10 differ.
	for h := uint64(8); h <= 10; h++ {
		var id ids.ID
		id[0] = 0xFF
		id[1] = byte(h)
		peer.hashes[h] = id
	}

	ancestor, err := FindCommonAncestor(context.Background(), local, peer, ids.ShortID{1}, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), ancestor)
}

func TestFindCommonAncestorAbortsOnTimeoutWithoutRewinding(t *testing.T) {
	local := newFakeChain(10)
	peer := &fakeFetcher{hashes: map[uint64]ids.ID{}, timeout: map[uint64]bool{9: true}}
	for h := uint64(0); h <= 10; h++ {
		peer.hashes[h] = local.hashes[h]
	}
	// Diverge at the tip so the walk moves down to height 9 and times out.
	peer.hashes[10] = ids.ID{0xFF}

	_, err := FindCommonAncestor(context.Background(), local, peer, ids.ShortID{1}, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, int64(-1), local.rewoundTo) // never rewound
}

func TestReconcileRewindsToCommonAncestor(t *testing.T) {
	local := newFakeChain(10)
	peer := &fakeFetcher{hashes: map[uint64]ids.ID{}}
	for h := uint64(0); h <= 10; h++ {
		peer.hashes[h] = local.hashes[h]
	}
	for h := uint64(8); h <= 10; h++ {
		var id ids.ID
		id[0] = 0xFF
		peer.hashes[h] = id
	}

	res, err := Reconcile(context.Background(), local, peer, ids.ShortID{1}, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), res.CommonAncestor)
	assert.Equal(t, uint64(10), res.RewoundFrom)
	assert.Equal(t, int64(7), local.rewoundTo)
	assert.False(t, res.DifferentChain)
}

func TestReconcileDetectsDifferentGenesis(t *testing.T) {
	local := newFakeChain(3)
	peer := &fakeFetcher{hashes: map[uint64]ids.ID{0: {0xAB}, 1: {0xAB}, 2: {0xAB}, 3: {0xAB}}}

	res, err := Reconcile(context.Background(), local, peer, ids.ShortID{1}, 3)
	require.NoError(t, err)
	assert.True(t, res.DifferentChain)
}

func TestReconcileNoOpWhenAlreadyAtAncestor(t *testing.T) {
	local := newFakeChain(5)
	peer := &fakeFetcher{hashes: map[uint64]ids.ID{}}
	for h := uint64(0); h <= 5; h++ {
		peer.hashes[h] = local.hashes[h]
	}

	res, err := Reconcile(context.Background(), local, peer, ids.ShortID{1}, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), res.CommonAncestor)
	assert.Equal(t, uint64(0), res.RewoundFrom)
	assert.Equal(t, int64(-1), local.rewoundTo) // Rewind never called
}

func TestWithinTimeTolerance(t *testing.T) {
	cfg := config.DefaultTestnetConfig()
	cfg.GenesisTimestamp = time.Now().Add(-5 * cfg.BlockInterval).Unix()
	now := time.Now()
	plausible := cfg.HeightAt(now)

	assert.True(t, WithinTimeTolerance(cfg, plausible, now))
	assert.True(t, WithinTimeTolerance(cfg, plausible+cfg.TimeTolerance, now))
	assert.False(t, WithinTimeTolerance(cfg, plausible+cfg.TimeTolerance+1, now))
}
