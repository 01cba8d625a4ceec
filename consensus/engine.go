// Package consensus implements the block consensus & finalization
// protocol: each masternode independently builds a candidate (package
// block), then the network exchanges block-header hashes within the
// comparison window, finalizes the candidate ≥ Q weighted peers agree
// on, reconciles trivially-divergent minority candidates by fetching the
// majority block, or skips the round entirely if no candidate reaches
// quorum. One mutable tally exists per decided height, the same shape
// package finality uses for vote windows.
package consensus

import (
	"sync"
	"time"

	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/config"
	"github.com/zenithcoin/zenithd/ids"
	"github.com/zenithcoin/zenithd/metrics"
	"github.com/zenithcoin/zenithd/peer"
	"github.com/zenithcoin/zenithd/wire"
)

// Outcome is the result of a round, once decided.
type Outcome int

const (
	Pending Outcome = iota
	Agreed
	NeedsReconciliation
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Agreed:
		return "agreed"
	case NeedsReconciliation:
		return "needs_reconciliation"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// round is the per-height comparison window's mutable state.
type round struct {
	height    uint64
	local     *chaintypes.Block
	localHash ids.ID
	deadline  time.Time

	tally     map[ids.ID]uint64          // header hash -> weighted reports, self included
	reporters map[ids.ShortID]ids.ID     // one report per peer; duplicates are no-ops
	outcome   Outcome
}

// Engine drives one block-comparison round at a time; the protocol is
// inherently sequential per height (the chain never produces two blocks
// at the same height), so a single in-flight round is the correct shape.
type Engine struct {
	cfg     *config.Config
	pool    *peer.Pool
	metrics *metrics.Registry
	selfID  ids.ShortID

	mu       sync.Mutex
	members  *chaintypes.Set
	r        *round
	head     uint64
	headHash ids.ID
}

// NewEngine constructs an Engine. selfID is this node's own masternode id,
// counted in the weighted tally like any other reporter.
func NewEngine(cfg *config.Config, pool *peer.Pool, members *chaintypes.Set, m *metrics.Registry, selfID ids.ShortID) *Engine {
	return &Engine{cfg: cfg, pool: pool, members: members, metrics: m, selfID: selfID}
}

// SetMembers swaps in a new masternode set snapshot, effective for rounds
// begun from this call onward.
func (e *Engine) SetMembers(members *chaintypes.Set) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.members = members
}

// Head returns the canonical chain head this engine has finalized.
func (e *Engine) Head() (height uint64, hash ids.ID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.head, e.headHash
}

// SetHead seeds the engine's notion of the canonical head (used at
// startup, from the persisted block index).
func (e *Engine) SetHead(height uint64, hash ids.ID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.head, e.headHash = height, hash
}

// BeginRound opens the comparison window for height, broadcasting the
// local candidate's header to every connected peer and recording our own
// report in the tally. now+cfg.BlockCompareWindow is the round's
// deadline.
func (e *Engine) BeginRound(local *chaintypes.Block, now time.Time) {
	height := local.Header.Height
	hash := local.Hash()

	e.mu.Lock()
	selfWeight := uint64(0)
	if mn, ok := e.members.Get(e.selfID); ok {
		selfWeight = mn.Weight()
	}
	e.r = &round{
		height:    height,
		local:     local,
		localHash: hash,
		deadline:  now.Add(e.cfg.BlockCompareWindow),
		tally:     map[ids.ID]uint64{hash: selfWeight},
		reporters: map[ids.ShortID]ids.ID{e.selfID: hash},
	}
	e.mu.Unlock()

	if e.pool != nil {
		e.pool.Broadcast(&wire.BlockAnnouncement{Header: &local.Header}, e.cfg.BroadcastTimeout)
	}
}

// Observe records a peer-reported header hash for the round currently
// open at header.Height. A peer outside the masternode set or reporting
// for any other height is ignored (stale/foreign traffic); a peer that
// has already reported this round is a no-op, so at-least-once message
// delivery never skews the tally.
func (e *Engine) Observe(reporter ids.ShortID, header *chaintypes.Header, now time.Time) (Outcome, *chaintypes.Block, ids.ID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.r == nil || header.Height != e.r.height {
		return Pending, nil, ids.Empty
	}
	if _, seen := e.r.reporters[reporter]; seen {
		return e.r.outcome, nil, ids.Empty
	}
	mn, ok := e.members.Get(reporter)
	if !ok {
		return e.r.outcome, nil, ids.Empty
	}

	hash := header.Hash()
	e.r.reporters[reporter] = hash
	e.r.tally[hash] += mn.Weight()

	return e.decideLocked(now)
}

// Tick re-evaluates the open round against now, applying the round
// failure rule if the comparison window has elapsed without any
// candidate reaching quorum. Callers should invoke this on a timer in
// addition to every Observe.
func (e *Engine) Tick(now time.Time) (Outcome, *chaintypes.Block, ids.ID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.decideLocked(now)
}

// decideLocked applies the agreement rule once any candidate's weighted
// reports cross Q, or the failure rule once the window has elapsed.
// Caller must hold e.mu.
func (e *Engine) decideLocked(now time.Time) (Outcome, *chaintypes.Block, ids.ID) {
	r := e.r
	if r == nil || r.outcome != Pending {
		if r == nil {
			return Pending, nil, ids.Empty
		}
		return r.outcome, r.local, r.localHash
	}

	q := e.members.Quorum()
	for hash, weight := range r.tally {
		if weight < q {
			continue
		}
		if hash == r.localHash {
			r.outcome = Agreed
			e.head, e.headHash = r.height, hash
			if e.metrics != nil {
				e.metrics.BlocksProduced.Inc()
			}
			return Agreed, r.local, hash
		}
		r.outcome = NeedsReconciliation
		return NeedsReconciliation, nil, hash
	}

	if !now.Before(r.deadline) {
		r.outcome = Failed
		return Failed, nil, ids.Empty
	}
	return Pending, nil, ids.Empty
}

// AcceptReconciled finalizes block as the canonical block at its height
// after the caller has independently verified it via Reconcile (or
// equivalent), advancing the chain head exactly as a local Agreed
// decision would.
func (e *Engine) AcceptReconciled(block *chaintypes.Block) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.head, e.headHash = block.Header.Height, block.Hash()
	if e.r != nil && e.r.height == block.Header.Height {
		e.r.outcome = Agreed
	}
	if e.metrics != nil {
		e.metrics.BlocksProduced.Inc()
	}
}
