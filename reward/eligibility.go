// Package reward implements the coinbase reward split: treasury cuts,
// tier-weighted distribution across eligible masternodes, and
// integer-only remainder assignment to the lexicographically smallest
// eligible id. Eligibility requires continuous membership across the
// whole block interval.
package reward

import (
	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/ids"
)

// Tracker maintains the two eligibility sets: eligible for the current
// block, and eligible for the next.
type Tracker struct {
	// present at T(h-1): the set snapshot taken at the start of the
	// just-elapsed interval.
	atIntervalStart map[ids.ShortID]struct{}
	// currentSet is the live set, used both to compute
	// eligible_for_current_block (by intersection) and directly exposed
	// as eligible_for_next_block.
	currentSet *chaintypes.Set
}

// NewGenesisTracker seeds the tracker so every initial masternode is
// eligible for block 1.
func NewGenesisTracker(genesis *chaintypes.Set) *Tracker {
	start := make(map[ids.ShortID]struct{}, genesis.Len())
	for _, m := range genesis.Members() {
		start[m.ID] = struct{}{}
	}
	return &Tracker{atIntervalStart: start, currentSet: genesis}
}

// AdvanceInterval is called at each block boundary T(h), after computing
// EligibleForCurrentBlock(h) against the old snapshot: it records the
// live set as the new T(h) snapshot, becoming the basis for the next
// interval's eligibility check.
func (t *Tracker) AdvanceInterval(liveSet *chaintypes.Set) {
	start := make(map[ids.ShortID]struct{}, liveSet.Len())
	for _, m := range liveSet.Members() {
		start[m.ID] = struct{}{}
	}
	t.atIntervalStart = start
	t.currentSet = liveSet
}

// EligibleForCurrentBlock returns the masternodes continuously present
// since the interval snapshot, intersected with the live set — any join
// or leave mid-interval disqualifies a node for this block's reward
// (though its vote still counts for finality).
func (t *Tracker) EligibleForCurrentBlock() []chaintypes.Masternode {
	var out []chaintypes.Masternode
	for _, m := range t.currentSet.Members() {
		if _, wasPresent := t.atIntervalStart[m.ID]; wasPresent {
			out = append(out, m)
		}
	}
	return out
}

// EligibleForNextBlock returns the live set, unconditionally.
func (t *Tracker) EligibleForNextBlock() []chaintypes.Masternode {
	return t.currentSet.Members()
}
