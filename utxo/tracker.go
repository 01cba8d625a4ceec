// tracker.go implements the per-outpoint state machine:
// Unspent -> Locked -> SpentPending -> SpentFinalized -> Confirmed, with
// Locked/SpentPending able to release back to Unspent on timeout or vote
// failure.
//
// Each outpoint gets one mutable record guarded by its own mutex, so
// contended transitions on different outpoints never serialize against
// each other; a transition takes at most one mutex.
package utxo

import (
	"sync"
	"time"

	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/ids"
)

type entry struct {
	mu    sync.Mutex
	state chaintypes.UTXOState
}

// Tracker holds the live state of every known outpoint, independent of
// the underlying value/script data held in Store. Store and Tracker are
// separate because a UTXO's value never changes across its state
// lifecycle, while its state does, often under contention.
type Tracker struct {
	store Store

	mu      sync.RWMutex
	entries map[chaintypes.OutPoint]*entry
}

func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, entries: make(map[chaintypes.OutPoint]*entry)}
}

func (t *Tracker) entryFor(op chaintypes.OutPoint) *entry {
	t.mu.RLock()
	e, ok := t.entries[op]
	t.mu.RUnlock()
	if ok {
		return e
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[op]; ok {
		return e
	}
	e = &entry{state: chaintypes.NewUnspent()}
	t.entries[op] = e
	return e
}

// Init registers op as Unspent, called once when a UTXO is created by a
// finalized coinbase or ordinary output. It is a no-op if op is already
// known, so block replay is idempotent.
func (t *Tracker) Init(op chaintypes.OutPoint) {
	t.entryFor(op)
}

// State returns a snapshot of op's current state.
func (t *Tracker) State(op chaintypes.OutPoint) (chaintypes.UTXOState, error) {
	t.mu.RLock()
	e, ok := t.entries[op]
	t.mu.RUnlock()
	if !ok {
		return chaintypes.UTXOState{}, &ErrUnknownOutPoint{OutPoint: op}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, nil
}

// Lock transitions op from Unspent to Locked under txID, recording the
// lock time for the reaper's timeout sweep (a stuck lock must eventually
// release). Re-locking by the same txID is
// idempotent, since a validator may re-propose the same spend.
func (t *Tracker) Lock(op chaintypes.OutPoint, txID ids.ID, now time.Time) error {
	e := t.entryFor(op)
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state.Kind {
	case chaintypes.Unspent:
		e.state = chaintypes.UTXOState{Kind: chaintypes.Locked, TxID: txID, LockedAt: now.Unix()}
		return nil
	case chaintypes.Locked:
		if e.state.TxID == txID {
			return nil
		}
		return &ErrAlreadyLocked{OutPoint: op, LockingTx: e.state.TxID}
	default:
		return &ErrNotUnspent{OutPoint: op, Kind: e.state.Kind}
	}
}

// MarkPending transitions op from Locked to SpentPending once the
// owning transaction's vote window opens, carrying forward the total
// voting weight the window was opened against.
func (t *Tracker) MarkPending(op chaintypes.OutPoint, txID ids.ID, totalWeight uint64, now time.Time) error {
	e := t.entryFor(op)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Kind != chaintypes.Locked {
		return &ErrWrongState{OutPoint: op, Want: chaintypes.Locked, Got: e.state.Kind}
	}
	if e.state.TxID != txID {
		return &ErrTxIDMismatch{OutPoint: op, Want: e.state.TxID, Got: txID}
	}
	e.state = chaintypes.UTXOState{
		Kind:       chaintypes.SpentPending,
		TxID:       txID,
		LockedAt:   e.state.LockedAt,
		Votes:      0,
		TotalNodes: totalWeight,
		SpentAt:    now.Unix(),
	}
	return nil
}

// RecordApproval accumulates approving vote weight against a
// SpentPending outpoint. It does not itself decide quorum — that is
// package finality's job. The tally is held in memory only and does not
// survive a restart.
func (t *Tracker) RecordApproval(op chaintypes.OutPoint, txID ids.ID, weight uint64) error {
	e := t.entryFor(op)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Kind != chaintypes.SpentPending {
		return &ErrWrongState{OutPoint: op, Want: chaintypes.SpentPending, Got: e.state.Kind}
	}
	if e.state.TxID != txID {
		return &ErrTxIDMismatch{OutPoint: op, Want: e.state.TxID, Got: txID}
	}
	e.state.Votes += weight
	return nil
}

// Finalize transitions op from SpentPending to SpentFinalized once
// quorum has been reached, carrying the approving vote weight into the
// finalized record.
func (t *Tracker) Finalize(op chaintypes.OutPoint, txID ids.ID, votes uint64, now time.Time) error {
	e := t.entryFor(op)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Kind != chaintypes.SpentPending {
		return &ErrWrongState{OutPoint: op, Want: chaintypes.SpentPending, Got: e.state.Kind}
	}
	if e.state.TxID != txID {
		return &ErrTxIDMismatch{OutPoint: op, Want: e.state.TxID, Got: txID}
	}
	e.state = chaintypes.UTXOState{
		Kind:        chaintypes.SpentFinalized,
		TxID:        txID,
		Votes:       votes,
		FinalizedAt: now.Unix(),
	}
	return t.store.Delete(op)
}

// Confirm transitions op from SpentFinalized to Confirmed once the
// spending transaction has been included in the block at height — the
// terminal state, used to prune tracker bookkeeping. The height comes
// from the committed block's header, never from any earlier snapshot:
// a skipped round means the tx lands in a later block than the one
// scheduled when its vote window opened.
func (t *Tracker) Confirm(op chaintypes.OutPoint, txID ids.ID, height uint64, now time.Time) error {
	e := t.entryFor(op)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Kind != chaintypes.SpentFinalized {
		return &ErrWrongState{OutPoint: op, Want: chaintypes.SpentFinalized, Got: e.state.Kind}
	}
	if e.state.TxID != txID {
		return &ErrTxIDMismatch{OutPoint: op, Want: e.state.TxID, Got: txID}
	}
	e.state = chaintypes.UTXOState{
		Kind:        chaintypes.Confirmed,
		TxID:        txID,
		Votes:       e.state.Votes,
		BlockHeight: height,
		ConfirmedAt: now.Unix(),
	}
	return nil
}

// Unconfirm reverts a Confirmed outpoint back to SpentFinalized, the
// rollback half of a chain rewind: the containing block is being removed
// but the spending transaction itself stays finalized.
func (t *Tracker) Unconfirm(op chaintypes.OutPoint, txID ids.ID) error {
	e := t.entryFor(op)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Kind != chaintypes.Confirmed {
		return &ErrWrongState{OutPoint: op, Want: chaintypes.Confirmed, Got: e.state.Kind}
	}
	if e.state.TxID != txID {
		return &ErrTxIDMismatch{OutPoint: op, Want: e.state.TxID, Got: txID}
	}
	e.state = chaintypes.UTXOState{
		Kind:        chaintypes.SpentFinalized,
		TxID:        txID,
		Votes:       e.state.Votes,
		FinalizedAt: e.state.ConfirmedAt,
	}
	return nil
}

// Release reverts a Locked or SpentPending outpoint back to Unspent,
// used by the reaper on timeout and by finality on vote rejection.
func (t *Tracker) Release(op chaintypes.OutPoint, txID ids.ID) error {
	e := t.entryFor(op)
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state.Kind {
	case chaintypes.Locked, chaintypes.SpentPending:
		if e.state.TxID != txID {
			return &ErrTxIDMismatch{OutPoint: op, Want: e.state.TxID, Got: txID}
		}
		e.state = chaintypes.NewUnspent()
		return nil
	default:
		return &ErrWrongState{OutPoint: op, Want: chaintypes.Locked, Got: e.state.Kind}
	}
}

// Snapshot returns every tracked outpoint currently in the given state,
// used by the reaper's timeout sweep.
func (t *Tracker) Snapshot(kind chaintypes.StateKind) map[chaintypes.OutPoint]chaintypes.UTXOState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[chaintypes.OutPoint]chaintypes.UTXOState)
	for op, e := range t.entries {
		e.mu.Lock()
		if e.state.Kind == kind {
			out[op] = e.state
		}
		e.mu.Unlock()
	}
	return out
}
