// Package finality implements the BFT vote-window lifecycle: Open on
// mempool acceptance, Collect validates and tallies inbound votes,
// Decide finalizes or rejects the instant a quorum threshold is crossed,
// and Timeout rejects anything left undecided past the vote deadline.
// One mutable tally exists per in-flight transaction; vote arrival order
// never affects the outcome.
package finality

import (
	"sort"
	"sync"
	"time"

	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/config"
	"github.com/zenithcoin/zenithd/ids"
	"github.com/zenithcoin/zenithd/mempool"
	"github.com/zenithcoin/zenithd/metrics"
	"github.com/zenithcoin/zenithd/utxo"
	"github.com/zenithcoin/zenithd/xcrypto"
)

// Decision is the outcome of a vote window, once reached.
type Decision int

const (
	Pending Decision = iota
	Finalized
	Rejected
)

type window struct {
	tx           *chaintypes.Transaction
	height       uint64
	weightTotal  uint64
	quorum       uint64
	votesFor     uint64
	votesAgainst uint64
	voters       ids.ShortSet
	started      time.Time
	decision     Decision
}

// Engine runs one vote window per in-flight transaction.
type Engine struct {
	cfg        *config.Config
	store      utxo.Store
	tracker    *utxo.Tracker
	mempool    *mempool.Mempool
	byzantine  *ByzantineTracker
	rateLimit  *RateLimiter
	metrics    *metrics.Registry
	bus        *utxo.Bus // optional; nil disables notifications

	mu       sync.Mutex
	members  *chaintypes.Set
	windows  map[ids.ID]*window
	// outpointApprovals detects a voter approving two different
	// transactions that both spend the same outpoint while both vote
	// windows are live — the "double vote" Byzantine violation, which
	// spans two concurrently open windows rather than one. Entries are
	// pruned as each window decides, so a retry of a timed-out spend
	// never reads as a double vote.
	outpointApprovals map[chaintypes.OutPoint]map[ids.ShortID]ids.ID
	// fees caches each finalized tx's fee (input sum minus output sum),
	// computed at finalization time while the spent inputs are still
	// resolvable — Finalize deletes them from the store immediately, so
	// the block builder can no longer recompute this once a tx is
	// drained from the mempool. Cleared by PopFee.
	fees map[ids.ID]uint64
}

func NewEngine(cfg *config.Config, store utxo.Store, tracker *utxo.Tracker, mp *mempool.Mempool, members *chaintypes.Set, m *metrics.Registry, bus *utxo.Bus) *Engine {
	return &Engine{
		cfg:               cfg,
		store:             store,
		tracker:           tracker,
		mempool:           mp,
		byzantine:         NewByzantineTracker(),
		rateLimit:         NewRateLimiter(cfg.MaxVotesPerPeerPerRound),
		metrics:           m,
		bus:               bus,
		members:           members,
		windows:           make(map[ids.ID]*window),
		outpointApprovals: make(map[chaintypes.OutPoint]map[ids.ShortID]ids.ID),
		fees:              make(map[ids.ID]uint64),
	}
}

// PopFee returns and clears the cached fee for a finalized transaction,
// for the block builder to sum into block.Candidate.TotalFees once it
// drains txID from the mempool.
func (e *Engine) PopFee(txID ids.ID) (uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fee, ok := e.fees[txID]
	if ok {
		delete(e.fees, txID)
	}
	return fee, ok
}

// PendingCount returns the number of vote windows still undecided, for
// the node's status surface.
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, w := range e.windows {
		if w.decision == Pending {
			n++
		}
	}
	return n
}

// Decision returns txID's window outcome, reporting false if no window
// was ever opened (or it has already been garbage-collected).
func (e *Engine) Decision(txID ids.ID) (Decision, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.windows[txID]
	if !ok {
		return Pending, false
	}
	return w.decision, true
}

// SetMembers swaps in a new masternode set snapshot, effective for
// windows opened from this call onward; already-open windows keep the
// weight/quorum they captured at Open and never recompute it
// mid-window.
func (e *Engine) SetMembers(members *chaintypes.Set) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.members = members
}

// Open begins a vote window for tx: locks every input via the tracker,
// then marks them SpentPending, and records the window's fixed W/Q.
func (e *Engine) Open(tx *chaintypes.Transaction, height uint64, now time.Time) error {
	e.mu.Lock()
	members := e.members
	e.mu.Unlock()

	txID := tx.TxID()
	W := members.TotalWeight()
	Q := members.Quorum()

	// Lock a sorted prefix of the inputs so two transactions contending
	// for overlapping outpoints cannot deadlock; on any failure, release
	// what was acquired in reverse order and reject.
	outpoints := make([]chaintypes.OutPoint, len(tx.Inputs))
	for i, in := range tx.Inputs {
		outpoints[i] = in.OutPoint
	}
	sort.Slice(outpoints, func(i, j int) bool { return outpoints[i].Less(outpoints[j]) })

	for i, op := range outpoints {
		if err := e.tracker.Lock(op, txID, now); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = e.tracker.Release(outpoints[j], txID)
			}
			return err
		}
	}
	for i, op := range outpoints {
		if err := e.tracker.MarkPending(op, txID, W, now); err != nil {
			for j := i; j < len(outpoints); j++ {
				_ = e.tracker.Release(outpoints[j], txID)
			}
			for j := i - 1; j >= 0; j-- {
				_ = e.tracker.Release(outpoints[j], txID)
			}
			return err
		}
	}

	e.mu.Lock()
	e.windows[txID] = &window{
		tx:          tx,
		height:      height,
		weightTotal: W,
		quorum:      Q,
		voters:      ids.NewShortSet(members.Len()),
		started:     now,
	}
	e.mu.Unlock()
	return nil
}

// Vote validates and tallies an inbound vote, returning the window's
// decision if this vote just reached one (Pending otherwise).
func (e *Engine) Vote(v *chaintypes.Vote, now time.Time) (Decision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, ok := e.windows[v.TxID]
	if !ok {
		return Pending, &ErrUnknownWindow{TxID: v.TxID}
	}
	if w.decision != Pending {
		return w.decision, &ErrWindowClosed{TxID: v.TxID}
	}

	mn, ok := e.members.Get(v.Voter)
	if !ok {
		return Pending, &ErrUnknownVoter{Voter: v.Voter}
	}
	if e.byzantine.Excluded(v.Voter) {
		return Pending, &ErrExcluded{Voter: v.Voter}
	}
	if w.voters.Contains(v.Voter) {
		return Pending, &ErrDoubleVote{TxID: v.TxID, Voter: v.Voter}
	}
	if !e.rateLimit.Allow(w.height, v.Voter) {
		return Pending, &ErrRateLimited{Voter: v.Voter}
	}
	pub, err := xcrypto.PublicKeyFromBytes(mn.PublicKey)
	if err != nil || !pub.Verify(v.SigHash(), v.Signature) {
		e.byzantine.Record(v.Voter, ViolationInvalidProposal)
		return Pending, &ErrBadSignature{TxID: v.TxID, Voter: v.Voter}
	}

	if v.Approve {
		e.checkCrossWindowDoubleVote(v.Voter, w.tx)
	}

	w.voters.Add(v.Voter)
	if v.Approve {
		w.votesFor += mn.Weight()
	} else {
		w.votesAgainst += mn.Weight()
	}
	if e.metrics != nil {
		decision := "reject"
		if v.Approve {
			decision = "approve"
		}
		e.metrics.VotesReceived.WithLabelValues(decision).Inc()
	}

	return e.decideLocked(w, v.TxID, now)
}

// checkCrossWindowDoubleVote records a Severe Byzantine violation if
// voter has already approved a different transaction spending one of
// tx's inputs in another window that is still Pending. Approvals from
// windows that have since decided don't count: a voter re-approving a
// retry of a timed-out spend is honest behavior, not a double vote —
// only concurrently live conflicting approvals are.
func (e *Engine) checkCrossWindowDoubleVote(voter ids.ShortID, tx *chaintypes.Transaction) {
	txID := tx.TxID()
	for _, in := range tx.Inputs {
		byVoter, ok := e.outpointApprovals[in.OutPoint]
		if !ok {
			byVoter = make(map[ids.ShortID]ids.ID)
			e.outpointApprovals[in.OutPoint] = byVoter
		}
		if prior, voted := byVoter[voter]; voted && prior != txID {
			if pw, open := e.windows[prior]; open && pw.decision == Pending {
				e.byzantine.Record(voter, ViolationDoubleVote)
			}
		}
		byVoter[voter] = txID
	}
}

// pruneApprovalsLocked drops the closed window's approval records from
// outpointApprovals so a later retry on the same outpoints is never
// mistaken for a double vote. Caller must hold e.mu.
func (e *Engine) pruneApprovalsLocked(tx *chaintypes.Transaction, txID ids.ID) {
	for _, in := range tx.Inputs {
		byVoter, ok := e.outpointApprovals[in.OutPoint]
		if !ok {
			continue
		}
		for voter, approved := range byVoter {
			if approved == txID {
				delete(byVoter, voter)
			}
		}
		if len(byVoter) == 0 {
			delete(e.outpointApprovals, in.OutPoint)
		}
	}
}

// decideLocked checks whether w has crossed a decision threshold and, if
// so, finalizes or rejects it. Caller must hold e.mu.
func (e *Engine) decideLocked(w *window, txID ids.ID, now time.Time) (Decision, error) {
	switch {
	case w.votesFor >= w.quorum:
		w.decision = Finalized
		e.finalizeLocked(w, txID, now)
	case w.votesAgainst > w.weightTotal-w.quorum:
		w.decision = Rejected
		e.rejectLocked(w, txID)
	}
	return w.decision, nil
}

func (e *Engine) finalizeLocked(w *window, txID ids.ID, now time.Time) {
	if e.metrics != nil {
		timer := metrics.NewTimer(e.metrics.QuorumLatency)
		defer timer.Stop()
		e.metrics.TxFinalized.Inc()
	}
	// Resolve each spent input's value before Finalize deletes it from
	// the store, so the fee survives past this call.
	var inSum uint64
	haveInSum := e.store != nil
	for _, in := range w.tx.Inputs {
		if haveInSum {
			if u, ok, err := e.store.Get(in.OutPoint); err == nil && ok {
				inSum += u.Value
			} else {
				haveInSum = false
			}
		}
		_ = e.tracker.Finalize(in.OutPoint, txID, w.votesFor, now)
		if e.bus != nil {
			_ = e.bus.Publish(utxo.Event{OutPoint: in.OutPoint, Kind: chaintypes.SpentFinalized, TxID: txID})
		}
	}
	if haveInSum {
		e.fees[txID] = inSum - w.tx.OutputSum()
	}
	// Materialize tx's outputs as new Unspent UTXOs, the other half of
	// finalization; skipping it would leave every spend a dead end.
	for vout, out := range w.tx.Outputs {
		op := chaintypes.OutPoint{TxID: txID, Vout: uint32(vout)}
		u := &chaintypes.UTXO{OutPoint: op, Value: out.Value, ScriptPubKey: out.ScriptPubKey, Address: out.Address}
		if e.store != nil {
			_ = e.store.Put(u)
		}
		e.tracker.Init(op)
		if e.bus != nil {
			_ = e.bus.Publish(utxo.Event{OutPoint: op, Address: out.Address, Kind: chaintypes.Unspent, TxID: txID})
		}
	}
	_ = e.mempool.MarkFinalized(txID, w.height)
	e.pruneApprovalsLocked(w.tx, txID)
}

func (e *Engine) rejectLocked(w *window, txID ids.ID) {
	if e.metrics != nil {
		e.metrics.TxRejected.WithLabelValues("quorum").Inc()
	}
	for _, in := range w.tx.Inputs {
		_ = e.tracker.Release(in.OutPoint, txID)
	}
	_ = e.mempool.Remove(txID)
	e.pruneApprovalsLocked(w.tx, txID)
}

// Timeout rejects every window still Pending after cfg.VoteDeadline,
// returning the rejected txids.
func (e *Engine) Timeout(now time.Time) []ids.ID {
	e.mu.Lock()
	defer e.mu.Unlock()

	var timedOut []ids.ID
	for txID, w := range e.windows {
		if w.decision != Pending {
			continue
		}
		if now.Sub(w.started) < e.cfg.VoteDeadline {
			continue
		}
		w.decision = Rejected
		if e.metrics != nil {
			e.metrics.TxRejected.WithLabelValues("timeout").Inc()
		}
		for _, in := range w.tx.Inputs {
			_ = e.tracker.Release(in.OutPoint, txID)
		}
		_ = e.mempool.Remove(txID)
		e.pruneApprovalsLocked(w.tx, txID)
		timedOut = append(timedOut, txID)
	}
	for _, txID := range timedOut {
		delete(e.windows, txID)
	}
	return timedOut
}
