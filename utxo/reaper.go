// reaper.go runs the background timeout sweep: a Locked outpoint whose
// owning transaction never reaches a vote window, or a SpentPending
// outpoint whose vote window never reaches quorum before its deadline,
// must release back to Unspent rather than stall forever. A plain ticker
// suffices since only two timeout classes exist.
package utxo

import (
	"context"
	"time"

	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/ids"
)

// ReaperConfig carries the lock and pending timeout durations.
type ReaperConfig struct {
	LockTimeout    time.Duration
	PendingTimeout time.Duration
	SweepInterval  time.Duration
}

// Reaper periodically releases stale Locked/SpentPending outpoints.
type Reaper struct {
	tracker *Tracker
	bus     *Bus // optional; nil disables release notifications
	cfg     ReaperConfig

	// onRelease, if set, is invoked with the owning txid after each
	// successful release, so the mempool can evict the now-lockless
	// transaction.
	onRelease func(op chaintypes.OutPoint, txID ids.ID)
}

func NewReaper(tracker *Tracker, bus *Bus, cfg ReaperConfig) *Reaper {
	return &Reaper{tracker: tracker, bus: bus, cfg: cfg}
}

// OnRelease registers the eviction callback. Must be called before Run.
func (r *Reaper) OnRelease(fn func(op chaintypes.OutPoint, txID ids.ID)) {
	r.onRelease = fn
}

// Run blocks, sweeping every cfg.SweepInterval until ctx is canceled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(time.Now())
		}
	}
}

func (r *Reaper) sweep(now time.Time) {
	for op, st := range r.tracker.Snapshot(chaintypes.Locked) {
		if now.Sub(time.Unix(st.LockedAt, 0)) >= r.cfg.LockTimeout {
			r.release(op, st.TxID)
		}
	}
	for op, st := range r.tracker.Snapshot(chaintypes.SpentPending) {
		if now.Sub(time.Unix(st.SpentAt, 0)) >= r.cfg.PendingTimeout {
			r.release(op, st.TxID)
		}
	}
}

func (r *Reaper) release(op chaintypes.OutPoint, txID ids.ID) {
	if err := r.tracker.Release(op, txID); err != nil {
		return
	}
	if r.bus != nil {
		_ = r.bus.Publish(Event{OutPoint: op, Kind: chaintypes.Unspent, TxID: txID})
	}
	if r.onRelease != nil {
		r.onRelease(op, txID)
	}
}
