// reaper.go implements the periodic O(n) pool scan: any peer whose
// LastSeen exceeds the idle timeout is removed in a single pass per
// cycle.
package peer

import (
	"context"
	"time"
)

// Reaper periodically evicts idle peers from a Pool.
type Reaper struct {
	pool         *Pool
	idleTimeout  time.Duration
	sweepPeriod  time.Duration
}

func NewReaper(pool *Pool, idleTimeout, sweepPeriod time.Duration) *Reaper {
	return &Reaper{pool: pool, idleTimeout: idleTimeout, sweepPeriod: sweepPeriod}
}

// Run blocks, sweeping every sweepPeriod until ctx is canceled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.sweepPeriod)
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

// sweep performs the single O(n) scan.
func (r *Reaper) sweep(now time.Time) {
	for _, rec := range r.pool.List() {
		if now.Sub(rec.LastSeen) > r.idleTimeout {
			r.pool.Remove(rec.Info.NodeID)
		}
	}
}
