// pool.go holds the single unified peer record set: many readers, an
// occasional writer, one RWMutex, with LastSeen/HealthScore updated in
// place.
package peer

import (
	"sync"
	"time"

	"github.com/zenithcoin/zenithd/ids"
	"github.com/zenithcoin/zenithd/metrics"
)

// Pool is safe for concurrent use.
type Pool struct {
	mu      sync.RWMutex
	members map[ids.ShortID]*Record
	metrics *metrics.Registry
}

func NewPool(m *metrics.Registry) *Pool {
	return &Pool{members: make(map[ids.ShortID]*Record), metrics: m}
}

// Add registers rec, replacing any prior record for the same NodeID (a
// reconnect supersedes the stale handle rather than stacking records).
func (p *Pool) Add(rec *Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if old, ok := p.members[rec.Info.NodeID]; ok {
		_ = old.Conn.Close()
	}
	p.members[rec.Info.NodeID] = rec
	p.updateGaugeLocked()
}

// Remove closes and evicts id's record, if present.
func (p *Pool) Remove(id ids.ShortID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if rec, ok := p.members[id]; ok {
		_ = rec.Conn.Close()
		delete(p.members, id)
		p.updateGaugeLocked()
	}
}

func (p *Pool) updateGaugeLocked() {
	if p.metrics != nil {
		p.metrics.PeerCount.Set(float64(len(p.members)))
	}
}

// Get returns id's record, if connected.
func (p *Pool) Get(id ids.ShortID) (*Record, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.members[id]
	return rec, ok
}

// List returns a snapshot slice of every connected peer's record. The
// caller must not mutate the returned records' Info/LastSeen/HealthScore
// directly; use Touch/UpdateHealth.
func (p *Pool) List() []*Record {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Record, 0, len(p.members))
	for _, rec := range p.members {
		out = append(out, rec)
	}
	return out
}

// Len returns the current peer count.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.members)
}

// Touch updates id's LastSeen to now, used on every inbound message
// (including Pong) to keep the reaper from expiring an active peer.
func (p *Pool) Touch(id ids.ShortID, now time.Time) {
	p.mu.RLock()
	rec, ok := p.members[id]
	p.mu.RUnlock()
	if ok {
		rec.LastSeen = now
	}
}

// UpdateHealth sets id's HealthScore in [0,100].
func (p *Pool) UpdateHealth(id ids.ShortID, score int) {
	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}
	p.mu.RLock()
	rec, ok := p.members[id]
	p.mu.RUnlock()
	if ok {
		rec.HealthScore = score
	}
}

// UpdateHeight records id's last-reported chain height (used by
// chainsync to pick the best peer to sync against).
func (p *Pool) UpdateHeight(id ids.ShortID, height uint64) {
	p.mu.RLock()
	rec, ok := p.members[id]
	p.mu.RUnlock()
	if ok {
		rec.Info.Height = height
	}
}

// BestPeer returns the connected peer reporting the highest height, used
// by chainsync to choose a sync target. Returns false if no peers are
// connected.
func (p *Pool) BestPeer() (*Record, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var best *Record
	for _, rec := range p.members {
		if best == nil || rec.Info.Height > best.Info.Height {
			best = rec
		}
	}
	return best, best != nil
}
