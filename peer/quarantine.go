// quarantine.go tracks peers excluded from the pool for protocol-level
// reasons (genesis mismatch) rather than Byzantine vote misbehavior —
// that ladder lives in package finality. Quarantine here is immediate
// and permanent for the life of the process: a peer whose genesis hash
// differs from ours is never spoken to again.
package peer

import (
	"sync"

	"github.com/zenithcoin/zenithd/ids"
)

// Quarantine is a durable-for-this-run set of node ids refused at
// handshake time.
type Quarantine struct {
	mu      sync.RWMutex
	reasons map[ids.ShortID]string
}

func NewQuarantine() *Quarantine {
	return &Quarantine{reasons: make(map[ids.ShortID]string)}
}

func (q *Quarantine) Add(id ids.ShortID, reason string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reasons[id] = reason
}

func (q *Quarantine) Contains(id ids.ShortID) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	_, ok := q.reasons[id]
	return ok
}

func (q *Quarantine) Reason(id ids.ShortID) (string, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	r, ok := q.reasons[id]
	return r, ok
}
