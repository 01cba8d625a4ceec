// ratelimit.go implements the per-voter, per-round vote cap, reset at
// each new voting round (here, each block height).
package finality

import (
	"sync"

	"github.com/zenithcoin/zenithd/ids"
)

// RateLimiter tracks how many votes each voter has cast in the current
// round and rejects any past the configured cap.
type RateLimiter struct {
	mu    sync.Mutex
	limit int
	round uint64
	count map[ids.ShortID]int
}

func NewRateLimiter(limit int) *RateLimiter {
	return &RateLimiter{limit: limit, count: make(map[ids.ShortID]int)}
}

// Allow reports whether voter may cast another vote in round, consuming
// one unit of its allowance if so. Advancing to a new round resets
// every voter's count.
func (r *RateLimiter) Allow(round uint64, voter ids.ShortID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if round != r.round {
		r.round = round
		r.count = make(map[ids.ShortID]int)
	}
	if r.count[voter] >= r.limit {
		return false
	}
	r.count[voter]++
	return true
}
