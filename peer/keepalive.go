// keepalive.go implements the application-level keep-alive: a Ping sent
// to every connected peer at a fixed interval, layered
// above the TCP-level keep-alive tcpopts_unix.go configures, so a peer
// that stops answering at the protocol level is caught even if its TCP
// stack still ACKs.
package peer

import (
	"context"
	"time"

	"github.com/zenithcoin/zenithd/wire"
)

// KeepAlive periodically broadcasts Ping to the pool until its context is
// canceled. Pong replies are handled by the caller's message loop, which
// should call Pool.Touch/UpdateHealth on receipt.
type KeepAlive struct {
	pool     *Pool
	interval time.Duration
	timeout  time.Duration
}

func NewKeepAlive(pool *Pool, interval, timeout time.Duration) *KeepAlive {
	return &KeepAlive{pool: pool, interval: interval, timeout: timeout}
}

// Run blocks, sending a Ping round every interval until ctx is canceled.
func (k *KeepAlive) Run(ctx context.Context) {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()
	var nonce uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			nonce++
			k.pool.Broadcast(&wire.Ping{Nonce: nonce}, k.timeout)
		}
	}
}
