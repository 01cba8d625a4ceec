// Package peer implements the unified connection pool: one record per
// connected masternode, a reaper that expires stale entries, a
// keep-alive loop holding every TCP connection open, and a broadcast
// primitive used by both the finality engine's vote fan-out and the
// block consensus protocol's hash exchange.
package peer

import (
	"net"
	"sync"
	"time"

	"github.com/zenithcoin/zenithd/ids"
)

// Info is the identity a peer presents at handshake time.
type Info struct {
	NodeID          ids.ShortID
	Address         string
	GenesisHash     ids.ID
	Height          uint64
	ProtocolVersion uint32
}

// Record is the single unified record the pool holds per connected peer.
// Fields mutated after connection (LastSeen, HealthScore, Height) are
// guarded by the pool's single RWLock and updated in place — not by a
// per-record mutex, to keep reads of the whole pool (broadcast, reaper
// sweep) consistent under one lock acquisition.
type Record struct {
	Conn        net.Conn
	Info        Info
	SessionID   string // hashicorp/go-uuid, log correlation only
	LastSeen    time.Time
	HealthScore int // [0,100]
	ConnectedAt time.Time

	writeMu sync.Mutex // serializes concurrent Frame writes on one Conn
}

// Write serializes concurrent senders (broadcast fan-out, keep-alive,
// request/response) onto the single underlying net.Conn.
func (r *Record) Write(b []byte) (int, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.Conn.Write(b)
}
