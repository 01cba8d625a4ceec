package peer

import "time"

// TCPConfig carries the exact keep-alive tuning applied to every peer
// connection (30s idle / 30s interval / 3 probes); configureTCPConn
// applies it together with TCP_NODELAY, neither of which
// net.TCPConn.SetKeepAlive alone can express (it only exposes on/off
// and, on some platforms, a single period).
type TCPConfig struct {
	KeepaliveIdle     time.Duration
	KeepaliveInterval time.Duration
	KeepaliveProbes   int
}
