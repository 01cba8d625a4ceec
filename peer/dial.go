// dial.go defines the Dialer/Listener/Upgrader seams the persistent
// connection pool is built against, so unit tests can stand in fake
// dialers and listeners without binding a socket. The production
// implementations here are raw net.Conn over TCP; Upgrader is the seam a
// future TLS layer would occupy, currently a no-op passthrough.
package peer

import (
	"net"

	"github.com/hashicorp/go-uuid"
	"golang.org/x/net/netutil"
)

// Dialer opens outbound connections to a peer address.
type Dialer interface {
	Dial(address string) (net.Conn, error)
}

// Listener accepts inbound connections.
type Listener interface {
	Accept() (net.Conn, error)
	Close() error
	Addr() net.Addr
}

// Upgrader post-processes a freshly accepted/dialed net.Conn before the
// handshake runs (e.g. TLS). NoopUpgrader is the default.
type Upgrader interface {
	Upgrade(net.Conn) (net.Conn, error)
}

// TCPDialer dials plain TCP, applying the configured keep-alive/nodelay
// tuning before handing the connection back.
type TCPDialer struct {
	TCPConfig
}

func (d TCPDialer) Dial(address string) (net.Conn, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, err
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = configureTCPConn(tcpConn, d.TCPConfig)
	}
	return conn, nil
}

// TCPListener wraps net.Listen("tcp", ...), bounding concurrently open
// inbound connections with golang.org/x/net/netutil.LimitListener: an
// accepted connection holds its slot until it is closed, whether it is
// still handshaking or already in the pool.
type TCPListener struct {
	net.Listener
}

// ListenTCP binds addr and wraps the listener with a cap of maxPending
// simultaneously open inbound connections.
func ListenTCP(addr string, maxPending int) (*TCPListener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &TCPListener{Listener: netutil.LimitListener(l, maxPending)}, nil
}

// NoopUpgrader performs no transformation; the seam where a TLS upgrader
// would plug in.
type NoopUpgrader struct{}

func (NoopUpgrader) Upgrade(conn net.Conn) (net.Conn, error) { return conn, nil }

// newSessionID mints the per-connection correlation id, used only for
// structured-log correlation, never for protocol semantics.
func newSessionID() string {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return ""
	}
	return id
}
