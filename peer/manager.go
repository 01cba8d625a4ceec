// manager.go owns the accept/dial lifecycle around the pool: bind the
// limit-wrapped listener, upgrade and handshake every connection,
// quarantine genesis mismatches, then run a per-connection read loop
// that frames messages off the wire and hands them to the registered
// handler. The manager is transport only — it never interprets message
// semantics, which belong to the node layer.
package peer

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/zenithcoin/zenithd/config"
	"github.com/zenithcoin/zenithd/ids"
	"github.com/zenithcoin/zenithd/logging"
	"github.com/zenithcoin/zenithd/metrics"
	"github.com/zenithcoin/zenithd/wire"
)

// MessageHandler receives every decoded inbound message, tagged with the
// sender's node id. Called from the sender's read goroutine; a slow
// handler backpressures only that one peer.
type MessageHandler func(from ids.ShortID, msg interface{})

// InfoProvider returns this node's current handshake identity. It is a
// function rather than a fixed Info because the advertised height moves
// with the chain tip.
type InfoProvider func() Info

// Manager drives connection setup and teardown for a Pool.
type Manager struct {
	cfg        *config.Config
	log        *logging.Logger
	pool       *Pool
	quarantine *Quarantine
	dialer     Dialer
	upgrader   Upgrader
	handler    MessageHandler
	self       InfoProvider

	listener *TCPListener
}

func NewManager(cfg *config.Config, log *logging.Logger, m *metrics.Registry, self InfoProvider, handler MessageHandler) *Manager {
	return &Manager{
		cfg:        cfg,
		log:        log,
		pool:       NewPool(m),
		quarantine: NewQuarantine(),
		dialer: TCPDialer{TCPConfig: TCPConfig{
			KeepaliveIdle:     cfg.TCPKeepaliveIdle,
			KeepaliveInterval: cfg.TCPKeepaliveInterval,
			KeepaliveProbes:   cfg.TCPKeepaliveProbes,
		}},
		upgrader: NoopUpgrader{},
		handler:  handler,
		self:     self,
	}
}

// Pool exposes the managed pool for broadcast and targeted sends.
func (m *Manager) Pool() *Pool { return m.pool }

// Quarantined reports whether id has been refused at handshake time.
func (m *Manager) Quarantined(id ids.ShortID) bool { return m.quarantine.Contains(id) }

// Listen binds the configured listen address. Must be called before
// Serve.
func (m *Manager) Listen() error {
	l, err := ListenTCP(m.cfg.ListenAddr, m.cfg.MaxPeers)
	if err != nil {
		return err
	}
	m.listener = l
	m.log.Info("listening", "addr", l.Addr().String())
	return nil
}

// ListenPort returns the bound TCP port, for NAT mapping.
func (m *Manager) ListenPort() (uint16, bool) {
	if m.listener == nil {
		return 0, false
	}
	addr, ok := m.listener.Addr().(*net.TCPAddr)
	if !ok {
		return 0, false
	}
	return uint16(addr.Port), true
}

// Serve accepts inbound connections until ctx is canceled. Each accepted
// connection handshakes and, on success, joins the pool with its own
// read goroutine. Also starts the best-effort NAT mapping loop for the
// bound port.
func (m *Manager) Serve(ctx context.Context) error {
	if m.listener == nil {
		return errors.New("peer: Serve called before Listen")
	}
	if port, ok := m.ListenPort(); ok {
		go MaintainMapping(ctx, m.log, port)
	}
	go func() {
		<-ctx.Done()
		_ = m.listener.Close()
	}()

	for {
		conn, err := m.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			m.log.Warn("accept failed", "err", err)
			continue
		}
		go m.setup(ctx, conn)
	}
}

// Connect dials address, handshakes, and adds the peer to the pool.
func (m *Manager) Connect(ctx context.Context, address string) error {
	conn, err := m.dialer.Dial(address)
	if err != nil {
		return err
	}
	m.setup(ctx, conn)
	return nil
}

// setup runs the upgrade + handshake path shared by inbound and outbound
// connections, then hands the surviving connection to the read loop.
func (m *Manager) setup(ctx context.Context, conn net.Conn) {
	upgraded, err := m.upgrader.Upgrade(conn)
	if err != nil {
		m.log.Warn("connection upgrade failed", "remote", conn.RemoteAddr().String(), "err", err)
		_ = conn.Close()
		return
	}

	_ = upgraded.SetDeadline(time.Now().Add(m.cfg.BroadcastTimeout * 10))
	remote, err := Handshake(upgraded, m.self(), m.quarantine)
	_ = upgraded.SetDeadline(time.Time{})
	if err != nil {
		m.log.Warn("handshake failed", "remote", conn.RemoteAddr().String(), "err", err)
		_ = upgraded.Close()
		return
	}
	if m.quarantine.Contains(remote.NodeID) {
		reason, _ := m.quarantine.Reason(remote.NodeID)
		m.log.Warn("refusing quarantined peer", "peer", remote.NodeID, "reason", reason)
		_ = upgraded.Close()
		return
	}

	now := time.Now()
	rec := &Record{
		Conn:        upgraded,
		Info:        remote,
		SessionID:   newSessionID(),
		LastSeen:    now,
		HealthScore: 100,
		ConnectedAt: now,
	}
	rec.Info.Address = hostOf(conn.RemoteAddr().String())
	m.pool.Add(rec)
	m.log.Info("peer connected",
		"peer", remote.NodeID, "addr", rec.Info.Address,
		"height", remote.Height, "session", rec.SessionID)

	go m.readLoop(ctx, rec)
}

// readLoop frames messages off rec's connection until it fails or ctx is
// canceled, touching LastSeen on every message and dispatching each to
// the handler.
func (m *Manager) readLoop(ctx context.Context, rec *Record) {
	defer m.pool.Remove(rec.Info.NodeID)
	for {
		if ctx.Err() != nil {
			return
		}
		msg, err := wire.ReadFrame(rec.Conn, uint32(m.cfg.MaxMessageBytes))
		if err != nil {
			if ctx.Err() == nil {
				m.log.Debug("peer read failed",
					"peer", rec.Info.NodeID, "session", rec.SessionID, "err", err)
			}
			return
		}
		m.pool.Touch(rec.Info.NodeID, time.Now())
		if m.handler != nil {
			m.handler(rec.Info.NodeID, msg)
		}
	}
}

func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
