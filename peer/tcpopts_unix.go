//go:build !windows

// tcpopts_unix.go sets the raw socket options — TCP_NODELAY and the
// exact (idle, interval, probe-count) keep-alive triple — that
// net.TCPConn's portable API cannot express.
package peer

import (
	"net"

	"golang.org/x/sys/unix"
)

func configureTCPConn(conn *net.TCPConn, cfg TCPConfig) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
		if sockErr != nil {
			return
		}
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
		if sockErr != nil {
			return
		}
		idle := int(cfg.KeepaliveIdle.Seconds())
		interval := int(cfg.KeepaliveInterval.Seconds())
		sockErr = setKeepaliveOpts(int(fd), idle, interval, cfg.KeepaliveProbes)
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return sockErr
}
