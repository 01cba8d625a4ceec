// handshake.go exchanges the {genesis_hash, height, protocol_version,
// node_id} tuple on every new connection, and quarantines a peer
// immediately on genesis mismatch.
package peer

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/zenithcoin/zenithd/ids"
)

// handshakeWireLen is the fixed size of the handshake payload: 20-byte
// node id, 32-byte genesis hash, 8-byte height, 4-byte protocol version.
// The handshake predates message framing (it establishes whether framing
// is even worth trusting), so it uses a flat fixed-width encoding rather
// than package wire/codec.
const handshakeWireLen = 20 + 32 + 8 + 4

func encodeHandshake(self Info) []byte {
	b := make([]byte, handshakeWireLen)
	copy(b[0:20], self.NodeID[:])
	copy(b[20:52], self.GenesisHash[:])
	binary.BigEndian.PutUint64(b[52:60], self.Height)
	binary.BigEndian.PutUint32(b[60:64], self.ProtocolVersion)
	return b
}

func decodeHandshake(b []byte) (Info, error) {
	var info Info
	if len(b) != handshakeWireLen {
		return info, fmt.Errorf("peer: short handshake (%d bytes)", len(b))
	}
	copy(info.NodeID[:], b[0:20])
	copy(info.GenesisHash[:], b[20:52])
	info.Height = binary.BigEndian.Uint64(b[52:60])
	info.ProtocolVersion = binary.BigEndian.Uint32(b[60:64])
	return info, nil
}

// ErrGenesisMismatch is returned (and the peer quarantined) when the
// remote's genesis hash does not match ours.
type ErrGenesisMismatch struct {
	Remote ids.ShortID
	Ours   ids.ID
	Theirs ids.ID
}

func (e *ErrGenesisMismatch) Error() string {
	return fmt.Sprintf("peer %s: genesis mismatch (ours %s, theirs %s)", e.Remote, e.Ours, e.Theirs)
}

// Handshake exchanges Info with conn's remote end and validates genesis
// agreement, quarantining the remote node id on mismatch. self.Address
// is not sent (the remote already knows it from the connection).
func Handshake(conn net.Conn, self Info, q *Quarantine) (Info, error) {
	writeErrCh := make(chan error, 1)
	go func() {
		_, err := conn.Write(encodeHandshake(self))
		writeErrCh <- err
	}()

	buf := make([]byte, handshakeWireLen)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return Info{}, fmt.Errorf("peer: handshake read: %w", err)
	}
	if err := <-writeErrCh; err != nil {
		return Info{}, fmt.Errorf("peer: handshake write: %w", err)
	}

	remote, err := decodeHandshake(buf)
	if err != nil {
		return Info{}, err
	}
	if remote.GenesisHash != self.GenesisHash {
		if q != nil {
			q.Add(remote.NodeID, "genesis mismatch")
		}
		return remote, &ErrGenesisMismatch{Remote: remote.NodeID, Ours: self.GenesisHash, Theirs: remote.GenesisHash}
	}
	return remote, nil
}
