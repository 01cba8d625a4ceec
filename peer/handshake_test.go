package peer

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenithcoin/zenithd/ids"
)

func testInfo(nodeByte, genesisByte byte, height uint64) Info {
	var info Info
	info.NodeID[0] = nodeByte
	info.GenesisHash[0] = genesisByte
	info.Height = height
	info.ProtocolVersion = 1
	return info
}

func TestHandshakeEncodeDecodeRoundTrip(t *testing.T) {
	want := testInfo(7, 9, 42)
	got, err := decodeHandshake(encodeHandshake(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeHandshakeRejectsShortPayload(t *testing.T) {
	_, err := decodeHandshake([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestHandshakeMatchingGenesis(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	alice := testInfo(1, 5, 10)
	bob := testInfo(2, 5, 20)

	type result struct {
		remote Info
		err    error
	}
	done := make(chan result, 1)
	go func() {
		remote, err := Handshake(b, bob, nil)
		done <- result{remote, err}
	}()

	remote, err := Handshake(a, alice, nil)
	require.NoError(t, err)
	assert.Equal(t, bob.NodeID, remote.NodeID)
	assert.Equal(t, uint64(20), remote.Height)

	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, alice.NodeID, r.remote.NodeID)
}

func TestHandshakeGenesisMismatchQuarantines(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	alice := testInfo(1, 5, 10)
	eve := testInfo(3, 6, 99) // different genesis

	q := NewQuarantine()
	done := make(chan error, 1)
	go func() {
		_, err := Handshake(b, eve, nil)
		done <- err
	}()

	_, err := Handshake(a, alice, q)
	require.Error(t, err)
	var mismatch *ErrGenesisMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, eve.NodeID, mismatch.Remote)
	assert.True(t, q.Contains(eve.NodeID))

	<-done
}

func TestQuarantineReason(t *testing.T) {
	q := NewQuarantine()
	var id ids.ShortID
	id[0] = 4

	assert.False(t, q.Contains(id))
	q.Add(id, "genesis mismatch")
	assert.True(t, q.Contains(id))
	reason, ok := q.Reason(id)
	require.True(t, ok)
	assert.Equal(t, "genesis mismatch", reason)
}
