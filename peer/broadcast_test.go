package peer

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenithcoin/zenithd/ids"
	"github.com/zenithcoin/zenithd/wire"
)

func readOnePing(t *testing.T, conn net.Conn) *wire.Ping {
	t.Helper()
	msg, err := wire.ReadFrame(conn, 1<<20)
	require.NoError(t, err)
	ping, ok := msg.(*wire.Ping)
	require.True(t, ok, "expected *wire.Ping, got %T", msg)
	return ping
}

func TestBroadcastDeliversToEveryPeer(t *testing.T) {
	p := NewPool(nil)
	rec1, srv1 := newPipeRecord(t, 1, 0)
	rec2, srv2 := newPipeRecord(t, 2, 0)
	p.Add(rec1)
	p.Add(rec2)

	type readResult struct {
		ping *wire.Ping
	}
	done := make(chan readResult, 2)
	for _, srv := range []net.Conn{srv1, srv2} {
		srv := srv
		go func() { done <- readResult{ping: readOnePing(t, srv)} }()
	}

	results := p.Broadcast(&wire.Ping{Nonce: 7}, time.Second)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}

	for i := 0; i < 2; i++ {
		select {
		case res := <-done:
			assert.Equal(t, uint64(7), res.ping.Nonce)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for broadcast delivery")
		}
	}
}

func TestSendToOnlyReachesListedRecipients(t *testing.T) {
	p := NewPool(nil)
	rec1, srv1 := newPipeRecord(t, 1, 0)
	rec2, _ := newPipeRecord(t, 2, 0)
	p.Add(rec1)
	p.Add(rec2)

	readDone := make(chan *wire.Ping, 1)
	go func() { readDone <- readOnePing(t, srv1) }()

	results := p.SendTo([]ids.ShortID{rec1.Info.NodeID}, &wire.Ping{Nonce: 1}, time.Second)
	require.Len(t, results, 1)
	assert.Equal(t, rec1.Info.NodeID, results[0].NodeID)

	select {
	case ping := <-readDone:
		assert.Equal(t, uint64(1), ping.Nonce)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}
