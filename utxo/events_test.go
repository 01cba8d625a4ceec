package utxo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/ids"
)

func TestEventEncodeDecodeRoundTrip(t *testing.T) {
	var txID, outTxID ids.ID
	txID[0] = 0x11
	outTxID[0] = 0x22

	ev := Event{
		OutPoint: chaintypes.OutPoint{TxID: outTxID, Vout: 7},
		Address:  "zenith1abc",
		Kind:     chaintypes.SpentFinalized,
		TxID:     txID,
	}

	b := encodeEvent(ev)
	got, ok := decodeEvent(b)
	require.True(t, ok)
	assert.Equal(t, ev.Address, got.Address)
	assert.Equal(t, ev.Kind, got.Kind)
	assert.Equal(t, ev.TxID, got.TxID)
	assert.Equal(t, ev.OutPoint, got.OutPoint)
}

func TestBusPublishSubscribe(t *testing.T) {
	bus, err := NewBus()
	require.NoError(t, err)
	defer bus.Close()

	sub, err := Subscribe("zenith1target")
	require.NoError(t, err)
	defer sub.Close()

	// give the SUB socket's dial a moment to connect before publishing.
	time.Sleep(50 * time.Millisecond)

	var txID ids.ID
	txID[0] = 5
	ev := Event{Address: "zenith1target", Kind: chaintypes.Locked, TxID: txID}
	require.NoError(t, bus.Publish(ev))

	select {
	case got := <-sub.Events():
		assert.Equal(t, ev.Address, got.Address)
		assert.Equal(t, ev.Kind, got.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}
