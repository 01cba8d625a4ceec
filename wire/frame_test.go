package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/ids"
)

func TestFrameRoundTripPing(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, &Ping{Nonce: 42}))

	msg, err := ReadFrame(&buf, 10<<20)
	require.NoError(t, err)
	ping, ok := msg.(*Ping)
	require.True(t, ok)
	assert.Equal(t, uint64(42), ping.Nonce)
}

func TestFrameRoundTripBlockRequest(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, &BlockRequest{Height: 5}))

	msg, err := ReadFrame(&buf, 10<<20)
	require.NoError(t, err)
	req, ok := msg.(*BlockRequest)
	require.True(t, ok)
	assert.Equal(t, uint64(5), req.Height)
}

func TestFrameRoundTripVoteRequest(t *testing.T) {
	var buf bytes.Buffer
	var txID ids.ID
	txID[0] = 0xaa
	require.NoError(t, WriteFrame(&buf, &VoteRequest{TxID: txID}))

	msg, err := ReadFrame(&buf, 10<<20)
	require.NoError(t, err)
	req, ok := msg.(*VoteRequest)
	require.True(t, ok)
	assert.Equal(t, txID, req.TxID)
}

func TestFrameRejectsOversized(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, &Ping{Nonce: 1}))

	_, err := ReadFrame(&buf, 1)
	require.Error(t, err)
	var oversized *ErrOversizedMessage
	assert.ErrorAs(t, err, &oversized)
}

func TestUtxoStateChangeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	var op chaintypes.OutPoint
	op.TxID[0] = 7
	op.Vout = 2
	require.NoError(t, WriteFrame(&buf, &UtxoStateChange{
		OutPoint: op,
		Old:      chaintypes.Locked,
		New:      chaintypes.SpentPending,
	}))

	msg, err := ReadFrame(&buf, 10<<20)
	require.NoError(t, err)
	sc, ok := msg.(*UtxoStateChange)
	require.True(t, ok)
	assert.Equal(t, op, sc.OutPoint)
	assert.Equal(t, chaintypes.Locked, sc.Old)
	assert.Equal(t, chaintypes.SpentPending, sc.New)
}
