// broadcast.go implements the send-to-all primitive: clone the
// connection handle set under the pool's read lock, then fan out sends
// in parallel with a per-destination timeout, so one slow or dead peer
// never delays delivery to the rest.
package peer

import (
	"sync"
	"time"

	"github.com/zenithcoin/zenithd/ids"
	"github.com/zenithcoin/zenithd/wire"
)

// SendResult is one destination's outcome from a Broadcast call.
type SendResult struct {
	NodeID ids.ShortID
	Err    error
}

// Broadcast fans msg out to every peer currently in the pool, each send
// bounded by timeout. Cancellation or failure of one destination never
// affects another send in the same broadcast.
func (p *Pool) Broadcast(msg interface{}, timeout time.Duration) []SendResult {
	return p.sendTo(p.List(), msg, timeout)
}

// SendTo fans msg out to exactly the listed recipients (used by the node
// for replies and requests addressed to one peer: Pong, Vote,
// BlockRequest, BlockResponse and GenesisResponse).
func (p *Pool) SendTo(recipients []ids.ShortID, msg interface{}, timeout time.Duration) []SendResult {
	recs := make([]*Record, 0, len(recipients))
	for _, id := range recipients {
		if rec, ok := p.Get(id); ok {
			recs = append(recs, rec)
		}
	}
	return p.sendTo(recs, msg, timeout)
}

func (p *Pool) sendTo(recs []*Record, msg interface{}, timeout time.Duration) []SendResult {
	results := make([]SendResult, len(recs))
	var wg sync.WaitGroup
	wg.Add(len(recs))
	for i, rec := range recs {
		i, rec := i, rec
		go func() {
			defer wg.Done()
			results[i] = SendResult{NodeID: rec.Info.NodeID, Err: sendWithDeadline(rec, msg, timeout)}
		}()
	}
	wg.Wait()
	return results
}

func sendWithDeadline(rec *Record, msg interface{}, timeout time.Duration) error {
	if timeout > 0 {
		if conn, ok := rec.Conn.(interface{ SetWriteDeadline(time.Time) error }); ok {
			_ = conn.SetWriteDeadline(time.Now().Add(timeout))
		}
	}
	typ, body, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	frame := make([]byte, 0, 5+len(body))
	var lenBuf [4]byte
	putUint32(lenBuf[:], uint32(1+len(body)))
	frame = append(frame, lenBuf[:]...)
	frame = append(frame, byte(typ))
	frame = append(frame, body...)
	_, err = rec.Write(frame)
	return err
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
