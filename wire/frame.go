package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrUnknownMessage is returned for a Type byte Decode doesn't recognize.
var ErrUnknownMessage = errors.New("wire: unknown message type")

// ErrOversizedMessage is returned when a frame's declared length exceeds
// the configured maximum message size.
type ErrOversizedMessage struct {
	Declared, Max uint32
}

func (e *ErrOversizedMessage) Error() string {
	return fmt.Sprintf("wire: frame of %d bytes exceeds max %d", e.Declared, e.Max)
}

// WriteFrame encodes msg and writes it to w as: 4-byte big-endian length
// prefix (covering everything that follows) | 1-byte Type tag | body.
// The body itself is version-prefixed by package codec.
func WriteFrame(w io.Writer, msg interface{}) error {
	typ, body, err := Encode(msg)
	if err != nil {
		return err
	}
	frame := make([]byte, 4+1+len(body))
	binary.BigEndian.PutUint32(frame[:4], uint32(1+len(body)))
	frame[4] = byte(typ)
	copy(frame[5:], body)
	_, err = w.Write(frame)
	return err
}

// ReadFrame reads one length-prefixed frame from r, enforcing maxBytes,
// and returns its decoded message.
func ReadFrame(r io.Reader, maxBytes uint32) (interface{}, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	declared := binary.BigEndian.Uint32(lenBuf[:])
	if declared == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	if declared > maxBytes {
		return nil, &ErrOversizedMessage{Declared: declared, Max: maxBytes}
	}
	payload := make([]byte, declared)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return Decode(Type(payload[0]), payload[1:])
}
