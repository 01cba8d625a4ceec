// Package codec implements the deterministic binary encoding every
// canonical hash (txid, block header hash) and every wire message in this
// module is built from.
//
// A hand-rolled fixed-field-order packer, not encoding/gob or protobuf:
// canonical hashing cannot tolerate either format's encoding ambiguity
// (map iteration order, optional-field skipping, varint framing). The
// shape is a Writer/Reader pair over a byte buffer, fixed-width integers
// big-endian, length-prefixed variable-length fields.
package codec

import (
	"encoding/binary"
	"errors"
)

// Version is the single version byte prefixed to every canonically encoded
// payload and wire message.
const Version byte = 1

var (
	ErrShortBuffer   = errors.New("codec: buffer too short")
	ErrTrailingBytes = errors.New("codec: trailing bytes after decode")
	ErrTooLarge      = errors.New("codec: length-prefixed field exceeds limit")
)

// MaxFieldLen bounds any single length-prefixed field, guarding against a
// corrupt or hostile length prefix forcing an enormous allocation.
const MaxFieldLen = 64 << 20 // 64 MiB

// Writer accumulates a canonically ordered byte encoding.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with the version byte already written.
func NewWriter() *Writer {
	w := &Writer{buf: make([]byte, 0, 256)}
	w.buf = append(w.buf, Version)
	return w
}

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) WriteByte(b byte) { w.buf = append(w.buf, b) }

func (w *Writer) WriteBool(b bool) {
	if b {
		w.WriteByte(1)
	} else {
		w.WriteByte(0)
	}
}

func (w *Writer) WriteUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

// WriteFixedBytes appends b verbatim, with no length prefix — used for
// fixed-size fields like 32-byte hashes.
func (w *Writer) WriteFixedBytes(b []byte) { w.buf = append(w.buf, b...) }

// WriteBytes appends a uint32 length prefix followed by b.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteUint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteString writes s as length-prefixed UTF-8 bytes.
func (w *Writer) WriteString(s string) { w.WriteBytes([]byte(s)) }

// Reader walks a canonically ordered byte encoding produced by Writer.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader validates and consumes the leading version byte.
func NewReader(b []byte) (*Reader, error) {
	if len(b) < 1 {
		return nil, ErrShortBuffer
	}
	return &Reader{buf: b, off: 1}, nil
}

func (r *Reader) Err() error { return r.err }

func (r *Reader) setErr(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) ReadByte() byte {
	if r.err != nil || r.off >= len(r.buf) {
		r.setErr(ErrShortBuffer)
		return 0
	}
	b := r.buf[r.off]
	r.off++
	return b
}

func (r *Reader) ReadBool() bool { return r.ReadByte() != 0 }

func (r *Reader) ReadUint32() uint32 {
	if r.err != nil || r.off+4 > len(r.buf) {
		r.setErr(ErrShortBuffer)
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf[r.off : r.off+4])
	r.off += 4
	return v
}

func (r *Reader) ReadUint64() uint64 {
	if r.err != nil || r.off+8 > len(r.buf) {
		r.setErr(ErrShortBuffer)
		return 0
	}
	v := binary.BigEndian.Uint64(r.buf[r.off : r.off+8])
	r.off += 8
	return v
}

func (r *Reader) ReadInt64() int64 { return int64(r.ReadUint64()) }

func (r *Reader) ReadFixedBytes(n int) []byte {
	if r.err != nil || r.off+n > len(r.buf) {
		r.setErr(ErrShortBuffer)
		return nil
	}
	b := make([]byte, n)
	copy(b, r.buf[r.off:r.off+n])
	r.off += n
	return b
}

func (r *Reader) ReadBytes() []byte {
	n := r.ReadUint32()
	if r.err != nil {
		return nil
	}
	if n > MaxFieldLen {
		r.setErr(ErrTooLarge)
		return nil
	}
	return r.ReadFixedBytes(int(n))
}

func (r *Reader) ReadString() string { return string(r.ReadBytes()) }

// Done returns ErrTrailingBytes if unconsumed bytes remain, otherwise the
// first error encountered while reading (if any).
func (r *Reader) Done() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.buf) {
		return ErrTrailingBytes
	}
	return nil
}
