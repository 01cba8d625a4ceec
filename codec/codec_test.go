package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteByte(0x7f)
	w.WriteBool(true)
	w.WriteUint32(0xdeadbeef)
	w.WriteUint64(1 << 40)
	w.WriteInt64(-42)
	w.WriteFixedBytes([]byte{1, 2, 3, 4})
	w.WriteBytes([]byte("variable"))
	w.WriteString("hello")

	r, err := NewReader(w.Bytes())
	require.NoError(t, err)

	assert.Equal(t, byte(0x7f), r.ReadByte())
	assert.True(t, r.ReadBool())
	assert.Equal(t, uint32(0xdeadbeef), r.ReadUint32())
	assert.Equal(t, uint64(1<<40), r.ReadUint64())
	assert.Equal(t, int64(-42), r.ReadInt64())
	assert.Equal(t, []byte{1, 2, 3, 4}, r.ReadFixedBytes(4))
	assert.Equal(t, []byte("variable"), r.ReadBytes())
	assert.Equal(t, "hello", r.ReadString())
	require.NoError(t, r.Done())
}

func TestWriterPrefixesVersion(t *testing.T) {
	w := NewWriter()
	require.NotEmpty(t, w.Bytes())
	assert.Equal(t, Version, w.Bytes()[0])
}

func TestReaderRejectsTrailingBytes(t *testing.T) {
	w := NewWriter()
	w.WriteUint32(7)
	w.WriteByte(0xff) // one byte the reader never consumes

	r, err := NewReader(w.Bytes())
	require.NoError(t, err)
	_ = r.ReadUint32()
	assert.ErrorIs(t, r.Done(), ErrTrailingBytes)
}

func TestReaderShortBuffer(t *testing.T) {
	w := NewWriter()
	w.WriteByte(1)

	r, err := NewReader(w.Bytes())
	require.NoError(t, err)
	_ = r.ReadUint64() // asks for more than remains
	assert.ErrorIs(t, r.Err(), ErrShortBuffer)
}

func TestReaderRejectsOversizedLengthPrefix(t *testing.T) {
	w := NewWriter()
	w.WriteUint32(MaxFieldLen + 1) // hostile length prefix with no body

	r, err := NewReader(w.Bytes())
	require.NoError(t, err)
	_ = r.ReadBytes()
	require.Error(t, r.Err())
}

func TestDeterministicEncoding(t *testing.T) {
	encode := func() []byte {
		w := NewWriter()
		w.WriteUint64(99)
		w.WriteString("same")
		return w.Bytes()
	}
	assert.Equal(t, encode(), encode())
}
