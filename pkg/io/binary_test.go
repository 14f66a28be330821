package io

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarUintRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 0xFC, 0xFD, 0xFFFF, 0x10000, 0xFFFFFFFF, 0x100000000} {
		buf := NewBufBinWriter()
		buf.WriteVarUint(v)
		require.NoError(t, buf.Err)

		r := NewBinReaderFromBuf(buf.Bytes())
		got := r.ReadVarUint()
		require.NoError(t, r.Err)
		assert.Equal(t, v, got)
	}
}

func TestVarBytesRoundTrip(t *testing.T) {
	data := []byte("hello neo")
	buf := NewBufBinWriter()
	buf.WriteVarBytes(data)

	r := NewBinReaderFromBuf(buf.Bytes())
	got := r.ReadVarBytes()
	require.NoError(t, r.Err)
	assert.Equal(t, data, got)
}

func TestFixedWidthRoundTrip(t *testing.T) {
	buf := NewBufBinWriter()
	buf.WriteU32LE(123456)
	buf.WriteU64LE(9999999999)
	buf.WriteI64LE(-42)

	r := NewBinReaderFromBuf(buf.Bytes())
	assert.Equal(t, uint32(123456), r.ReadU32LE())
	assert.Equal(t, uint64(9999999999), r.ReadU64LE())
	assert.Equal(t, int64(-42), r.ReadI64LE())
	require.NoError(t, r.Err)
}

func TestOversizeVarBytesRejected(t *testing.T) {
	buf := NewBufBinWriter()
	buf.WriteVarUint(MaxVarBytesLength + 1)

	r := NewBinReaderFromBuf(buf.Bytes())
	r.ReadVarBytes()
	assert.ErrorIs(t, r.Err, ErrVarBytesTooLarge)
}
