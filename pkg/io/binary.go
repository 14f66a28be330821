// Package io implements the fixed-width and varint binary encoding used
// by every wire/storage codec in this repository (spec.md §6).
package io

import (
	"encoding/binary"
	"errors"
	"io"
)

// Serializable is implemented by every type with a fixed binary wire
// encoding (blocks, transactions, signers, witnesses, ...).
type Serializable interface {
	EncodeBinary(w *BinWriter)
	DecodeBinary(r *BinReader)
}

// ErrVarBytesTooLarge is returned when a varint-prefixed byte/array
// length exceeds the configured maximum.
var ErrVarBytesTooLarge = errors.New("varbytes length exceeds maximum")

// MaxVarBytesLength bounds varint-prefixed reads against hostile
// oversize length prefixes.
const MaxVarBytesLength = 0x4000000

// BinReader reads fixed-width little-endian and Neo-style varint values
// from an underlying io.Reader, latching the first error encountered so
// call sites don't need to check after every read.
type BinReader struct {
	r   io.Reader
	Err error
}

// NewBinReaderFromBuf creates a BinReader over an in-memory buffer.
func NewBinReaderFromBuf(b []byte) *BinReader {
	return NewBinReaderFromIO(&sliceReader{b: b})
}

// NewBinReaderFromIO creates a BinReader wrapping an arbitrary io.Reader.
func NewBinReaderFromIO(ior io.Reader) *BinReader {
	return &BinReader{r: ior}
}

type sliceReader struct {
	b   []byte
	pos int
}

func (s *sliceReader) Read(p []byte) (int, error) {
	if s.pos >= len(s.b) {
		return 0, io.EOF
	}
	n := copy(p, s.b[s.pos:])
	s.pos += n
	return n, nil
}

func (r *BinReader) readBytes(p []byte) {
	if r.Err != nil {
		return
	}
	_, r.Err = io.ReadFull(r.r, p)
}

// ReadB reads a single byte.
func (r *BinReader) ReadB() byte {
	var b [1]byte
	r.readBytes(b[:])
	return b[0]
}

// ReadBool reads a single byte as a boolean.
func (r *BinReader) ReadBool() bool {
	return r.ReadB() != 0
}

// ReadU16LE reads a little-endian uint16.
func (r *BinReader) ReadU16LE() uint16 {
	var b [2]byte
	r.readBytes(b[:])
	return binary.LittleEndian.Uint16(b[:])
}

// ReadU32LE reads a little-endian uint32.
func (r *BinReader) ReadU32LE() uint32 {
	var b [4]byte
	r.readBytes(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

// ReadU64LE reads a little-endian uint64.
func (r *BinReader) ReadU64LE() uint64 {
	var b [8]byte
	r.readBytes(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

// ReadI64LE reads a little-endian int64.
func (r *BinReader) ReadI64LE() int64 {
	return int64(r.ReadU64LE())
}

// ReadBytes reads len(p) raw bytes into p.
func (r *BinReader) ReadBytes(p []byte) {
	r.readBytes(p)
}

// ReadVarUint reads a Neo-style compact (varint) unsigned integer:
// <0xFD: literal byte; 0xFD: u16 follows; 0xFE: u32 follows; 0xFF: u64
// follows.
func (r *BinReader) ReadVarUint() uint64 {
	b := r.ReadB()
	switch b {
	case 0xFD:
		return uint64(r.ReadU16LE())
	case 0xFE:
		return uint64(r.ReadU32LE())
	case 0xFF:
		return r.ReadU64LE()
	default:
		return uint64(b)
	}
}

// ReadVarBytes reads a varint-length-prefixed byte slice.
func (r *BinReader) ReadVarBytes() []byte {
	n := r.ReadVarUint()
	if r.Err != nil {
		return nil
	}
	if n > MaxVarBytesLength {
		r.Err = ErrVarBytesTooLarge
		return nil
	}
	b := make([]byte, n)
	r.readBytes(b)
	return b
}

// ReadVarString reads a varint-length-prefixed UTF-8 string.
func (r *BinReader) ReadVarString() string {
	return string(r.ReadVarBytes())
}

// ReadArray decodes a varint-counted array of Serializable elements
// into the slice pointed to by arr, which must be a *[]T where T
// implements Serializable (by value or via a settable pointer element).
func ReadArray[T any, PT interface {
	*T
	Serializable
}](r *BinReader, maxLen ...int) []T {
	n := r.ReadVarUint()
	if r.Err != nil {
		return nil
	}
	limit := uint64(MaxVarBytesLength)
	if len(maxLen) > 0 {
		limit = uint64(maxLen[0])
	}
	if n > limit {
		r.Err = ErrVarBytesTooLarge
		return nil
	}
	out := make([]T, n)
	for i := range out {
		PT(&out[i]).DecodeBinary(r)
		if r.Err != nil {
			return nil
		}
	}
	return out
}

// BinWriter writes fixed-width little-endian and Neo-style varint
// values, latching the first error encountered.
type BinWriter struct {
	w   io.Writer
	Err error
}

// NewBinWriterFromIO creates a BinWriter wrapping an arbitrary io.Writer.
func NewBinWriterFromIO(iow io.Writer) *BinWriter {
	return &BinWriter{w: iow}
}

func (w *BinWriter) writeBytes(p []byte) {
	if w.Err != nil {
		return
	}
	_, w.Err = w.w.Write(p)
}

// WriteB writes a single byte.
func (w *BinWriter) WriteB(b byte) {
	w.writeBytes([]byte{b})
}

// WriteBool writes a boolean as a single byte.
func (w *BinWriter) WriteBool(b bool) {
	if b {
		w.WriteB(1)
	} else {
		w.WriteB(0)
	}
}

// WriteU16LE writes a little-endian uint16.
func (w *BinWriter) WriteU16LE(u uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], u)
	w.writeBytes(b[:])
}

// WriteU32LE writes a little-endian uint32.
func (w *BinWriter) WriteU32LE(u uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], u)
	w.writeBytes(b[:])
}

// WriteU64LE writes a little-endian uint64.
func (w *BinWriter) WriteU64LE(u uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], u)
	w.writeBytes(b[:])
}

// WriteI64LE writes a little-endian int64.
func (w *BinWriter) WriteI64LE(i int64) {
	w.WriteU64LE(uint64(i))
}

// WriteBytes writes raw bytes verbatim (no length prefix).
func (w *BinWriter) WriteBytes(p []byte) {
	w.writeBytes(p)
}

// WriteVarUint writes u in Neo's compact varint encoding.
func (w *BinWriter) WriteVarUint(u uint64) {
	switch {
	case u < 0xFD:
		w.WriteB(byte(u))
	case u <= 0xFFFF:
		w.WriteB(0xFD)
		w.WriteU16LE(uint16(u))
	case u <= 0xFFFFFFFF:
		w.WriteB(0xFE)
		w.WriteU32LE(uint32(u))
	default:
		w.WriteB(0xFF)
		w.WriteU64LE(u)
	}
}

// WriteVarBytes writes a varint-length-prefixed byte slice.
func (w *BinWriter) WriteVarBytes(p []byte) {
	w.WriteVarUint(uint64(len(p)))
	w.writeBytes(p)
}

// WriteVarString writes a varint-length-prefixed UTF-8 string.
func (w *BinWriter) WriteVarString(s string) {
	w.WriteVarBytes([]byte(s))
}

// WriteArray encodes a varint-counted array of Serializable elements.
func WriteArray[T Serializable](w *BinWriter, arr []T) {
	w.WriteVarUint(uint64(len(arr)))
	for _, item := range arr {
		item.EncodeBinary(w)
		if w.Err != nil {
			return
		}
	}
}

// GetVarSize returns the number of bytes s would occupy when encoded.
func GetVarSize(s Serializable) int {
	buf := NewBufBinWriter()
	s.EncodeBinary(buf.BinWriter)
	return len(buf.Bytes())
}

// GetVarUintSize returns the number of bytes n would occupy when encoded
// as a Neo-style compact varint, e.g. for sizing a collection's
// length prefix without encoding the collection itself.
func GetVarUintSize(n int) int {
	switch {
	case n < 0xFD:
		return 1
	case n <= 0xFFFF:
		return 3
	case n <= 0xFFFFFFFF:
		return 5
	default:
		return 9
	}
}
