package io

import "bytes"

// BufBinWriter is a BinWriter that writes into an in-memory buffer,
// convenient for one-shot hash/size computations.
type BufBinWriter struct {
	*BinWriter
	buf *bytes.Buffer
}

// NewBufBinWriter creates a BufBinWriter backed by a fresh buffer.
func NewBufBinWriter() *BufBinWriter {
	b := new(bytes.Buffer)
	return &BufBinWriter{
		BinWriter: NewBinWriterFromIO(b),
		buf:       b,
	}
}

// Bytes returns the accumulated buffer contents. It does not reset the
// writer's error state.
func (w *BufBinWriter) Bytes() []byte {
	if w.Err != nil {
		return nil
	}
	b := w.buf.Bytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Reset clears the buffer and error state for reuse.
func (w *BufBinWriter) Reset() {
	w.Err = nil
	w.buf.Reset()
}
