package consensus

import "github.com/neogo-core/node/pkg/io"

// recoveryRequest is the dBFT RecoveryRequest message body, sent by a
// validator that joined late or missed messages (spec.md §4.5
// "Recovery").
type recoveryRequest struct {
	Timestamp uint64
}

// EncodeBinary implements io.Serializable.
func (m *recoveryRequest) EncodeBinary(w *io.BinWriter) {
	w.WriteU64LE(m.Timestamp)
}

// DecodeBinary implements io.Serializable.
func (m *recoveryRequest) DecodeBinary(r *io.BinReader) {
	m.Timestamp = r.ReadU64LE()
}
