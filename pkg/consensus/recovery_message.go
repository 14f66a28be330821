package consensus

import (
	"github.com/neogo-core/node/pkg/io"
)

// recoveryMessage is the dBFT RecoveryMessage body: the evidence a
// validator holds for the current round, replayed by a recovering
// peer in order (change-views, then prepare-request, then
// prepare-responses, then commits — spec.md §4.5 "Recovery").
type recoveryMessage struct {
	changeViewPayloads  []*changeViewCompact
	prepareRequest      *message
	preparationPayloads []*preparationCompact
	commitPayloads      []*commitCompact
}

type changeViewCompact struct {
	ValidatorIndex     uint16
	OriginalViewNumber byte
	Timestamp          uint64
	InvocationScript   []byte
}

// EncodeBinary implements io.Serializable.
func (p *changeViewCompact) EncodeBinary(w *io.BinWriter) {
	w.WriteU16LE(p.ValidatorIndex)
	w.WriteB(p.OriginalViewNumber)
	w.WriteU64LE(p.Timestamp)
	w.WriteVarBytes(p.InvocationScript)
}

// DecodeBinary implements io.Serializable.
func (p *changeViewCompact) DecodeBinary(r *io.BinReader) {
	p.ValidatorIndex = r.ReadU16LE()
	p.OriginalViewNumber = r.ReadB()
	p.Timestamp = r.ReadU64LE()
	p.InvocationScript = r.ReadVarBytes()
}

type preparationCompact struct {
	ValidatorIndex   uint16
	InvocationScript []byte
}

// EncodeBinary implements io.Serializable.
func (p *preparationCompact) EncodeBinary(w *io.BinWriter) {
	w.WriteU16LE(p.ValidatorIndex)
	w.WriteVarBytes(p.InvocationScript)
}

// DecodeBinary implements io.Serializable.
func (p *preparationCompact) DecodeBinary(r *io.BinReader) {
	p.ValidatorIndex = r.ReadU16LE()
	p.InvocationScript = r.ReadVarBytes()
}

type commitCompact struct {
	ViewNumber       byte
	ValidatorIndex   uint16
	Signature        [signatureSize]byte
	InvocationScript []byte
}

// EncodeBinary implements io.Serializable.
func (p *commitCompact) EncodeBinary(w *io.BinWriter) {
	w.WriteB(p.ViewNumber)
	w.WriteU16LE(p.ValidatorIndex)
	w.WriteBytes(p.Signature[:])
	w.WriteVarBytes(p.InvocationScript)
}

// DecodeBinary implements io.Serializable.
func (p *commitCompact) DecodeBinary(r *io.BinReader) {
	p.ViewNumber = r.ReadB()
	p.ValidatorIndex = r.ReadU16LE()
	r.ReadBytes(p.Signature[:])
	p.InvocationScript = r.ReadVarBytes()
}

// EncodeBinary implements io.Serializable.
func (m *recoveryMessage) EncodeBinary(w *io.BinWriter) {
	w.WriteVarUint(uint64(len(m.changeViewPayloads)))
	for _, cv := range m.changeViewPayloads {
		cv.EncodeBinary(w)
	}

	hasReq := m.prepareRequest != nil
	w.WriteBool(hasReq)
	if hasReq {
		m.prepareRequest.EncodeBinary(w)
	}

	w.WriteVarUint(uint64(len(m.preparationPayloads)))
	for _, p := range m.preparationPayloads {
		p.EncodeBinary(w)
	}
	w.WriteVarUint(uint64(len(m.commitPayloads)))
	for _, c := range m.commitPayloads {
		c.EncodeBinary(w)
	}
}

// DecodeBinary implements io.Serializable.
func (m *recoveryMessage) DecodeBinary(r *io.BinReader) {
	n := r.ReadVarUint()
	if r.Err != nil {
		return
	}
	m.changeViewPayloads = make([]*changeViewCompact, n)
	for i := range m.changeViewPayloads {
		cv := new(changeViewCompact)
		cv.DecodeBinary(r)
		m.changeViewPayloads[i] = cv
	}

	if r.ReadBool() {
		m.prepareRequest = new(message)
		m.prepareRequest.DecodeBinary(r)
	}
	if r.Err != nil {
		return
	}

	n = r.ReadVarUint()
	if r.Err != nil {
		return
	}
	m.preparationPayloads = make([]*preparationCompact, n)
	for i := range m.preparationPayloads {
		p := new(preparationCompact)
		p.DecodeBinary(r)
		m.preparationPayloads[i] = p
	}

	n = r.ReadVarUint()
	if r.Err != nil {
		return
	}
	m.commitPayloads = make([]*commitCompact, n)
	for i := range m.commitPayloads {
		c := new(commitCompact)
		c.DecodeBinary(r)
		m.commitPayloads[i] = c
	}
}
