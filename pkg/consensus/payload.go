// Package consensus adapts the dBFT state machine (spec.md §4.5) to
// this repository's block/transaction wire types: message framing,
// per-validator signing and the validator-local phase transitions
// (Initial/Primary/Backup/RequestSent/RequestReceived/ResponseSent/
// CommitSent/ViewChanging/BlockSent).
package consensus

import (
	"fmt"

	"github.com/neogo-core/node/pkg/core/transaction"
	"github.com/neogo-core/node/pkg/crypto/hash"
	"github.com/neogo-core/node/pkg/io"
	"github.com/neogo-core/node/pkg/util"
	"github.com/pkg/errors"
)

type messageType byte

const (
	changeViewType      messageType = 0x00
	prepareRequestType  messageType = 0x20
	prepareResponseType messageType = 0x21
	commitType          messageType = 0x30
	recoveryRequestType messageType = 0x40
	recoveryMessageType messageType = 0x41
)

func (t messageType) String() string {
	switch t {
	case changeViewType:
		return "ChangeView"
	case prepareRequestType:
		return "PrepareRequest"
	case prepareResponseType:
		return "PrepareResponse"
	case commitType:
		return "Commit"
	case recoveryRequestType:
		return "RecoveryRequest"
	case recoveryMessageType:
		return "RecoveryMessage"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", byte(t))
	}
}

// message is the payload-type-tagged envelope every consensus Payload
// carries (spec.md §4.5 "Messages": "All carry {block_index,
// validator_index, view_number} plus payload").
type message struct {
	Type       messageType
	ViewNumber byte

	payload io.Serializable
}

// EncodeBinary implements io.Serializable.
func (m *message) EncodeBinary(w *io.BinWriter) {
	w.WriteB(byte(m.Type))
	w.WriteB(m.ViewNumber)
	m.payload.EncodeBinary(w)
}

// DecodeBinary implements io.Serializable.
func (m *message) DecodeBinary(r *io.BinReader) {
	m.Type = messageType(r.ReadB())
	m.ViewNumber = r.ReadB()

	switch m.Type {
	case changeViewType:
		m.payload = new(changeView)
	case prepareRequestType:
		m.payload = new(prepareRequest)
	case prepareResponseType:
		m.payload = new(prepareResponse)
	case commitType:
		m.payload = new(commit)
	case recoveryRequestType:
		m.payload = new(recoveryRequest)
	case recoveryMessageType:
		m.payload = new(recoveryMessage)
	default:
		r.Err = errors.Errorf("consensus: invalid message type 0x%02x", byte(m.Type))
		return
	}
	m.payload.DecodeBinary(r)
}

// Payload is a signed, framed consensus message (spec.md §4.5
// "Messages"): the common envelope fields plus a type-specific body
// and the sending validator's witness.
type Payload struct {
	message

	blockIndex     uint32
	validatorIndex uint16

	Witness transaction.Witness
}

// Type reports the payload's message kind.
func (p *Payload) Type() string { return p.message.Type.String() }

// ViewNumber is the view this payload was produced in.
func (p *Payload) ViewNumber() byte { return p.message.ViewNumber }

// SetViewNumber sets the view this payload was produced in.
func (p *Payload) SetViewNumber(v byte) { p.message.ViewNumber = v }

// BlockIndex is the chain height this round is producing.
func (p *Payload) BlockIndex() uint32 { return p.blockIndex }

// SetBlockIndex sets the chain height this round is producing.
func (p *Payload) SetBlockIndex(h uint32) { p.blockIndex = h }

// ValidatorIndex is the sender's index into the active validator list.
func (p *Payload) ValidatorIndex() uint16 { return p.validatorIndex }

// SetValidatorIndex sets the sender's index into the active validator list.
func (p *Payload) SetValidatorIndex(i uint16) { p.validatorIndex = i }

// GetChangeView returns the payload body as a ChangeView message; it
// panics if the payload does not carry one.
func (p *Payload) GetChangeView() *changeView { return p.payload.(*changeView) }

// GetPrepareRequest returns the payload body as a PrepareRequest
// message; it panics if the payload does not carry one.
func (p *Payload) GetPrepareRequest() *prepareRequest { return p.payload.(*prepareRequest) }

// GetPrepareResponse returns the payload body as a PrepareResponse
// message; it panics if the payload does not carry one.
func (p *Payload) GetPrepareResponse() *prepareResponse { return p.payload.(*prepareResponse) }

// GetCommit returns the payload body as a Commit message; it panics if
// the payload does not carry one.
func (p *Payload) GetCommit() *commit { return p.payload.(*commit) }

// GetRecoveryMessage returns the payload body as a RecoveryMessage; it
// panics if the payload does not carry one.
func (p *Payload) GetRecoveryMessage() *recoveryMessage { return p.payload.(*recoveryMessage) }

// EncodeBinaryUnsigned writes the payload without its trailing witness,
// the exact bytes that get hashed and signed.
func (p *Payload) EncodeBinaryUnsigned(w *io.BinWriter) {
	w.WriteU32LE(p.blockIndex)
	w.WriteU16LE(p.validatorIndex)

	ww := io.NewBufBinWriter()
	p.message.EncodeBinary(ww.BinWriter)
	w.WriteVarBytes(ww.Bytes())
}

// DecodeBinaryUnsigned reads the payload without its trailing witness.
func (p *Payload) DecodeBinaryUnsigned(r *io.BinReader) {
	p.blockIndex = r.ReadU32LE()
	p.validatorIndex = r.ReadU16LE()

	data := r.ReadVarBytes()
	if r.Err != nil {
		return
	}
	rr := io.NewBinReaderFromBuf(data)
	p.message.DecodeBinary(rr)
	r.Err = rr.Err
}

// EncodeBinary implements io.Serializable.
func (p *Payload) EncodeBinary(w *io.BinWriter) {
	p.EncodeBinaryUnsigned(w)
	w.WriteVarUint(1)
	p.Witness.EncodeBinary(w)
}

// DecodeBinary implements io.Serializable.
func (p *Payload) DecodeBinary(r *io.BinReader) {
	p.DecodeBinaryUnsigned(r)
	if r.Err != nil {
		return
	}
	n := r.ReadVarUint()
	if r.Err == nil && n != 1 {
		r.Err = errors.New("consensus: payload must carry exactly one witness")
		return
	}
	p.Witness.DecodeBinary(r)
}

// MarshalUnsigned returns the bytes that get hashed and signed.
func (p *Payload) MarshalUnsigned() []byte {
	w := io.NewBufBinWriter()
	p.EncodeBinaryUnsigned(w.BinWriter)
	return w.Bytes()
}

// Hash is the double-SHA256 of the payload's unsigned encoding, the
// value every validator's witness signs over.
func (p *Payload) Hash() util.Uint256 {
	return hash.DoubleSha256(p.MarshalUnsigned())
}

// Sign signs the payload with priv and fills in its witness.
func (p *Payload) Sign(priv *privateKey) {
	sig, err := priv.Sign(p.Hash().BytesBE())
	if err != nil {
		return
	}
	p.Witness.InvocationScript = append([]byte{0x0c, byte(len(sig))}, sig...)
	p.Witness.VerificationScript = priv.PublicKey().GetVerificationScript()
}

// Verify checks the payload's witness against the claimed sender.
func (p *Payload) Verify(sender *publicKey) bool {
	sig, ok := parsePushedBytes(p.Witness.InvocationScript)
	if !ok {
		return false
	}
	return sender.Verify(p.Hash().BytesBE(), sig) == nil
}

// parsePushedBytes extracts the single PUSHDATA1-wrapped byte string a
// one-signature invocation script carries.
func parsePushedBytes(script []byte) ([]byte, bool) {
	if len(script) < 2 || script[0] != 0x0c {
		return nil, false
	}
	n := int(script[1])
	if len(script) != 2+n {
		return nil, false
	}
	return script[2:], true
}
