package transaction

import (
	"errors"

	"github.com/neogo-core/node/pkg/crypto/hash"
	"github.com/neogo-core/node/pkg/io"
	"github.com/neogo-core/node/pkg/util"
)

// MaxScriptLength and MaxTransactionSize bound a Transaction's script and
// total wire size (spec.md §3 "Invariants").
const (
	MaxScriptLength    = 65536
	MaxTransactionSize = 102400
	MaxSignersCount    = 16
	MaxAttributesCount = 16
)

var (
	ErrInvalidVersion   = errors.New("transaction: invalid version")
	ErrNegativeFee      = errors.New("transaction: system_fee or network_fee is negative")
	ErrTooLarge         = errors.New("transaction: exceeds maximum size")
	ErrWitnessMismatch  = errors.New("transaction: witness count does not match signer count")
	ErrNoSigners        = errors.New("transaction: at least one signer is required")
	ErrScriptLen        = errors.New("transaction: empty or oversized script")
)

// Transaction is a Neo N3 transaction (spec.md §3 "Transaction").
type Transaction struct {
	Version         byte
	Nonce           uint32
	SystemFee       int64
	NetworkFee      int64
	ValidUntilBlock uint32
	Signers         []Signer
	Attributes      []Attribute
	Script          []byte
	Witnesses       []Witness

	hash      util.Uint256
	hashValid bool
	size      int
}

// NewTrimmedTX creates a Transaction stub carrying only its hash, for use
// as a placeholder until the full body is fetched from storage (mirrors
// the teacher's block-trimming convention for transactions referenced by
// a trimmed block).
func NewTrimmedTX(h util.Uint256) *Transaction {
	return &Transaction{hash: h, hashValid: true}
}

// Hash returns the double-SHA256 of the unsigned encoding, caching the
// result on first computation.
func (t *Transaction) Hash() util.Uint256 {
	if !t.hashValid {
		buf := io.NewBufBinWriter()
		t.encodeHashableFields(buf.BinWriter)
		t.hash = hash.DoubleSha256(buf.Bytes())
		t.hashValid = true
	}
	return t.hash
}

// Size returns the cached encoded size in bytes, computed on first call.
func (t *Transaction) Size() int {
	if t.size == 0 {
		buf := io.NewBufBinWriter()
		t.EncodeBinary(buf.BinWriter)
		t.size = len(buf.Bytes())
	}
	return t.size
}

// Sender returns the fee-paying account, by convention the first signer
// (spec.md §3).
func (t *Transaction) Sender() util.Uint160 {
	if len(t.Signers) == 0 {
		return util.Uint160{}
	}
	return t.Signers[0].Account
}

func (t *Transaction) encodeHashableFields(bw *io.BinWriter) {
	bw.WriteB(t.Version)
	bw.WriteU32LE(t.Nonce)
	bw.WriteI64LE(t.SystemFee)
	bw.WriteI64LE(t.NetworkFee)
	bw.WriteU32LE(t.ValidUntilBlock)
	bw.WriteVarUint(uint64(len(t.Signers)))
	for i := range t.Signers {
		t.Signers[i].EncodeBinary(bw)
	}
	bw.WriteVarUint(uint64(len(t.Attributes)))
	for i := range t.Attributes {
		t.Attributes[i].EncodeBinary(bw)
	}
	bw.WriteVarBytes(t.Script)
}

// EncodeBinary implements io.Serializable, writing the full signed wire
// form: the unsigned fields followed by the witness list (spec.md §6
// "Transaction wire format").
func (t *Transaction) EncodeBinary(bw *io.BinWriter) {
	t.encodeHashableFields(bw)
	bw.WriteVarUint(uint64(len(t.Witnesses)))
	for i := range t.Witnesses {
		t.Witnesses[i].EncodeBinary(bw)
	}
}

// DecodeBinary implements io.Serializable.
func (t *Transaction) DecodeBinary(br *io.BinReader) {
	t.Version = br.ReadB()
	t.Nonce = br.ReadU32LE()
	t.SystemFee = br.ReadI64LE()
	t.NetworkFee = br.ReadI64LE()
	t.ValidUntilBlock = br.ReadU32LE()

	nSigners := br.ReadVarUint()
	if br.Err != nil {
		return
	}
	if nSigners == 0 || nSigners > MaxSignersCount {
		br.Err = ErrNoSigners
		return
	}
	t.Signers = make([]Signer, nSigners)
	for i := range t.Signers {
		t.Signers[i].DecodeBinary(br)
		if br.Err != nil {
			return
		}
	}

	nAttrs := br.ReadVarUint()
	if br.Err != nil {
		return
	}
	if nAttrs > MaxAttributesCount {
		br.Err = ErrTooLarge
		return
	}
	t.Attributes = make([]Attribute, nAttrs)
	for i := range t.Attributes {
		t.Attributes[i].DecodeBinary(br)
		if br.Err != nil {
			return
		}
	}

	t.Script = br.ReadVarBytes()
	if br.Err != nil {
		return
	}
	if len(t.Script) == 0 || len(t.Script) > MaxScriptLength {
		br.Err = ErrScriptLen
		return
	}

	nWit := br.ReadVarUint()
	if br.Err != nil {
		return
	}
	if nWit != nSigners {
		br.Err = ErrWitnessMismatch
		return
	}
	t.Witnesses = make([]Witness, nWit)
	for i := range t.Witnesses {
		t.Witnesses[i].DecodeBinary(br)
		if br.Err != nil {
			return
		}
	}

	t.hashValid = false
}

// Validate enforces the static invariants spec.md §3 lists beyond the
// wire-decode bounds already checked above: non-negative fees, signer
// uniqueness and Global-scope exclusivity, and per-kind attribute caps.
func (t *Transaction) Validate() error {
	if t.SystemFee < 0 || t.NetworkFee < 0 {
		return ErrNegativeFee
	}
	if t.Version != 0 {
		return ErrInvalidVersion
	}
	if err := ValidateSigners(t.Signers); err != nil {
		return err
	}
	if err := ValidateAttributes(t.Attributes); err != nil {
		return err
	}
	if t.Size() > MaxTransactionSize {
		return ErrTooLarge
	}
	return nil
}
