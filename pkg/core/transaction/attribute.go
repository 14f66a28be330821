package transaction

import (
	"errors"

	"github.com/neogo-core/node/pkg/io"
	"github.com/neogo-core/node/pkg/util"
)

// AttrType identifies the kind of an Attribute (spec.md §3 "Attribute
// kinds").
type AttrType byte

const (
	HighPriorityT   AttrType = 0x01
	OracleResponseT AttrType = 0x11
	NotValidBeforeT AttrType = 0x20
	ConflictsT      AttrType = 0x21
)

// OracleResponseCode is the status of an oracle request/response pair.
type OracleResponseCode byte

const (
	OracleSuccess            OracleResponseCode = 0x00
	OracleProtocolNotSupported OracleResponseCode = 0x10
	OracleConsensusUnreachable OracleResponseCode = 0x12
	OracleNotFound            OracleResponseCode = 0x14
	OracleTimeout             OracleResponseCode = 0x16
	OracleForbidden           OracleResponseCode = 0x18
	OracleResponseTooLarge    OracleResponseCode = 0x1a
	OracleInsufficientFunds   OracleResponseCode = 0x1c
	OracleError               OracleResponseCode = 0xff
)

// maxOracleResult is the largest permitted OracleResponse.Result payload.
const maxOracleResult = 0xffff

var (
	errUnknownAttrType  = errors.New("transaction: unknown attribute type")
	errOracleResultSize = errors.New("transaction: oracle response result too large")
)

// Attribute is a transaction attribute. Only one of the typed fields is
// populated, selected by Type (spec.md §3 "Attribute kinds":
// HighPriority | OracleResponse(id, code, result) | Conflicts(hash) |
// NotValidBefore(height)).
type Attribute struct {
	Type AttrType

	// OracleResponseT fields.
	OracleID     uint64
	OracleCode   OracleResponseCode
	OracleResult []byte

	// ConflictsT field.
	ConflictsHash util.Uint256

	// NotValidBeforeT field.
	Height uint32
}

// DecodeBinary implements io.Serializable.
func (a *Attribute) DecodeBinary(br *io.BinReader) {
	a.Type = AttrType(br.ReadB())
	switch a.Type {
	case HighPriorityT:
		// No payload.
	case OracleResponseT:
		a.OracleID = br.ReadU64LE()
		a.OracleCode = OracleResponseCode(br.ReadB())
		a.OracleResult = br.ReadVarBytes()
		if br.Err == nil && len(a.OracleResult) > maxOracleResult {
			br.Err = errOracleResultSize
		}
	case ConflictsT:
		a.ConflictsHash.DecodeBinary(br)
	case NotValidBeforeT:
		a.Height = br.ReadU32LE()
	default:
		br.Err = errUnknownAttrType
	}
}

// EncodeBinary implements io.Serializable.
func (a *Attribute) EncodeBinary(bw *io.BinWriter) {
	bw.WriteB(byte(a.Type))
	switch a.Type {
	case HighPriorityT:
	case OracleResponseT:
		bw.WriteU64LE(a.OracleID)
		bw.WriteB(byte(a.OracleCode))
		bw.WriteVarBytes(a.OracleResult)
	case ConflictsT:
		a.ConflictsHash.EncodeBinary(bw)
	case NotValidBeforeT:
		bw.WriteU32LE(a.Height)
	}
}

// errAttrCount flags a violation of spec.md §3's "at most one
// HighPriority, at most one OracleResponse" invariant.
var errAttrCount = errors.New("transaction: duplicate HighPriority or OracleResponse attribute")

// ValidateAttributes enforces the per-kind count bound.
func ValidateAttributes(attrs []Attribute) error {
	var hp, or int
	for _, a := range attrs {
		switch a.Type {
		case HighPriorityT:
			hp++
		case OracleResponseT:
			or++
		}
	}
	if hp > 1 || or > 1 {
		return errAttrCount
	}
	return nil
}
