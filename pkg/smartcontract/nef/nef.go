// Package nef implements the NEF (Neo Executable Format) contract
// container (spec.md §6 "NEF (contract executable)").
package nef

import (
	"encoding/binary"
	"errors"

	"github.com/neogo-core/node/pkg/crypto/hash"
	"github.com/neogo-core/node/pkg/io"
	"github.com/neogo-core/node/pkg/util"
	"github.com/neogo-core/node/pkg/vm/callflag"
)

// Magic is the fixed 4-byte NEF file tag ("NEF3").
const Magic uint32 = 0x3346454e

// MaxScriptLength bounds the embedded script, mirroring
// transaction.MaxScriptLength since a contract's script is itself a
// transaction-loadable payload.
const MaxScriptLength = 65536

var (
	ErrInvalidMagic    = errors.New("nef: invalid magic")
	ErrInvalidChecksum = errors.New("nef: invalid checksum")
	ErrInvalidScript   = errors.New("nef: empty or oversized script")
)

// MethodToken is a static reference to another contract's method,
// resolved by the CALLT opcode (spec.md §6 "MethodToken").
type MethodToken struct {
	Hash       util.Uint160
	Method     string
	ParamCount uint16
	HasReturn  bool
	CallFlag   callflag.CallFlag
}

// DecodeBinary implements io.Serializable.
func (t *MethodToken) DecodeBinary(br *io.BinReader) {
	t.Hash.DecodeBinary(br)
	t.Method = br.ReadVarString()
	t.ParamCount = br.ReadU16LE()
	t.HasReturn = br.ReadBool()
	t.CallFlag = callflag.CallFlag(br.ReadU32LE())
}

// EncodeBinary implements io.Serializable.
func (t *MethodToken) EncodeBinary(bw *io.BinWriter) {
	t.Hash.EncodeBinary(bw)
	bw.WriteVarString(t.Method)
	bw.WriteU16LE(t.ParamCount)
	bw.WriteBool(t.HasReturn)
	bw.WriteU32LE(uint32(t.CallFlag))
}

// File is a parsed NEF container: compiler metadata, the method-token
// table CALLT resolves against, and the contract's executable script.
type File struct {
	Magic    uint32
	Compiler string
	Source   string
	Tokens   []MethodToken
	Script   []byte
	Checksum uint32
}

// NewFile builds a File around script with a zero-value token table,
// computing its checksum.
func NewFile(script []byte) (*File, error) {
	f := &File{Magic: Magic, Script: script}
	if len(script) == 0 || len(script) > MaxScriptLength {
		return nil, ErrInvalidScript
	}
	f.Checksum = f.CalculateChecksum()
	return f, nil
}

func (f *File) encodeForChecksum(bw *io.BinWriter) {
	bw.WriteU32LE(f.Magic)
	bw.WriteVarString(f.Compiler)
	bw.WriteVarString(f.Source)
	bw.WriteVarUint(uint64(len(f.Tokens)))
	for i := range f.Tokens {
		f.Tokens[i].EncodeBinary(bw)
	}
	bw.WriteVarBytes(f.Script)
}

// CalculateChecksum returns the first 4 little-endian bytes of the
// SHA256 of f's encoding without the trailing checksum field.
func (f *File) CalculateChecksum() uint32 {
	buf := io.NewBufBinWriter()
	f.encodeForChecksum(buf.BinWriter)
	h := hash.Sha256(buf.Bytes())
	return binary.LittleEndian.Uint32(h[:4])
}

// EncodeBinary implements io.Serializable.
func (f *File) EncodeBinary(bw *io.BinWriter) {
	f.encodeForChecksum(bw)
	bw.WriteU32LE(f.Checksum)
}

// DecodeBinary implements io.Serializable, verifying the magic and
// checksum fields.
func (f *File) DecodeBinary(br *io.BinReader) {
	f.Magic = br.ReadU32LE()
	if br.Err == nil && f.Magic != Magic {
		br.Err = ErrInvalidMagic
		return
	}
	f.Compiler = br.ReadVarString()
	f.Source = br.ReadVarString()
	n := br.ReadVarUint()
	if br.Err != nil {
		return
	}
	f.Tokens = make([]MethodToken, n)
	for i := range f.Tokens {
		f.Tokens[i].DecodeBinary(br)
		if br.Err != nil {
			return
		}
	}
	f.Script = br.ReadVarBytes()
	if br.Err != nil {
		return
	}
	if len(f.Script) == 0 || len(f.Script) > MaxScriptLength {
		br.Err = ErrInvalidScript
		return
	}
	f.Checksum = br.ReadU32LE()
	if br.Err != nil {
		return
	}
	if f.Checksum != f.CalculateChecksum() {
		br.Err = ErrInvalidChecksum
	}
}
