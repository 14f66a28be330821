package state

import (
	"github.com/neogo-core/node/pkg/crypto/hash"
	"github.com/neogo-core/node/pkg/io"
	"github.com/neogo-core/node/pkg/smartcontract/manifest"
	"github.com/neogo-core/node/pkg/smartcontract/nef"
	"github.com/neogo-core/node/pkg/util"
)

// ContractBase is the part of a contract record shared between
// deployed (on-chain, user) contracts and native contracts.
type ContractBase struct {
	ID       int32
	Hash     util.Uint160
	NEF      nef.File
	Manifest manifest.Manifest
}

// Contract is a deployed (non-native) contract's full persisted record.
type Contract struct {
	ContractBase
	UpdateCounter uint16
}

// DecodeBinary implements io.Serializable.
func (c *Contract) DecodeBinary(br *io.BinReader) {
	c.ID = int32(br.ReadU32LE())
	c.UpdateCounter = br.ReadU16LE()
	c.Hash.DecodeBinary(br)
	c.NEF.DecodeBinary(br)
	c.Manifest.DecodeBinary(br)
}

// EncodeBinary implements io.Serializable.
func (c *Contract) EncodeBinary(bw *io.BinWriter) {
	bw.WriteU32LE(uint32(c.ID))
	bw.WriteU16LE(c.UpdateCounter)
	c.Hash.EncodeBinary(bw)
	c.NEF.EncodeBinary(bw)
	c.Manifest.EncodeBinary(bw)
}

// CreateContractHash derives a contract's deployment-address hash from
// its deployer and script, matching spec.md §3's account-derivation
// convention applied to contract deployment.
func CreateContractHash(sender util.Uint160, script []byte) util.Uint160 {
	buf := io.NewBufBinWriter()
	buf.WriteB(0)
	sender.EncodeBinary(buf.BinWriter)
	buf.WriteU32LE(0)
	buf.WriteVarBytes(script)
	return hash.Hash160(buf.Bytes())
}
