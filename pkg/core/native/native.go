// Package native hosts the node's built-in contracts: NEO/GAS token
// accounting, network policy parameters, and contract management
// (spec.md §4.2 "Native contracts"). Only the integration surface the
// rest of the node calls through is implemented here; full token
// economics and governance logic are out of scope (spec.md's
// "content of every native contract's method table" is an explicit
// non-goal).
package native

import (
	"github.com/neogo-core/node/pkg/core/dao"
	"github.com/neogo-core/node/pkg/core/state"
	"github.com/neogo-core/node/pkg/core/storage"
	"github.com/neogo-core/node/pkg/crypto/hash"
	"github.com/neogo-core/node/pkg/io"
	"github.com/neogo-core/node/pkg/util"
)

// DefaultStoragePrice is the GAS fractions charged per byte stored via
// System.Storage.Put when a contract hasn't overridden it (spec.md
// §4.2's storage-fee accounting, mirroring the engine's cpu/storage
// fee split).
const DefaultStoragePrice int64 = 100000

func contractStateKey(hash util.Uint160) []byte {
	return append([]byte{byte(storage.STContract)}, hash.Bytes()...)
}

// PutContractState persists cs's full record (NEF, manifest, id),
// keyed by its script hash.
func PutContractState(d *dao.Simple, cs *state.Contract) error {
	return d.Put(cs, contractStateKey(cs.Hash))
}

// GetContractState fetches the contract record deployed at hash.
func GetContractState(d *dao.Simple, h util.Uint160) (*state.Contract, error) {
	cs := &state.Contract{}
	if err := d.GetAndDecode(cs, contractStateKey(h)); err != nil {
		return nil, err
	}
	return cs, nil
}

// nativeHash derives a stable deployment hash for a built-in contract
// from its name alone (native contracts have no deployer/NEF, unlike
// state.CreateContractHash's deployed-contract derivation).
func nativeHash(name string) util.Uint160 {
	buf := io.NewBufBinWriter()
	buf.WriteVarString(name)
	return hash.Hash160(buf.Bytes())
}
