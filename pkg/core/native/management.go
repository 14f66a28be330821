package native

import (
	"encoding/binary"
	"errors"

	"github.com/neogo-core/node/pkg/core/interop"
	"github.com/neogo-core/node/pkg/core/state"
	"github.com/neogo-core/node/pkg/io"
	"github.com/neogo-core/node/pkg/smartcontract/manifest"
	"github.com/neogo-core/node/pkg/smartcontract/nef"
	"github.com/neogo-core/node/pkg/util"
	"github.com/neogo-core/node/pkg/vm/callflag"
	"github.com/neogo-core/node/pkg/vm/stackitem"
)

var keyNextID = []byte{15}

// ErrAlreadyDeployed is returned by Deploy when a contract is already
// registered at the derived hash.
var ErrAlreadyDeployed = errors.New("native/management: contract already deployed")

// ErrNotDeployed is returned by Update/Destroy when no contract is
// registered at the given hash.
var ErrNotDeployed = errors.New("native/management: contract not deployed")

// Management is the native ContractManagement contract: it assigns
// the stable numeric ids deployed contracts are addressed by
// internally and is the only writer of contract state records
// (spec.md §4.2 "Each native contract declares: fixed contract_hash,
// stable numeric id ..."; here extended to user-deployed contracts
// too, since both share the same state.Contract record).
type Management struct {
	*Contract
}

func newManagement() *Management {
	m := &Management{Contract: &Contract{
		Hash: nativeHash("ContractManagement"),
		ID:   ManagementID,
		Name: "ContractManagement",
	}}
	m.Methods = []interop.Function{
		{ID: methodID(m.Name, "deploy"), Name: "deploy", Func: m.deployMethod, Price: 0, RequiredFlags: callflag.WriteStates, ParamCount: 2},
		{ID: methodID(m.Name, "getContract"), Name: "getContract", Func: m.getContractMethod, Price: 1 << 15, RequiredFlags: callflag.ReadStates, ParamCount: 1},
	}
	return m
}

func (m *Management) nextID(ic *interop.Context) (int32, error) {
	si := ic.DAO.GetStorageItem(ManagementID, keyNextID)
	var id int32 = 1
	if si != nil {
		id = int32(binary.LittleEndian.Uint32(si)) + 1
	}
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(id))
	if err := ic.DAO.PutStorageItem(ManagementID, keyNextID, state.StorageItem(b)); err != nil {
		return 0, err
	}
	return id, nil
}

// Deploy registers a new contract deployed by sender with the given
// NEF/manifest, assigning it the next sequential contract id (spec.md
// §4.2's native registration convention applied to user deployment).
func (m *Management) Deploy(ic *interop.Context, sender util.Uint160, ne *nef.File, manif *manifest.Manifest) (*state.Contract, error) {
	h := state.CreateContractHash(sender, ne.Script)
	if _, err := GetContractState(ic.DAO, h); err == nil {
		return nil, ErrAlreadyDeployed
	}
	id, err := m.nextID(ic)
	if err != nil {
		return nil, err
	}
	cs := &state.Contract{
		ContractBase: state.ContractBase{
			ID:       id,
			Hash:     h,
			NEF:      *ne,
			Manifest: *manif,
		},
	}
	if err := PutContractState(ic.DAO, cs); err != nil {
		return nil, err
	}
	return cs, nil
}

// Update replaces the NEF/manifest of the contract deployed at h,
// bumping its update counter.
func (m *Management) Update(ic *interop.Context, h util.Uint160, ne *nef.File, manif *manifest.Manifest) (*state.Contract, error) {
	cs, err := GetContractState(ic.DAO, h)
	if err != nil {
		return nil, ErrNotDeployed
	}
	cs.NEF = *ne
	cs.Manifest = *manif
	cs.UpdateCounter++
	if err := PutContractState(ic.DAO, cs); err != nil {
		return nil, err
	}
	return cs, nil
}

// Destroy removes the contract deployed at h along with its storage.
func (m *Management) Destroy(ic *interop.Context, h util.Uint160) error {
	cs, err := GetContractState(ic.DAO, h)
	if err != nil {
		return ErrNotDeployed
	}
	ic.DAO.Seek(cs.ID, nil, false, func(k []byte, _ state.StorageItem) bool {
		_ = ic.DAO.DeleteStorageItem(cs.ID, k)
		return true
	})
	return ic.DAO.Delete(contractStateKey(h))
}

func (m *Management) deployMethod(ic *interop.Context) error {
	nefBytes, err := ic.VM.Estack().Pop().TryBytes()
	if err != nil {
		return err
	}
	manifBytes, err := ic.VM.Estack().Pop().TryBytes()
	if err != nil {
		return err
	}
	ne := &nef.File{}
	nefReader := io.NewBinReaderFromBuf(nefBytes)
	ne.DecodeBinary(nefReader)
	if nefReader.Err != nil {
		return nefReader.Err
	}
	manif := &manifest.Manifest{}
	manifReader := io.NewBinReaderFromBuf(manifBytes)
	manif.DecodeBinary(manifReader)
	if manifReader.Err != nil {
		return manifReader.Err
	}
	sender := ic.VM.Context().ScriptHash()
	cs, err := m.Deploy(ic, sender, ne, manif)
	if err != nil {
		return err
	}
	bs, err := stackitem.NewByteString(cs.Hash.BytesBE())
	if err != nil {
		return err
	}
	ic.VM.Estack().Push(bs)
	return nil
}

func (m *Management) getContractMethod(ic *interop.Context) error {
	h, err := popUint160(ic)
	if err != nil {
		return err
	}
	cs, err := GetContractState(ic.DAO, h)
	if err != nil {
		ic.VM.Estack().Push(stackitem.NewNull())
		return nil
	}
	bs, err := stackitem.NewByteString(cs.Hash.BytesBE())
	if err != nil {
		return err
	}
	ic.VM.Estack().Push(bs)
	return nil
}
