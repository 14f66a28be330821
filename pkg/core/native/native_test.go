package native

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/neogo-core/node/pkg/config"
	"github.com/neogo-core/node/pkg/core/dao"
	"github.com/neogo-core/node/pkg/core/interop"
	"github.com/neogo-core/node/pkg/core/state"
	"github.com/neogo-core/node/pkg/core/storage"
	"github.com/neogo-core/node/pkg/crypto/keys"
	"github.com/neogo-core/node/pkg/smartcontract/manifest"
	"github.com/neogo-core/node/pkg/smartcontract/nef"
	"github.com/neogo-core/node/pkg/util"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) *interop.Context {
	d := dao.NewSimple(storage.NewMemoryStore(), false, false)
	return &interop.Context{DAO: d}
}

func TestManagementDeployUpdateDestroy(t *testing.T) {
	mgmt := newManagement()
	ic := newTestContext(t)

	script := []byte{0x40} // RET
	ne, err := nef.NewFile(script)
	require.NoError(t, err)
	manif := manifest.NewManifest("Dummy")
	sender := util.Uint160{1, 2, 3}

	cs, err := mgmt.Deploy(ic, sender, ne, manif)
	require.NoError(t, err)
	require.Equal(t, int32(1), cs.ID)
	require.Equal(t, uint16(0), cs.UpdateCounter)

	_, err = mgmt.Deploy(ic, sender, ne, manif)
	require.ErrorIs(t, err, ErrAlreadyDeployed)

	sender2 := util.Uint160{3, 2, 1}
	cs2, err := mgmt.Deploy(ic, sender2, ne, manif)
	require.NoError(t, err)
	require.Equal(t, int32(2), cs2.ID)
	require.NotEqual(t, cs.Hash, cs2.Hash)

	manif.ABI.Methods = append(manif.ABI.Methods, manifest.Method{Name: "dummy"})
	updated, err := mgmt.Update(ic, cs.Hash, ne, manif)
	require.NoError(t, err)
	require.Equal(t, uint16(1), updated.UpdateCounter)

	require.NoError(t, mgmt.Destroy(ic, cs.Hash))
	_, err = GetContractState(ic.DAO, cs.Hash)
	require.Error(t, err)

	require.ErrorIs(t, mgmt.Destroy(ic, cs.Hash), ErrNotDeployed)
}

func TestPolicyDefaultsAndCommitteeGate(t *testing.T) {
	pol := newPolicy()
	ic := newTestContext(t)

	require.Equal(t, DefaultFeePerByte, pol.FeePerByte(ic))
	require.Equal(t, DefaultExecFeeFactor, pol.GetBaseExecFee(ic))
	require.Equal(t, DefaultStoragePrice, pol.GetStoragePrice(ic))

	require.NoError(t, putInt64(ic, keyFeePerByte, 2000))
	require.Equal(t, int64(2000), pol.FeePerByte(ic))

	// No transaction container: block-level context, treated as committee.
	require.True(t, checkCommittee(ic))

	acc := util.Uint160{9, 9, 9}
	require.False(t, pol.IsBlocked(ic, acc))
	require.NoError(t, ic.DAO.PutStorageItem(PolicyID, blockedKey(acc), state.StorageItem{1}))
	require.True(t, pol.IsBlocked(ic, acc))
}

func TestNEOCommitteeAndValidators(t *testing.T) {
	var standby []string
	var pubs keys.PublicKeys
	for i := 0; i < 4; i++ {
		priv, err := keys.NewPrivateKey()
		require.NoError(t, err)
		pub := priv.PublicKey()
		pubs = append(pubs, pub)
		standby = append(standby, hex.EncodeToString(pub.Bytes()))
	}

	neo := newNEO(standby, 3)
	committee := neo.Committee()
	require.Len(t, committee, 4)

	validators := neo.Validators()
	require.Len(t, validators, 3)

	acc, err := neo.CommitteeAccount()
	require.NoError(t, err)
	require.NotEqual(t, util.Uint160{}, acc)

	ic := newTestContext(t)
	require.NoError(t, neo.onPersist(ic))
	si := ic.DAO.GetStorageItem(NeoID, keyCommitteeAddress)
	require.NotNil(t, si)
	// onPersist is idempotent: a second call must not error or change the value.
	require.NoError(t, neo.onPersist(ic))
	require.Equal(t, si, ic.DAO.GetStorageItem(NeoID, keyCommitteeAddress))
}

func TestGASMintBurnTransfer(t *testing.T) {
	gas := newGAS()
	ic := newTestContext(t)

	acc := util.Uint160{1}
	require.Equal(t, big.NewInt(0), gas.BalanceOf(ic, acc))

	require.NoError(t, gas.Mint(ic, acc, big.NewInt(100)))
	require.Equal(t, big.NewInt(100), gas.BalanceOf(ic, acc))

	require.ErrorIs(t, gas.Burn(ic, acc, big.NewInt(1000)), ErrInsufficientFunds)

	to := util.Uint160{2}
	require.NoError(t, gas.Transfer(ic, acc, to, big.NewInt(40)))
	require.Equal(t, big.NewInt(60), gas.BalanceOf(ic, acc))
	require.Equal(t, big.NewInt(40), gas.BalanceOf(ic, to))

	require.NoError(t, gas.Burn(ic, to, big.NewInt(40)))
	require.Equal(t, big.NewInt(0), gas.BalanceOf(ic, to))
	// Zero balance is stored as an absent key, not a zero-valued one.
	require.Nil(t, ic.DAO.GetStorageItem(GasID, balanceKey(to)))
}

func TestNewContracts(t *testing.T) {
	var standby []string
	for i := 0; i < 4; i++ {
		priv, err := keys.NewPrivateKey()
		require.NoError(t, err)
		standby = append(standby, hex.EncodeToString(priv.PublicKey().Bytes()))
	}
	cfg := config.ProtocolConfiguration{StandbyCommittee: standby, ValidatorsCount: 4}

	cs := NewContracts(cfg)
	require.Len(t, cs.All(), 4)
	require.Same(t, cs.Management.Contract, cs.ByHash(cs.Management.Hash))
	require.Same(t, cs.GAS.Contract, cs.ByHash(cs.GAS.Hash))
	require.NotEmpty(t, cs.Functions())
}
