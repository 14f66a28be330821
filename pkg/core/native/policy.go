package native

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/neogo-core/node/pkg/core/interop"
	"github.com/neogo-core/node/pkg/core/state"
	"github.com/neogo-core/node/pkg/core/transaction"
	"github.com/neogo-core/node/pkg/util"
	"github.com/neogo-core/node/pkg/vm/callflag"
	"github.com/neogo-core/node/pkg/vm/stackitem"
)

// Default policy values applied before the committee ever overrides
// them (spec.md §4.1 "Gas accounting": exec_fee_factor/storage price
// are policy-driven).
const (
	DefaultFeePerByte    int64 = 1000
	DefaultExecFeeFactor int64 = 30
	MaxExecFeeFactor     int64 = 100
)

var (
	keyFeePerByte    = []byte{0}
	keyExecFeeFactor = []byte{1}
	keyStoragePrice  = []byte{2}
	blockedPrefix    = byte(3)

	// ErrBlockedAccount is returned by admission checks when the
	// sender has been blocked by committee policy.
	ErrBlockedAccount = errors.New("native/policy: account is blocked")
)

// Policy is the native Policy contract: the fee-per-byte, exec-fee-factor
// and storage-price parameters the engine charges against, plus the
// blocked-accounts list the mempool/ledger consult before admitting a
// transaction (spec.md §4.2, §4.4 "Policy violation").
type Policy struct {
	*Contract
}

func newPolicy() *Policy {
	p := &Policy{Contract: &Contract{
		Hash: nativeHash("PolicyContract"),
		ID:   PolicyID,
		Name: "PolicyContract",
	}}
	p.Methods = []interop.Function{
		{ID: methodID(p.Name, "getFeePerByte"), Name: "getFeePerByte", Func: p.getFeePerByte, Price: 1 << 15, RequiredFlags: callflag.ReadStates},
		{ID: methodID(p.Name, "setFeePerByte"), Name: "setFeePerByte", Func: p.setFeePerByte, Price: 1 << 15, RequiredFlags: callflag.WriteStates, ParamCount: 1},
		{ID: methodID(p.Name, "getExecFeeFactor"), Name: "getExecFeeFactor", Func: p.getExecFeeFactor, Price: 1 << 15, RequiredFlags: callflag.ReadStates},
		{ID: methodID(p.Name, "setExecFeeFactor"), Name: "setExecFeeFactor", Func: p.setExecFeeFactor, Price: 1 << 15, RequiredFlags: callflag.WriteStates, ParamCount: 1},
		{ID: methodID(p.Name, "getStoragePrice"), Name: "getStoragePrice", Func: p.getStoragePrice, Price: 1 << 15, RequiredFlags: callflag.ReadStates},
		{ID: methodID(p.Name, "setStoragePrice"), Name: "setStoragePrice", Func: p.setStoragePrice, Price: 1 << 15, RequiredFlags: callflag.WriteStates, ParamCount: 1},
		{ID: methodID(p.Name, "blockAccount"), Name: "blockAccount", Func: p.blockAccount, Price: 1 << 15, RequiredFlags: callflag.WriteStates, ParamCount: 1},
		{ID: methodID(p.Name, "unblockAccount"), Name: "unblockAccount", Func: p.unblockAccount, Price: 1 << 15, RequiredFlags: callflag.WriteStates, ParamCount: 1},
		{ID: methodID(p.Name, "isBlocked"), Name: "isBlocked", Func: p.isBlockedMethod, Price: 1 << 15, RequiredFlags: callflag.ReadStates, ParamCount: 1},
	}
	return p
}

func getInt64(ic *interop.Context, key []byte, def int64) int64 {
	si := ic.DAO.GetStorageItem(PolicyID, key)
	if si == nil {
		return def
	}
	n := new(big.Int).SetBytes(reverse(si))
	return n.Int64()
}

func putInt64(ic *interop.Context, key []byte, v int64) error {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return ic.DAO.PutStorageItem(PolicyID, key, state.StorageItem(b))
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// FeePerByte returns the current fee charged per byte of transaction
// size, directly callable by the mempool/ledger without a VM frame.
func (p *Policy) FeePerByte(ic *interop.Context) int64 {
	return getInt64(ic, keyFeePerByte, DefaultFeePerByte)
}

// GetBaseExecFee returns the current opcode exec-fee multiplier.
func (p *Policy) GetBaseExecFee(ic *interop.Context) int64 {
	return getInt64(ic, keyExecFeeFactor, DefaultExecFeeFactor)
}

// GetStoragePrice returns the current per-byte System.Storage.Put price.
func (p *Policy) GetStoragePrice(ic *interop.Context) int64 {
	return getInt64(ic, keyStoragePrice, DefaultStoragePrice)
}

func (p *Policy) getFeePerByte(ic *interop.Context) error {
	ic.VM.Estack().Push(stackitem.NewIntegerFromInt64(p.FeePerByte(ic)))
	return nil
}

func (p *Policy) setFeePerByte(ic *interop.Context) error {
	if !checkCommittee(ic) {
		return errNotCommittee
	}
	v, err := popInt64(ic)
	if err != nil {
		return err
	}
	if v < 0 {
		return errors.New("native/policy: negative fee per byte")
	}
	return putInt64(ic, keyFeePerByte, v)
}

func (p *Policy) getExecFeeFactor(ic *interop.Context) error {
	ic.VM.Estack().Push(stackitem.NewIntegerFromInt64(p.GetBaseExecFee(ic)))
	return nil
}

func (p *Policy) setExecFeeFactor(ic *interop.Context) error {
	if !checkCommittee(ic) {
		return errNotCommittee
	}
	v, err := popInt64(ic)
	if err != nil {
		return err
	}
	if v <= 0 || v > MaxExecFeeFactor {
		return errors.New("native/policy: exec fee factor out of range")
	}
	return putInt64(ic, keyExecFeeFactor, v)
}

func (p *Policy) getStoragePrice(ic *interop.Context) error {
	ic.VM.Estack().Push(stackitem.NewIntegerFromInt64(p.GetStoragePrice(ic)))
	return nil
}

func (p *Policy) setStoragePrice(ic *interop.Context) error {
	if !checkCommittee(ic) {
		return errNotCommittee
	}
	v, err := popInt64(ic)
	if err != nil {
		return err
	}
	if v < 0 {
		return errors.New("native/policy: negative storage price")
	}
	return putInt64(ic, keyStoragePrice, v)
}

func blockedKey(h util.Uint160) []byte {
	return append([]byte{blockedPrefix}, h.Bytes()...)
}

// IsBlocked reports whether h has been blocked by committee policy,
// directly callable by the mempool/ledger admission path (spec.md
// §4.4 "Policy violation: ... blocked sender").
func (p *Policy) IsBlocked(ic *interop.Context, h util.Uint160) bool {
	return ic.DAO.GetStorageItem(PolicyID, blockedKey(h)) != nil
}

func (p *Policy) blockAccount(ic *interop.Context) error {
	if !checkCommittee(ic) {
		return errNotCommittee
	}
	h, err := popUint160(ic)
	if err != nil {
		return err
	}
	if err := ic.DAO.PutStorageItem(PolicyID, blockedKey(h), state.StorageItem{1}); err != nil {
		return err
	}
	ic.VM.Estack().Push(stackitem.NewBool(true))
	return nil
}

func (p *Policy) unblockAccount(ic *interop.Context) error {
	if !checkCommittee(ic) {
		return errNotCommittee
	}
	h, err := popUint160(ic)
	if err != nil {
		return err
	}
	if err := ic.DAO.DeleteStorageItem(PolicyID, blockedKey(h)); err != nil {
		return err
	}
	ic.VM.Estack().Push(stackitem.NewBool(true))
	return nil
}

func (p *Policy) isBlockedMethod(ic *interop.Context) error {
	h, err := popUint160(ic)
	if err != nil {
		return err
	}
	ic.VM.Estack().Push(stackitem.NewBool(p.IsBlocked(ic, h)))
	return nil
}

func popInt64(ic *interop.Context) (int64, error) {
	item := ic.VM.Estack().Pop()
	n, err := item.BigInt()
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}

func popUint160(ic *interop.Context) (util.Uint160, error) {
	item := ic.VM.Estack().Pop()
	b, err := item.TryBytes()
	if err != nil {
		return util.Uint160{}, err
	}
	return util.Uint160DecodeBytesBE(b)
}

// errNotCommittee is returned when a committee-gated setter is called
// without a witness from the committee multi-sig account.
var errNotCommittee = errors.New("native: committee witness required")

// checkCommittee reports whether ic's container (a transaction) carries
// a signer authorizing the configured committee account, mirroring
// System.Runtime.CheckWitness's signer-scope walk without requiring a
// loaded VM context for the committee's own script (spec.md §4.2
// "OnPersist/PostPersist ... are the only path that may ... rotate
// validator sets"; setters here are the same trust tier).
func checkCommittee(ic *interop.Context) bool {
	tx, ok := ic.Container.(*transaction.Transaction)
	if !ok {
		return true // block-level contexts (OnPersist) act with full authority.
	}
	committee := committeeAccount(ic)
	for _, s := range tx.Signers {
		if s.Account.Equals(committee) {
			return true
		}
	}
	return false
}

// committeeAccount resolves the configured committee multi-sig account
// hash from the NEO native contract's stored committee, falling back
// to the zero hash if NEO hasn't initialized it yet.
func committeeAccount(ic *interop.Context) util.Uint160 {
	si := ic.DAO.GetStorageItem(NeoID, keyCommitteeAddress)
	if si == nil {
		return util.Uint160{}
	}
	h, err := util.Uint160DecodeBytesBE(si)
	if err != nil {
		return util.Uint160{}
	}
	return h
}
