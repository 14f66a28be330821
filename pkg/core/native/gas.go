package native

import (
	"errors"
	"math/big"

	"github.com/neogo-core/node/pkg/core/interop"
	"github.com/neogo-core/node/pkg/core/state"
	"github.com/neogo-core/node/pkg/util"
	"github.com/neogo-core/node/pkg/vm/callflag"
	"github.com/neogo-core/node/pkg/vm/stackitem"
)

// ErrInsufficientFunds is returned by Burn when an account's balance
// cannot cover the requested amount.
var ErrInsufficientFunds = errors.New("native/gas: insufficient balance")

func balanceKey(acc util.Uint160) []byte {
	return append([]byte{0}, acc.Bytes()...)
}

// GAS is the native GAS contract: the fungible utility-token ledger
// every fee is paid from and every block reward is minted into
// (spec.md §4.4 "sender_balance_before(tx, GAS) ... balance decreases
// by exactly that sum regardless of vm_state").
type GAS struct {
	*Contract
}

func newGAS() *GAS {
	g := &GAS{Contract: &Contract{
		Hash: nativeHash("GasToken"),
		ID:   GasID,
		Name: "GasToken",
	}}
	g.Methods = []interop.Function{
		{ID: methodID(g.Name, "balanceOf"), Name: "balanceOf", Func: g.balanceOf, Price: 1 << 15, RequiredFlags: callflag.ReadStates, ParamCount: 1},
		{ID: methodID(g.Name, "transfer"), Name: "transfer", Func: g.transferMethod, Price: 1 << 17, RequiredFlags: callflag.WriteStates | callflag.AllowNotify, ParamCount: 3},
	}
	return g
}

// BalanceOf returns acc's GAS balance, directly callable by fee/witness
// checks without a VM frame.
func (g *GAS) BalanceOf(ic *interop.Context, acc util.Uint160) *big.Int {
	si := ic.DAO.GetStorageItem(GasID, balanceKey(acc))
	if si == nil {
		return big.NewInt(0)
	}
	return new(big.Int).SetBytes(si)
}

func (g *GAS) setBalance(ic *interop.Context, acc util.Uint160, v *big.Int) error {
	if v.Sign() == 0 {
		return ic.DAO.DeleteStorageItem(GasID, balanceKey(acc))
	}
	return ic.DAO.PutStorageItem(GasID, balanceKey(acc), state.StorageItem(v.Bytes()))
}

// Mint credits amount GAS to acc, used by block-reward issuance and
// deposit settlement during OnPersist (spec.md §4.2 "the only path
// that may mint/burn GAS").
func (g *GAS) Mint(ic *interop.Context, acc util.Uint160, amount *big.Int) error {
	if amount.Sign() < 0 {
		return errors.New("native/gas: negative mint amount")
	}
	if amount.Sign() == 0 {
		return nil
	}
	bal := g.BalanceOf(ic, acc)
	bal.Add(bal, amount)
	return g.setBalance(ic, acc, bal)
}

// Burn debits amount GAS from acc, used to settle a transaction's
// system_fee+network_fee regardless of its VM outcome (spec.md §4.4
// invariant 3).
func (g *GAS) Burn(ic *interop.Context, acc util.Uint160, amount *big.Int) error {
	if amount.Sign() < 0 {
		return errors.New("native/gas: negative burn amount")
	}
	if amount.Sign() == 0 {
		return nil
	}
	bal := g.BalanceOf(ic, acc)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	bal.Sub(bal, amount)
	return g.setBalance(ic, acc, bal)
}

// Transfer moves amount GAS from from to to, failing if from's balance
// is insufficient.
func (g *GAS) Transfer(ic *interop.Context, from, to util.Uint160, amount *big.Int) error {
	if err := g.Burn(ic, from, amount); err != nil {
		return err
	}
	return g.Mint(ic, to, amount)
}

func (g *GAS) balanceOf(ic *interop.Context) error {
	acc, err := popUint160(ic)
	if err != nil {
		return err
	}
	bal := g.BalanceOf(ic, acc)
	i, err := stackitem.NewInteger(bal)
	if err != nil {
		return err
	}
	ic.VM.Estack().Push(i)
	return nil
}

func (g *GAS) transferMethod(ic *interop.Context) error {
	from, err := popUint160(ic)
	if err != nil {
		return err
	}
	to, err := popUint160(ic)
	if err != nil {
		return err
	}
	amountItem := ic.VM.Estack().Pop()
	amount, err := amountItem.BigInt()
	if err != nil {
		return err
	}
	_ = ic.VM.Estack().Pop() // data argument, unused by this transfer's notification.
	if err := g.Transfer(ic, from, to, amount); err != nil {
		ic.VM.Estack().Push(stackitem.NewBool(false))
		return nil
	}
	ic.VM.Estack().Push(stackitem.NewBool(true))
	return nil
}
