// Package runtime implements the System.Runtime.* interop services:
// trigger/time/script-hash introspection, witness checking,
// notifications and logging (spec.md §4.2 "Runtime interop").
package runtime

import (
	"errors"
	"math/big"

	"github.com/neogo-core/node/pkg/core/interop"
	"github.com/neogo-core/node/pkg/core/transaction"
	"github.com/neogo-core/node/pkg/crypto/keys"
	"github.com/neogo-core/node/pkg/util"
	"github.com/neogo-core/node/pkg/vm/stackitem"
	"go.uber.org/zap"
)

// MaxNotificationSize and MaxEventNameLen bound a single System.Runtime.Log
// message and System.Runtime.Notify event name respectively.
const (
	MaxNotificationSize = 1024
	MaxEventNameLen     = 32
)

// GetTrigger pushes the trigger this run was invoked under.
func GetTrigger(ic *interop.Context) error {
	ic.VM.Estack().Push(stackitem.NewIntegerFromInt64(int64(ic.Trigger)))
	return nil
}

// Platform pushes the fixed platform identifier contracts check
// against for compatibility.
func Platform(ic *interop.Context) error {
	bs, err := stackitem.NewByteString([]byte("NEO"))
	if err != nil {
		return err
	}
	ic.VM.Estack().Push(bs)
	return nil
}

// GetTime pushes the millisecond timestamp of the block currently
// being persisted.
func GetTime(ic *interop.Context) error {
	i, err := stackitem.NewInteger(new(big.Int).SetUint64(ic.Block.Timestamp))
	if err != nil {
		return err
	}
	ic.VM.Estack().Push(i)
	return nil
}

// GetScriptContainer pushes the transaction or block under which this
// run was invoked.
func GetScriptContainer(ic *interop.Context) error {
	ic.VM.Estack().Push(stackitem.NewInterop(ic.Container))
	return nil
}

// GetExecutingScriptHash pushes the hash of the currently executing
// context's script.
func GetExecutingScriptHash(ic *interop.Context) error {
	h := ic.VM.Context().ScriptHash()
	ic.VM.Estack().Push(hashItem(h))
	return nil
}

// GetCallingScriptHash pushes the hash of the script that invoked the
// currently executing context, or the zero hash for the entry script.
func GetCallingScriptHash(ic *interop.Context) error {
	h := ic.VM.Context().CallingScriptHash()
	ic.VM.Estack().Push(hashItem(h))
	return nil
}

// GetEntryScriptHash pushes the hash of the outermost script loaded
// for this run.
func GetEntryScriptHash(ic *interop.Context) error {
	h := ic.VM.Context().EntryScriptHash()
	ic.VM.Estack().Push(hashItem(h))
	return nil
}

func hashItem(h util.Uint160) stackitem.Item {
	bs, err := stackitem.NewByteString(h.BytesBE())
	if err != nil {
		return stackitem.NewNull()
	}
	return bs
}

// GetInvocationCounter pushes how many times the currently executing
// contract has been entered during this run.
func GetInvocationCounter(ic *interop.Context) error {
	h := ic.VM.Context().ScriptHash()
	ic.VM.Estack().Push(stackitem.NewIntegerFromInt64(int64(ic.VM.InvocationCount(h))))
	return nil
}

// CheckWitness pops an account (script hash or public key) and pushes
// whether the container's signers authorize acting on its behalf
// (spec.md §3 "Witness scopes"). The currently executing contract's
// own hash also satisfies the check, mirroring a contract witnessing
// itself.
func CheckWitness(ic *interop.Context) error {
	item := ic.VM.Estack().Pop()
	hashBytes, err := item.TryBytes()
	if err != nil {
		return err
	}
	var hash util.Uint160
	if len(hashBytes) == 33 {
		pub := &keys.PublicKey{}
		if err := pub.DecodeBytes(hashBytes); err != nil {
			return err
		}
		hash = pub.GetScriptHash()
	} else {
		hash, err = util.Uint160DecodeBytesBE(hashBytes)
		if err != nil {
			return err
		}
	}

	ok, err := checkWitness(ic, hash)
	if err != nil {
		return err
	}
	ic.VM.Estack().Push(stackitem.NewBool(ok))
	return nil
}

func checkWitness(ic *interop.Context, hash util.Uint160) (bool, error) {
	if hash.Equals(ic.VM.Context().ScriptHash()) {
		return true, nil
	}
	tx, ok := ic.Container.(*transaction.Transaction)
	if !ok {
		return false, nil
	}
	calledByEntry := ic.VM.Context().ScriptHash().Equals(ic.VM.Context().EntryScriptHash())
	for _, signer := range tx.Signers {
		if !signer.Account.Equals(hash) {
			continue
		}
		if signer.Scopes.Has(transaction.Global) {
			return true, nil
		}
		if signer.Scopes.Has(transaction.CalledByEntry) && calledByEntry {
			return true, nil
		}
		for _, c := range signer.AllowedContracts {
			if c.Equals(ic.VM.Context().ScriptHash()) {
				return true, nil
			}
		}
	}
	return false, nil
}

// Notify records a System.Runtime.Notify event from the currently
// executing contract, enforcing the event-name length bound.
func Notify(ic *interop.Context) error {
	stateItem := ic.VM.Estack().Pop()
	arr, ok := stateItem.(stackitem.Array)
	if !ok {
		return errors.New("runtime: Notify state must be an array")
	}
	nameItem := ic.VM.Estack().Pop()
	nameBytes, err := nameItem.TryBytes()
	if err != nil {
		return err
	}
	name := string(nameBytes)
	if len(name) > MaxEventNameLen {
		return errors.New("runtime: event name too long")
	}
	return ic.VM.AddNotification(name, arr)
}

// Log records a System.Runtime.Log message from the currently
// executing contract, enforcing MaxNotificationSize.
func Log(ic *interop.Context) error {
	item := ic.VM.Estack().Pop()
	msgBytes, err := item.TryBytes()
	if err != nil {
		return err
	}
	msg := string(msgBytes)
	if len(msg) > MaxNotificationSize {
		return errors.New("runtime: message too long")
	}
	ic.VM.AddLog(msg)
	if ic.Log != nil {
		ic.Log.Info("runtime log",
			zap.String("script", ic.VM.Context().ScriptHash().StringLE()),
			zap.String("message", msg))
	}
	return nil
}
