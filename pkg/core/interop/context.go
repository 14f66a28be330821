// Package interop assembles the Context that every registered SYSCALL
// and native-contract method runs under: the DAO overlay, the block
// and container being processed, and the hardfork-gated function
// table the VM's interop dispatcher resolves against (spec.md §4.1
// "Interop dispatcher", §4.2 "Native contract call convention").
package interop

import (
	"github.com/neogo-core/node/pkg/config"
	"github.com/neogo-core/node/pkg/core/block"
	"github.com/neogo-core/node/pkg/core/dao"
	"github.com/neogo-core/node/pkg/core/transaction"
	"github.com/neogo-core/node/pkg/util"
	"github.com/neogo-core/node/pkg/vm"
	"github.com/neogo-core/node/pkg/vm/callflag"
	"github.com/neogo-core/node/pkg/vm/trigger"
	"go.uber.org/zap"
)

// Function binds one registered interop service or native method to
// its dispatch id, handler, fixed price and required call flags, and
// the hardfork (if any) it only becomes callable from.
type Function struct {
	ID            uint32
	Name          string
	Func          func(ic *Context) error
	Price         int64
	RequiredFlags callflag.CallFlag
	ParamCount    int
	ActiveFrom    config.Hardfork
}

// Context carries everything a SYSCALL or native method handler needs:
// the DAO overlay to read/write through, the block and container being
// processed, and the function table to resolve further calls against.
// One Context is built per transaction (or per-block OnPersist/
// PostPersist run); SpawnVM may be called more than once against it to
// get a fresh engine loaded with the same wiring.
type Context struct {
	DAO       *dao.Simple
	Block     *block.Block
	Tx        *transaction.Transaction
	Container any
	Trigger   trigger.Type

	Hardforks map[string]uint32
	Functions []Function

	Invocations map[util.Uint160]int
	Log         *zap.Logger

	// VM is the engine currently executing under this Context. Tests
	// and simple single-script runs may set it directly with a fresh
	// vm.New(); SpawnVM is the convenience path that also wires the
	// interop dispatcher, trigger and container.
	VM *vm.VM
}

// NewContext builds a Context ready to have SpawnVM called on it.
func NewContext(trig trigger.Type, d *dao.Simple, b *block.Block, tx *transaction.Transaction, hardforks map[string]uint32, funcs []Function, log *zap.Logger) *Context {
	return &Context{
		DAO:         d,
		Block:       b,
		Tx:          tx,
		Container:   tx,
		Trigger:     trig,
		Hardforks:   hardforks,
		Functions:   funcs,
		Invocations: make(map[util.Uint160]int),
		Log:         log,
	}
}

// SpawnVM creates a fresh engine wired to this Context's interop
// dispatch table, trigger and container, storing it as ic.VM and
// replacing whatever engine was there before.
func (ic *Context) SpawnVM() *vm.VM {
	v := vm.New()
	v.SetInterops(ic.interopGetter)
	v.SetTrigger(ic.Trigger)
	v.SetContainer(ic.Container)
	ic.VM = v
	return v
}

// interopGetter adapts this Context's Function table to vm.InteropGetter,
// binding each resolved Function's handler to this Context so interop
// code never has to thread a Context through the VM itself.
func (ic *Context) interopGetter(id uint32) *vm.InteropFuncDesc {
	f := ic.GetFunction(id)
	if f == nil {
		return nil
	}
	return &vm.InteropFuncDesc{
		Name:          f.Name,
		Price:         f.Price,
		RequiredFlags: f.RequiredFlags,
		ParamCount:    f.ParamCount,
		Func: func(*vm.VM) error {
			return f.Func(ic)
		},
	}
}

// GetFunction resolves id to its registered Function, honoring that
// function's activation hardfork (spec.md §4.2 "native methods may be
// gated behind a hardfork activation height"); a Function not yet
// active for the current block is treated as unregistered.
func (ic *Context) GetFunction(id uint32) *Function {
	for i := range ic.Functions {
		f := &ic.Functions[i]
		if f.ID == id && ic.IsHardforkEnabled(f.ActiveFrom) {
			return f
		}
	}
	return nil
}

// IsHardforkEnabled reports whether hf is active at the Context's
// current block height. config.HFDefault is always enabled. Any other
// hardfork absent from Hardforks is treated as not yet scheduled, so
// it is disabled regardless of height.
func (ic *Context) IsHardforkEnabled(hf config.Hardfork) bool {
	if hf == config.HFDefault {
		return true
	}
	height, ok := ic.Hardforks[hf.String()]
	if !ok {
		return false
	}
	return ic.Block.Index >= height
}
