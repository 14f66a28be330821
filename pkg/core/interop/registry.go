package interop

import (
	"github.com/neogo-core/node/pkg/config"
	"github.com/neogo-core/node/pkg/core/interop/interopnames"
	"github.com/neogo-core/node/pkg/core/interop/iterator"
	istorage "github.com/neogo-core/node/pkg/core/interop/storage"
	"github.com/neogo-core/node/pkg/vm/callflag"
)

func id(name string) uint32 { return interopnames.ToID([]byte(name)) }

// runtimeFuncs holds the System.Runtime.* table contributed by
// package runtime's init. Package interop cannot import runtime
// directly (runtime imports Context, which would cycle back here), so
// runtime registers itself through RegisterRuntime instead.
var runtimeFuncs []Function

// RegisterRuntime lets package runtime contribute its Function entries
// to the default table without interop importing runtime.
func RegisterRuntime(funcs []Function) { runtimeFuncs = funcs }

// DefaultFunctions returns the full table of SYSCALL services this
// node registers, independent of any native contract's own method
// table (spec.md §4.1 "Interop dispatcher").
func DefaultFunctions() []Function {
	fs := []Function{
		{
			ID: id(interopnames.SystemStorageGetContext), Name: interopnames.SystemStorageGetContext,
			Func: istorage.GetContext, Price: 16, RequiredFlags: callflag.ReadStates, ParamCount: 0,
		},
		{
			ID: id(interopnames.SystemStorageGetReadOnlyContext), Name: interopnames.SystemStorageGetReadOnlyContext,
			Func: istorage.GetReadOnlyContext, Price: 16, RequiredFlags: callflag.ReadStates, ParamCount: 0,
		},
		{
			ID: id(interopnames.SystemStorageAsReadOnly), Name: interopnames.SystemStorageAsReadOnly,
			Func: istorage.ContextAsReadOnly, Price: 16, RequiredFlags: callflag.ReadStates, ParamCount: 1,
		},
		{
			ID: id(interopnames.SystemStorageGet), Name: interopnames.SystemStorageGet,
			Func: istorage.Get, Price: 1 << 15, RequiredFlags: callflag.ReadStates, ParamCount: 2,
		},
		{
			ID: id(interopnames.SystemStoragePut), Name: interopnames.SystemStoragePut,
			Func: istorage.Put, Price: 1 << 15, RequiredFlags: callflag.WriteStates, ParamCount: 3,
		},
		{
			ID: id(interopnames.SystemStorageDelete), Name: interopnames.SystemStorageDelete,
			Func: istorage.Delete, Price: 1 << 15, RequiredFlags: callflag.WriteStates, ParamCount: 2,
		},
		{
			ID: id(interopnames.SystemStorageFind), Name: interopnames.SystemStorageFind,
			Func: istorage.Find, Price: 1 << 15, RequiredFlags: callflag.ReadStates, ParamCount: 3,
		},
		{
			ID: id(interopnames.SystemIteratorNext), Name: interopnames.SystemIteratorNext,
			Func: iterator.Next, Price: 1 << 15, RequiredFlags: callflag.None, ParamCount: 1,
		},
		{
			ID: id(interopnames.SystemIteratorValue), Name: interopnames.SystemIteratorValue,
			Func: iterator.Value, Price: 16, RequiredFlags: callflag.None, ParamCount: 1,
		},
	}
	return append(fs, runtimeFuncs...)
}
