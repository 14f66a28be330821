package vm

import "github.com/neogo-core/node/pkg/vm/callflag"

// InteropFuncDesc is the registration metadata for one SYSCALL target
// (spec.md §4.1 "Interop dispatcher (SYSCALL)"): a name, fixed price,
// required call flags and the handler itself. Parameter conversion is
// the handler's own responsibility; it pops ParamCount items from the
// running context's evaluation stack (rightmost parameter popped
// first) and may push one return value.
type InteropFuncDesc struct {
	Name          string
	Func          func(v *VM) error
	Price         int64
	RequiredFlags callflag.CallFlag
	ParamCount    int
}

// InteropGetter resolves a 4-byte SYSCALL hash to its descriptor,
// returning nil for unknown services (spec.md §4.1 step 1: "unknown ⇒
// Fault"). pkg/core/interop supplies the concrete registry.
type InteropGetter func(hash uint32) *InteropFuncDesc
