package state

import (
	"github.com/neogo-core/node/pkg/util"
	"github.com/neogo-core/node/pkg/vm/stackitem"
	"github.com/neogo-core/node/pkg/vm/trigger"
	"github.com/neogo-core/node/pkg/vm/vmstate"
)

// NotificationEvent is a single System.Runtime.Notify record persisted
// alongside a transaction's application log (spec.md §4.1/§4.2).
type NotificationEvent struct {
	ScriptHash util.Uint160
	Name       string
	Item       stackitem.Array
}

// Execution is the terminal outcome of running a script under one
// trigger: its VM state, gas spent, result stack and notifications.
type Execution struct {
	Trigger     trigger.Type
	VMState     vmstate.State
	GasConsumed int64
	Stack       []stackitem.Item
	Events      []NotificationEvent
	FaultException string
}

// AppExecResult records Execution against the container (transaction
// or block) hash that produced it.
type AppExecResult struct {
	Container util.Uint256
	Execution
}
