package runtime

import (
	"github.com/neogo-core/node/pkg/core/interop"
	"github.com/neogo-core/node/pkg/core/interop/interopnames"
	"github.com/neogo-core/node/pkg/vm/callflag"
)

func id(name string) uint32 { return interopnames.ToID([]byte(name)) }

func init() {
	interop.RegisterRuntime([]interop.Function{
		{ID: id(interopnames.SystemRuntimePlatform), Name: interopnames.SystemRuntimePlatform,
			Func: Platform, Price: 1 << 3, RequiredFlags: callflag.None, ParamCount: 0},
		{ID: id(interopnames.SystemRuntimeGetTrigger), Name: interopnames.SystemRuntimeGetTrigger,
			Func: GetTrigger, Price: 1 << 3, RequiredFlags: callflag.None, ParamCount: 0},
		{ID: id(interopnames.SystemRuntimeGetTime), Name: interopnames.SystemRuntimeGetTime,
			Func: GetTime, Price: 1 << 3, RequiredFlags: callflag.ReadStates, ParamCount: 0},
		{ID: id(interopnames.SystemRuntimeGetScriptContainer), Name: interopnames.SystemRuntimeGetScriptContainer,
			Func: GetScriptContainer, Price: 1 << 3, RequiredFlags: callflag.None, ParamCount: 0},
		{ID: id(interopnames.SystemRuntimeGetExecutingScriptHash), Name: interopnames.SystemRuntimeGetExecutingScriptHash,
			Func: GetExecutingScriptHash, Price: 1 << 4, RequiredFlags: callflag.None, ParamCount: 0},
		{ID: id(interopnames.SystemRuntimeGetCallingScriptHash), Name: interopnames.SystemRuntimeGetCallingScriptHash,
			Func: GetCallingScriptHash, Price: 1 << 4, RequiredFlags: callflag.None, ParamCount: 0},
		{ID: id(interopnames.SystemRuntimeGetEntryScriptHash), Name: interopnames.SystemRuntimeGetEntryScriptHash,
			Func: GetEntryScriptHash, Price: 1 << 4, RequiredFlags: callflag.None, ParamCount: 0},
		{ID: id(interopnames.SystemRuntimeCheckWitness), Name: interopnames.SystemRuntimeCheckWitness,
			Func: CheckWitness, Price: 1 << 10, RequiredFlags: callflag.None, ParamCount: 1},
		{ID: id(interopnames.SystemRuntimeNotify), Name: interopnames.SystemRuntimeNotify,
			Func: Notify, Price: 1 << 15, RequiredFlags: callflag.AllowNotify, ParamCount: 2},
		{ID: id(interopnames.SystemRuntimeLog), Name: interopnames.SystemRuntimeLog,
			Func: Log, Price: 1 << 15, RequiredFlags: callflag.AllowNotify, ParamCount: 1},
		{ID: id(interopnames.SystemRuntimeGetInvocationCounter), Name: interopnames.SystemRuntimeGetInvocationCounter,
			Func: GetInvocationCounter, Price: 1 << 4, RequiredFlags: callflag.None, ParamCount: 0},
	})
}
