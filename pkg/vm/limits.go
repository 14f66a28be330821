package vm

// Limits bounds VM resource usage (spec.md §4.1 "Limits"). The zero
// value is invalid; use DefaultLimits.
type Limits struct {
	MaxInvocationStackDepth int
	MaxStackSize            int
	MaxScriptLength         int
	MaxItemSize             int
}

// DefaultLimits returns the protocol-default resource bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxInvocationStackDepth: 1024,
		MaxStackSize:            2048,
		MaxScriptLength:         1024 * 1024,
		MaxItemSize:             1024 * 1024,
	}
}
