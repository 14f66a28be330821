package config

// Ledger holds node-local storage/verification settings that are not
// part of the network-wide ProtocolConfiguration (spec.md §4.4
// "persist procedure").
type Ledger struct {
	// RemoveUntraceableBlocks enables pruning of blocks/transactions
	// past MaxTraceableBlocks.
	RemoveUntraceableBlocks bool `yaml:"RemoveUntraceableBlocks"`
	// SaveStorageBatch keeps the per-block storage diff around for
	// inspection instead of discarding it after commit.
	SaveStorageBatch bool `yaml:"SaveStorageBatch"`
	// SkipBlockVerification disables signature/witness verification of
	// received blocks, for trusted-source fast sync.
	SkipBlockVerification bool `yaml:"SkipBlockVerification"`
}

// Blockchain bundles the protocol-wide and node-local settings the
// ledger needs to operate.
type Blockchain struct {
	ProtocolConfiguration
	Ledger
}
