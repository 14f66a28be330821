package config

// StateRoot configures the state-validator witness service that signs
// and gossips state-root payloads (spec.md §6 "State-root message").
type StateRoot struct {
	Enabled      bool   `yaml:"Enabled"`
	UnlockWallet Wallet `yaml:"UnlockWallet"`
}

// Consensus configures the dBFT service (spec.md §4.5).
type Consensus struct {
	Enabled      bool   `yaml:"Enabled"`
	UnlockWallet Wallet `yaml:"UnlockWallet"`
}
