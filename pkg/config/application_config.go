package config

import "github.com/neogo-core/node/pkg/core/storage/dbconfig"

// ApplicationConfiguration holds node-local settings: which services
// run, how they're wired, and where data lives on disk. None of this
// is consensus-relevant (contrast ProtocolConfiguration).
type ApplicationConfiguration struct {
	DBConfiguration dbconfig.DBConfiguration `yaml:"DBConfiguration"`
	LogLevel        string                   `yaml:"LogLevel"`
	LogPath         string                   `yaml:"LogPath"`
	P2P             P2P                      `yaml:"P2P"`
	Relay           bool                     `yaml:"Relay"`
	Consensus       Consensus                `yaml:"Consensus"`
	StateRoot       StateRoot                `yaml:"StateRoot"`
	Ledger          Ledger                   `yaml:"Ledger"`
}

// Validate checks an ApplicationConfiguration for internal
// consistency.
func (a *ApplicationConfiguration) Validate() error {
	return nil
}
