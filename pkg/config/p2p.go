package config

import "time"

// P2P holds peer-to-peer networking settings (spec.md §6 "Network
// layer"), kept separate from ProtocolConfiguration since these are
// local operator choices, not consensus-relevant protocol parameters.
type P2P struct {
	Addresses         []string      `yaml:"Addresses"`
	AttemptConnPeers  int           `yaml:"AttemptConnPeers"`
	DialTimeout       time.Duration `yaml:"DialTimeout"`
	MaxPeers          int           `yaml:"MaxPeers"`
	MinPeers          int           `yaml:"MinPeers"`
	PingInterval      time.Duration `yaml:"PingInterval"`
	PingTimeout       time.Duration `yaml:"PingTimeout"`
	ProtoTickInterval time.Duration `yaml:"ProtoTickInterval"`
}
