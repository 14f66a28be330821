// Package config loads and validates the node's two-part YAML
// configuration: a ProtocolConfiguration shared bit-for-bit by every
// honest node on a network, and an ApplicationConfiguration of purely
// local operator choices (spec.md §2 "protocol settings").
package config

import (
	"bytes"
	"fmt"
	"os"

	embeddedconfig "github.com/neogo-core/node/config"
	"github.com/neogo-core/node/pkg/config/netmode"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the directory Load looks under for
// protocol.<network>.yml when no explicit path is given.
const DefaultConfigPath = "./config"

// Config is the top-level on-disk configuration document.
type Config struct {
	ProtocolConfiguration    ProtocolConfiguration    `yaml:"ProtocolConfiguration"`
	ApplicationConfiguration ApplicationConfiguration `yaml:"ApplicationConfiguration"`
}

// Blockchain projects the settings the ledger needs out of a full
// Config.
func (c Config) Blockchain() Blockchain {
	return Blockchain{
		ProtocolConfiguration: c.ProtocolConfiguration,
		Ledger:                c.ApplicationConfiguration.Ledger,
	}
}

// Load reads protocol.<netMode>.yml from path, falling back to the
// node's embedded default if no file exists on disk.
func Load(path string, netMode netmode.Magic) (Config, error) {
	return LoadFile(fmt.Sprintf("%s/protocol.%s.yml", path, netMode))
}

// LoadFile reads and validates a config document at configPath, or the
// matching embedded default if configPath doesn't exist.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("unable to read config: %w", err)
		}
		data, err = embeddedConfig(configPath)
		if err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if err := cfg.ProtocolConfiguration.Validate(); err != nil {
		return Config{}, err
	}
	if err := cfg.ApplicationConfiguration.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// embeddedConfig serves the node's one built-in network profile. Only
// PrivNet ships an embedded default; MainNet/TestNet operators must
// supply their own protocol.<network>.yml on disk.
func embeddedConfig(configPath string) ([]byte, error) {
	if configPath == fmt.Sprintf("%s/protocol.%s.yml", DefaultConfigPath, netmode.PrivNet) {
		return embeddedconfig.PrivNet, nil
	}
	return nil, fmt.Errorf("config %q does not exist and no embedded default matches", configPath)
}
