// Package config embeds the node's built-in default network profile.
package config

import _ "embed"

// PrivNet is the default private/dev network configuration.
//
//go:embed protocol.privnet.yml
var PrivNet []byte
