// Command neo-node is a thin CLI entrypoint over the ledger/consensus
// engine: start a node, or dump/restore a block range against its
// chain database. All business logic lives in pkg/core and
// pkg/consensus; this binary and cli/server only parse flags and wire
// calls through.
package main

import (
	"fmt"
	"os"

	"github.com/neogo-core/node/cli/server"
	"github.com/urfave/cli"
)

func main() {
	ctl := cli.NewApp()
	ctl.Name = "neo-node"
	ctl.Version = "0.1.0"
	ctl.Usage = "a Neo N3 core node"
	ctl.Commands = server.NewCommands()

	if err := ctl.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
