// Package server wires cmd/neo-node's "node" and "db" subcommands: an
// adapter layer over pkg/core/ledger, pkg/config and pkg/core/storage,
// in the shape the teacher's own cli/server package uses (NewCommands
// returning []cli.Command, one Action func per subcommand). No
// business logic lives here.
package server

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/neogo-core/node/pkg/config"
	"github.com/neogo-core/node/pkg/config/netmode"
	"github.com/neogo-core/node/pkg/core/block"
	"github.com/neogo-core/node/pkg/core/chaindump"
	"github.com/neogo-core/node/pkg/core/ledger"
	"github.com/neogo-core/node/pkg/core/storage"
	"github.com/neogo-core/node/pkg/io"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

var networkFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "config-path",
		Usage: "path to the directory holding protocol.<network>.yml",
		Value: config.DefaultConfigPath,
	},
	cli.BoolFlag{Name: "mainnet, m", Usage: "use mainnet settings"},
	cli.BoolFlag{Name: "testnet, t", Usage: "use testnet settings"},
	cli.BoolFlag{Name: "privnet, p", Usage: "use privnet settings (default)"},
}

// NewCommands returns the "node" and "db" command trees.
func NewCommands() []cli.Command {
	return []cli.Command{
		{
			Name:   "node",
			Usage:  "start a Neo N3 node",
			Action: startServer,
			Flags:  networkFlags,
		},
		{
			Name:  "db",
			Usage: "chain database import/export",
			Subcommands: []cli.Command{
				{
					Name:   "dump",
					Usage:  "dump a block range to a file",
					Action: dumpDB,
					Flags: append(append([]cli.Flag{}, networkFlags...),
						cli.StringFlag{Name: "out, o", Usage: "output file (stdout if empty)"},
						cli.UintFlag{Name: "start, s", Usage: "first block index to dump"},
						cli.UintFlag{Name: "count, c", Usage: "number of blocks to dump (0: to chain tip)"},
					),
				},
				{
					Name:   "restore",
					Usage:  "restore a block range from a file",
					Action: restoreDB,
					Flags: append(append([]cli.Flag{}, networkFlags...),
						cli.StringFlag{Name: "in, i", Usage: "input file (required)"},
						cli.UintFlag{Name: "skip", Usage: "number of leading blocks in the file to skip"},
						cli.UintFlag{Name: "count, c", Usage: "number of blocks to restore (0: to EOF)"},
					),
				},
			},
		},
	}
}

func netModeFromContext(c *cli.Context) netmode.Magic {
	switch {
	case c.Bool("mainnet"):
		return netmode.MainNet
	case c.Bool("testnet"):
		return netmode.TestNet
	default:
		return netmode.PrivNet
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	return config.Load(c.String("config-path"), netModeFromContext(c))
}

func newLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}

func openChain(cfg config.Config, log *zap.Logger) (*ledger.Blockchain, error) {
	store, err := storage.NewStore(cfg.ApplicationConfiguration.DBConfiguration)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	bc, err := ledger.New(cfg.ProtocolConfiguration, store, log)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("initializing chain: %w", err)
	}
	return bc, nil
}

// startServer runs a node until SIGINT/SIGTERM. Consensus participation
// requires an unlocked validator wallet (pkg/config.Consensus.UnlockWallet);
// wallet decryption is out of this node's scope, so a node configured
// with Consensus.Enabled only logs that it cannot participate rather
// than failing to start — it still validates and serves the chain it
// already has.
func startServer(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	log, err := newLogger()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() { _ = log.Sync() }()

	bc, err := openChain(cfg, log)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() { _ = bc.Close() }()

	log.Info("chain opened",
		zap.Uint32("height", bc.BlockHeight()),
		zap.String("network", cfg.ProtocolConfiguration.Magic.String()))

	if cfg.ApplicationConfiguration.Consensus.Enabled {
		log.Warn("consensus is enabled in configuration but wallet unlock is not implemented; running as a validating, non-producing node")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")
	return nil
}

func dumpDB(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	log, err := newLogger()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() { _ = log.Sync() }()

	bc, err := openChain(cfg, log)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() { _ = bc.Close() }()

	out := os.Stdout
	if path := c.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	start := uint32(c.Uint("start"))
	count := uint32(c.Uint("count"))
	if count == 0 {
		count = bc.BlockHeight() + 1 - start
	}

	w := io.NewBinWriterFromIO(out)
	if err := chaindump.Dump(bc, w, start, count); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

func restoreDB(c *cli.Context) error {
	path := c.String("in")
	if path == "" {
		return cli.NewExitError("missing required --in flag", 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	log, err := newLogger()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() { _ = log.Sync() }()

	bc, err := openChain(cfg, log)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() { _ = bc.Close() }()

	f, err := os.Open(path)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() { _ = f.Close() }()

	r := io.NewBinReaderFromIO(f)
	skip := uint32(c.Uint("skip"))
	count := uint32(c.Uint("count"))
	if count == 0 {
		count = ^uint32(0)
	}

	imported := uint32(0)
	err = chaindump.Restore(bc, r, skip, count, func(_ *block.Block) error {
		imported++
		return nil
	})
	if err != nil && imported == 0 {
		return cli.NewExitError(err, 1)
	}
	log.Info("restore finished", zap.Uint32("imported", imported))
	return nil
}
