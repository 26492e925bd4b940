package main

import (
	"context"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/mantlenetworkio/op-archiver/op-archiver/archiver"
	"github.com/mantlenetworkio/op-archiver/op-archiver/config"
	"github.com/mantlenetworkio/op-archiver/op-archiver/flags"
	"github.com/mantlenetworkio/op-archiver/op-archiver/metrics"
	opservice "github.com/mantlenetworkio/op-archiver/op-service"
	"github.com/mantlenetworkio/op-archiver/op-service/cliapp"
	oplog "github.com/mantlenetworkio/op-archiver/op-service/log"
	"github.com/mantlenetworkio/op-archiver/op-service/metrics/doc"
)

var (
	Version   = "v0.0.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	err := run(context.Background(), os.Stdout, os.Stderr, os.Args, fromConfig)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(ctx context.Context, w io.Writer, ew io.Writer, args []string, fn archiver.MainFn) error {
	oplog.SetupDefaults()

	app := cli.NewApp()
	app.Writer = w
	app.ErrWriter = ew
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Version = opservice.FormatVersion(Version, GitCommit, GitDate, "")
	app.Name = "op-archiver"
	app.Usage = "op-archiver rebuilds the L2 block history from the L1 rollup contracts."
	app.Description = "Follows the L2BlockProcessed and UnverifiedData events on L1,\n" +
		" decodes the L2 blocks and unverified data, and keeps them in an ordered archive."
	app.Action = cliapp.LifecycleCmd(archiver.Main(app.Version, fn))
	app.Commands = []*cli.Command{
		{
			Name:        "doc",
			Subcommands: doc.NewSubcommands(metrics.NewMetrics("default")),
		},
	}
	return app.RunContext(ctx, args)
}

func fromConfig(ctx context.Context, cfg *config.Config, logger log.Logger) (cliapp.Lifecycle, error) {
	return archiver.FromConfig(ctx, cfg, logger)
}
