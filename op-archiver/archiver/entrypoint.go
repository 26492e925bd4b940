package archiver

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/mantlenetworkio/op-archiver/op-archiver/config"
	"github.com/mantlenetworkio/op-archiver/op-archiver/flags"
	opservice "github.com/mantlenetworkio/op-archiver/op-service"
	"github.com/mantlenetworkio/op-archiver/op-service/cliapp"
	oplog "github.com/mantlenetworkio/op-archiver/op-service/log"
)

type MainFn func(ctx context.Context, cfg *config.Config, logger log.Logger) (cliapp.Lifecycle, error)

// Main is the entrypoint into the archiver service.
// This method returns a cliapp.LifecycleAction, to create an op-service CLI-lifecycle-managed archiver.
func Main(version string, fn MainFn) cliapp.LifecycleAction {
	return func(cliCtx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
		if err := flags.CheckRequired(cliCtx); err != nil {
			return nil, err
		}
		cfg, err := flags.ConfigFromCLI(cliCtx, version)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Check(); err != nil {
			return nil, fmt.Errorf("invalid CLI flags: %w", err)
		}

		l := oplog.NewLogger(cliCtx.App.Writer, cfg.LogConfig)
		oplog.SetGlobalLogHandler(l.Handler())
		for _, msg := range opservice.ValidateEnvVars(flags.EnvVarPrefix, cliapp.FlagEnvVars(flags.Flags), os.Environ()) {
			l.Warn(msg)
		}

		l.Info("Initializing archiver", "version", version,
			"rollup", cfg.RollupAddress, "unverified_data_emitter", cfg.UnverifiedDataEmitterAddress)
		return fn(cliCtx.Context, cfg, l)
	}
}
