package flags

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/mantlenetworkio/op-archiver/op-archiver/config"
	opservice "github.com/mantlenetworkio/op-archiver/op-service"
)

// TestUniqueFlags asserts that all flag names are unique, to avoid accidental conflicts between the many flags.
func TestUniqueFlags(t *testing.T) {
	seenCLI := make(map[string]struct{})
	for _, flag := range Flags {
		for _, name := range flag.Names() {
			if _, ok := seenCLI[name]; ok {
				t.Errorf("duplicate flag %s", name)
				continue
			}
			seenCLI[name] = struct{}{}
		}
	}
}

// TestEnvVarFormat asserts every env var follows the flag name.
func TestEnvVarFormat(t *testing.T) {
	for _, flag := range Flags {
		envFlagGetter, ok := flag.(interface {
			GetEnvVars() []string
		})
		require.True(t, ok, "must be able to cast the flag to an EnvVar interface")
		envFlags := envFlagGetter.GetEnvVars()
		require.Len(t, envFlags, 1, "flags should have exactly one env var")
		expectedEnvVar := opservice.FlagNameToEnvVarName(flag.Names()[0], EnvVarPrefix)
		require.Equal(t, expectedEnvVar, envFlags[0])
	}
}

func configFromArgs(t *testing.T, args ...string) (*config.Config, error) {
	var cfg *config.Config
	var cfgErr error
	app := cli.NewApp()
	app.Flags = Flags
	app.Action = func(ctx *cli.Context) error {
		if err := CheckRequired(ctx); err != nil {
			return err
		}
		cfg, cfgErr = ConfigFromCLI(ctx, "test")
		return nil
	}
	err := app.Run(append([]string{"op-archiver"}, args...))
	if err != nil {
		return nil, err
	}
	return cfg, cfgErr
}

func TestCheckRequired(t *testing.T) {
	_, err := configFromArgs(t)
	require.ErrorContains(t, err, "flag l1-eth-rpc is required")
}

func TestConfigFromCLIDefaults(t *testing.T) {
	cfg, err := configFromArgs(t,
		"--l1-eth-rpc=http://localhost:8545",
		"--rollup-address=0x0000000000000000000000000000000000001234",
		"--unverified-data-emitter-address=0x0000000000000000000000000000000000005678",
	)
	require.NoError(t, err)
	require.Equal(t, "test", cfg.Version)
	require.Equal(t, "http://localhost:8545", cfg.L1EthRpc)
	require.Equal(t, common.HexToAddress("0x1234"), cfg.RollupAddress)
	require.Equal(t, common.HexToAddress("0x5678"), cfg.UnverifiedDataEmitterAddress)
	require.Equal(t, config.DefaultPollInterval, cfg.PollInterval)
	require.EqualValues(t, config.DefaultMaxBlockRange, cfg.MaxBlockRange)
	require.Equal(t, config.DefaultRPCTimeout, cfg.RPCTimeout)
	require.Equal(t, config.DefaultTxCacheSize, cfg.TxCacheSize)
	require.Empty(t, cfg.DataDir)
	require.NoError(t, cfg.Check())
}

func TestConfigFromCLIOverrides(t *testing.T) {
	cfg, err := configFromArgs(t,
		"--l1-eth-rpc=http://localhost:8545",
		"--rollup-address=0x0000000000000000000000000000000000001234",
		"--unverified-data-emitter-address=0x0000000000000000000000000000000000005678",
		"--poll-interval=250ms",
		"--max-block-range=50",
		"--rpc-rate-limit=20",
		"--data-dir=/tmp/archive",
	)
	require.NoError(t, err)
	require.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	require.EqualValues(t, 50, cfg.MaxBlockRange)
	require.Equal(t, 20.0, cfg.RPCRateLimit)
	require.Equal(t, "/tmp/archive", cfg.DataDir)
}

func TestConfigFromCLIInvalidAddress(t *testing.T) {
	_, err := configFromArgs(t,
		"--l1-eth-rpc=http://localhost:8545",
		"--rollup-address=not-an-address",
	)
	require.ErrorContains(t, err, "invalid address")
}

func TestConfigFromCLIContractsFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "contracts.yaml")
	require.NoError(t, os.WriteFile(p, []byte(strings.Join([]string{
		`rollup_address: "0x0000000000000000000000000000000000000aaa"`,
		`unverified_data_emitter_address: "0x0000000000000000000000000000000000000bbb"`,
		`l1_start_block: 77`,
	}, "\n")), 0644))

	cfg, err := configFromArgs(t,
		"--l1-eth-rpc=http://localhost:8545",
		"--contracts-config="+p,
	)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0xaaa"), cfg.RollupAddress)
	require.Equal(t, common.HexToAddress("0xbbb"), cfg.UnverifiedDataEmitterAddress)
	require.EqualValues(t, 77, cfg.L1StartBlock)

	// explicit flags win over the file
	cfg, err = configFromArgs(t,
		"--l1-eth-rpc=http://localhost:8545",
		"--contracts-config="+p,
		"--rollup-address=0x0000000000000000000000000000000000000ccc",
		"--l1-start-block=5",
	)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0xccc"), cfg.RollupAddress)
	require.Equal(t, common.HexToAddress("0xbbb"), cfg.UnverifiedDataEmitterAddress)
	require.EqualValues(t, 5, cfg.L1StartBlock)
}

func TestRequiredFlagsAreListed(t *testing.T) {
	require.True(t, slices.Contains(Flags, cli.Flag(L1EthRpcFlag)))
}
