package flags

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/mantlenetworkio/op-archiver/op-archiver/config"
	opservice "github.com/mantlenetworkio/op-archiver/op-service"
	oplog "github.com/mantlenetworkio/op-archiver/op-service/log"
	opmetrics "github.com/mantlenetworkio/op-archiver/op-service/metrics"
)

const EnvVarPrefix = "OP_ARCHIVER"

func prefixEnvVars(name string) []string {
	return opservice.PrefixEnvVar(EnvVarPrefix, name)
}

var (
	// Required flags
	L1EthRpcFlag = &cli.StringFlag{
		Name:    "l1-eth-rpc",
		Usage:   "HTTP or WS provider URL for L1",
		EnvVars: prefixEnvVars("L1_ETH_RPC"),
	}

	// Optional flags
	ContractsConfigFlag = &cli.PathFlag{
		Name:    "contracts-config",
		Usage:   "YAML file with the rollup and unverified data emitter addresses and the L1 start block",
		EnvVars: prefixEnvVars("CONTRACTS_CONFIG"),
	}
	RollupAddressFlag = &cli.StringFlag{
		Name:    "rollup-address",
		Usage:   "Address of the rollup contract emitting L2BlockProcessed",
		EnvVars: prefixEnvVars("ROLLUP_ADDRESS"),
	}
	UnverifiedDataEmitterAddressFlag = &cli.StringFlag{
		Name:    "unverified-data-emitter-address",
		Usage:   "Address of the contract emitting UnverifiedData",
		EnvVars: prefixEnvVars("UNVERIFIED_DATA_EMITTER_ADDRESS"),
	}
	L1StartBlockFlag = &cli.Uint64Flag{
		Name:    "l1-start-block",
		Usage:   "L1 block to start scanning from when no cursor is stored",
		EnvVars: prefixEnvVars("L1_START_BLOCK"),
	}
	PollIntervalFlag = &cli.DurationFlag{
		Name:    "poll-interval",
		Usage:   "Delay between L1 polls",
		EnvVars: prefixEnvVars("POLL_INTERVAL"),
		Value:   config.DefaultPollInterval,
	}
	MaxBlockRangeFlag = &cli.Uint64Flag{
		Name:    "max-block-range",
		Usage:   "Maximum number of L1 blocks per log query. 0 queries the whole range at once",
		EnvVars: prefixEnvVars("MAX_BLOCK_RANGE"),
		Value:   config.DefaultMaxBlockRange,
	}
	RPCTimeoutFlag = &cli.DurationFlag{
		Name:    "rpc-timeout",
		Usage:   "Timeout for a single L1 RPC call",
		EnvVars: prefixEnvVars("RPC_TIMEOUT"),
		Value:   config.DefaultRPCTimeout,
	}
	RPCRateLimitFlag = &cli.Float64Flag{
		Name:    "rpc-rate-limit",
		Usage:   "Maximum L1 RPC calls per second. 0 disables the limit",
		EnvVars: prefixEnvVars("RPC_RATE_LIMIT"),
	}
	RPCRateBurstFlag = &cli.IntFlag{
		Name:    "rpc-rate-burst",
		Usage:   "Burst size of the L1 RPC rate limit",
		EnvVars: prefixEnvVars("RPC_RATE_BURST"),
		Value:   config.DefaultRPCRateBurst,
	}
	TxCacheSizeFlag = &cli.IntFlag{
		Name:    "tx-cache-size",
		Usage:   "Number of L1 transactions kept in the fetch cache",
		EnvVars: prefixEnvVars("TX_CACHE_SIZE"),
		Value:   config.DefaultTxCacheSize,
	}
	DataDirFlag = &cli.PathFlag{
		Name:    "data-dir",
		Usage:   "Directory of the durable archive. Empty keeps the archive in memory",
		EnvVars: prefixEnvVars("DATA_DIR"),
	}
)

var requiredFlags = []cli.Flag{
	L1EthRpcFlag,
}

var optionalFlags = []cli.Flag{
	ContractsConfigFlag,
	RollupAddressFlag,
	UnverifiedDataEmitterAddressFlag,
	L1StartBlockFlag,
	PollIntervalFlag,
	MaxBlockRangeFlag,
	RPCTimeoutFlag,
	RPCRateLimitFlag,
	RPCRateBurstFlag,
	TxCacheSizeFlag,
	DataDirFlag,
}

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(Flags, requiredFlags...)
	Flags = append(Flags, optionalFlags...)
}

// Flags contains the list of configuration options available to the binary.
var Flags []cli.Flag

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}

// ConfigFromCLI builds the service config. Values from the contracts config
// file are used unless the matching flag is set explicitly.
func ConfigFromCLI(ctx *cli.Context, version string) (*config.Config, error) {
	cfg := &config.Config{
		Version:       version,
		L1EthRpc:      ctx.String(L1EthRpcFlag.Name),
		L1StartBlock:  ctx.Uint64(L1StartBlockFlag.Name),
		PollInterval:  ctx.Duration(PollIntervalFlag.Name),
		MaxBlockRange: ctx.Uint64(MaxBlockRangeFlag.Name),
		RPCTimeout:    ctx.Duration(RPCTimeoutFlag.Name),
		RPCRateLimit:  ctx.Float64(RPCRateLimitFlag.Name),
		RPCRateBurst:  ctx.Int(RPCRateBurstFlag.Name),
		TxCacheSize:   ctx.Int(TxCacheSizeFlag.Name),
		DataDir:       ctx.Path(DataDirFlag.Name),
		LogConfig:     oplog.ReadCLIConfig(ctx),
		MetricsConfig: opmetrics.ReadCLIConfig(ctx),
	}

	if path := ctx.Path(ContractsConfigFlag.Name); path != "" {
		contracts, err := config.LoadContractsConfig(path)
		if err != nil {
			return nil, err
		}
		cfg.RollupAddress = contracts.RollupAddress
		cfg.UnverifiedDataEmitterAddress = contracts.UnverifiedDataEmitterAddress
		if !ctx.IsSet(L1StartBlockFlag.Name) {
			cfg.L1StartBlock = contracts.L1StartBlock
		}
	}

	for _, f := range []struct {
		flag *cli.StringFlag
		dst  *common.Address
	}{
		{RollupAddressFlag, &cfg.RollupAddress},
		{UnverifiedDataEmitterAddressFlag, &cfg.UnverifiedDataEmitterAddress},
	} {
		if !ctx.IsSet(f.flag.Name) {
			continue
		}
		addr, err := opservice.ParseAddress(ctx.String(f.flag.Name))
		if err != nil {
			return nil, fmt.Errorf("flag %s: %w", f.flag.Name, err)
		}
		*f.dst = addr
	}
	return cfg, nil
}
