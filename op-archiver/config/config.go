package config

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"

	oplog "github.com/mantlenetworkio/op-archiver/op-service/log"
	opmetrics "github.com/mantlenetworkio/op-archiver/op-service/metrics"
)

var (
	ErrMissingL1RPC          = errors.New("missing L1 RPC endpoint")
	ErrMissingRollupAddress  = errors.New("missing rollup contract address")
	ErrMissingEmitterAddress = errors.New("missing unverified data emitter contract address")
	ErrInvalidPollInterval   = errors.New("poll interval must be positive")
	ErrInvalidRPCTimeout     = errors.New("rpc timeout must be positive")
	ErrInvalidRateLimit      = errors.New("rpc rate limit must not be negative")
	ErrInvalidTxCacheSize    = errors.New("tx cache size must be positive")
)

const (
	DefaultPollInterval  = time.Second
	DefaultMaxBlockRange = 2000
	DefaultRPCTimeout    = 10 * time.Second
	DefaultRPCRateBurst  = 10
	DefaultTxCacheSize   = 1000
)

// Config is the full configuration of the archiver service.
type Config struct {
	Version string

	L1EthRpc string

	RollupAddress                common.Address
	UnverifiedDataEmitterAddress common.Address
	// L1StartBlock is where scanning starts when no cursor is stored yet.
	L1StartBlock uint64

	PollInterval  time.Duration
	MaxBlockRange uint64

	RPCTimeout   time.Duration
	RPCRateLimit float64
	RPCRateBurst int
	TxCacheSize  int

	// DataDir holds the durable store. Empty keeps everything in memory.
	DataDir string

	LogConfig     oplog.CLIConfig
	MetricsConfig opmetrics.CLIConfig
}

func (c *Config) Check() error {
	var result error
	if c.L1EthRpc == "" {
		result = errors.Join(result, ErrMissingL1RPC)
	}
	if c.RollupAddress == (common.Address{}) {
		result = errors.Join(result, ErrMissingRollupAddress)
	}
	if c.UnverifiedDataEmitterAddress == (common.Address{}) {
		result = errors.Join(result, ErrMissingEmitterAddress)
	}
	if c.PollInterval <= 0 {
		result = errors.Join(result, ErrInvalidPollInterval)
	}
	if c.RPCTimeout <= 0 {
		result = errors.Join(result, ErrInvalidRPCTimeout)
	}
	if c.RPCRateLimit < 0 {
		result = errors.Join(result, ErrInvalidRateLimit)
	}
	if c.TxCacheSize <= 0 {
		result = errors.Join(result, ErrInvalidTxCacheSize)
	}
	result = errors.Join(result, c.MetricsConfig.Check())
	return result
}

func DefaultCLIConfig() *Config {
	return &Config{
		Version:       "dev",
		PollInterval:  DefaultPollInterval,
		MaxBlockRange: DefaultMaxBlockRange,
		RPCTimeout:    DefaultRPCTimeout,
		RPCRateBurst:  DefaultRPCRateBurst,
		TxCacheSize:   DefaultTxCacheSize,
		LogConfig:     oplog.DefaultCLIConfig(),
		MetricsConfig: opmetrics.DefaultCLIConfig(),
	}
}
