package archiver

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"

	"github.com/mantlenetworkio/op-archiver/op-archiver/archiver/store"
	"github.com/mantlenetworkio/op-archiver/op-archiver/config"
	"github.com/mantlenetworkio/op-archiver/op-archiver/metrics"
	"github.com/mantlenetworkio/op-archiver/op-service/cliapp"
	opmetrics "github.com/mantlenetworkio/op-archiver/op-service/metrics"
)

// Service runs an Archiver against a live L1 node, with its store and metrics server.
type Service struct {
	closing atomic.Bool

	log log.Logger

	metrics    metrics.Metricer
	metricsSrv *opmetrics.Server

	l1Client *ethclient.Client
	store    store.Store
	archiver *Archiver
}

var _ cliapp.Lifecycle = (*Service)(nil)

func FromConfig(ctx context.Context, cfg *config.Config, logger log.Logger) (*Service, error) {
	su := &Service{log: logger}
	if err := su.initFromCLIConfig(ctx, cfg); err != nil {
		return nil, errors.Join(err, su.Stop(ctx)) // try to clean up our failed initialization attempt
	}
	return su, nil
}

func (s *Service) initFromCLIConfig(ctx context.Context, cfg *config.Config) error {
	s.initMetrics(cfg)
	if err := s.initMetricsServer(cfg); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	if err := s.initL1Client(ctx, cfg); err != nil {
		return fmt.Errorf("failed to dial L1: %w", err)
	}
	if err := s.initStore(cfg); err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	if err := s.initArchiver(cfg); err != nil {
		return fmt.Errorf("failed to setup archiver: %w", err)
	}
	return nil
}

func (s *Service) initMetrics(cfg *config.Config) {
	if cfg.MetricsConfig.Enabled {
		procName := "default"
		s.metrics = metrics.NewMetrics(procName)
		s.metrics.RecordInfo(cfg.Version)
	} else {
		s.metrics = metrics.NoopMetricsImpl
	}
}

func (s *Service) initMetricsServer(cfg *config.Config) error {
	if !cfg.MetricsConfig.Enabled {
		s.log.Info("Metrics disabled")
		return nil
	}
	m, ok := s.metrics.(opmetrics.RegistryMetricer)
	if !ok {
		return fmt.Errorf("metrics were enabled, but metricer %T does not expose registry for metrics-server", s.metrics)
	}
	s.log.Debug("Starting metrics server", "addr", cfg.MetricsConfig.ListenAddr, "port", cfg.MetricsConfig.ListenPort)
	metricsSrv, err := opmetrics.StartServer(m.Registry(), cfg.MetricsConfig.ListenAddr, cfg.MetricsConfig.ListenPort)
	if err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	s.log.Info("Started metrics server", "addr", metricsSrv.Addr())
	s.metricsSrv = metricsSrv
	return nil
}

func (s *Service) initL1Client(ctx context.Context, cfg *config.Config) error {
	client, err := ethclient.DialContext(ctx, cfg.L1EthRpc)
	if err != nil {
		return err
	}
	s.l1Client = client
	return nil
}

func (s *Service) initStore(cfg *config.Config) error {
	if cfg.DataDir == "" {
		s.log.Warn("No data dir configured, the archive is kept in memory only")
		s.store = store.NewMemoryStore()
		return nil
	}
	st, err := store.OpenPebbleStore(s.log.New("module", "store"), cfg.DataDir, nil)
	if err != nil {
		return err
	}
	s.store = st
	return nil
}

func (s *Service) initArchiver(cfg *config.Config) error {
	source, err := NewL1Source(s.log.New("module", "l1"), s.l1Client, s.metrics, SourceConfig{
		RollupAddress:                cfg.RollupAddress,
		UnverifiedDataEmitterAddress: cfg.UnverifiedDataEmitterAddress,
		CallTimeout:                  cfg.RPCTimeout,
		RateLimit:                    cfg.RPCRateLimit,
		RateBurst:                    cfg.RPCRateBurst,
		TxCacheSize:                  cfg.TxCacheSize,
	})
	if err != nil {
		return err
	}
	a, err := New(s.log.New("module", "archiver"), s.metrics, source, s.store, Config{
		PollInterval:  cfg.PollInterval,
		L1StartBlock:  cfg.L1StartBlock,
		MaxBlockRange: cfg.MaxBlockRange,
	})
	if err != nil {
		return err
	}
	s.archiver = a
	return nil
}

func (s *Service) Start(ctx context.Context) error {
	s.log.Info("Starting archiver")
	if err := s.archiver.Start(ctx, true); err != nil {
		return fmt.Errorf("unable to start archiver: %w", err)
	}
	s.metrics.RecordUp()
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	if !s.closing.CompareAndSwap(false, true) {
		s.log.Warn("Already closing")
		return nil // already closing
	}
	s.log.Info("Stopping archiver")
	var result error
	if s.archiver != nil {
		if err := s.archiver.Stop(); err != nil && !errors.Is(err, ErrNotStarted) {
			result = errors.Join(result, fmt.Errorf("failed to stop archiver: %w", err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			result = errors.Join(result, fmt.Errorf("failed to close store: %w", err))
		}
	}
	if s.l1Client != nil {
		s.l1Client.Close()
	}
	if s.metricsSrv != nil {
		if err := s.metricsSrv.Stop(ctx); err != nil {
			result = errors.Join(result, fmt.Errorf("failed to stop metrics server: %w", err))
		}
	}
	s.log.Info("Archiver stopped")
	return result
}

func (s *Service) Stopped() bool {
	return s.closing.Load()
}

func (s *Service) Archiver() *Archiver {
	return s.archiver
}

// MetricsEndpoint returns the address of the metrics server, or an empty string if metrics are disabled.
func (s *Service) MetricsEndpoint() string {
	if s.metricsSrv == nil {
		return ""
	}
	return s.metricsSrv.HTTPEndpoint()
}
