package archiver

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/mantlenetworkio/op-archiver/op-archiver/config"
	"github.com/mantlenetworkio/op-archiver/op-archiver/l2"
	opmetrics "github.com/mantlenetworkio/op-archiver/op-service/metrics"
	"github.com/mantlenetworkio/op-archiver/op-service/testlog"
)

func serviceConfig() *config.Config {
	cfg := config.DefaultCLIConfig()
	cfg.Version = "v0.0.1"
	// nothing listens here, every poll fails and is retried
	cfg.L1EthRpc = "http://127.0.0.1:1"
	cfg.RollupAddress = common.HexToAddress("0x1234")
	cfg.UnverifiedDataEmitterAddress = common.HexToAddress("0x5678")
	cfg.RPCTimeout = time.Second
	return cfg
}

// TestService is a quick smoke-test to check the service is up and running
func TestService(t *testing.T) {
	logger := testlog.Logger(t, log.LevelInfo)
	cfg := serviceConfig()
	cfg.MetricsConfig = opmetrics.CLIConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1",
		ListenPort: 0,
	}
	require.NoError(t, cfg.Check())

	srv, err := FromConfig(context.Background(), cfg, logger)
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))
	require.False(t, srv.Stopped())
	require.EqualValues(t, 0, srv.Archiver().BlockHeight())

	resp, err := http.Get(srv.MetricsEndpoint() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	require.Contains(t, string(body), "op_archiver_default_up 1")

	require.NoError(t, srv.Stop(context.Background()))
	require.True(t, srv.Stopped())
	require.True(t, srv.Archiver().Stopped())
	// a second stop is a no-op
	require.NoError(t, srv.Stop(context.Background()))
}

func TestServiceDurableStore(t *testing.T) {
	logger := testlog.Logger(t, log.LevelInfo)
	cfg := serviceConfig()
	cfg.DataDir = t.TempDir()

	srv, err := FromConfig(context.Background(), cfg, logger)
	require.NoError(t, err)
	require.Empty(t, srv.MetricsEndpoint())
	require.NoError(t, srv.store.AppendBlock(&l2.Block{Number: 1}))
	require.NoError(t, srv.Stop(context.Background()))

	srv, err = FromConfig(context.Background(), cfg, logger)
	require.NoError(t, err)
	require.EqualValues(t, 1, srv.Archiver().BlockHeight())
	require.NoError(t, srv.Stop(context.Background()))
}

func TestServiceInvalidEndpoint(t *testing.T) {
	logger := testlog.Logger(t, log.LevelInfo)
	cfg := serviceConfig()
	cfg.L1EthRpc = "unsupported://localhost"
	_, err := FromConfig(context.Background(), cfg, logger)
	require.ErrorContains(t, err, "failed to dial L1")
}
