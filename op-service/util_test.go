package op_service

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestPrefixEnvVar(t *testing.T) {
	require.Equal(t, []string{"OP_ARCHIVER_L1_ETH_RPC"}, PrefixEnvVar("OP_ARCHIVER", "L1_ETH_RPC"))
}

func TestFlagNameToEnvVarName(t *testing.T) {
	require.Equal(t, "OP_ARCHIVER_LOG_LEVEL", FlagNameToEnvVarName("log.level", "OP_ARCHIVER"))
	require.Equal(t, "OP_ARCHIVER_L1_ETH_RPC", FlagNameToEnvVarName("l1-eth-rpc", "OP_ARCHIVER"))
}

func TestFormatVersion(t *testing.T) {
	require.Equal(t, "v1.0.0", FormatVersion("v1.0.0", "", "", ""))
	require.Equal(t, "v1.0.0-abcdef12-1700000000-dev", FormatVersion("v1.0.0", "abcdef1234567890", "1700000000", "dev"))
	require.Equal(t, "v1.0.0-abc", FormatVersion("v1.0.0", "abc", "", ""))
}

func TestValidateEnvVars(t *testing.T) {
	known := map[string]struct{}{"OP_ARCHIVER_L1_ETH_RPC": {}}
	environ := []string{
		"OP_ARCHIVER_L1_ETH_RPC=http://localhost:8545",
		"OP_ARCHIVER_L1_ETH_RCP=typo",
		"HOME=/root",
	}
	require.Equal(t, []string{"unknown env var: OP_ARCHIVER_L1_ETH_RCP"}, ValidateEnvVars("OP_ARCHIVER", known, environ))
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x0000000000000000000000000000000000001234")
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0x1234"), addr)

	_, err = ParseAddress("0x1234")
	require.ErrorContains(t, err, "invalid address")
}
