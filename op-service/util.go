package op_service

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// PrefixEnvVar returns the env var names for a flag, namespaced under the service prefix.
func PrefixEnvVar(prefix, suffix string) []string {
	return []string{prefix + "_" + suffix}
}

// FlagNameToEnvVarName maps a flag name like "log.level" to PREFIX_LOG_LEVEL.
func FlagNameToEnvVarName(f string, prefix string) string {
	f = strings.NewReplacer(".", "_", "-", "_").Replace(f)
	return prefix + "_" + strings.ToUpper(f)
}

// FormatVersion renders a semver with optional commit, date and meta information,
// e.g. v1.2.0-abcdef12-1700000000-dev.
func FormatVersion(version string, gitCommit string, gitDate string, meta string) string {
	parts := []string{version}
	if gitCommit != "" {
		if len(gitCommit) >= 8 {
			gitCommit = gitCommit[:8]
		}
		parts = append(parts, gitCommit)
	}
	if gitDate != "" {
		parts = append(parts, gitDate)
	}
	if meta != "" {
		parts = append(parts, meta)
	}
	return strings.Join(parts, "-")
}

// ValidateEnvVars logs all env vars that look like they belong to the service,
// but are not known flags. This catches typos in deployment configs.
func ValidateEnvVars(prefix string, flagEnvVars map[string]struct{}, environ []string) []string {
	var out []string
	for _, env := range environ {
		key, _, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, prefix+"_") {
			continue
		}
		if _, known := flagEnvVars[key]; !known {
			out = append(out, fmt.Sprintf("unknown env var: %s", key))
		}
	}
	return out
}

// ParseAddress parses a 0x-prefixed or bare hex address.
func ParseAddress(address string) (common.Address, error) {
	if common.IsHexAddress(address) {
		return common.HexToAddress(address), nil
	}
	return common.Address{}, fmt.Errorf("invalid address: %v", address)
}
