package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// ContractsConfig describes the deployment the archiver follows.
type ContractsConfig struct {
	RollupAddress                common.Address `yaml:"rollup_address"`
	UnverifiedDataEmitterAddress common.Address `yaml:"unverified_data_emitter_address"`
	// L1StartBlock is usually the L1 block the contracts were deployed at.
	L1StartBlock uint64 `yaml:"l1_start_block,omitempty"`
}

// LoadContractsConfig reads a contracts YAML file. Unknown fields are rejected.
func LoadContractsConfig(path string) (*ContractsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %q: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var out ContractsConfig
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode config %q: %w", path, err)
	}
	return &out, nil
}
