package rover

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/openmargin/rover/core"
)

const defaultMaxUnlockingPositions = 100

// Config holds the static deployment configuration of the credit manager.
type Config struct {
	// ContractAddress is the manager's own address; self-callbacks and the
	// system-address check depend on it.
	ContractAddress string `yaml:"contract_address"`
	// BaseDenom is the valuation denom for health reporting.
	BaseDenom string `yaml:"base_denom"`
	// RewardsCollectorAccount receives protocol liquidation fees.
	RewardsCollectorAccount string `yaml:"rewards_collector_account"`
	// SystemAddresses are the collaborator contracts; none may own a credit
	// account.
	SystemAddresses       []string `yaml:"system_addresses"`
	MaxUnlockingPositions int      `yaml:"max_unlocking_positions"`
	// StatePath is the sqlite file; empty selects the in-memory store.
	StatePath string `yaml:"state_path"`
	LogLevel  string `yaml:"log_level"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if cfg.MaxUnlockingPositions == 0 {
		cfg.MaxUnlockingPositions = defaultMaxUnlockingPositions
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ContractAddress == "" {
		return errors.Wrap(core.ErrInvalidConfig, "contract_address must be set")
	}
	if err := core.ValidateDenom(c.BaseDenom); err != nil {
		return errors.Wrap(err, "base_denom")
	}
	if c.RewardsCollectorAccount == "" {
		return errors.Wrap(core.ErrInvalidConfig, "rewards_collector_account must be set")
	}
	if c.MaxUnlockingPositions < 0 {
		return errors.Wrap(core.ErrInvalidConfig, "max_unlocking_positions must not be negative")
	}
	for _, addr := range c.SystemAddresses {
		if addr == "" {
			return errors.Wrap(core.ErrInvalidConfig, "system_addresses must not contain empty entries")
		}
	}
	return nil
}
