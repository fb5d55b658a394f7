package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Validate checks the configuration for internally inconsistent or unusable
// values. It is called by Load and again by the daemon after flag overrides.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress must be set")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir must be set")
	}

	stakeAsset, err := parseAddress(c.StakeAsset, "StakeAsset")
	if err != nil {
		return err
	}
	if _, err := parseAddress(c.Admin, "Admin"); err != nil {
		return err
	}

	seen := make(map[common.Address]struct{}, len(c.RewardAssets))
	for i, reward := range c.RewardAssets {
		asset, err := parseAddress(reward.Asset, fmt.Sprintf("RewardAssets[%d].Asset", i))
		if err != nil {
			return err
		}
		if asset == stakeAsset {
			return fmt.Errorf("config: RewardAssets[%d] duplicates the stake asset", i)
		}
		if _, dup := seen[asset]; dup {
			return fmt.Errorf("config: RewardAssets[%d] registered twice", i)
		}
		seen[asset] = struct{}{}
		if reward.Duration == 0 {
			return fmt.Errorf("config: RewardAssets[%d].Duration must be positive", i)
		}
	}

	if c.Auth.Enabled && strings.TrimSpace(c.Auth.HMACSecret) == "" {
		return fmt.Errorf("config: Auth.HMACSecret required when auth is enabled")
	}
	return nil
}

// StakeAssetAddress returns the parsed stake asset identifier.
func (c *Config) StakeAssetAddress() common.Address {
	return common.HexToAddress(c.StakeAsset)
}

// AdminAddress returns the parsed administrator identifier.
func (c *Config) AdminAddress() common.Address {
	return common.HexToAddress(c.Admin)
}

func parseAddress(value, field string) (common.Address, error) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("config: %s is not a valid hex address: %q", field, value)
	}
	addr := common.HexToAddress(trimmed)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("config: %s must not be the zero address", field)
	}
	return addr, nil
}
