package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// RewardAssetConfig declares a reward asset registered at boot.
type RewardAssetConfig struct {
	Asset    string `toml:"Asset"`
	Duration uint64 `toml:"Duration"`
}

// AuthConfig controls bearer authentication on admin RPC methods.
type AuthConfig struct {
	Enabled    bool   `toml:"Enabled"`
	HMACSecret string `toml:"HMACSecret"`
	Issuer     string `toml:"Issuer"`
	Audience   string `toml:"Audience"`
}

// Config is the service configuration loaded from a TOML file.
type Config struct {
	ListenAddress string              `toml:"ListenAddress"`
	DataDir       string              `toml:"DataDir"`
	Env           string              `toml:"Env"`
	LogFile       string              `toml:"LogFile"`
	StakeAsset    string              `toml:"StakeAsset"`
	Admin         string              `toml:"Admin"`
	Auth          AuthConfig          `toml:"Auth"`
	RewardAssets  []RewardAssetConfig `toml:"RewardAssets"`
}

// Load loads the configuration from the given path. A missing file produces a
// default configuration written back to the path.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s contains unknown keys: %v", path, undecoded)
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8546"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.Env == "" {
		cfg.Env = "dev"
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)

	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
