package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the top-level daemon configuration.
type Config struct {
	DataDir        string `toml:"DataDir"`
	MetricsAddress string `toml:"MetricsAddress"`
	Env            string `toml:"Env"`

	Token        TokenConfig   `toml:"Token"`
	PaymentToken TokenConfig   `toml:"PaymentToken"`
	TokenStaking StakingConfig `toml:"TokenStaking"`
	NFTStaking   StakingConfig `toml:"NFTStaking"`
	Sale         SaleConfig    `toml:"Sale"`
}

// TokenConfig parameterises one fee-bearing ledger. Amounts are decimal
// strings in the token's smallest unit; addresses are 0x-prefixed hex.
type TokenConfig struct {
	Name           string `toml:"Name"`
	Symbol         string `toml:"Symbol"`
	MaxSupply      string `toml:"MaxSupply"`
	InitialSupply  string `toml:"InitialSupply"`
	BuyFeePercent  uint64 `toml:"BuyFeePercent"`
	SellFeePercent uint64 `toml:"SellFeePercent"`
	FeeEndTime     int64  `toml:"FeeEndTime"`
	Owner          string `toml:"Owner"`
	Collector      string `toml:"Collector"`
	Asset          string `toml:"Asset"`
}

// StakingConfig parameterises one staking pool. The NFT pool ignores
// StakeAsset and the early-withdrawal fields.
type StakingConfig struct {
	StakeAsset                string `toml:"StakeAsset"`
	RewardAsset               string `toml:"RewardAsset"`
	PoolAddress               string `toml:"PoolAddress"`
	FeeRecipient              string `toml:"FeeRecipient"`
	RewardRate                string `toml:"RewardRate"`
	StakingPeriod             int64  `toml:"StakingPeriod"`
	EarlyWithdrawalFeePercent uint64 `toml:"EarlyWithdrawalFeePercent"`
}

// SaleConfig parameterises the vesting sale.
type SaleConfig struct {
	PaymentAsset    string `toml:"PaymentAsset"`
	SaleAsset       string `toml:"SaleAsset"`
	SaleAddress     string `toml:"SaleAddress"`
	StartTime       int64  `toml:"StartTime"`
	EndTime         int64  `toml:"EndTime"`
	TokenPrice      string `toml:"TokenPrice"`
	PurchaseLimit   string `toml:"PurchaseLimit"`
	Cap             string `toml:"Cap"`
	StartRelease    int64  `toml:"StartRelease"`
	CliffDuration   int64  `toml:"CliffDuration"`
	VestingDuration int64  `toml:"VestingDuration"`
	TGEPercent      uint64 `toml:"TGEPercent"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.MetricsAddress == "" {
		cfg.MetricsAddress = "127.0.0.1:9464"
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("config: create directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("config: create default file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, fmt.Errorf("config: write default file: %w", err)
	}
	return cfg, nil
}
