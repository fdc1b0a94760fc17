package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Validate checks the loaded configuration for internally inconsistent or
// unusable values before any engine is constructed from it.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("config: DataDir must not be empty")
	}
	if err := validateToken("Token", cfg.Token); err != nil {
		return err
	}
	if cfg.Token.BuyFeePercent > 20 || cfg.Token.SellFeePercent > 20 {
		return fmt.Errorf("config: Token fee percent must not exceed 20")
	}
	if cfg.PaymentToken.Name != "" {
		if err := validateToken("PaymentToken", cfg.PaymentToken); err != nil {
			return err
		}
	}
	if err := validateStaking("TokenStaking", cfg.TokenStaking, true); err != nil {
		return err
	}
	if err := validateStaking("NFTStaking", cfg.NFTStaking, false); err != nil {
		return err
	}
	return validateSale(cfg.Sale)
}

func validateToken(section string, tc TokenConfig) error {
	if strings.TrimSpace(tc.Name) == "" {
		return fmt.Errorf("config: %s.Name must not be empty", section)
	}
	if strings.TrimSpace(tc.Symbol) == "" {
		return fmt.Errorf("config: %s.Symbol must not be empty", section)
	}
	if _, err := ParseAmount(tc.MaxSupply); err != nil {
		return fmt.Errorf("config: %s.MaxSupply: %w", section, err)
	}
	if tc.InitialSupply != "" {
		if _, err := ParseAmount(tc.InitialSupply); err != nil {
			return fmt.Errorf("config: %s.InitialSupply: %w", section, err)
		}
	}
	if _, err := ParseAddress(tc.Asset); err != nil {
		return fmt.Errorf("config: %s.Asset: %w", section, err)
	}
	if _, err := ParseAddress(tc.Owner); err != nil {
		return fmt.Errorf("config: %s.Owner: %w", section, err)
	}
	if _, err := ParseAddress(tc.Collector); err != nil {
		return fmt.Errorf("config: %s.Collector: %w", section, err)
	}
	return nil
}

func validateStaking(section string, sc StakingConfig, fungible bool) error {
	if fungible {
		if _, err := ParseAddress(sc.StakeAsset); err != nil {
			return fmt.Errorf("config: %s.StakeAsset: %w", section, err)
		}
		if _, err := ParseAddress(sc.FeeRecipient); err != nil {
			return fmt.Errorf("config: %s.FeeRecipient: %w", section, err)
		}
		if sc.EarlyWithdrawalFeePercent > 30 {
			return fmt.Errorf("config: %s.EarlyWithdrawalFeePercent must not exceed 30", section)
		}
	}
	if _, err := ParseAddress(sc.RewardAsset); err != nil {
		return fmt.Errorf("config: %s.RewardAsset: %w", section, err)
	}
	if _, err := ParseAddress(sc.PoolAddress); err != nil {
		return fmt.Errorf("config: %s.PoolAddress: %w", section, err)
	}
	if sc.RewardRate != "" {
		if _, err := ParseAmount(sc.RewardRate); err != nil {
			return fmt.Errorf("config: %s.RewardRate: %w", section, err)
		}
	}
	if sc.StakingPeriod < 0 {
		return fmt.Errorf("config: %s.StakingPeriod must not be negative", section)
	}
	return nil
}

func validateSale(sc SaleConfig) error {
	if _, err := ParseAddress(sc.PaymentAsset); err != nil {
		return fmt.Errorf("config: Sale.PaymentAsset: %w", err)
	}
	if _, err := ParseAddress(sc.SaleAsset); err != nil {
		return fmt.Errorf("config: Sale.SaleAsset: %w", err)
	}
	if _, err := ParseAddress(sc.SaleAddress); err != nil {
		return fmt.Errorf("config: Sale.SaleAddress: %w", err)
	}
	price, err := ParseAmount(sc.TokenPrice)
	if err != nil {
		return fmt.Errorf("config: Sale.TokenPrice: %w", err)
	}
	if price.Sign() <= 0 {
		return fmt.Errorf("config: Sale.TokenPrice must be positive")
	}
	if _, err := ParseAmount(sc.PurchaseLimit); err != nil {
		return fmt.Errorf("config: Sale.PurchaseLimit: %w", err)
	}
	if _, err := ParseAmount(sc.Cap); err != nil {
		return fmt.Errorf("config: Sale.Cap: %w", err)
	}
	if sc.EndTime < sc.StartTime {
		return fmt.Errorf("config: Sale.EndTime must not precede StartTime")
	}
	if sc.TGEPercent > 100 {
		return fmt.Errorf("config: Sale.TGEPercent must not exceed 100")
	}
	if sc.CliffDuration < 0 || sc.VestingDuration < 0 {
		return fmt.Errorf("config: Sale durations must not be negative")
	}
	return nil
}

// ParseAmount decodes a non-negative decimal amount string.
func ParseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("amount must not be empty")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal amount %q", raw)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}

// ParseAddress decodes a 0x-prefixed hex address string.
func ParseAddress(raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(trimmed), nil
}
