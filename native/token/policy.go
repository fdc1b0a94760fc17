package token

import "math/big"

// FeeDirection labels the economic direction of a fee-liable transfer.
type FeeDirection string

const (
	// FeeDirectionNone marks a transfer with no fee obligation.
	FeeDirectionNone FeeDirection = ""
	// FeeDirectionBuy marks a transfer out of a pair address.
	FeeDirectionBuy FeeDirection = "buy"
	// FeeDirectionSell marks a transfer into a pair address.
	FeeDirectionSell FeeDirection = "sell"
)

// QuoteInput captures the context required to evaluate the fee obligation for
// a single transfer.
type QuoteInput struct {
	Amount     *big.Int
	FromPair   bool
	ToPair     bool
	FromExempt bool
	ToExempt   bool
	Now        int64

	BuyFeePercent  uint64
	SellFeePercent uint64
	FeeEndTime     int64
}

// QuoteResult summarises the computed fee and the resulting net amount. The
// caller is responsible for routing the fee to the collector account.
type QuoteResult struct {
	Fee       *big.Int
	Net       *big.Int
	Direction FeeDirection
}

// Quote evaluates the fee policy for the supplied transfer. It is a pure
// function: exemptions on either side, or an elapsed fee window, yield a zero
// fee regardless of pair flags. When both endpoints are pair addresses the buy
// fee takes precedence; a pair-to-pair transfer is not a normal economic event
// and the deterministic tie-break keeps accounting reproducible.
func Quote(in QuoteInput) QuoteResult {
	result := QuoteResult{Fee: big.NewInt(0)}
	if in.Amount != nil {
		result.Net = new(big.Int).Set(in.Amount)
	} else {
		result.Net = big.NewInt(0)
	}
	if result.Net.Sign() <= 0 {
		return result
	}
	if in.FromExempt || in.ToExempt {
		return result
	}
	if in.FeeEndTime == 0 || in.Now >= in.FeeEndTime {
		return result
	}

	var rate uint64
	switch {
	case in.FromPair:
		rate = in.BuyFeePercent
		result.Direction = FeeDirectionBuy
	case in.ToPair:
		rate = in.SellFeePercent
		result.Direction = FeeDirectionSell
	default:
		return result
	}
	if rate == 0 {
		result.Direction = FeeDirectionNone
		return result
	}

	fee := new(big.Int).Mul(result.Net, new(big.Int).SetUint64(rate))
	fee = fee.Quo(fee, big.NewInt(100))
	if fee.Sign() <= 0 {
		result.Direction = FeeDirectionNone
		return result
	}
	result.Fee = fee
	result.Net = new(big.Int).Sub(result.Net, fee)
	return result
}
