package token

import "math/big"

// MaxFeePercent is the hard ceiling on buy and sell fee rates.
const MaxFeePercent uint64 = 20

// Token captures the mutable global state of a fee-bearing ledger: supply
// counters plus the fee configuration consulted on every transfer.
type Token struct {
	Name           string   `json:"name"`
	Symbol         string   `json:"symbol"`
	TotalSupply    *big.Int `json:"totalSupply"`
	MaxSupply      *big.Int `json:"maxSupply"`
	BuyFeePercent  uint64   `json:"buyFee"`
	SellFeePercent uint64   `json:"sellFee"`
	// FeeEndTime is the unix timestamp after which fee rates are treated as
	// zero. A zero value disables fees entirely.
	FeeEndTime int64 `json:"feeEndTime"`
}

// Clone returns a deep copy of the token record.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	out := *t
	if t.TotalSupply != nil {
		out.TotalSupply = new(big.Int).Set(t.TotalSupply)
	} else {
		out.TotalSupply = big.NewInt(0)
	}
	if t.MaxSupply != nil {
		out.MaxSupply = new(big.Int).Set(t.MaxSupply)
	} else {
		out.MaxSupply = big.NewInt(0)
	}
	return &out
}

func ensureToken(t *Token) *Token {
	if t == nil {
		t = &Token{}
	}
	if t.TotalSupply == nil {
		t.TotalSupply = big.NewInt(0)
	}
	if t.MaxSupply == nil {
		t.MaxSupply = big.NewInt(0)
	}
	return t
}
