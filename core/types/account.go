package types

import "math/big"

// Account holds the per-address ledger state for a single token. Accounts are
// created implicitly on first credit and are never deleted; a zero balance is
// a valid terminal state.
type Account struct {
	Balance *big.Int `json:"balance"`
	// FeeExempt marks the address as excluded from transfer fees on either
	// side of a transfer.
	FeeExempt bool `json:"feeExempt,omitempty"`
	// PoolPair flags the address as a liquidity-pool counterparty. Transfers
	// into or out of a pair address are fee-liable.
	PoolPair bool `json:"poolPair,omitempty"`
}

// Clone returns a deep copy of the account so callers cannot alias the
// balance big.Int held by state.
func (a *Account) Clone() *Account {
	if a == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	out := *a
	if a.Balance != nil {
		out.Balance = new(big.Int).Set(a.Balance)
	} else {
		out.Balance = big.NewInt(0)
	}
	return &out
}
