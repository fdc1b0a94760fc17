package events

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"azzurri/core/types"
)

const (
	// TypeTokenTransferred captures a fee-adjusted balance movement.
	TypeTokenTransferred = "token.transferred"
	// TypeTokenMinted is emitted when new supply is created for an account.
	TypeTokenMinted = "token.minted"
	// TypeTokenBurned is emitted when supply is destroyed from an account.
	TypeTokenBurned = "token.burned"
	// TypeFeesWithdrawn signals that the collected fee balance was paid out.
	TypeFeesWithdrawn = "token.feesWithdrawn"
)

// TokenTransferred captures the gross amount and the fee split realised by a
// transfer.
type TokenTransferred struct {
	From   common.Address
	To     common.Address
	Amount *big.Int
	Fee    *big.Int
}

// EventType satisfies the Event interface.
func (TokenTransferred) EventType() string { return TypeTokenTransferred }

// Event converts the structured payload into a broadcastable event.
func (e TokenTransferred) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenTransferred,
		Attributes: map[string]string{
			"from":   e.From.Hex(),
			"to":     e.To.Hex(),
			"amount": formatAmount(e.Amount),
			"fee":    formatAmount(e.Fee),
		},
	}
}

// TokenMinted captures newly created supply credited to an account.
type TokenMinted struct {
	To     common.Address
	Amount *big.Int
	Supply *big.Int
}

func (TokenMinted) EventType() string { return TypeTokenMinted }

// Event converts the structured payload into a broadcastable event.
func (e TokenMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenMinted,
		Attributes: map[string]string{
			"to":     e.To.Hex(),
			"amount": formatAmount(e.Amount),
			"supply": formatAmount(e.Supply),
		},
	}
}

// TokenBurned captures supply destroyed from an account.
type TokenBurned struct {
	From   common.Address
	Amount *big.Int
	Supply *big.Int
}

func (TokenBurned) EventType() string { return TypeTokenBurned }

// Event converts the structured payload into a broadcastable event.
func (e TokenBurned) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenBurned,
		Attributes: map[string]string{
			"from":   e.From.Hex(),
			"amount": formatAmount(e.Amount),
			"supply": formatAmount(e.Supply),
		},
	}
}

// FeesWithdrawn captures the payout of the accumulated fee balance.
type FeesWithdrawn struct {
	To     common.Address
	Amount *big.Int
	At     int64
}

func (FeesWithdrawn) EventType() string { return TypeFeesWithdrawn }

// Event converts the structured payload into a broadcastable event.
func (e FeesWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeFeesWithdrawn,
		Attributes: map[string]string{
			"to":     e.To.Hex(),
			"amount": formatAmount(e.Amount),
			"at":     strconv.FormatInt(e.At, 10),
		},
	}
}
