package events

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"azzurri/core/types"
)

const (
	// TypeStakeDeposited captures principal entering a staking pool.
	TypeStakeDeposited = "staking.deposited"
	// TypeStakeWithdrawn captures principal leaving a staking pool, including
	// any early-withdrawal fee charged on it.
	TypeStakeWithdrawn = "staking.withdrawn"
	// TypeRewardsHarvested is emitted when pending rewards are paid out.
	TypeRewardsHarvested = "staking.rewardsHarvested"
	// TypeRewardsFunded is emitted when the reward reserve is topped up.
	TypeRewardsFunded = "staking.rewardsFunded"
)

// StakeDeposited captures the principal delta realised by a stake call. Items
// is empty for the fungible pool.
type StakeDeposited struct {
	Pool   string
	Owner  common.Address
	Amount *big.Int
	Items  []uint64
}

// EventType satisfies the Event interface.
func (StakeDeposited) EventType() string { return TypeStakeDeposited }

// Event converts the structured payload into a broadcastable event.
func (e StakeDeposited) Event() *types.Event {
	attrs := map[string]string{
		"pool":   e.Pool,
		"owner":  e.Owner.Hex(),
		"amount": formatAmount(e.Amount),
	}
	if len(e.Items) > 0 {
		attrs["items"] = formatItems(e.Items)
	}
	return &types.Event{Type: TypeStakeDeposited, Attributes: attrs}
}

// StakeWithdrawn captures the principal returned by an unstake call together
// with the fee deducted from it.
type StakeWithdrawn struct {
	Pool   string
	Owner  common.Address
	Amount *big.Int
	Fee    *big.Int
	Items  []uint64
}

func (StakeWithdrawn) EventType() string { return TypeStakeWithdrawn }

// Event converts the structured payload into a broadcastable event.
func (e StakeWithdrawn) Event() *types.Event {
	attrs := map[string]string{
		"pool":   e.Pool,
		"owner":  e.Owner.Hex(),
		"amount": formatAmount(e.Amount),
		"fee":    formatAmount(e.Fee),
	}
	if len(e.Items) > 0 {
		attrs["items"] = formatItems(e.Items)
	}
	return &types.Event{Type: TypeStakeWithdrawn, Attributes: attrs}
}

// RewardsHarvested captures a reward payout realised by a harvest call.
// Reserve is the reward reserve left after the payout.
type RewardsHarvested struct {
	Pool    string
	Owner   common.Address
	Amount  *big.Int
	Reserve *big.Int
}

func (RewardsHarvested) EventType() string { return TypeRewardsHarvested }

// Event converts the structured payload into a broadcastable event.
func (e RewardsHarvested) Event() *types.Event {
	return &types.Event{
		Type: TypeRewardsHarvested,
		Attributes: map[string]string{
			"pool":    e.Pool,
			"owner":   e.Owner.Hex(),
			"amount":  formatAmount(e.Amount),
			"reserve": formatAmount(e.Reserve),
		},
	}
}

// RewardsFunded captures a reward reserve top-up.
type RewardsFunded struct {
	Pool    string
	Funder  common.Address
	Amount  *big.Int
	Reserve *big.Int
}

func (RewardsFunded) EventType() string { return TypeRewardsFunded }

// Event converts the structured payload into a broadcastable event.
func (e RewardsFunded) Event() *types.Event {
	return &types.Event{
		Type: TypeRewardsFunded,
		Attributes: map[string]string{
			"pool":    e.Pool,
			"funder":  e.Funder.Hex(),
			"amount":  formatAmount(e.Amount),
			"reserve": formatAmount(e.Reserve),
		},
	}
}

func formatItems(items []uint64) string {
	parts := make([]string, 0, len(items))
	for _, id := range items {
		parts = append(parts, strconv.FormatUint(id, 10))
	}
	return strings.Join(parts, ",")
}
