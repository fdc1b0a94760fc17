package staking

import "math/big"

// MaxEarlyWithdrawalFeePercent is the hard ceiling on the principal fee charged
// for unstaking before the staking period elapses.
const MaxEarlyWithdrawalFeePercent uint64 = 30

// rewardPrecision is the fixed multiplier carried inside the accumulator so
// that repeated truncating division does not materially erode rewards.
var rewardPrecision = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Pool is the global accrual state shared by every participant of one staking
// pool. Rewards are distributed with the reward-per-unit accumulator pattern:
// each state-changing call first folds the elapsed emission into
// AccRewardPerUnit, so no operation ever iterates participants.
type Pool struct {
	TotalStaked *big.Int `json:"totalStaked"`
	// TotalUsers counts participants with nonzero stake. It moves exactly
	// once per zero-to-nonzero transition and once per the reverse.
	TotalUsers uint64 `json:"totalUsers"`
	// RewardRate is the reward emission per second, split pro rata across
	// staked units.
	RewardRate *big.Int `json:"rewardRate"`
	// AccRewardPerUnit is scaled by rewardPrecision and never decreases.
	AccRewardPerUnit *big.Int `json:"accRewardPerUnit"`
	LastUpdateTime   int64    `json:"lastUpdateTime"`
	// StakingPeriod is the holding duration after which the early-withdrawal
	// fee no longer applies.
	StakingPeriod             int64  `json:"stakingPeriod"`
	EarlyWithdrawalFeePercent uint64 `json:"earlyWithdrawalFee"`
	// RewardReserve is the funded capacity harvests draw from.
	RewardReserve *big.Int `json:"rewardReserve"`
}

// Clone returns a deep copy of the pool state.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	out := *p
	out.TotalStaked = cloneAmount(p.TotalStaked)
	out.RewardRate = cloneAmount(p.RewardRate)
	out.AccRewardPerUnit = cloneAmount(p.AccRewardPerUnit)
	out.RewardReserve = cloneAmount(p.RewardReserve)
	return &out
}

func ensurePool(p *Pool) *Pool {
	if p == nil {
		p = &Pool{}
	}
	if p.TotalStaked == nil {
		p.TotalStaked = big.NewInt(0)
	}
	if p.RewardRate == nil {
		p.RewardRate = big.NewInt(0)
	}
	if p.AccRewardPerUnit == nil {
		p.AccRewardPerUnit = big.NewInt(0)
	}
	if p.RewardReserve == nil {
		p.RewardReserve = big.NewInt(0)
	}
	return p
}

// Update folds the emission since LastUpdateTime into the accumulator. When
// nothing is staked the accumulator is left unchanged and only the clock
// advances, so idle periods emit nothing.
func (p *Pool) Update(now int64) {
	if p == nil {
		return
	}
	if now <= p.LastUpdateTime {
		return
	}
	elapsed := now - p.LastUpdateTime
	p.LastUpdateTime = now
	if p.TotalStaked.Sign() == 0 || p.RewardRate.Sign() == 0 {
		return
	}
	// delta = elapsed * rate * precision / totalStaked, truncating. The
	// truncation dust stays inside the precision scale.
	delta := new(big.Int).Mul(big.NewInt(elapsed), p.RewardRate)
	delta.Mul(delta, rewardPrecision)
	delta.Quo(delta, p.TotalStaked)
	p.AccRewardPerUnit = new(big.Int).Add(p.AccRewardPerUnit, delta)
}

// PendingFor computes the reward owed for staked units whose debt snapshot was
// taken at an earlier accumulator value.
func (p *Pool) PendingFor(staked, rewardDebt *big.Int) *big.Int {
	if p == nil || staked == nil || staked.Sign() == 0 {
		return big.NewInt(0)
	}
	debt := rewardDebt
	if debt == nil {
		debt = big.NewInt(0)
	}
	diff := new(big.Int).Sub(p.AccRewardPerUnit, debt)
	if diff.Sign() <= 0 {
		return big.NewInt(0)
	}
	pending := new(big.Int).Mul(staked, diff)
	return pending.Quo(pending, rewardPrecision)
}

// Position is the per-participant stake record. Items is populated only by
// the NFT pool; StakedAmount tracks fungible units for the token pool and the
// item count for the NFT pool so both share one accrual core.
type Position struct {
	StakedAmount *big.Int `json:"stakedAmount"`
	Items        []uint64 `json:"items,omitempty"`
	// RewardDebt snapshots AccRewardPerUnit at the last settlement.
	RewardDebt     *big.Int `json:"rewardDebt"`
	PendingRewards *big.Int `json:"pendingRewards"`
	LastStakeTime  int64    `json:"lastStakeTime"`
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	out := *p
	out.StakedAmount = cloneAmount(p.StakedAmount)
	out.RewardDebt = cloneAmount(p.RewardDebt)
	out.PendingRewards = cloneAmount(p.PendingRewards)
	if p.Items != nil {
		out.Items = append([]uint64(nil), p.Items...)
	}
	return &out
}

func ensurePosition(p *Position) *Position {
	if p == nil {
		p = &Position{}
	}
	if p.StakedAmount == nil {
		p.StakedAmount = big.NewInt(0)
	}
	if p.RewardDebt == nil {
		p.RewardDebt = big.NewInt(0)
	}
	if p.PendingRewards == nil {
		p.PendingRewards = big.NewInt(0)
	}
	return p
}

// settle folds the accrued delta into PendingRewards and refreshes the debt
// snapshot. Callers must invoke Pool.Update first so the accumulator reflects
// the operation's timestamp; the settle-before-mutate order keeps rewards
// attributed to the rate and stake that earned them.
func (p *Position) settle(pool *Pool) {
	accrued := pool.PendingFor(p.StakedAmount, p.RewardDebt)
	if accrued.Sign() > 0 {
		p.PendingRewards = new(big.Int).Add(p.PendingRewards, accrued)
	}
	p.RewardDebt = new(big.Int).Set(pool.AccRewardPerUnit)
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
