package staking

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"azzurri/core/events"
	nativecommon "azzurri/native/common"
)

const tokenPoolModule = "staking.token"

type tokenPoolState interface {
	GetPool() (*Pool, error)
	PutPool(*Pool) error
	GetPosition(addr common.Address) (*Position, error)
	PutPosition(addr common.Address, pos *Position) error
}

// TokenPool is the fungible-stake instantiation of the continuous-accrual
// engine. Principal and the reward reserve are held on the pool address;
// movements in and out go through the Bank collaborator.
type TokenPool struct {
	mu           sync.Mutex
	state        tokenPoolState
	bank         Bank
	authority    Authority
	stakeAsset   common.Address
	rewardAsset  common.Address
	poolAddress  common.Address
	feeRecipient common.Address
	emitter      events.Emitter
	nowFn        func() int64
	pauses       nativecommon.PauseView
}

// NewTokenPool creates a fungible staking pool holding principal and rewards
// on poolAddress and routing early-withdrawal fees to feeRecipient.
func NewTokenPool(stakeAsset, rewardAsset, poolAddress, feeRecipient common.Address) *TokenPool {
	return &TokenPool{
		stakeAsset:   stakeAsset,
		rewardAsset:  rewardAsset,
		poolAddress:  poolAddress,
		feeRecipient: feeRecipient,
		emitter:      events.NoopEmitter{},
		nowFn:        func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the pool to the external persistence layer.
func (p *TokenPool) SetState(state tokenPoolState) { p.state = state }

// SetBank wires the value-moving collaborator.
func (p *TokenPool) SetBank(bank Bank) { p.bank = bank }

// SetAuthority configures the owner capability consulted by admin operations.
func (p *TokenPool) SetAuthority(authority Authority) { p.authority = authority }

// SetPauses wires the runtime pause toggles for the pool.
func (p *TokenPool) SetPauses(v nativecommon.PauseView) { p.pauses = v }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (p *TokenPool) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		p.emitter = events.NoopEmitter{}
		return
	}
	p.emitter = emitter
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (p *TokenPool) SetNowFunc(now func() int64) {
	if now == nil {
		p.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	p.nowFn = now
}

func (p *TokenPool) now() int64 {
	if p.nowFn == nil {
		return time.Now().Unix()
	}
	return p.nowFn()
}

func (p *TokenPool) loadPool() (*Pool, error) {
	if p == nil || p.state == nil {
		return nil, errNilState
	}
	pool, err := p.state.GetPool()
	if err != nil {
		return nil, err
	}
	return ensurePool(pool), nil
}

func (p *TokenPool) loadPosition(addr common.Address) (*Position, error) {
	pos, err := p.state.GetPosition(addr)
	if err != nil {
		return nil, err
	}
	return ensurePosition(pos), nil
}

// Stake moves principal from the owner into the pool and starts accruing
// rewards on it. The timestamp is sampled once and reused throughout.
func (p *TokenPool) Stake(owner common.Address, amount *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := nativecommon.Guard(p.pauses, tokenPoolModule); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if p.bank == nil {
		return errNilBank
	}
	pool, err := p.loadPool()
	if err != nil {
		return err
	}
	pos, err := p.loadPosition(owner)
	if err != nil {
		return err
	}

	now := p.now()
	pool.Update(now)
	pos.settle(pool)

	if err := p.bank.Transfer(p.stakeAsset, owner, p.poolAddress, amount); err != nil {
		return err
	}

	wasZero := pos.StakedAmount.Sign() == 0
	pos.StakedAmount = new(big.Int).Add(pos.StakedAmount, amount)
	pos.LastStakeTime = now
	pool.TotalStaked = new(big.Int).Add(pool.TotalStaked, amount)
	if wasZero {
		pool.TotalUsers++
	}

	if err := p.state.PutPosition(owner, pos); err != nil {
		return err
	}
	if err := p.state.PutPool(pool); err != nil {
		return err
	}
	p.emit(events.StakeDeposited{Pool: tokenPoolModule, Owner: owner, Amount: cloneAmount(amount)})
	return nil
}

// Unstake returns principal to the owner. Withdrawing before the staking
// period elapses charges the early-withdrawal fee on the principal (never on
// rewards) and routes it to the fee recipient. The net principal paid out is
// returned.
func (p *TokenPool) Unstake(owner common.Address, amount *big.Int) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unstakeLocked(owner, amount)
}

func (p *TokenPool) unstakeLocked(owner common.Address, amount *big.Int) (*big.Int, error) {
	if err := nativecommon.Guard(p.pauses, tokenPoolModule); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if p.bank == nil {
		return nil, errNilBank
	}
	pool, err := p.loadPool()
	if err != nil {
		return nil, err
	}
	pos, err := p.loadPosition(owner)
	if err != nil {
		return nil, err
	}
	if pos.StakedAmount.Cmp(amount) < 0 {
		return nil, ErrOwnershipMismatch
	}

	now := p.now()
	pool.Update(now)
	pos.settle(pool)

	fee := big.NewInt(0)
	if pool.StakingPeriod > 0 && now < pos.LastStakeTime+pool.StakingPeriod && pool.EarlyWithdrawalFeePercent > 0 {
		fee = new(big.Int).Mul(amount, new(big.Int).SetUint64(pool.EarlyWithdrawalFeePercent))
		fee.Quo(fee, big.NewInt(100))
	}
	payout := new(big.Int).Sub(amount, fee)

	if fee.Sign() > 0 {
		if err := p.bank.Transfer(p.stakeAsset, p.poolAddress, p.feeRecipient, fee); err != nil {
			return nil, err
		}
	}
	if payout.Sign() > 0 {
		if err := p.bank.Transfer(p.stakeAsset, p.poolAddress, owner, payout); err != nil {
			return nil, err
		}
	}

	pos.StakedAmount = new(big.Int).Sub(pos.StakedAmount, amount)
	pool.TotalStaked = new(big.Int).Sub(pool.TotalStaked, amount)
	if pos.StakedAmount.Sign() == 0 && pool.TotalUsers > 0 {
		pool.TotalUsers--
	}

	if err := p.state.PutPosition(owner, pos); err != nil {
		return nil, err
	}
	if err := p.state.PutPool(pool); err != nil {
		return nil, err
	}
	p.emit(events.StakeWithdrawn{Pool: tokenPoolModule, Owner: owner, Amount: cloneAmount(amount), Fee: fee})
	return payout, nil
}

// Harvest pays out all pending rewards from the funded reserve, zeroing the
// pending balance. A harvest with nothing pending is a no-op.
func (p *TokenPool) Harvest(owner common.Address) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.harvestLocked(owner)
}

func (p *TokenPool) harvestLocked(owner common.Address) (*big.Int, error) {
	if err := nativecommon.Guard(p.pauses, tokenPoolModule); err != nil {
		return nil, err
	}
	if p.bank == nil {
		return nil, errNilBank
	}
	pool, err := p.loadPool()
	if err != nil {
		return nil, err
	}
	pos, err := p.loadPosition(owner)
	if err != nil {
		return nil, err
	}

	pool.Update(p.now())
	pos.settle(pool)

	amount := new(big.Int).Set(pos.PendingRewards)
	if amount.Sign() == 0 {
		if err := p.state.PutPosition(owner, pos); err != nil {
			return nil, err
		}
		if err := p.state.PutPool(pool); err != nil {
			return nil, err
		}
		return big.NewInt(0), nil
	}
	if pool.RewardReserve.Cmp(amount) < 0 {
		return nil, ErrRewardReserveExhausted
	}

	if err := p.bank.Transfer(p.rewardAsset, p.poolAddress, owner, amount); err != nil {
		return nil, err
	}

	pos.PendingRewards = big.NewInt(0)
	pool.RewardReserve = new(big.Int).Sub(pool.RewardReserve, amount)

	if err := p.state.PutPosition(owner, pos); err != nil {
		return nil, err
	}
	if err := p.state.PutPool(pool); err != nil {
		return nil, err
	}
	p.emit(events.RewardsHarvested{Pool: tokenPoolModule, Owner: owner, Amount: amount, Reserve: cloneAmount(pool.RewardReserve)})
	return amount, nil
}

// Exit unstakes the full position and harvests pending rewards in one
// serialised unit.
func (p *TokenPool) Exit(owner common.Address) (*big.Int, *big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, err := p.loadPosition(owner)
	if err != nil {
		return nil, nil, err
	}
	if pos.StakedAmount.Sign() == 0 {
		return nil, nil, ErrZeroAmount
	}
	// The reserve must cover the rewards owed before the principal moves, so
	// an exhausted reserve rejects the whole exit instead of committing the
	// unstake and then failing the harvest.
	pool, err := p.loadPool()
	if err != nil {
		return nil, nil, err
	}
	pool.Update(p.now())
	owed := pool.PendingFor(pos.StakedAmount, pos.RewardDebt)
	owed.Add(owed, pos.PendingRewards)
	if owed.Sign() > 0 && pool.RewardReserve.Cmp(owed) < 0 {
		return nil, nil, ErrRewardReserveExhausted
	}
	principal, err := p.unstakeLocked(owner, pos.StakedAmount)
	if err != nil {
		return nil, nil, err
	}
	rewards, err := p.harvestLocked(owner)
	if err != nil {
		return nil, nil, err
	}
	return principal, rewards, nil
}

// Earned returns the reward the owner could harvest at the current time. It
// is a pure function of committed state and the injected clock.
func (p *TokenPool) Earned(owner common.Address) (*big.Int, error) {
	pool, err := p.loadPool()
	if err != nil {
		return nil, err
	}
	pos, err := p.loadPosition(owner)
	if err != nil {
		return nil, err
	}
	pool.Update(p.now())
	pending := pool.PendingFor(pos.StakedAmount, pos.RewardDebt)
	return pending.Add(pending, pos.PendingRewards), nil
}

// UserInfo returns a copy of the owner's stake record.
func (p *TokenPool) UserInfo(owner common.Address) (*Position, error) {
	pos, err := p.loadPosition(owner)
	if err != nil {
		return nil, err
	}
	return pos.Clone(), nil
}

// PoolInfo returns a copy of the global pool state.
func (p *TokenPool) PoolInfo() (*Pool, error) {
	pool, err := p.loadPool()
	if err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

// FundRewards moves reward tokens from the funder onto the pool address and
// credits the reserve harvests draw from.
func (p *TokenPool) FundRewards(funder common.Address, amount *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if p.bank == nil {
		return errNilBank
	}
	pool, err := p.loadPool()
	if err != nil {
		return err
	}
	if err := p.bank.Transfer(p.rewardAsset, funder, p.poolAddress, amount); err != nil {
		return err
	}
	pool.RewardReserve = new(big.Int).Add(pool.RewardReserve, amount)
	if err := p.state.PutPool(pool); err != nil {
		return err
	}
	p.emit(events.RewardsFunded{Pool: tokenPoolModule, Funder: funder, Amount: cloneAmount(amount), Reserve: cloneAmount(pool.RewardReserve)})
	return nil
}

// SetRewardRate replaces the emission rate. The accumulator is folded forward
// first so rewards accrued under the old rate stay attributed to it.
func (p *TokenPool) SetRewardRate(caller common.Address, rate *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.authority == nil || !p.authority.IsOwner(caller) {
		return ErrUnauthorized
	}
	if rate == nil || rate.Sign() < 0 {
		return ErrZeroAmount
	}
	pool, err := p.loadPool()
	if err != nil {
		return err
	}
	pool.Update(p.now())
	pool.RewardRate = new(big.Int).Set(rate)
	return p.state.PutPool(pool)
}

// SetStakingPeriod replaces the holding duration gating the early-withdrawal
// fee.
func (p *TokenPool) SetStakingPeriod(caller common.Address, seconds int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.authority == nil || !p.authority.IsOwner(caller) {
		return ErrUnauthorized
	}
	pool, err := p.loadPool()
	if err != nil {
		return err
	}
	pool.StakingPeriod = seconds
	return p.state.PutPool(pool)
}

// SetEarlyWithdrawalFee replaces the principal fee rate, capped at the hard
// ceiling.
func (p *TokenPool) SetEarlyWithdrawalFee(caller common.Address, percent uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.authority == nil || !p.authority.IsOwner(caller) {
		return ErrUnauthorized
	}
	if percent > MaxEarlyWithdrawalFeePercent {
		return ErrFeeTooHigh
	}
	pool, err := p.loadPool()
	if err != nil {
		return err
	}
	pool.EarlyWithdrawalFeePercent = percent
	return p.state.PutPool(pool)
}

// RecoverToken returns tokens mistakenly sent to the pool address. The stake
// asset is refused so participants' principal can never be drained this way.
func (p *TokenPool) RecoverToken(caller common.Address, asset common.Address, amount *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.authority == nil || !p.authority.IsOwner(caller) {
		return ErrUnauthorized
	}
	if asset == p.stakeAsset {
		return ErrCannotRecoverStakeToken
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if p.bank == nil {
		return errNilBank
	}
	return p.bank.Transfer(asset, p.poolAddress, caller, amount)
}

func (p *TokenPool) emit(event events.Event) {
	if p == nil || p.emitter == nil {
		return
	}
	p.emitter.Emit(event)
}
