package staking

import (
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"azzurri/core/events"
	nativecommon "azzurri/native/common"
)

const nftPoolModule = "staking.nft"

type nftPoolState interface {
	GetPool() (*Pool, error)
	PutPool(*Pool) error
	GetPosition(addr common.Address) (*Position, error)
	PutPosition(addr common.Address, pos *Position) error
	GetItemStaker(item uint64) (common.Address, bool, error)
	PutItemStaker(item uint64, owner common.Address) error
	DeleteItemStaker(item uint64) error
}

// NFTPool is the discrete-item instantiation of the continuous-accrual engine.
// Each staked item weighs one unit in the accumulator and is held exclusively:
// the custody collaborator enforces that an item sits with at most one holder,
// and the staker index remembers which participant it accrues for.
//
// Items are indivisible, so unlike the fungible pool no early-withdrawal fee
// is charged on principal.
type NFTPool struct {
	mu          sync.Mutex
	state       nftPoolState
	custody     Custody
	bank        Bank
	authority   Authority
	rewardAsset common.Address
	poolAddress common.Address
	emitter     events.Emitter
	nowFn       func() int64
	pauses      nativecommon.PauseView
}

// NewNFTPool creates an item staking pool paying rewards in rewardAsset from
// poolAddress.
func NewNFTPool(rewardAsset, poolAddress common.Address) *NFTPool {
	return &NFTPool{
		rewardAsset: rewardAsset,
		poolAddress: poolAddress,
		emitter:     events.NoopEmitter{},
		nowFn:       func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the pool to the external persistence layer.
func (p *NFTPool) SetState(state nftPoolState) { p.state = state }

// SetCustody wires (or swaps) the item custody collaborator.
func (p *NFTPool) SetCustody(custody Custody) { p.custody = custody }

// SetBank wires the reward-moving collaborator.
func (p *NFTPool) SetBank(bank Bank) { p.bank = bank }

// SetAuthority configures the owner capability consulted by admin operations.
func (p *NFTPool) SetAuthority(authority Authority) { p.authority = authority }

// SetPauses wires the runtime pause toggles for the pool.
func (p *NFTPool) SetPauses(v nativecommon.PauseView) { p.pauses = v }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (p *NFTPool) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		p.emitter = events.NoopEmitter{}
		return
	}
	p.emitter = emitter
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (p *NFTPool) SetNowFunc(now func() int64) {
	if now == nil {
		p.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	p.nowFn = now
}

func (p *NFTPool) now() int64 {
	if p.nowFn == nil {
		return time.Now().Unix()
	}
	return p.nowFn()
}

func (p *NFTPool) loadPool() (*Pool, error) {
	if p == nil || p.state == nil {
		return nil, errNilState
	}
	pool, err := p.state.GetPool()
	if err != nil {
		return nil, err
	}
	return ensurePool(pool), nil
}

func (p *NFTPool) loadPosition(addr common.Address) (*Position, error) {
	pos, err := p.state.GetPosition(addr)
	if err != nil {
		return nil, err
	}
	return ensurePosition(pos), nil
}

// Stake moves the items into pool custody and starts accruing rewards on
// them. Duplicate identifiers in one call are rejected as an ownership
// mismatch, since the second custody transfer could never succeed.
func (p *NFTPool) Stake(owner common.Address, items []uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := nativecommon.Guard(p.pauses, nftPoolModule); err != nil {
		return err
	}
	if len(items) == 0 {
		return ErrZeroAmount
	}
	if p.custody == nil {
		return errNilCustody
	}
	if hasDuplicates(items) {
		return ErrOwnershipMismatch
	}
	// Every item must belong to the caller before any of them move, so a bad
	// batch rejects whole instead of leaving part of it with the pool.
	for _, item := range items {
		holder, ok := p.custody.HolderOf(item)
		if !ok || holder != owner {
			return ErrOwnershipMismatch
		}
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

	for _, item := range items {
		if err := p.custody.TransferItem(item, owner, p.poolAddress); err != nil {
			return err
		}
		if err := p.state.PutItemStaker(item, owner); err != nil {
			return err
		}
	}

	wasZero := pos.StakedAmount.Sign() == 0
	pos.Items = mergeItems(pos.Items, items)
	pos.StakedAmount = big.NewInt(int64(len(pos.Items)))
	pos.LastStakeTime = now
	pool.TotalStaked = new(big.Int).Add(pool.TotalStaked, big.NewInt(int64(len(items))))
	if wasZero {
		pool.TotalUsers++
	}

	if err := p.state.PutPosition(owner, pos); err != nil {
		return err
	}
	if err := p.state.PutPool(pool); err != nil {
		return err
	}
	p.emit(events.StakeDeposited{Pool: nftPoolModule, Owner: owner, Amount: big.NewInt(int64(len(items))), Items: append([]uint64(nil), items...)})
	return nil
}

// Unstake returns the items to the owner. Every requested item must currently
// accrue for this participant.
func (p *NFTPool) Unstake(owner common.Address, items []uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unstakeLocked(owner, items)
}

func (p *NFTPool) unstakeLocked(owner common.Address, items []uint64) error {
	if err := nativecommon.Guard(p.pauses, nftPoolModule); err != nil {
		return err
	}
	if len(items) == 0 {
		return ErrZeroAmount
	}
	if p.custody == nil {
		return errNilCustody
	}
	if hasDuplicates(items) {
		return ErrOwnershipMismatch
	}
	pool, err := p.loadPool()
	if err != nil {
		return err
	}
	pos, err := p.loadPosition(owner)
	if err != nil {
		return err
	}
	for _, item := range items {
		if !containsItem(pos.Items, item) {
			return ErrOwnershipMismatch
		}
	}

	pool.Update(p.now())
	pos.settle(pool)

	for _, item := range items {
		if err := p.custody.TransferItem(item, p.poolAddress, owner); err != nil {
			return err
		}
		if err := p.state.DeleteItemStaker(item); err != nil {
			return err
		}
	}

	pos.Items = removeItems(pos.Items, items)
	pos.StakedAmount = big.NewInt(int64(len(pos.Items)))
	pool.TotalStaked = new(big.Int).Sub(pool.TotalStaked, big.NewInt(int64(len(items))))
	if pos.StakedAmount.Sign() == 0 && pool.TotalUsers > 0 {
		pool.TotalUsers--
	}

	if err := p.state.PutPosition(owner, pos); err != nil {
		return err
	}
	if err := p.state.PutPool(pool); err != nil {
		return err
	}
	p.emit(events.StakeWithdrawn{Pool: nftPoolModule, Owner: owner, Amount: big.NewInt(int64(len(items))), Fee: big.NewInt(0), Items: append([]uint64(nil), items...)})
	return nil
}

// Harvest pays out all pending rewards from the funded reserve.
func (p *NFTPool) Harvest(owner common.Address) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.harvestLocked(owner)
}

func (p *NFTPool) harvestLocked(owner common.Address) (*big.Int, error) {
	if err := nativecommon.Guard(p.pauses, nftPoolModule); err != nil {
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
	p.emit(events.RewardsHarvested{Pool: nftPoolModule, Owner: owner, Amount: amount, Reserve: cloneAmount(pool.RewardReserve)})
	return amount, nil
}

// Exit unstakes every item and harvests pending rewards in one serialised
// unit.
func (p *NFTPool) Exit(owner common.Address) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, err := p.loadPosition(owner)
	if err != nil {
		return nil, err
	}
	if len(pos.Items) == 0 {
		return nil, ErrZeroAmount
	}
	// The reserve must cover the rewards owed before any item moves, so an
	// exhausted reserve rejects the whole exit.
	pool, err := p.loadPool()
	if err != nil {
		return nil, err
	}
	pool.Update(p.now())
	owed := pool.PendingFor(pos.StakedAmount, pos.RewardDebt)
	owed.Add(owed, pos.PendingRewards)
	if owed.Sign() > 0 && pool.RewardReserve.Cmp(owed) < 0 {
		return nil, ErrRewardReserveExhausted
	}
	if err := p.unstakeLocked(owner, append([]uint64(nil), pos.Items...)); err != nil {
		return nil, err
	}
	return p.harvestLocked(owner)
}

// Earned returns the reward the owner could harvest at the current time.
func (p *NFTPool) Earned(owner common.Address) (*big.Int, error) {
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

// BalanceOf returns the number of items the owner has staked.
func (p *NFTPool) BalanceOf(owner common.Address) (int, error) {
	pos, err := p.loadPosition(owner)
	if err != nil {
		return 0, err
	}
	return len(pos.Items), nil
}

// StakerOf reports which participant an item currently accrues for.
func (p *NFTPool) StakerOf(item uint64) (common.Address, bool, error) {
	if p == nil || p.state == nil {
		return common.Address{}, false, errNilState
	}
	return p.state.GetItemStaker(item)
}

// PoolInfo returns a copy of the global pool state.
func (p *NFTPool) PoolInfo() (*Pool, error) {
	pool, err := p.loadPool()
	if err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

// FundRewards moves reward tokens from the funder onto the pool address and
// credits the reserve harvests draw from.
func (p *NFTPool) FundRewards(funder common.Address, amount *big.Int) error {
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
	p.emit(events.RewardsFunded{Pool: nftPoolModule, Funder: funder, Amount: cloneAmount(amount), Reserve: cloneAmount(pool.RewardReserve)})
	return nil
}

// SetRewardRate replaces the emission rate after folding the accumulator
// forward under the old rate.
func (p *NFTPool) SetRewardRate(caller common.Address, rate *big.Int) error {
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

// RecoverToken returns fungible tokens mistakenly sent to the pool address.
// The reward asset is refused so the funded reserve stays backed.
func (p *NFTPool) RecoverToken(caller common.Address, asset common.Address, amount *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.authority == nil || !p.authority.IsOwner(caller) {
		return ErrUnauthorized
	}
	if asset == p.rewardAsset {
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

func (p *NFTPool) emit(event events.Event) {
	if p == nil || p.emitter == nil {
		return
	}
	p.emitter.Emit(event)
}

func hasDuplicates(items []uint64) bool {
	seen := make(map[uint64]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			return true
		}
		seen[item] = struct{}{}
	}
	return false
}

func containsItem(sorted []uint64, item uint64) bool {
	idx := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= item })
	return idx < len(sorted) && sorted[idx] == item
}

func mergeItems(existing, added []uint64) []uint64 {
	merged := append(append([]uint64(nil), existing...), added...)
	sort.Slice(merged, func(i, j int) bool { return merged[i] < merged[j] })
	return merged
}

func removeItems(existing, removed []uint64) []uint64 {
	drop := make(map[uint64]struct{}, len(removed))
	for _, item := range removed {
		drop[item] = struct{}{}
	}
	kept := make([]uint64, 0, len(existing))
	for _, item := range existing {
		if _, ok := drop[item]; !ok {
			kept = append(kept, item)
		}
	}
	return kept
}
