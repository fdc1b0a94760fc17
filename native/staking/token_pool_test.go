package staking

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

type mockPoolState struct {
	pool      *Pool
	positions map[common.Address]*Position
	holders   map[uint64]common.Address
}

func newMockPoolState() *mockPoolState {
	return &mockPoolState{
		positions: make(map[common.Address]*Position),
		holders:   make(map[uint64]common.Address),
	}
}

func (m *mockPoolState) GetPool() (*Pool, error) { return m.pool.Clone(), nil }

func (m *mockPoolState) PutPool(p *Pool) error {
	m.pool = p.Clone()
	return nil
}

func (m *mockPoolState) GetPosition(addr common.Address) (*Position, error) {
	if pos, ok := m.positions[addr]; ok {
		return pos.Clone(), nil
	}
	return nil, nil
}

func (m *mockPoolState) PutPosition(addr common.Address, pos *Position) error {
	m.positions[addr] = pos.Clone()
	return nil
}

func (m *mockPoolState) GetItemStaker(item uint64) (common.Address, bool, error) {
	addr, ok := m.holders[item]
	return addr, ok, nil
}

func (m *mockPoolState) PutItemStaker(item uint64, addr common.Address) error {
	m.holders[item] = addr
	return nil
}

func (m *mockPoolState) DeleteItemStaker(item uint64) error {
	delete(m.holders, item)
	return nil
}

// mockBank keeps real balances so transfer failures surface in tests.
type mockBank struct {
	balances map[common.Address]map[common.Address]*big.Int
}

func newMockBank() *mockBank {
	return &mockBank{balances: make(map[common.Address]map[common.Address]*big.Int)}
}

func (b *mockBank) credit(asset, addr common.Address, amount int64) {
	if b.balances[asset] == nil {
		b.balances[asset] = make(map[common.Address]*big.Int)
	}
	if b.balances[asset][addr] == nil {
		b.balances[asset][addr] = big.NewInt(0)
	}
	b.balances[asset][addr].Add(b.balances[asset][addr], big.NewInt(amount))
}

func (b *mockBank) balance(asset, addr common.Address) *big.Int {
	if b.balances[asset] == nil || b.balances[asset][addr] == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(b.balances[asset][addr])
}

func (b *mockBank) Transfer(asset, from, to common.Address, amount *big.Int) error {
	bal := b.balance(asset, from)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("mock bank: insufficient %s balance", asset.Hex())
	}
	b.balances[asset][from].Sub(b.balances[asset][from], amount)
	b.credit(asset, to, 0)
	b.balances[asset][to].Add(b.balances[asset][to], amount)
	return nil
}

type mockOwnerAuthority struct {
	owner common.Address
}

func (a *mockOwnerAuthority) IsOwner(addr common.Address) bool { return addr == a.owner }

var (
	admin        = common.HexToAddress("0x01")
	staker       = common.HexToAddress("0x0a")
	other        = common.HexToAddress("0x0b")
	stakeAsset   = common.HexToAddress("0xa1")
	rewardAsset  = common.HexToAddress("0xa2")
	strayAsset   = common.HexToAddress("0xa3")
	poolAddress  = common.HexToAddress("0xf1")
	feeRecipient = common.HexToAddress("0xf2")
)

type poolFixture struct {
	pool  *TokenPool
	state *mockPoolState
	bank  *mockBank
	now   int64
}

func newPoolFixture(t *testing.T) *poolFixture {
	t.Helper()
	f := &poolFixture{state: newMockPoolState(), bank: newMockBank(), now: 1_000}
	f.pool = NewTokenPool(stakeAsset, rewardAsset, poolAddress, feeRecipient)
	f.pool.SetState(f.state)
	f.pool.SetBank(f.bank)
	f.pool.SetAuthority(&mockOwnerAuthority{owner: admin})
	f.pool.SetNowFunc(func() int64 { return f.now })

	f.bank.credit(stakeAsset, staker, 1_000_000)
	f.bank.credit(stakeAsset, other, 1_000_000)
	f.bank.credit(rewardAsset, admin, 10_000_000)

	if err := f.pool.SetRewardRate(admin, big.NewInt(10)); err != nil {
		t.Fatalf("set reward rate: %v", err)
	}
	if err := f.pool.FundRewards(admin, big.NewInt(5_000_000)); err != nil {
		t.Fatalf("fund rewards: %v", err)
	}
	return f
}

func TestStakeRejectsZero(t *testing.T) {
	f := newPoolFixture(t)
	if err := f.pool.Stake(staker, big.NewInt(0)); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("err = %v, want ErrZeroAmount", err)
	}
	if err := f.pool.Stake(staker, nil); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("err = %v, want ErrZeroAmount", err)
	}
}

func TestSingleStakerAccruesFullEmission(t *testing.T) {
	f := newPoolFixture(t)

	if err := f.pool.Stake(staker, big.NewInt(1_000)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	f.now += 86_400

	earned, err := f.pool.Earned(staker)
	if err != nil {
		t.Fatalf("earned: %v", err)
	}
	// One staker receives the full emission: 86400s * 10/s.
	if earned.Cmp(big.NewInt(864_000)) != 0 {
		t.Fatalf("earned = %s, want 864000", earned)
	}
}

func TestEmissionSplitsProRata(t *testing.T) {
	f := newPoolFixture(t)

	if err := f.pool.Stake(staker, big.NewInt(100)); err != nil {
		t.Fatalf("stake A: %v", err)
	}
	f.now += 100
	if err := f.pool.Stake(other, big.NewInt(300)); err != nil {
		t.Fatalf("stake B: %v", err)
	}
	f.now += 400

	earnedA, err := f.pool.Earned(staker)
	if err != nil {
		t.Fatalf("earned A: %v", err)
	}
	earnedB, err := f.pool.Earned(other)
	if err != nil {
		t.Fatalf("earned B: %v", err)
	}
	// A alone for 100s (1000), then a quarter of 400s * 10 (1000).
	if earnedA.Cmp(big.NewInt(2_000)) != 0 {
		t.Fatalf("earned A = %s, want 2000", earnedA)
	}
	// B holds three quarters of the pool for 400s.
	if earnedB.Cmp(big.NewInt(3_000)) != 0 {
		t.Fatalf("earned B = %s, want 3000", earnedB)
	}
}

func TestIdlePoolEmitsNothing(t *testing.T) {
	f := newPoolFixture(t)

	f.now += 10_000
	if err := f.pool.Stake(staker, big.NewInt(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	earned, err := f.pool.Earned(staker)
	if err != nil {
		t.Fatalf("earned: %v", err)
	}
	if earned.Sign() != 0 {
		t.Fatalf("earned = %s immediately after stake, want 0", earned)
	}
}

func TestTotalUsersTracksTransitions(t *testing.T) {
	f := newPoolFixture(t)

	users := func() uint64 {
		pool, err := f.pool.PoolInfo()
		if err != nil {
			t.Fatalf("pool info: %v", err)
		}
		return pool.TotalUsers
	}

	if err := f.pool.Stake(staker, big.NewInt(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if err := f.pool.Stake(staker, big.NewInt(100)); err != nil {
		t.Fatalf("second stake: %v", err)
	}
	if got := users(); got != 1 {
		t.Fatalf("TotalUsers = %d after re-stake, want 1", got)
	}
	if _, err := f.pool.Unstake(staker, big.NewInt(100)); err != nil {
		t.Fatalf("partial unstake: %v", err)
	}
	if got := users(); got != 1 {
		t.Fatalf("TotalUsers = %d after partial unstake, want 1", got)
	}
	if _, err := f.pool.Unstake(staker, big.NewInt(100)); err != nil {
		t.Fatalf("final unstake: %v", err)
	}
	if got := users(); got != 0 {
		t.Fatalf("TotalUsers = %d after exit, want 0", got)
	}
}

func TestEarlyWithdrawalFee(t *testing.T) {
	f := newPoolFixture(t)
	if err := f.pool.SetStakingPeriod(admin, 1_000); err != nil {
		t.Fatalf("set period: %v", err)
	}
	if err := f.pool.SetEarlyWithdrawalFee(admin, 10); err != nil {
		t.Fatalf("set fee: %v", err)
	}
	if err := f.pool.Stake(staker, big.NewInt(1_000)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	f.now += 500
	payout, err := f.pool.Unstake(staker, big.NewInt(500))
	if err != nil {
		t.Fatalf("early unstake: %v", err)
	}
	if payout.Cmp(big.NewInt(450)) != 0 {
		t.Fatalf("payout = %s, want 450", payout)
	}
	if got := f.bank.balance(stakeAsset, feeRecipient); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("fee recipient balance = %s, want 50", got)
	}

	// After the period the remaining principal moves fee free.
	f.now += 500
	payout, err = f.pool.Unstake(staker, big.NewInt(500))
	if err != nil {
		t.Fatalf("late unstake: %v", err)
	}
	if payout.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("payout = %s, want 500", payout)
	}
}

func TestUnstakeMoreThanStaked(t *testing.T) {
	f := newPoolFixture(t)
	if err := f.pool.Stake(staker, big.NewInt(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if _, err := f.pool.Unstake(staker, big.NewInt(101)); !errors.Is(err, ErrOwnershipMismatch) {
		t.Fatalf("err = %v, want ErrOwnershipMismatch", err)
	}
}

func TestHarvestPaysAndZeroesPending(t *testing.T) {
	f := newPoolFixture(t)
	if err := f.pool.Stake(staker, big.NewInt(1_000)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	f.now += 100

	amount, err := f.pool.Harvest(staker)
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if amount.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("harvested = %s, want 1000", amount)
	}
	if got := f.bank.balance(rewardAsset, staker); got.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("reward balance = %s, want 1000", got)
	}

	// A second harvest at the same instant has nothing pending.
	amount, err = f.pool.Harvest(staker)
	if err != nil {
		t.Fatalf("second harvest: %v", err)
	}
	if amount.Sign() != 0 {
		t.Fatalf("second harvest = %s, want 0", amount)
	}
}

func TestHarvestFailsWhenReserveExhausted(t *testing.T) {
	f := &poolFixture{state: newMockPoolState(), bank: newMockBank(), now: 1_000}
	f.pool = NewTokenPool(stakeAsset, rewardAsset, poolAddress, feeRecipient)
	f.pool.SetState(f.state)
	f.pool.SetBank(f.bank)
	f.pool.SetAuthority(&mockOwnerAuthority{owner: admin})
	f.pool.SetNowFunc(func() int64 { return f.now })
	f.bank.credit(stakeAsset, staker, 1_000_000)
	f.bank.credit(rewardAsset, admin, 1_000_000)
	if err := f.pool.SetRewardRate(admin, big.NewInt(10)); err != nil {
		t.Fatalf("set rate: %v", err)
	}

	if err := f.pool.Stake(staker, big.NewInt(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	f.now += 100
	if _, err := f.pool.Harvest(staker); !errors.Is(err, ErrRewardReserveExhausted) {
		t.Fatalf("err = %v, want ErrRewardReserveExhausted", err)
	}

	// Funding the reserve unblocks the same harvest.
	if err := f.pool.FundRewards(admin, big.NewInt(10_000)); err != nil {
		t.Fatalf("fund: %v", err)
	}
	amount, err := f.pool.Harvest(staker)
	if err != nil {
		t.Fatalf("harvest after funding: %v", err)
	}
	if amount.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("harvested = %s, want 1000", amount)
	}
}

func TestExitFailsClosedWhenReserveExhausted(t *testing.T) {
	f := &poolFixture{state: newMockPoolState(), bank: newMockBank(), now: 1_000}
	f.pool = NewTokenPool(stakeAsset, rewardAsset, poolAddress, feeRecipient)
	f.pool.SetState(f.state)
	f.pool.SetBank(f.bank)
	f.pool.SetAuthority(&mockOwnerAuthority{owner: admin})
	f.pool.SetNowFunc(func() int64 { return f.now })
	f.bank.credit(stakeAsset, staker, 1_000_000)
	f.bank.credit(rewardAsset, admin, 1_000_000)
	if err := f.pool.SetRewardRate(admin, big.NewInt(10)); err != nil {
		t.Fatalf("set rate: %v", err)
	}

	if err := f.pool.Stake(staker, big.NewInt(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	f.now += 100
	if _, _, err := f.pool.Exit(staker); !errors.Is(err, ErrRewardReserveExhausted) {
		t.Fatalf("err = %v, want ErrRewardReserveExhausted", err)
	}

	// The principal side must not have committed.
	pos, err := f.pool.UserInfo(staker)
	if err != nil {
		t.Fatalf("user info: %v", err)
	}
	if pos.StakedAmount.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("staked = %s after failed exit, want 100", pos.StakedAmount)
	}
	if got := f.bank.balance(stakeAsset, poolAddress); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("pool principal = %s after failed exit, want 100", got)
	}

	// Funding the reserve unblocks the same exit.
	if err := f.pool.FundRewards(admin, big.NewInt(10_000)); err != nil {
		t.Fatalf("fund: %v", err)
	}
	principal, rewards, err := f.pool.Exit(staker)
	if err != nil {
		t.Fatalf("exit after funding: %v", err)
	}
	if principal.Cmp(big.NewInt(100)) != 0 || rewards.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("exit = (%s, %s), want (100, 1000)", principal, rewards)
	}
}

func TestExitReturnsPrincipalAndRewards(t *testing.T) {
	f := newPoolFixture(t)
	if err := f.pool.Stake(staker, big.NewInt(1_000)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	f.now += 100

	principal, rewards, err := f.pool.Exit(staker)
	if err != nil {
		t.Fatalf("exit: %v", err)
	}
	if principal.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("principal = %s, want 1000", principal)
	}
	if rewards.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("rewards = %s, want 1000", rewards)
	}
	if _, _, err := f.pool.Exit(staker); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("err = %v for empty exit, want ErrZeroAmount", err)
	}
}

func TestSetRewardRateSettlesFirst(t *testing.T) {
	f := newPoolFixture(t)
	if err := f.pool.Stake(staker, big.NewInt(1_000)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	f.now += 100
	if err := f.pool.SetRewardRate(admin, big.NewInt(0)); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	f.now += 10_000

	earned, err := f.pool.Earned(staker)
	if err != nil {
		t.Fatalf("earned: %v", err)
	}
	// The first 100s at rate 10 stay attributed to the old rate.
	if earned.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("earned = %s, want 1000", earned)
	}
}

func TestSetEarlyWithdrawalFeeCeiling(t *testing.T) {
	f := newPoolFixture(t)
	if err := f.pool.SetEarlyWithdrawalFee(admin, 31); !errors.Is(err, ErrFeeTooHigh) {
		t.Fatalf("err = %v, want ErrFeeTooHigh", err)
	}
	if err := f.pool.SetEarlyWithdrawalFee(admin, 30); err != nil {
		t.Fatalf("set fee at ceiling: %v", err)
	}
	if err := f.pool.SetEarlyWithdrawalFee(staker, 5); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestRecoverTokenRefusesStakeAsset(t *testing.T) {
	f := newPoolFixture(t)
	f.bank.credit(strayAsset, poolAddress, 500)

	if err := f.pool.RecoverToken(admin, stakeAsset, big.NewInt(1)); !errors.Is(err, ErrCannotRecoverStakeToken) {
		t.Fatalf("err = %v, want ErrCannotRecoverStakeToken", err)
	}
	if err := f.pool.RecoverToken(staker, strayAsset, big.NewInt(1)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if err := f.pool.RecoverToken(admin, strayAsset, big.NewInt(500)); err != nil {
		t.Fatalf("recover: %v", err)
	}
	if got := f.bank.balance(strayAsset, admin); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("recovered balance = %s, want 500", got)
	}
}
