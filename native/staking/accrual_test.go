package staking

import (
	"math/big"
	"testing"
)

func TestPoolUpdateSkipsIdleAndStale(t *testing.T) {
	pool := ensurePool(nil)
	pool.RewardRate = big.NewInt(10)

	pool.Update(100)
	if pool.AccRewardPerUnit.Sign() != 0 {
		t.Fatalf("accumulator moved with nothing staked: %s", pool.AccRewardPerUnit)
	}
	if pool.LastUpdateTime != 100 {
		t.Fatalf("clock = %d, want 100", pool.LastUpdateTime)
	}

	pool.TotalStaked = big.NewInt(50)
	pool.Update(90)
	if pool.LastUpdateTime != 100 {
		t.Fatalf("stale update moved the clock to %d", pool.LastUpdateTime)
	}
	if pool.AccRewardPerUnit.Sign() != 0 {
		t.Fatalf("stale update moved the accumulator: %s", pool.AccRewardPerUnit)
	}
}

func TestPoolAccumulatorNeverDecreases(t *testing.T) {
	pool := ensurePool(nil)
	pool.RewardRate = big.NewInt(7)
	pool.TotalStaked = big.NewInt(13)

	prev := new(big.Int)
	for now := int64(10); now <= 100; now += 10 {
		pool.Update(now)
		if pool.AccRewardPerUnit.Cmp(prev) < 0 {
			t.Fatalf("accumulator decreased at %d: %s < %s", now, pool.AccRewardPerUnit, prev)
		}
		prev.Set(pool.AccRewardPerUnit)
	}
}

func TestPendingForDebtSnapshot(t *testing.T) {
	pool := ensurePool(nil)
	pool.RewardRate = big.NewInt(10)
	pool.TotalStaked = big.NewInt(100)
	pool.Update(100)

	// Stake settled at the current accumulator owes nothing yet.
	debt := new(big.Int).Set(pool.AccRewardPerUnit)
	if got := pool.PendingFor(big.NewInt(100), debt); got.Sign() != 0 {
		t.Fatalf("pending = %s at fresh debt, want 0", got)
	}

	pool.Update(200)
	// 100s of emission at 10/s over 100 staked units.
	if got := pool.PendingFor(big.NewInt(100), debt); got.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("pending = %s, want 1000", got)
	}
	if got := pool.PendingFor(big.NewInt(0), debt); got.Sign() != 0 {
		t.Fatalf("pending = %s for zero stake, want 0", got)
	}
	if got := pool.PendingFor(nil, nil); got.Sign() != 0 {
		t.Fatalf("pending = %s for nil inputs, want 0", got)
	}
}

func TestPositionSettleFoldsPending(t *testing.T) {
	pool := ensurePool(nil)
	pool.RewardRate = big.NewInt(10)
	pool.TotalStaked = big.NewInt(100)
	pos := ensurePosition(nil)
	pos.StakedAmount = big.NewInt(100)

	pool.Update(100)
	pos.settle(pool)
	if pos.PendingRewards.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("pending = %s after settle, want 1000", pos.PendingRewards)
	}
	if pos.RewardDebt.Cmp(pool.AccRewardPerUnit) != 0 {
		t.Fatalf("debt = %s, want accumulator %s", pos.RewardDebt, pool.AccRewardPerUnit)
	}

	// Settling again at the same accumulator adds nothing.
	pos.settle(pool)
	if pos.PendingRewards.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("pending = %s after idempotent settle, want 1000", pos.PendingRewards)
	}
}
