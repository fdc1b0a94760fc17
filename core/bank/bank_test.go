package bank

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

type mockLedger struct {
	balances map[common.Address]*big.Int
}

func newMockLedger() *mockLedger {
	return &mockLedger{balances: make(map[common.Address]*big.Int)}
}

func (l *mockLedger) Transfer(from, to common.Address, amount *big.Int) (*big.Int, error) {
	if l.balances[from] == nil {
		l.balances[from] = big.NewInt(0)
	}
	if l.balances[to] == nil {
		l.balances[to] = big.NewInt(0)
	}
	l.balances[from].Sub(l.balances[from], amount)
	l.balances[to].Add(l.balances[to], amount)
	return big.NewInt(0), nil
}

func (l *mockLedger) BalanceOf(addr common.Address) (*big.Int, error) {
	if l.balances[addr] == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(l.balances[addr]), nil
}

func TestBankRoutesByAsset(t *testing.T) {
	assetA := common.HexToAddress("0xa1")
	assetB := common.HexToAddress("0xa2")
	from := common.HexToAddress("0x0a")
	to := common.HexToAddress("0x0b")

	ledgerA := newMockLedger()
	ledgerB := newMockLedger()
	b := New()
	b.Register(assetA, ledgerA)
	b.Register(assetB, ledgerB)

	if err := b.Transfer(assetA, from, to, big.NewInt(10)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got, _ := ledgerA.BalanceOf(to); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("ledger A credit = %s, want 10", got)
	}
	if got, _ := ledgerB.BalanceOf(to); got.Sign() != 0 {
		t.Fatalf("ledger B moved: %s", got)
	}

	bal, err := b.BalanceOf(assetA, to)
	if err != nil {
		t.Fatalf("balance of: %v", err)
	}
	if bal.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("balance = %s, want 10", bal)
	}
}

func TestBankRejectsUnknownAsset(t *testing.T) {
	b := New()
	unknown := common.HexToAddress("0xdead")
	addr := common.HexToAddress("0x0a")

	if err := b.Transfer(unknown, addr, addr, big.NewInt(1)); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("err = %v, want ErrUnknownAsset", err)
	}
	if _, err := b.BalanceOf(unknown, addr); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("err = %v, want ErrUnknownAsset", err)
	}
}
