// Package bank routes multi-asset value movements to the ledger owning each
// asset. The staking pools and the sale engine only know asset addresses;
// the bank resolves them to token engines.
package bank

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ErrUnknownAsset indicates a transfer referencing an unregistered asset.
var ErrUnknownAsset = errors.New("bank: unknown asset")

// Ledger is the per-asset engine surface the bank dispatches to.
type Ledger interface {
	Transfer(from, to common.Address, amount *big.Int) (*big.Int, error)
	BalanceOf(addr common.Address) (*big.Int, error)
}

// Bank maps asset addresses to their ledgers.
type Bank struct {
	mu      sync.RWMutex
	ledgers map[common.Address]Ledger
}

// New returns an empty bank.
func New() *Bank {
	return &Bank{ledgers: make(map[common.Address]Ledger)}
}

// Register binds an asset address to its ledger.
func (b *Bank) Register(asset common.Address, ledger Ledger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ledgers[asset] = ledger
}

func (b *Bank) ledger(asset common.Address) (Ledger, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ledger, ok := b.ledgers[asset]
	if !ok {
		return nil, ErrUnknownAsset
	}
	return ledger, nil
}

// Transfer moves value on the asset's ledger. Fee treatment is the ledger's
// concern; callers holding fee-exempt accounts move exactly amount.
func (b *Bank) Transfer(asset common.Address, from, to common.Address, amount *big.Int) error {
	ledger, err := b.ledger(asset)
	if err != nil {
		return err
	}
	_, err = ledger.Transfer(from, to, amount)
	return err
}

// BalanceOf reads a balance on the asset's ledger.
func (b *Bank) BalanceOf(asset common.Address, addr common.Address) (*big.Int, error) {
	ledger, err := b.ledger(asset)
	if err != nil {
		return nil, err
	}
	return ledger.BalanceOf(addr)
}
