// Package custody tracks which address holds each discrete item. Item
// minting, burning and metadata live outside the economic core; the registry
// only answers and mutates holdership, which is all the NFT staking pool
// needs.
package custody

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotHolder indicates a transfer from an address that does not hold
	// the item.
	ErrNotHolder = errors.New("custody: sender does not hold item")
	// ErrUnknownItem indicates an item the registry has never seen.
	ErrUnknownItem = errors.New("custody: unknown item")
)

// Registry is an in-process holdership index.
type Registry struct {
	mu      sync.RWMutex
	holders map[uint64]common.Address
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{holders: make(map[uint64]common.Address)}
}

// Assign records the initial holder of an item, overwriting nothing if the
// item already exists.
func (r *Registry) Assign(item uint64, holder common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.holders[item]; ok {
		return
	}
	r.holders[item] = holder
}

// HolderOf returns the current holder of an item.
func (r *Registry) HolderOf(item uint64) (common.Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	holder, ok := r.holders[item]
	return holder, ok
}

// TransferItem moves the item between holders. The from address must hold the
// item.
func (r *Registry) TransferItem(item uint64, from, to common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	holder, ok := r.holders[item]
	if !ok {
		return ErrUnknownItem
	}
	if holder != from {
		return ErrNotHolder
	}
	r.holders[item] = to
	return nil
}
