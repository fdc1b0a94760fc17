// Package auth provides the capability allow-list consulted before privileged
// operations. Signature verification happens upstream; the allow-list only
// answers which address holds which capability.
package auth

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Allowlist is a mutable capability set exposing the boolean predicates the
// engines consult.
type Allowlist struct {
	mu      sync.RWMutex
	owners  map[common.Address]bool
	minters map[common.Address]bool
}

// NewAllowlist returns an allow-list with the given initial owner.
func NewAllowlist(owner common.Address) *Allowlist {
	a := &Allowlist{
		owners:  make(map[common.Address]bool),
		minters: make(map[common.Address]bool),
	}
	a.owners[owner] = true
	return a
}

// SetOwner grants or revokes the owner capability.
func (a *Allowlist) SetOwner(addr common.Address, enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.owners[addr] = enabled
}

// SetMinter grants or revokes the minter capability.
func (a *Allowlist) SetMinter(addr common.Address, enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.minters[addr] = enabled
}

// IsOwner reports whether the address holds the owner capability.
func (a *Allowlist) IsOwner(addr common.Address) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.owners[addr]
}

// IsMinter reports whether the address holds the minter capability.
func (a *Allowlist) IsMinter(addr common.Address) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.minters[addr]
}
