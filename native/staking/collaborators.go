package staking

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Bank moves fungible value between accounts on behalf of the pool engines.
// Implementations route each asset address to the ledger owning it.
type Bank interface {
	Transfer(asset common.Address, from, to common.Address, amount *big.Int) error
}

// Custody moves discrete items between holders on behalf of the NFT pool. A
// transfer from an address that does not hold the item must fail; HolderOf
// lets the pool verify holdership of a whole batch before moving anything.
type Custody interface {
	TransferItem(item uint64, from, to common.Address) error
	HolderOf(item uint64) (common.Address, bool)
}

// Authority exposes the owner capability consulted before admin operations.
type Authority interface {
	IsOwner(addr common.Address) bool
}
