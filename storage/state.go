package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"azzurri/core/types"
	"azzurri/native/sale"
	"azzurri/native/staking"
	"azzurri/native/token"
)

// The state adapters persist engine records as keyed JSON documents. Every
// Get decodes a fresh copy, so engines never alias stored values, and every
// Put lands in the database before the engine acknowledges the mutation.

func getJSON(db Database, key string, out any) (bool, error) {
	raw, err := db.Get([]byte(key))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("storage: decode %s: %w", key, err)
	}
	return true, nil
}

func putJSON(db Database, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", key, err)
	}
	return db.Put([]byte(key), raw)
}

// TokenState persists one token ledger under an asset-scoped prefix so
// several ledgers can share a database.
type TokenState struct {
	db     Database
	prefix string
}

// NewTokenState binds a token ledger namespace for the given asset address.
func NewTokenState(db Database, asset common.Address) *TokenState {
	return &TokenState{db: db, prefix: "token/" + asset.Hex()}
}

func (s *TokenState) GetToken() (*token.Token, error) {
	var tok token.Token
	ok, err := getJSON(s.db, s.prefix+"/meta", &tok)
	if err != nil || !ok {
		return nil, err
	}
	return &tok, nil
}

func (s *TokenState) PutToken(tok *token.Token) error {
	return putJSON(s.db, s.prefix+"/meta", tok)
}

func (s *TokenState) GetAccount(addr common.Address) (*types.Account, error) {
	var acc types.Account
	ok, err := getJSON(s.db, s.prefix+"/acct/"+addr.Hex(), &acc)
	if err != nil || !ok {
		return nil, err
	}
	return &acc, nil
}

func (s *TokenState) PutAccount(addr common.Address, acc *types.Account) error {
	return putJSON(s.db, s.prefix+"/acct/"+addr.Hex(), acc)
}

// PoolState persists one staking pool (fungible or NFT) under a named prefix.
type PoolState struct {
	db     Database
	prefix string
}

// NewPoolState binds a staking pool namespace.
func NewPoolState(db Database, name string) *PoolState {
	return &PoolState{db: db, prefix: "staking/" + name}
}

func (s *PoolState) GetPool() (*staking.Pool, error) {
	var pool staking.Pool
	ok, err := getJSON(s.db, s.prefix+"/pool", &pool)
	if err != nil || !ok {
		return nil, err
	}
	return &pool, nil
}

func (s *PoolState) PutPool(pool *staking.Pool) error {
	return putJSON(s.db, s.prefix+"/pool", pool)
}

func (s *PoolState) GetPosition(addr common.Address) (*staking.Position, error) {
	var pos staking.Position
	ok, err := getJSON(s.db, s.prefix+"/pos/"+addr.Hex(), &pos)
	if err != nil || !ok {
		return nil, err
	}
	return &pos, nil
}

func (s *PoolState) PutPosition(addr common.Address, pos *staking.Position) error {
	return putJSON(s.db, s.prefix+"/pos/"+addr.Hex(), pos)
}

func (s *PoolState) itemKey(item uint64) string {
	return s.prefix + "/item/" + strconv.FormatUint(item, 10)
}

func (s *PoolState) GetItemStaker(item uint64) (common.Address, bool, error) {
	var hex string
	ok, err := getJSON(s.db, s.itemKey(item), &hex)
	if err != nil || !ok {
		return common.Address{}, false, err
	}
	return common.HexToAddress(hex), true, nil
}

func (s *PoolState) PutItemStaker(item uint64, owner common.Address) error {
	return putJSON(s.db, s.itemKey(item), owner.Hex())
}

func (s *PoolState) DeleteItemStaker(item uint64) error {
	return s.db.Delete([]byte(s.itemKey(item)))
}

// SaleState persists the vesting sale schedule and per-purchaser records.
type SaleState struct {
	db     Database
	prefix string
}

// NewSaleState binds the sale namespace.
func NewSaleState(db Database) *SaleState {
	return &SaleState{db: db, prefix: "sale"}
}

func (s *SaleState) GetSale() (*sale.Sale, error) {
	var record sale.Sale
	ok, err := getJSON(s.db, s.prefix+"/meta", &record)
	if err != nil || !ok {
		return nil, err
	}
	return &record, nil
}

func (s *SaleState) PutSale(record *sale.Sale) error {
	return putJSON(s.db, s.prefix+"/meta", record)
}

func (s *SaleState) GetPurchase(addr common.Address) (*sale.Purchase, error) {
	var purchase sale.Purchase
	ok, err := getJSON(s.db, s.prefix+"/purchase/"+addr.Hex(), &purchase)
	if err != nil || !ok {
		return nil, err
	}
	return &purchase, nil
}

func (s *SaleState) PutPurchase(addr common.Address, purchase *sale.Purchase) error {
	return putJSON(s.db, s.prefix+"/purchase/"+addr.Hex(), purchase)
}
