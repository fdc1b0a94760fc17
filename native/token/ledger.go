package token

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"azzurri/core/events"
	"azzurri/core/types"
	nativecommon "azzurri/native/common"
)

const moduleName = "token"

type engineState interface {
	GetToken() (*Token, error)
	PutToken(*Token) error
	GetAccount(addr common.Address) (*types.Account, error)
	PutAccount(addr common.Address, account *types.Account) error
}

// Authority exposes the capability predicates consulted before privileged
// operations. Signature verification is assumed to have happened before the
// engine is invoked; the authority only answers who holds which capability.
type Authority interface {
	IsMinter(addr common.Address) bool
	IsOwner(addr common.Address) bool
}

// Engine owns account balances and total supply for a single token. Transfers
// are fee-adjusted according to the token's pair flags and exemptions; the
// collected cut accrues on the collector account until withdrawn.
//
// All mutating calls are serialised by an internal mutex so that the sum of
// balances equals total supply after every operation.
type Engine struct {
	mu        sync.Mutex
	state     engineState
	authority Authority
	collector common.Address
	emitter   events.Emitter
	nowFn     func() int64
	pauses    nativecommon.PauseView
}

// NewEngine creates a token engine routing fees to the collector address.
func NewEngine(collector common.Address) *Engine {
	return &Engine{
		collector: collector,
		emitter:   events.NoopEmitter{},
		nowFn:     func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetAuthority configures the capability allow-list consulted before
// privileged operations.
func (e *Engine) SetAuthority(authority Authority) { e.authority = authority }

// SetPauses wires the runtime pause toggles for the token module.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Collector returns the address accruing transfer fees.
func (e *Engine) Collector() common.Address { return e.collector }

func (e *Engine) now() int64 {
	if e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) loadToken() (*Token, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	tok, err := e.state.GetToken()
	if err != nil {
		return nil, err
	}
	return ensureToken(tok), nil
}

func (e *Engine) loadAccount(addr common.Address) (*types.Account, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = &types.Account{}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc, nil
}

// Init writes the token metadata and mints the initial supply to the owner
// account. It is a no-op if the token record already carries supply.
func (e *Engine) Init(meta Token, owner common.Address, initialSupply *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tok, err := e.loadToken()
	if err != nil {
		return err
	}
	if tok.TotalSupply.Sign() > 0 {
		return nil
	}
	tok.Name = meta.Name
	tok.Symbol = meta.Symbol
	tok.MaxSupply = cloneAmount(meta.MaxSupply)
	tok.BuyFeePercent = meta.BuyFeePercent
	tok.SellFeePercent = meta.SellFeePercent
	tok.FeeEndTime = meta.FeeEndTime
	if tok.BuyFeePercent > MaxFeePercent || tok.SellFeePercent > MaxFeePercent {
		return ErrFeeTooHigh
	}

	if initialSupply != nil && initialSupply.Sign() > 0 {
		if tok.MaxSupply.Sign() > 0 && initialSupply.Cmp(tok.MaxSupply) > 0 {
			return ErrSupplyExceeded
		}
		ownerAcc, err := e.loadAccount(owner)
		if err != nil {
			return err
		}
		ownerAcc.Balance = new(big.Int).Add(ownerAcc.Balance, initialSupply)
		tok.TotalSupply = new(big.Int).Set(initialSupply)
		if err := e.state.PutAccount(owner, ownerAcc); err != nil {
			return err
		}
	}
	return e.state.PutToken(tok)
}

// Transfer debits the sender by exactly amount and credits the recipient with
// the fee-adjusted remainder; the fee cut accrues on the collector account.
// The collected fee is returned for downstream accounting.
func (e *Engine) Transfer(from, to common.Address, amount *big.Int) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transferLocked(from, to, amount)
}

func (e *Engine) transferLocked(from, to common.Address, amount *big.Int) (*big.Int, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	tok, err := e.loadToken()
	if err != nil {
		return nil, err
	}
	fromAcc, err := e.loadAccount(from)
	if err != nil {
		return nil, err
	}
	if fromAcc.Balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}
	toAcc, err := e.loadAccount(to)
	if err != nil {
		return nil, err
	}

	quote := Quote(QuoteInput{
		Amount:         amount,
		FromPair:       fromAcc.PoolPair,
		ToPair:         toAcc.PoolPair,
		FromExempt:     fromAcc.FeeExempt,
		ToExempt:       toAcc.FeeExempt,
		Now:            e.now(),
		BuyFeePercent:  tok.BuyFeePercent,
		SellFeePercent: tok.SellFeePercent,
		FeeEndTime:     tok.FeeEndTime,
	})

	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
	if from == to {
		// Self transfer: the sender account is also the recipient record.
		toAcc = fromAcc
	}
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, quote.Net)

	if err := e.state.PutAccount(from, fromAcc); err != nil {
		return nil, err
	}
	if from != to {
		if err := e.state.PutAccount(to, toAcc); err != nil {
			return nil, err
		}
	}
	if quote.Fee.Sign() > 0 {
		collectorAcc, err := e.loadAccount(e.collector)
		if err != nil {
			return nil, err
		}
		if e.collector == from {
			collectorAcc = fromAcc
		}
		if e.collector == to {
			collectorAcc = toAcc
		}
		collectorAcc.Balance = new(big.Int).Add(collectorAcc.Balance, quote.Fee)
		if err := e.state.PutAccount(e.collector, collectorAcc); err != nil {
			return nil, err
		}
	}

	e.emit(events.TokenTransferred{From: from, To: to, Amount: cloneAmount(amount), Fee: cloneAmount(quote.Fee)})
	return quote.Fee, nil
}

// Mint creates new supply for the recipient. The caller must hold the minter
// capability and the resulting supply must not exceed the configured cap.
func (e *Engine) Mint(caller, to common.Address, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if e.authority == nil || !e.authority.IsMinter(caller) {
		return ErrUnauthorized
	}
	tok, err := e.loadToken()
	if err != nil {
		return err
	}
	next := new(big.Int).Add(tok.TotalSupply, amount)
	if tok.MaxSupply.Sign() > 0 && next.Cmp(tok.MaxSupply) > 0 {
		return ErrSupplyExceeded
	}
	toAcc, err := e.loadAccount(to)
	if err != nil {
		return err
	}
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
	tok.TotalSupply = next
	if err := e.state.PutAccount(to, toAcc); err != nil {
		return err
	}
	if err := e.state.PutToken(tok); err != nil {
		return err
	}
	e.emit(events.TokenMinted{To: to, Amount: cloneAmount(amount), Supply: cloneAmount(tok.TotalSupply)})
	return nil
}

// Burn destroys supply from the holder's balance.
func (e *Engine) Burn(from common.Address, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	tok, err := e.loadToken()
	if err != nil {
		return err
	}
	fromAcc, err := e.loadAccount(from)
	if err != nil {
		return err
	}
	if fromAcc.Balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
	tok.TotalSupply = new(big.Int).Sub(tok.TotalSupply, amount)
	if err := e.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	if err := e.state.PutToken(tok); err != nil {
		return err
	}
	e.emit(events.TokenBurned{From: from, Amount: cloneAmount(amount), Supply: cloneAmount(tok.TotalSupply)})
	return nil
}

// WithdrawFees pays the accumulated collector balance out to the caller. The
// payout is supply neutral; only the owner may trigger it.
func (e *Engine) WithdrawFees(caller common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if e.authority == nil || !e.authority.IsOwner(caller) {
		return nil, ErrUnauthorized
	}
	collectorAcc, err := e.loadAccount(e.collector)
	if err != nil {
		return nil, err
	}
	amount := new(big.Int).Set(collectorAcc.Balance)
	if amount.Sign() == 0 {
		return nil, ErrNothingCollected
	}
	callerAcc, err := e.loadAccount(caller)
	if err != nil {
		return nil, err
	}
	collectorAcc.Balance = big.NewInt(0)
	callerAcc.Balance = new(big.Int).Add(callerAcc.Balance, amount)
	if err := e.state.PutAccount(e.collector, collectorAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(caller, callerAcc); err != nil {
		return nil, err
	}
	e.emit(events.FeesWithdrawn{To: caller, Amount: amount, At: e.now()})
	return amount, nil
}

// SetBuySellFee replaces both fee rates atomically. Either rate above the
// ceiling rejects the whole update.
func (e *Engine) SetBuySellFee(caller common.Address, buyPercent, sellPercent uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.authority == nil || !e.authority.IsOwner(caller) {
		return ErrUnauthorized
	}
	if buyPercent > MaxFeePercent || sellPercent > MaxFeePercent {
		return ErrFeeTooHigh
	}
	tok, err := e.loadToken()
	if err != nil {
		return err
	}
	tok.BuyFeePercent = buyPercent
	tok.SellFeePercent = sellPercent
	return e.state.PutToken(tok)
}

// SetFeeEndTime replaces the timestamp after which transfers are fee-free.
func (e *Engine) SetFeeEndTime(caller common.Address, feeEndTime int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.authority == nil || !e.authority.IsOwner(caller) {
		return ErrUnauthorized
	}
	tok, err := e.loadToken()
	if err != nil {
		return err
	}
	tok.FeeEndTime = feeEndTime
	return e.state.PutToken(tok)
}

// SetPair flags or unflags an address as a liquidity-pool counterparty.
func (e *Engine) SetPair(caller, addr common.Address, isPair bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.authority == nil || !e.authority.IsOwner(caller) {
		return ErrUnauthorized
	}
	acc, err := e.loadAccount(addr)
	if err != nil {
		return err
	}
	acc.PoolPair = isPair
	return e.state.PutAccount(addr, acc)
}

// SetFeeExempt excludes or re-includes an address from transfer fees.
func (e *Engine) SetFeeExempt(caller, addr common.Address, exempt bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.authority == nil || !e.authority.IsOwner(caller) {
		return ErrUnauthorized
	}
	acc, err := e.loadAccount(addr)
	if err != nil {
		return err
	}
	acc.FeeExempt = exempt
	return e.state.PutAccount(addr, acc)
}

// BalanceOf returns the current balance of the address.
func (e *Engine) BalanceOf(addr common.Address) (*big.Int, error) {
	acc, err := e.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.Balance), nil
}

// TotalSupply returns the current circulating supply.
func (e *Engine) TotalSupply() (*big.Int, error) {
	tok, err := e.loadToken()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(tok.TotalSupply), nil
}

// Info returns a copy of the token record.
func (e *Engine) Info() (*Token, error) {
	tok, err := e.loadToken()
	if err != nil {
		return nil, err
	}
	return tok.Clone(), nil
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
