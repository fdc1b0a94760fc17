package sale

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"azzurri/core/events"
	nativecommon "azzurri/native/common"
)

const moduleName = "sale"

type engineState interface {
	GetSale() (*Sale, error)
	PutSale(*Sale) error
	GetPurchase(addr common.Address) (*Purchase, error)
	PutPurchase(addr common.Address, purchase *Purchase) error
}

// Bank moves fungible value between accounts on behalf of the sale engine.
type Bank interface {
	Transfer(asset common.Address, from, to common.Address, amount *big.Int) error
	BalanceOf(asset common.Address, addr common.Address) (*big.Int, error)
}

// Authority exposes the owner capability consulted before admin operations.
type Authority interface {
	IsOwner(addr common.Address) bool
}

// Engine runs a timed token sale with vesting-based release. Payments are
// escrowed on the sale address until withdrawn; the sale token inventory is
// funded onto the same address out of band and paid out as purchasers vest.
type Engine struct {
	mu           sync.Mutex
	state        engineState
	bank         Bank
	authority    Authority
	paymentAsset common.Address
	saleAsset    common.Address
	saleAddress  common.Address
	emitter      events.Emitter
	nowFn        func() int64
	pauses       nativecommon.PauseView
}

// NewEngine creates a sale engine selling saleAsset against paymentAsset,
// escrowing both on saleAddress.
func NewEngine(paymentAsset, saleAsset, saleAddress common.Address) *Engine {
	return &Engine{
		paymentAsset: paymentAsset,
		saleAsset:    saleAsset,
		saleAddress:  saleAddress,
		emitter:      events.NoopEmitter{},
		nowFn:        func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetBank wires the value-moving collaborator.
func (e *Engine) SetBank(bank Bank) { e.bank = bank }

// SetAuthority configures the owner capability consulted by admin operations.
func (e *Engine) SetAuthority(authority Authority) { e.authority = authority }

// SetPauses wires the runtime pause toggles for the sale module.
func (e *Engine) SetPauses(v nativecommon.PauseView) { e.pauses = v }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() int64 {
	if e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) loadSale() (*Sale, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	s, err := e.state.GetSale()
	if err != nil {
		return nil, err
	}
	return ensureSale(s), nil
}

func (e *Engine) loadPurchase(addr common.Address) (*Purchase, error) {
	p, err := e.state.GetPurchase(addr)
	if err != nil {
		return nil, err
	}
	return ensurePurchase(p), nil
}

// Init writes the initial schedule. It overwrites nothing once contributions
// exist.
func (e *Engine) Init(schedule Sale) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	current, err := e.loadSale()
	if err != nil {
		return err
	}
	if current.TotalPaid.Sign() > 0 {
		return nil
	}
	if schedule.TokenPrice == nil || schedule.TokenPrice.Sign() <= 0 || schedule.EndTime < schedule.StartTime {
		return ErrInvalidSchedule
	}
	if schedule.TGEPercent > 100 {
		return ErrInvalidSchedule
	}
	next := ensureSale(schedule.Clone())
	next.TotalPaid = big.NewInt(0)
	next.PaymentBalance = big.NewInt(0)
	next.TotalReleased = big.NewInt(0)
	return e.state.PutSale(next)
}

// Contribute records a payment from the payer during the sale window, subject
// to the per-purchaser limit and the aggregate cap. The payment is escrowed on
// the sale address.
func (e *Engine) Contribute(payer common.Address, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if e.bank == nil {
		return errNilBank
	}
	s, err := e.loadSale()
	if err != nil {
		return err
	}
	now := e.now()
	if now < s.StartTime || now > s.EndTime {
		return ErrSaleClosed
	}
	purchase, err := e.loadPurchase(payer)
	if err != nil {
		return err
	}
	nextPaid := new(big.Int).Add(purchase.PaidAmount, amount)
	if s.PurchaseLimit.Sign() > 0 && nextPaid.Cmp(s.PurchaseLimit) > 0 {
		return ErrLimitExceeded
	}
	nextTotal := new(big.Int).Add(s.TotalPaid, amount)
	if s.Cap.Sign() > 0 && nextTotal.Cmp(s.Cap) > 0 {
		return ErrCapExceeded
	}

	if err := e.bank.Transfer(e.paymentAsset, payer, e.saleAddress, amount); err != nil {
		return err
	}

	purchase.PaidAmount = nextPaid
	s.TotalPaid = nextTotal
	s.PaymentBalance = new(big.Int).Add(s.PaymentBalance, amount)

	if err := e.state.PutPurchase(payer, purchase); err != nil {
		return err
	}
	if err := e.state.PutSale(s); err != nil {
		return err
	}
	e.emit(events.SalePurchase{Buyer: payer, Payment: cloneAmount(amount), Committed: cloneAmount(s.TotalPaid), At: now})
	return nil
}

// Release pays the payer the vested tranche not yet released. Claiming must
// have been opened by the owner.
func (e *Engine) Release(payer common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if e.bank == nil {
		return nil, errNilBank
	}
	s, err := e.loadSale()
	if err != nil {
		return nil, err
	}
	if !s.ClaimEnabled {
		return nil, ErrClaimDisabled
	}
	purchase, err := e.loadPurchase(payer)
	if err != nil {
		return nil, err
	}

	now := e.now()
	releasable := s.ReleasableAt(purchase.PaidAmount, now)
	amount := new(big.Int).Sub(releasable, purchase.ReleasedAmount)
	if amount.Sign() <= 0 {
		return nil, ErrNothingToRelease
	}

	if err := e.bank.Transfer(e.saleAsset, e.saleAddress, payer, amount); err != nil {
		return nil, err
	}

	purchase.ReleasedAmount = new(big.Int).Add(purchase.ReleasedAmount, amount)
	s.TotalReleased = new(big.Int).Add(s.TotalReleased, amount)

	if err := e.state.PutPurchase(payer, purchase); err != nil {
		return nil, err
	}
	if err := e.state.PutSale(s); err != nil {
		return nil, err
	}
	e.emit(events.SaleReleased{Buyer: payer, Amount: amount, At: now})
	return amount, nil
}

// Releasable returns the vested amount the payer could claim at the current
// time, net of what was already released.
func (e *Engine) Releasable(payer common.Address) (*big.Int, error) {
	s, err := e.loadSale()
	if err != nil {
		return nil, err
	}
	purchase, err := e.loadPurchase(payer)
	if err != nil {
		return nil, err
	}
	releasable := s.ReleasableAt(purchase.PaidAmount, e.now())
	out := new(big.Int).Sub(releasable, purchase.ReleasedAmount)
	if out.Sign() < 0 {
		return big.NewInt(0), nil
	}
	return out, nil
}

// PayAmount returns the payment total recorded for the payer.
func (e *Engine) PayAmount(payer common.Address) (*big.Int, error) {
	purchase, err := e.loadPurchase(payer)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(purchase.PaidAmount), nil
}

// ReleasedAmount returns the token total already paid out to the payer.
func (e *Engine) ReleasedAmount(payer common.Address) (*big.Int, error) {
	purchase, err := e.loadPurchase(payer)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(purchase.ReleasedAmount), nil
}

// Info returns a copy of the sale record.
func (e *Engine) Info() (*Sale, error) {
	s, err := e.loadSale()
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

// SetClaim opens or closes claiming.
func (e *Engine) SetClaim(caller common.Address, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.authority == nil || !e.authority.IsOwner(caller) {
		return ErrUnauthorized
	}
	s, err := e.loadSale()
	if err != nil {
		return err
	}
	s.ClaimEnabled = enabled
	return e.state.PutSale(s)
}

// SetSchedule re-parameterises an in-flight sale. Lowering the cap below the
// committed payment total is rejected so past guarantees stay intact.
func (e *Engine) SetSchedule(caller common.Address, startTime, endTime int64, tokenPrice, purchaseLimit, cap *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.authority == nil || !e.authority.IsOwner(caller) {
		return ErrUnauthorized
	}
	if tokenPrice == nil || tokenPrice.Sign() <= 0 || endTime < startTime {
		return ErrInvalidSchedule
	}
	s, err := e.loadSale()
	if err != nil {
		return err
	}
	if cap != nil && cap.Sign() > 0 && cap.Cmp(s.TotalPaid) < 0 {
		return ErrCapBelowCommitted
	}
	s.StartTime = startTime
	s.EndTime = endTime
	s.TokenPrice = new(big.Int).Set(tokenPrice)
	s.PurchaseLimit = cloneAmount(purchaseLimit)
	s.Cap = cloneAmount(cap)
	return e.state.PutSale(s)
}

// WithdrawPayments moves the escrowed payment balance to the caller.
func (e *Engine) WithdrawPayments(caller common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.authority == nil || !e.authority.IsOwner(caller) {
		return nil, ErrUnauthorized
	}
	if e.bank == nil {
		return nil, errNilBank
	}
	s, err := e.loadSale()
	if err != nil {
		return nil, err
	}
	amount := new(big.Int).Set(s.PaymentBalance)
	if amount.Sign() == 0 {
		return nil, ErrNothingToRelease
	}
	if err := e.bank.Transfer(e.paymentAsset, e.saleAddress, caller, amount); err != nil {
		return nil, err
	}
	s.PaymentBalance = big.NewInt(0)
	if err := e.state.PutSale(s); err != nil {
		return nil, err
	}
	return amount, nil
}

// WithdrawUnsold moves the remaining sale-token inventory to the caller.
func (e *Engine) WithdrawUnsold(caller common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.authority == nil || !e.authority.IsOwner(caller) {
		return nil, ErrUnauthorized
	}
	if e.bank == nil {
		return nil, errNilBank
	}
	balance, err := e.bank.BalanceOf(e.saleAsset, e.saleAddress)
	if err != nil {
		return nil, err
	}
	if balance.Sign() == 0 {
		return nil, ErrNothingToRelease
	}
	if err := e.bank.Transfer(e.saleAsset, e.saleAddress, caller, balance); err != nil {
		return nil, err
	}
	return balance, nil
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}
