package sale

import "math/big"

// priceScale is the fixed-point denominator of TokenPrice: a price equal to
// priceScale buys one token unit per payment unit.
var priceScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Sale captures the global schedule and running totals of a vesting sale.
type Sale struct {
	StartTime int64 `json:"startTime"`
	EndTime   int64 `json:"endTime"`
	// TokenPrice is the payment amount per token, fixed point over priceScale.
	TokenPrice *big.Int `json:"tokenPrice"`
	// PurchaseLimit caps the payment total of a single purchaser.
	PurchaseLimit *big.Int `json:"purchaseLimit"`
	// Cap bounds aggregate payments across all purchasers.
	Cap *big.Int `json:"cap"`

	StartRelease    int64  `json:"startRelease"`
	CliffDuration   int64  `json:"cliffDuration"`
	VestingDuration int64  `json:"vestingDuration"`
	TGEPercent      uint64 `json:"tgePercent"`
	ClaimEnabled    bool   `json:"claimEnabled"`

	TotalPaid *big.Int `json:"totalPaid"`
	// PaymentBalance tracks contributions still escrowed on the sale address.
	PaymentBalance *big.Int `json:"paymentBalance"`
	TotalReleased  *big.Int `json:"totalReleased"`
}

// Clone returns a deep copy of the sale record.
func (s *Sale) Clone() *Sale {
	if s == nil {
		return nil
	}
	out := *s
	out.TokenPrice = cloneAmount(s.TokenPrice)
	out.PurchaseLimit = cloneAmount(s.PurchaseLimit)
	out.Cap = cloneAmount(s.Cap)
	out.TotalPaid = cloneAmount(s.TotalPaid)
	out.PaymentBalance = cloneAmount(s.PaymentBalance)
	out.TotalReleased = cloneAmount(s.TotalReleased)
	return &out
}

func ensureSale(s *Sale) *Sale {
	if s == nil {
		s = &Sale{}
	}
	if s.TokenPrice == nil {
		s.TokenPrice = big.NewInt(0)
	}
	if s.PurchaseLimit == nil {
		s.PurchaseLimit = big.NewInt(0)
	}
	if s.Cap == nil {
		s.Cap = big.NewInt(0)
	}
	if s.TotalPaid == nil {
		s.TotalPaid = big.NewInt(0)
	}
	if s.PaymentBalance == nil {
		s.PaymentBalance = big.NewInt(0)
	}
	if s.TotalReleased == nil {
		s.TotalReleased = big.NewInt(0)
	}
	return s
}

// Purchase is the per-purchaser record.
type Purchase struct {
	PaidAmount     *big.Int `json:"paidAmount"`
	ReleasedAmount *big.Int `json:"releasedAmount"`
}

// Clone returns a deep copy of the purchase record.
func (p *Purchase) Clone() *Purchase {
	if p == nil {
		return nil
	}
	return &Purchase{
		PaidAmount:     cloneAmount(p.PaidAmount),
		ReleasedAmount: cloneAmount(p.ReleasedAmount),
	}
}

func ensurePurchase(p *Purchase) *Purchase {
	if p == nil {
		p = &Purchase{}
	}
	if p.PaidAmount == nil {
		p.PaidAmount = big.NewInt(0)
	}
	if p.ReleasedAmount == nil {
		p.ReleasedAmount = big.NewInt(0)
	}
	return p
}

// Entitlement converts a payment total into the token amount purchased at the
// fixed price.
func (s *Sale) Entitlement(paid *big.Int) *big.Int {
	if s == nil || paid == nil || paid.Sign() <= 0 || s.TokenPrice.Sign() <= 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(paid, priceScale)
	return out.Quo(out, s.TokenPrice)
}

// ReleasableAt evaluates the vesting curve for a payment total at the given
// time: nothing before the release clock starts, the TGE tranche through the
// cliff, then the tranche plus a linearly vested remainder, clamped at the
// full entitlement. For fixed parameters the result never decreases in now.
func (s *Sale) ReleasableAt(paid *big.Int, now int64) *big.Int {
	entitlement := s.Entitlement(paid)
	if entitlement.Sign() == 0 {
		return big.NewInt(0)
	}
	if now < s.StartRelease {
		return big.NewInt(0)
	}

	tranche := new(big.Int).Mul(entitlement, new(big.Int).SetUint64(s.TGEPercent))
	tranche.Quo(tranche, big.NewInt(100))

	cliffEnd := s.StartRelease + s.CliffDuration
	if now < cliffEnd {
		return tranche
	}
	if s.VestingDuration <= 0 {
		return entitlement
	}

	elapsed := now - cliffEnd
	if elapsed > s.VestingDuration {
		elapsed = s.VestingDuration
	}
	remainder := new(big.Int).Sub(entitlement, tranche)
	vested := new(big.Int).Mul(remainder, big.NewInt(elapsed))
	vested.Quo(vested, big.NewInt(s.VestingDuration))

	out := new(big.Int).Add(tranche, vested)
	if out.Cmp(entitlement) > 0 {
		return entitlement
	}
	return out
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
