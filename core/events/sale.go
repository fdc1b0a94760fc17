package events

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"azzurri/core/types"
)

const (
	// TypeSalePurchase captures a contribution into a vesting sale.
	TypeSalePurchase = "sale.purchase"
	// TypeSaleReleased captures vested tokens paid out to a purchaser.
	TypeSaleReleased = "sale.released"
)

// SalePurchase captures the payment recorded for a purchaser. Committed is
// the sale-wide total paid after this purchase.
type SalePurchase struct {
	Buyer     common.Address
	Payment   *big.Int
	Committed *big.Int
	At        int64
}

// EventType satisfies the Event interface.
func (SalePurchase) EventType() string { return TypeSalePurchase }

// Event converts the structured payload into a broadcastable event.
func (e SalePurchase) Event() *types.Event {
	return &types.Event{
		Type: TypeSalePurchase,
		Attributes: map[string]string{
			"buyer":     e.Buyer.Hex(),
			"payment":   formatAmount(e.Payment),
			"committed": formatAmount(e.Committed),
			"at":        strconv.FormatInt(e.At, 10),
		},
	}
}

// SaleReleased captures the vested tranche transferred to a purchaser.
type SaleReleased struct {
	Buyer  common.Address
	Amount *big.Int
	At     int64
}

func (SaleReleased) EventType() string { return TypeSaleReleased }

// Event converts the structured payload into a broadcastable event.
func (e SaleReleased) Event() *types.Event {
	return &types.Event{
		Type: TypeSaleReleased,
		Attributes: map[string]string{
			"buyer":  e.Buyer.Hex(),
			"amount": formatAmount(e.Amount),
			"at":     strconv.FormatInt(e.At, 10),
		},
	}
}
