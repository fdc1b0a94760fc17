package observability

import (
	"log/slog"
	"math/big"

	"azzurri/core/events"
	"azzurri/core/types"
	"azzurri/observability/metrics"
)

// Observer is an events.Emitter that records engine activity into the
// Prometheus registry and the structured log before forwarding to the next
// emitter in the chain. The asset label annotates token events, which do not
// carry their ledger identity themselves.
type Observer struct {
	asset   string
	logger  *slog.Logger
	metrics *metrics.EngineMetrics
	next    events.Emitter
}

// NewObserver wires an emitter chain for one engine. Both logger and next may
// be nil.
func NewObserver(asset string, logger *slog.Logger, next events.Emitter) *Observer {
	return &Observer{asset: asset, logger: logger, metrics: metrics.Engine(), next: next}
}

// Emit implements events.Emitter.
func (o *Observer) Emit(evt events.Event) {
	if o == nil || evt == nil {
		o.forward(evt)
		return
	}
	switch payload := evt.(type) {
	case events.TokenTransferred:
		o.metrics.ObserveTransfer(o.asset, payload.Fee != nil && payload.Fee.Sign() > 0)
	case events.TokenMinted:
		o.metrics.ObserveMint(o.asset)
	case events.TokenBurned:
		o.metrics.ObserveBurn(o.asset)
	case events.StakeDeposited:
		o.metrics.ObserveStake(payload.Pool)
	case events.StakeWithdrawn:
		o.metrics.ObserveWithdrawal(payload.Pool)
	case events.RewardsHarvested:
		o.metrics.ObserveHarvest(payload.Pool)
		o.metrics.SetRewardReserve(payload.Pool, gaugeValue(payload.Reserve))
	case events.RewardsFunded:
		o.metrics.SetRewardReserve(payload.Pool, gaugeValue(payload.Reserve))
	case events.SalePurchase:
		o.metrics.ObserveContribution()
		o.metrics.SetSaleCommitted(gaugeValue(payload.Committed))
	case events.SaleReleased:
		o.metrics.ObserveRelease()
	}
	if o.logger != nil {
		o.logger.Info("engine event", eventAttrs(o.asset, evt)...)
	}
	o.forward(evt)
}

// gaugeValue projects a ledger amount onto the float64 gauge scale. Precision
// loss above 2^53 is acceptable for monitoring.
func gaugeValue(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

// broadcastable is satisfied by payloads that expand into an attribute map.
type broadcastable interface {
	Event() *types.Event
}

func eventAttrs(asset string, evt events.Event) []any {
	attrs := []any{slog.String("type", evt.EventType()), slog.String("asset", asset)}
	payload, ok := evt.(broadcastable)
	if !ok {
		return attrs
	}
	expanded := payload.Event()
	if expanded == nil {
		return attrs
	}
	for key, value := range expanded.Attributes {
		attrs = append(attrs, slog.String(key, value))
	}
	return attrs
}

func (o *Observer) forward(evt events.Event) {
	if o == nil || o.next == nil || evt == nil {
		return
	}
	o.next.Emit(evt)
}
