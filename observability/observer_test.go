package observability

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"azzurri/core/events"
)

type captureEmitter struct {
	seen []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.seen = append(c.seen, evt) }

func TestObserverForwardsEvents(t *testing.T) {
	next := &captureEmitter{}
	obs := NewObserver("0xa1", nil, next)

	evt := events.TokenTransferred{
		From:   common.HexToAddress("0x0a"),
		To:     common.HexToAddress("0x0b"),
		Amount: big.NewInt(100),
		Fee:    big.NewInt(2),
	}
	obs.Emit(evt)
	obs.Emit(events.RewardsHarvested{Pool: "staking.token", Owner: common.HexToAddress("0x0a"), Amount: big.NewInt(5)})

	if len(next.seen) != 2 {
		t.Fatalf("forwarded %d events, want 2", len(next.seen))
	}
	if next.seen[0].EventType() != events.TypeTokenTransferred {
		t.Fatalf("forwarded type = %s", next.seen[0].EventType())
	}
}

func TestObserverWithoutNext(t *testing.T) {
	obs := NewObserver("0xa1", nil, nil)
	// Must not panic with no downstream emitter or logger.
	obs.Emit(events.TokenMinted{To: common.HexToAddress("0x0a"), Amount: big.NewInt(1), Supply: big.NewInt(1)})
	obs.Emit(nil)
}

func TestEventAttrsExpandPayload(t *testing.T) {
	attrs := eventAttrs("0xa1", events.SalePurchase{
		Buyer:     common.HexToAddress("0x0a"),
		Payment:   big.NewInt(250),
		Committed: big.NewInt(250),
		At:        1_000,
	})
	// type + asset plus the payload's buyer/payment/committed/at attributes.
	if len(attrs) != 6 {
		t.Fatalf("attrs = %d, want 6", len(attrs))
	}
}

func TestObserverFeedsGauges(t *testing.T) {
	obs := NewObserver("0xa1", nil, nil)

	obs.Emit(events.RewardsFunded{
		Pool:    "staking.token",
		Funder:  common.HexToAddress("0x0a"),
		Amount:  big.NewInt(5_000),
		Reserve: big.NewInt(5_000),
	})
	if got := gaugeReading(t, "azzurri_staking_reward_reserve", "pool", "staking.token"); got != 5_000 {
		t.Fatalf("reward reserve gauge = %v after funding, want 5000", got)
	}

	obs.Emit(events.RewardsHarvested{
		Pool:    "staking.token",
		Owner:   common.HexToAddress("0x0b"),
		Amount:  big.NewInt(2_000),
		Reserve: big.NewInt(3_000),
	})
	if got := gaugeReading(t, "azzurri_staking_reward_reserve", "pool", "staking.token"); got != 3_000 {
		t.Fatalf("reward reserve gauge = %v after harvest, want 3000", got)
	}

	obs.Emit(events.SalePurchase{
		Buyer:     common.HexToAddress("0x0c"),
		Payment:   big.NewInt(400),
		Committed: big.NewInt(1_400),
		At:        1_000,
	})
	if got := gaugeReading(t, "azzurri_sale_total_paid", "", ""); got != 1_400 {
		t.Fatalf("sale committed gauge = %v, want 1400", got)
	}
}

// gaugeReading pulls a gauge value out of the process-wide registry.
func gaugeReading(t *testing.T, name, labelName, labelValue string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if labelName == "" {
				return metric.GetGauge().GetValue()
			}
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == labelName && pair.GetValue() == labelValue {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}
