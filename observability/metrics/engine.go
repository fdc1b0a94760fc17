package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics tracks activity across the token ledgers, staking pools and
// the vesting sale.
type EngineMetrics struct {
	transfers      *prometheus.CounterVec
	mints          *prometheus.CounterVec
	burns          *prometheus.CounterVec
	feesCollected  *prometheus.CounterVec
	stakes         *prometheus.CounterVec
	withdrawals    *prometheus.CounterVec
	harvests       *prometheus.CounterVec
	rewardReserve  *prometheus.GaugeVec
	contributions  prometheus.Counter
	releases       prometheus.Counter
	saleCommitted  prometheus.Gauge
}

var (
	engineOnce     sync.Once
	engineRegistry *EngineMetrics
)

// Engine returns the lazily-initialised metrics registry shared by the
// accounting engines.
func Engine() *EngineMetrics {
	engineOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "azzurri",
				Subsystem: "token",
				Name:      "transfers_total",
				Help:      "Count of ledger transfers segmented by asset.",
			}, []string{"asset"}),
			mints: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "azzurri",
				Subsystem: "token",
				Name:      "mints_total",
				Help:      "Count of mint operations segmented by asset.",
			}, []string{"asset"}),
			burns: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "azzurri",
				Subsystem: "token",
				Name:      "burns_total",
				Help:      "Count of burn operations segmented by asset.",
			}, []string{"asset"}),
			feesCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "azzurri",
				Subsystem: "token",
				Name:      "fee_events_total",
				Help:      "Count of transfers that charged a non-zero fee.",
			}, []string{"asset"}),
			stakes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "azzurri",
				Subsystem: "staking",
				Name:      "deposits_total",
				Help:      "Count of staking deposits segmented by pool.",
			}, []string{"pool"}),
			withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "azzurri",
				Subsystem: "staking",
				Name:      "withdrawals_total",
				Help:      "Count of staking withdrawals segmented by pool.",
			}, []string{"pool"}),
			harvests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "azzurri",
				Subsystem: "staking",
				Name:      "harvests_total",
				Help:      "Count of reward harvests segmented by pool.",
			}, []string{"pool"}),
			rewardReserve: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "azzurri",
				Subsystem: "staking",
				Name:      "reward_reserve",
				Help:      "Remaining reward reserve per pool in base units.",
			}, []string{"pool"}),
			contributions: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "azzurri",
				Subsystem: "sale",
				Name:      "contributions_total",
				Help:      "Count of accepted sale contributions.",
			}),
			releases: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "azzurri",
				Subsystem: "sale",
				Name:      "releases_total",
				Help:      "Count of vested token releases.",
			}),
			saleCommitted: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "azzurri",
				Subsystem: "sale",
				Name:      "total_paid",
				Help:      "Cumulative payment committed to the sale in base units.",
			}),
		}
		prometheus.MustRegister(
			engineRegistry.transfers,
			engineRegistry.mints,
			engineRegistry.burns,
			engineRegistry.feesCollected,
			engineRegistry.stakes,
			engineRegistry.withdrawals,
			engineRegistry.harvests,
			engineRegistry.rewardReserve,
			engineRegistry.contributions,
			engineRegistry.releases,
			engineRegistry.saleCommitted,
		)
	})
	return engineRegistry
}

func (m *EngineMetrics) ObserveTransfer(asset string, feeCharged bool) {
	if m == nil {
		return
	}
	if asset == "" {
		asset = "unknown"
	}
	m.transfers.WithLabelValues(asset).Inc()
	if feeCharged {
		m.feesCollected.WithLabelValues(asset).Inc()
	}
}

func (m *EngineMetrics) ObserveMint(asset string) {
	if m == nil {
		return
	}
	if asset == "" {
		asset = "unknown"
	}
	m.mints.WithLabelValues(asset).Inc()
}

func (m *EngineMetrics) ObserveBurn(asset string) {
	if m == nil {
		return
	}
	if asset == "" {
		asset = "unknown"
	}
	m.burns.WithLabelValues(asset).Inc()
}

func (m *EngineMetrics) ObserveStake(pool string) {
	if m == nil {
		return
	}
	m.stakes.WithLabelValues(pool).Inc()
}

func (m *EngineMetrics) ObserveWithdrawal(pool string) {
	if m == nil {
		return
	}
	m.withdrawals.WithLabelValues(pool).Inc()
}

func (m *EngineMetrics) ObserveHarvest(pool string) {
	if m == nil {
		return
	}
	m.harvests.WithLabelValues(pool).Inc()
}

func (m *EngineMetrics) SetRewardReserve(pool string, reserve float64) {
	if m == nil {
		return
	}
	m.rewardReserve.WithLabelValues(pool).Set(reserve)
}

func (m *EngineMetrics) ObserveContribution() {
	if m == nil {
		return
	}
	m.contributions.Inc()
}

func (m *EngineMetrics) ObserveRelease() {
	if m == nil {
		return
	}
	m.releases.Inc()
}

func (m *EngineMetrics) SetSaleCommitted(total float64) {
	if m == nil {
		return
	}
	m.saleCommitted.Set(total)
}
