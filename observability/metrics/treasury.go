package metrics

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// TreasuryMetrics tracks the observable policy outcomes of the treasury engine.
type TreasuryMetrics struct {
	epoch            prometheus.Gauge
	seigniorageSplit *prometheus.CounterVec
	bondsBought      prometheus.Counter
	bondsRedeemed    prometheus.Counter
	bondReserve      prometheus.Gauge
	contractionLeft  prometheus.Gauge
	oracleFailures   *prometheus.CounterVec
}

var (
	treasuryOnce     sync.Once
	treasuryRegistry *TreasuryMetrics
)

// Treasury returns the process-wide treasury metrics collector.
func Treasury() *TreasuryMetrics {
	treasuryOnce.Do(func() {
		treasuryRegistry = &TreasuryMetrics{
			epoch: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "treasury_epoch",
				Help: "Current policy epoch counter.",
			}),
			seigniorageSplit: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "treasury_seigniorage_minted_total",
				Help: "Cumulative stable supply minted by destination.",
			}, []string{"destination"}),
			bondsBought: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "treasury_bonds_bought_total",
				Help: "Count of successful bond purchase operations.",
			}),
			bondsRedeemed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "treasury_bonds_redeemed_total",
				Help: "Count of successful bond redemption operations.",
			}),
			bondReserve: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "treasury_bond_reserve",
				Help: "Stable supply retained as seigniorage reserve for bond redemption.",
			}),
			contractionLeft: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "treasury_epoch_contraction_left",
				Help: "Remaining stable supply eligible for bond conversion this epoch.",
			}),
			oracleFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "treasury_oracle_failures_total",
				Help: "Count of oracle consultation failures by call site.",
			}, []string{"op"}),
		}
		prometheus.MustRegister(
			treasuryRegistry.epoch,
			treasuryRegistry.seigniorageSplit,
			treasuryRegistry.bondsBought,
			treasuryRegistry.bondsRedeemed,
			treasuryRegistry.bondReserve,
			treasuryRegistry.contractionLeft,
			treasuryRegistry.oracleFailures,
		)
	})
	return treasuryRegistry
}

// SetEpoch records the current epoch counter.
func (m *TreasuryMetrics) SetEpoch(epoch uint64) {
	if m == nil {
		return
	}
	m.epoch.Set(float64(epoch))
}

// ObserveSeigniorage accumulates minted stable supply by destination.
func (m *TreasuryMetrics) ObserveSeigniorage(destination string, amount *big.Int) {
	if m == nil || amount == nil {
		return
	}
	value, _ := new(big.Float).SetInt(amount).Float64()
	m.seigniorageSplit.WithLabelValues(destination).Add(value)
}

// IncBondsBought counts a successful bond purchase.
func (m *TreasuryMetrics) IncBondsBought() {
	if m == nil {
		return
	}
	m.bondsBought.Inc()
}

// IncBondsRedeemed counts a successful bond redemption.
func (m *TreasuryMetrics) IncBondsRedeemed() {
	if m == nil {
		return
	}
	m.bondsRedeemed.Inc()
}

// SetBondReserve records the retained seigniorage reserve.
func (m *TreasuryMetrics) SetBondReserve(amount *big.Int) {
	if m == nil || amount == nil {
		return
	}
	value, _ := new(big.Float).SetInt(amount).Float64()
	m.bondReserve.Set(value)
}

// SetContractionLeft records the remaining per-epoch contraction quota.
func (m *TreasuryMetrics) SetContractionLeft(amount *big.Int) {
	if m == nil || amount == nil {
		return
	}
	value, _ := new(big.Float).SetInt(amount).Float64()
	m.contractionLeft.Set(value)
}

// IncOracleFailure counts an oracle consultation failure for the given call site.
func (m *TreasuryMetrics) IncOracleFailure(op string) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	m.oracleFailures.WithLabelValues(op).Inc()
}
