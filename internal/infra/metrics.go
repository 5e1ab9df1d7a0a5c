package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors shared across components.
type Metrics struct {
	RoundsTotal      prometheus.Counter
	BetsTotal        *prometheus.CounterVec
	CashoutsTotal    *prometheus.CounterVec
	DepositsCredited prometheus.Counter
	PayoutsTotal     *prometheus.CounterVec
	WSClients        prometheus.Gauge
	IndexerLagBlocks prometheus.Gauge
	HotWalletWei     prometheus.Gauge
	EmergencyMode    prometheus.Gauge
	CrashPointPPM    prometheus.Histogram
}

// NewMetrics registers the collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RoundsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "crash_rounds_total",
			Help: "Settled rounds.",
		}),
		BetsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crash_bets_total",
			Help: "Bets by outcome.",
		}, []string{"outcome"}),
		CashoutsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crash_cashouts_total",
			Help: "Cashout requests by result.",
		}, []string{"result"}),
		DepositsCredited: factory.NewCounter(prometheus.CounterOpts{
			Name: "crash_deposits_credited_total",
			Help: "Deposits credited by the indexer.",
		}),
		PayoutsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crash_payouts_total",
			Help: "On-chain payouts by status.",
		}, []string{"status"}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "crash_ws_clients",
			Help: "Connected realtime clients.",
		}),
		IndexerLagBlocks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "crash_indexer_lag_blocks",
			Help: "Blocks between chain tip and the deposit cursor.",
		}),
		HotWalletWei: factory.NewGauge(prometheus.GaugeOpts{
			Name: "crash_hot_wallet_wei",
			Help: "Hot wallet balance in wei (float approximation).",
		}),
		EmergencyMode: factory.NewGauge(prometheus.GaugeOpts{
			Name: "crash_emergency_mode",
			Help: "1 when the emergency latch is set.",
		}),
		CrashPointPPM: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "crash_point_ppm",
			Help:    "Distribution of crash points in ppm.",
			Buckets: prometheus.ExponentialBuckets(1_000_000, 2, 11),
		}),
	}
}
