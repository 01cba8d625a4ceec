// Package metrics is the shared prometheus registry every long-lived
// subsystem registers its counters/histograms against.
//
// No HTTP server is started here: HTTP surfaces belong to external
// operator tooling, so this package only exposes a *prometheus.Registry
// for such a process to mount behind its own promhttp.Handler.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles the collectors every core subsystem reports to.
type Registry struct {
	Registerer prometheus.Registerer

	VotesReceived    *prometheus.CounterVec
	TxFinalized      prometheus.Counter
	TxRejected       *prometheus.CounterVec
	QuorumLatency    prometheus.Histogram
	ByzantineEvents  *prometheus.CounterVec
	MempoolSize      prometheus.Gauge
	PeerCount        prometheus.Gauge
	BlocksProduced   prometheus.Counter
	BlockBuildLatency prometheus.Histogram
}

// New registers and returns a fresh Registry against reg.
func New(reg *prometheus.Registry) *Registry {
	m := &Registry{
		Registerer: reg,
		VotesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zenithd",
			Name:      "votes_received_total",
			Help:      "Votes accepted by the finality engine, by approve/reject.",
		}, []string{"decision"}),
		TxFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "zenithd",
			Name:      "tx_finalized_total",
			Help:      "Transactions that reached SpentFinalized.",
		}),
		TxRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zenithd",
			Name:      "tx_rejected_total",
			Help:      "Transactions rejected, by reason.",
		}, []string{"reason"}),
		QuorumLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "zenithd",
			Name:      "quorum_latency_seconds",
			Help:      "Time from vote-window open to quorum decision.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		ByzantineEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zenithd",
			Name:      "byzantine_events_total",
			Help:      "Detected Byzantine violations, by severity.",
		}, []string{"severity"}),
		MempoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "zenithd",
			Name:      "mempool_size",
			Help:      "Current number of transactions held in the mempool.",
		}),
		PeerCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "zenithd",
			Name:      "peer_count",
			Help:      "Currently connected peers.",
		}),
		BlocksProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "zenithd",
			Name:      "blocks_produced_total",
			Help:      "Blocks this node finalized as canonical chain head.",
		}),
		BlockBuildLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "zenithd",
			Name:      "block_build_latency_seconds",
			Help:      "Wall-clock time spent constructing a deterministic block candidate.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.VotesReceived, m.TxFinalized, m.TxRejected, m.QuorumLatency,
		m.ByzantineEvents, m.MempoolSize, m.PeerCount, m.BlocksProduced,
		m.BlockBuildLatency,
	)
	return m
}

// Timer measures the duration of an operation and observes it into the
// histogram on Stop.
type Timer struct {
	start time.Time
	obs   prometheus.Observer
}

func NewTimer(obs prometheus.Observer) *Timer { return &Timer{start: time.Now(), obs: obs} }

func (t *Timer) Stop() { t.obs.Observe(time.Since(t.start).Seconds()) }
