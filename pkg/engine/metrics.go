package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the engine's prometheus.Collector set, promoted from the
// teacher's hand-rolled atomic-counter metrics (pkg/monitoring/metrics.go)
// to real collectors registered on the process's default registry.
type Metrics struct {
	RoundsAccepted     prometheus.Counter
	RoundsUndetermined prometheus.Counter

	AppealsRolledBack prometheus.Counter

	FinalizationLatency prometheus.Histogram

	QueueDepth *prometheus.GaugeVec
}

// NewMetrics constructs and registers the collectors on reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with other
// engines in the same process; pass prometheus.DefaultRegisterer in
// cmd/consensusd.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RoundsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consensus_rounds_accepted_total",
			Help: "Number of transactions that reached Accepted.",
		}),
		RoundsUndetermined: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consensus_rounds_undetermined_total",
			Help: "Number of transactions that reached Undetermined.",
		}),
		AppealsRolledBack: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consensus_appeals_rolled_back_total",
			Help: "Number of appeals that triggered a rollback of newer transactions.",
		}),
		FinalizationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "consensus_finalization_latency_seconds",
			Help:    "Time from awaiting-finalization to Finalized, net of appeal processing time.",
			Buckets: prometheus.DefBuckets,
		}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "consensus_queue_depth",
			Help: "Pending dispatcher work per address.",
		}, []string{"address"}),
	}

	reg.MustRegister(
		m.RoundsAccepted, m.RoundsUndetermined,
		m.AppealsRolledBack, m.FinalizationLatency, m.QueueDepth,
	)
	return m
}

// ObserveFinalizationLatency and IncRollback satisfy pkg/scheduler's
// Metrics interface, keeping the scheduler free of a prometheus import.
func (m *Metrics) ObserveFinalizationLatency(d time.Duration) {
	m.FinalizationLatency.Observe(d.Seconds())
}

func (m *Metrics) IncRollback() {
	m.AppealsRolledBack.Inc()
}

func (m *Metrics) SetQueueDepth(address string, depth int) {
	m.QueueDepth.WithLabelValues(address).Set(float64(depth))
}
