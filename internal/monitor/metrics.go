package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"webring/internal/health"
)

// Metrics holds the Prometheus series for the health scheduler.
type Metrics struct {
	ProbeResults       *prometheus.CounterVec
	CycleDuration      prometheus.Histogram
	MembersByStatus    *prometheus.GaugeVec
	RegistryFailures   prometheus.Counter
	LastCycleCompleted prometheus.Gauge
}

// NewMetrics registers the scheduler metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ProbeResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "webring_health_probe_results_total",
			Help: "Health probe outcomes by kind",
		}, []string{"kind"}),
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "webring_health_cycle_duration_seconds",
			Help:    "Wall time of one full health-check cycle",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 40},
		}),
		MembersByStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "webring_members",
			Help: "Members in the last published snapshot by health kind",
		}, []string{"kind"}),
		RegistryFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "webring_registry_load_failures_total",
			Help: "Scheduler ticks skipped because the member registry could not be read",
		}),
		LastCycleCompleted: f.NewGauge(prometheus.GaugeOpts{
			Name: "webring_health_last_cycle_timestamp_seconds",
			Help: "Unix time of the last published health mapping",
		}),
	}
}

func (m *Metrics) observeProbe(s health.Status) {
	if m == nil {
		return
	}
	m.ProbeResults.WithLabelValues(s.Kind.String()).Inc()
}

func (m *Metrics) observePublish(results map[string]health.Status, took time.Duration) {
	if m == nil {
		return
	}
	counts := map[string]float64{}
	for _, kind := range []health.Kind{health.KindOk, health.KindUnreachable, health.KindEmbedMissing, health.KindSlugMismatch} {
		counts[kind.String()] = 0
	}
	for _, s := range results {
		counts[s.Kind.String()]++
	}
	for kind, n := range counts {
		m.MembersByStatus.WithLabelValues(kind).Set(n)
	}
	m.CycleDuration.Observe(took.Seconds())
	m.LastCycleCompleted.SetToCurrentTime()
}

func (m *Metrics) incRegistryFailure() {
	if m == nil {
		return
	}
	m.RegistryFailures.Inc()
}
