package hits

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Recorded       prometheus.Counter
	Skipped        *prometheus.CounterVec
	AppendFailures prometheus.Counter
	AppendDuration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Recorded: f.NewCounter(prometheus.CounterOpts{
			Name: "webring_hits_recorded_total",
			Help: "Embed views appended to the hit log",
		}),
		Skipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "webring_hits_skipped_total",
			Help: "Embed views not recorded, by reason",
		}, []string{"reason"}),
		AppendFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "webring_hits_append_failures_total",
			Help: "Hit log appends that returned an error",
		}),
		AppendDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "webring_hits_append_duration_seconds",
			Help:    "Latency of hit log appends",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
