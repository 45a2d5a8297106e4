package notary

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	appmetrics "github.com/docuchain/notary/metrics"
)

// Metrics holds all notarization-level metrics
type Metrics struct {
	registry *appmetrics.ComponentRegistry

	TransactionsTotal   *prometheus.CounterVec
	SubmissionsTotal    prometheus.Counter
	FallbackEstimates   prometheus.Counter
	GasUsed             prometheus.Histogram
	ConfirmDuration     prometheus.Histogram
	InflightSubmissions prometheus.Gauge
}

// NewMetrics creates notarization metrics
func NewMetrics() *Metrics {
	reg := appmetrics.NewComponentRegistry("notary", "")

	return &Metrics{
		registry: reg,

		TransactionsTotal: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "transactions_total",
			Help: "Lifecycle transitions by resulting status",
		}, []string{"status"}),

		SubmissionsTotal: reg.NewCounter(prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Total notarization submissions accepted",
		}),

		FallbackEstimates: reg.NewCounter(prometheus.CounterOpts{
			Name: "fallback_gas_estimates_total",
			Help: "Submissions that used the fallback gas estimate",
		}),

		GasUsed: reg.NewHistogram(prometheus.HistogramOpts{
			Name:    "gas_used",
			Help:    "Gas used by confirmed notarization transactions",
			Buckets: []float64{21_000, 50_000, 85_000, 150_000, 250_000, 400_000},
		}),

		ConfirmDuration: reg.NewHistogram(prometheus.HistogramOpts{
			Name:    "confirm_duration_seconds",
			Help:    "Wall time from submission to confirmation",
			Buckets: appmetrics.DurationBuckets,
		}),

		InflightSubmissions: reg.NewGauge(prometheus.GaugeOpts{
			Name: "inflight_submissions",
			Help: "Submissions currently pending or confirming",
		}),
	}
}

// RecordSubmitted records an accepted submission
func (m *Metrics) RecordSubmitted() {
	m.SubmissionsTotal.Inc()
	m.InflightSubmissions.Inc()
}

// RecordTransition records a lifecycle transition
func (m *Metrics) RecordTransition(status Status) {
	m.TransactionsTotal.WithLabelValues(string(status)).Inc()
	if status.Terminal() {
		m.InflightSubmissions.Dec()
	}
}

// RecordFallbackEstimate records a submission sent with fallback gas
func (m *Metrics) RecordFallbackEstimate() {
	m.FallbackEstimates.Inc()
}

// ObserveGasUsed records gas used by a confirmed transaction
func (m *Metrics) ObserveGasUsed(gasUsed uint64) {
	m.GasUsed.Observe(float64(gasUsed))
}

// ObserveConfirmDuration records submission-to-confirmation latency
func (m *Metrics) ObserveConfirmDuration(d time.Duration) {
	m.ConfirmDuration.Observe(d.Seconds())
}
