package hasher

import (
	"github.com/prometheus/client_golang/prometheus"

	appmetrics "github.com/docuchain/notary/metrics"
)

// Metrics holds upload-processing metrics
type Metrics struct {
	registry *appmetrics.ComponentRegistry

	FilesProcessed *prometheus.CounterVec
	BytesHashed    prometheus.Counter
	HashDuration   prometheus.Histogram
}

// NewMetrics creates hashing metrics
func NewMetrics() *Metrics {
	reg := appmetrics.NewComponentRegistry("notary", "hasher")

	return &Metrics{
		registry: reg,

		FilesProcessed: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "files_processed_total",
			Help: "Processed upload files by final status",
		}, []string{"status"}),

		BytesHashed: reg.NewCounter(prometheus.CounterOpts{
			Name: "bytes_hashed_total",
			Help: "Total bytes hashed across completed files",
		}),

		HashDuration: reg.NewHistogram(prometheus.HistogramOpts{
			Name:    "hash_duration_seconds",
			Help:    "Per-file processing time",
			Buckets: appmetrics.DurationBuckets,
		}),
	}
}

// Record records the outcome of one processed file
func (m *Metrics) Record(file ProcessedFile) {
	m.FilesProcessed.WithLabelValues(string(file.Status)).Inc()
	if file.Status == FileStatusCompleted {
		m.BytesHashed.Add(float64(file.Size))
		m.HashDuration.Observe(file.ProcessingTime.Seconds())
	}
}
