package telemetry

import (
	"os"
	"path/filepath"

	"github.com/perrrseus/OpenSaga/internal/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the run counters on a private registry, exported to a
// node_exporter textfile at the end of a run.
type Metrics struct {
	registry *prometheus.Registry

	BucketsProcessed   *prometheus.CounterVec
	MalformedRecords   *prometheus.CounterVec
	CommunityFallbacks *prometheus.CounterVec
	BucketCacheHits    prometheus.Counter
}

// NewMetrics registers the collabgraph counters
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BucketsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collabgraph",
			Name:      "buckets_processed_total",
			Help:      "Monthly buckets analyzed, by community strategy actually used.",
		}, []string{"strategy"}),
		MalformedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collabgraph",
			Name:      "malformed_records_total",
			Help:      "Input records skipped during ingestion.",
		}, []string{"table", "reason"}),
		CommunityFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collabgraph",
			Name:      "community_fallback_total",
			Help:      "Times the preferred community strategy was bypassed.",
		}, []string{"strategy"}),
		BucketCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "collabgraph",
			Name:      "bucket_cache_hits_total",
			Help:      "Buckets served from the result cache.",
		}),
	}

	m.registry.MustRegister(m.BucketsProcessed, m.MalformedRecords, m.CommunityFallbacks, m.BucketCacheHits)
	return m
}

// Registry exposes the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordBucket counts one processed bucket
func (m *Metrics) RecordBucket(strategy string) {
	m.BucketsProcessed.WithLabelValues(strategy).Inc()
}

// RecordMalformed adds n skipped records for table and reason
func (m *Metrics) RecordMalformed(table, reason string, n int) {
	if n <= 0 {
		return
	}
	m.MalformedRecords.WithLabelValues(table, reason).Add(float64(n))
}

// RecordFallback counts a degraded community detection
func (m *Metrics) RecordFallback(strategy string) {
	m.CommunityFallbacks.WithLabelValues(strategy).Inc()
}

// WriteTextfile writes the registry in the Prometheus text format.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.FileSystemError(err, "create metrics directory")
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.FileSystemErrorf(err, "write metrics textfile %s", path)
	}
	return nil
}
