package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus metrics
type Metrics struct {
	// Stream metrics
	StreamEvents  *prometheus.CounterVec
	BatchDuration *prometheus.HistogramVec

	// Enrichment metrics
	EnrichmentResults  *prometheus.CounterVec
	EnrichmentAttempts *prometheus.CounterVec
	EnrichmentLatency  prometheus.Histogram

	// Dead-letter and redrive metrics
	DeadLetters    *prometheus.CounterVec
	RedriveResults *prometheus.CounterVec
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// InitMetrics registers the pipeline metrics. Safe to call more than once.
func InitMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			// Change events by source, event type and outcome (processed, skipped, unrecoverable, failed)
			StreamEvents: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "nexussync_stream_events_total",
				Help: "Total number of change events handled by outcome",
			}, []string{"source", "event_type", "outcome"}),

			BatchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "nexussync_stream_batch_duration_seconds",
				Help:    "Time to process one change event batch",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			}, []string{"source"}),

			EnrichmentResults: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "nexussync_enrichment_results_total",
				Help: "Enrichment outcomes by record type (enriched, skipped, failed)",
			}, []string{"record_type", "outcome"}),

			EnrichmentAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "nexussync_enrichment_attempts_total",
				Help: "Generation backend invocations by result",
			}, []string{"result"}),

			// Up to 2 minutes: three attempts with backoff
			EnrichmentLatency: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "nexussync_enrichment_duration_seconds",
				Help:    "Enrichment latency in seconds, retries included",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			}),

			DeadLetters: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "nexussync_dead_letters_total",
				Help: "Dead-letter publishes by error type and result",
			}, []string{"error_type", "result"}),

			RedriveResults: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "nexussync_redrive_messages_total",
				Help: "Redriven messages by outcome (succeeded, failed, requeued)",
			}, []string{"outcome"}),
		}
	})
	return globalMetrics
}

// GetMetrics returns the global metrics instance, nil until InitMetrics runs
func GetMetrics() *Metrics {
	return globalMetrics
}

func (m *Metrics) RecordStreamEvent(source, eventType, outcome string) {
	if m != nil {
		m.StreamEvents.WithLabelValues(source, eventType, outcome).Inc()
	}
}

func (m *Metrics) RecordBatchDuration(source string, seconds float64) {
	if m != nil {
		m.BatchDuration.WithLabelValues(source).Observe(seconds)
	}
}

func (m *Metrics) RecordEnrichment(recordType, outcome string) {
	if m != nil {
		m.EnrichmentResults.WithLabelValues(recordType, outcome).Inc()
	}
}

func (m *Metrics) RecordEnrichmentAttempt(result string) {
	if m != nil {
		m.EnrichmentAttempts.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) RecordEnrichmentLatency(seconds float64) {
	if m != nil {
		m.EnrichmentLatency.Observe(seconds)
	}
}

func (m *Metrics) RecordDeadLetter(errorType, result string) {
	if m != nil {
		m.DeadLetters.WithLabelValues(errorType, result).Inc()
	}
}

func (m *Metrics) RecordRedrive(outcome string, n int) {
	if m != nil && n > 0 {
		m.RedriveResults.WithLabelValues(outcome).Add(float64(n))
	}
}
