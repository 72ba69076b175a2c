package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smarteducator/aidetector/internal/core/domain"
)

// ProcessorMetrics is the Prometheus view of the batch claim loop.
type ProcessorMetrics struct {
	registry *prometheus.Registry

	batchesTotal     *prometheus.CounterVec
	batchDuration    *prometheus.HistogramVec
	queueLag         prometheus.Histogram
	claimFailures    prometheus.Counter
	documentsTotal   *prometheus.CounterVec
	documentDuration *prometheus.HistogramVec
	documentInFlight prometheus.Gauge
}

func NewProcessorMetrics(service string) *ProcessorMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	batchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "aidetector",
			Subsystem:   "processor",
			Name:        "batches_total",
			Help:        "Total processed batches by terminal status.",
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)
	batchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "aidetector",
			Subsystem:   "processor",
			Name:        "batch_duration_seconds",
			Help:        "Batch processing duration in seconds by terminal status.",
			Buckets:     []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)
	queueLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "aidetector",
			Subsystem:   "processor",
			Name:        "queue_lag_seconds",
			Help:        "Delay between batch creation and claim.",
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: constLabels,
		},
	)
	claimFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   "aidetector",
			Subsystem:   "processor",
			Name:        "claim_failures_total",
			Help:        "Claim attempts that failed at the record store.",
			ConstLabels: constLabels,
		},
	)
	documentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "aidetector",
			Subsystem:   "processor",
			Name:        "documents_total",
			Help:        "Total processed documents by outcome.",
			ConstLabels: constLabels,
		},
		[]string{"outcome"},
	)
	documentDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "aidetector",
			Subsystem:   "processor",
			Name:        "document_duration_seconds",
			Help:        "Document processing duration in seconds by outcome.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"outcome"},
	)
	documentInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "aidetector",
			Subsystem:   "processor",
			Name:        "documents_in_flight",
			Help:        "Number of documents currently being processed.",
			ConstLabels: constLabels,
		},
	)

	registry.MustRegister(batchesTotal, batchDuration, queueLag, claimFailures, documentsTotal, documentDuration, documentInFlight)

	return &ProcessorMetrics{
		registry:         registry,
		batchesTotal:     batchesTotal,
		batchDuration:    batchDuration,
		queueLag:         queueLag,
		claimFailures:    claimFailures,
		documentsTotal:   documentsTotal,
		documentDuration: documentDuration,
		documentInFlight: documentInFlight,
	}
}

func (m *ProcessorMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ProcessorMetrics) BatchClaimed(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.Observe(lag.Seconds())
}

func (m *ProcessorMetrics) BatchFinished(status domain.BatchStatus, duration time.Duration) {
	m.batchesTotal.WithLabelValues(string(status)).Inc()
	m.batchDuration.WithLabelValues(string(status)).Observe(duration.Seconds())
}

func (m *ProcessorMetrics) ClaimFailed() {
	m.claimFailures.Inc()
}

func (m *ProcessorMetrics) DocumentStarted() {
	m.documentInFlight.Inc()
}

func (m *ProcessorMetrics) DocumentFinished(duration time.Duration, succeeded bool) {
	m.documentInFlight.Dec()

	outcome := "success"
	if !succeeded {
		outcome = "error"
	}
	m.documentsTotal.WithLabelValues(outcome).Inc()
	m.documentDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}
