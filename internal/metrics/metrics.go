package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Webhook metrics
	WebhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docingest_webhooks_total",
			Help: "Total number of inbound webhook requests",
		},
		[]string{"endpoint", "status"},
	)

	// Document transfer metrics
	DocumentsTransferred = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docingest_documents_transferred_total",
			Help: "Total number of documents that completed all transfer steps",
		},
	)

	TransferFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docingest_transfer_failures_total",
			Help: "Total number of attachment transfer failures by stage",
		},
		[]string{"stage"},
	)

	TransferDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docingest_transfer_duration_seconds",
			Help:    "Duration of a single attachment transfer in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Dispatcher metrics
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docingest_dispatch_queue_depth",
			Help: "Current depth of the background job queue",
		},
	)

	QueueCapacity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docingest_dispatch_queue_capacity",
			Help: "Maximum capacity of the background job queue",
		},
	)

	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docingest_dispatch_jobs_total",
			Help: "Total number of background jobs by kind and result",
		},
		[]string{"kind", "result"},
	)

	// Analysis metrics
	AnalysisOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docingest_analysis_outcomes_total",
			Help: "Total number of analysis invocations by outcome status",
		},
		[]string{"status"},
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docingest_analysis_duration_seconds",
			Help:    "Duration of analysis invocations in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 900, 1800},
		},
	)

	// Card field update metrics
	FieldUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docingest_field_updates_total",
			Help: "Total number of card field update attempts",
		},
		[]string{"result"},
	)

	// DLQ metrics
	DLQWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docingest_dlq_writes_total",
			Help: "Total number of entries written to the dead letter queue",
		},
		[]string{"reason"},
	)
)
