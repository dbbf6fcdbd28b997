// Package metrics provides Prometheus collectors for the hardware context
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Context builder metrics
	ContextBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "athas_context_builds_total",
			Help: "Total number of hardware context builds",
		},
		[]string{"result"},
	)

	ClassifiedFiles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "athas_classified_files",
			Help: "Files per category in the most recent context build",
		},
		[]string{"category"},
	)

	// Document pipeline metrics
	DocumentsUploaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "athas_documents_uploaded_total",
			Help: "Total number of uploaded hardware documents",
		},
		[]string{"type"},
	)

	ExtractionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "athas_extraction_failures_total",
			Help: "Extraction service calls that failed and degraded to empty values",
		},
		[]string{"operation"},
	)

	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "athas_extraction_duration_seconds",
			Help:    "Latency of extraction service calls",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 180},
		},
		[]string{"operation"},
	)

	Processing = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "athas_document_processing",
			Help: "1 while a document is being extracted",
		},
	)

	// Workspace metrics
	TreeRefreshes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "athas_tree_refreshes_total",
			Help: "File tree snapshot invalidations triggered by the watcher",
		},
	)
)

var (
	// LLM metrics
	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "athas_llm_requests_total",
			Help: "LLM calls by kind and outcome",
		},
		[]string{"kind", "result"},
	)

	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "athas_llm_request_duration_seconds",
			Help:    "Latency of LLM calls",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"kind"},
	)
)

var (
	// Front-end metrics
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "athas_api_requests_total",
			Help: "HTTP API requests by route and status code",
		},
		[]string{"route", "code"},
	)

	RPCRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "athas_rpc_requests_total",
			Help: "JSON-RPC requests by method and outcome",
		},
		[]string{"method", "result"},
	)
)
