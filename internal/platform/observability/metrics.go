// Package observability exposes Prometheus metrics and the health/ready
// HTTP endpoints.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ItemsCollected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newswatch_items_collected_total",
		Help: "The total number of items collected from sources",
	}, []string{"source_type"})

	ItemsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newswatch_items_dropped_total",
		Help: "The total number of items dropped before delivery by reason",
	}, []string{"reason"})

	ClassifyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newswatch_classify_requests_total",
		Help: "The total number of classification requests",
	}, []string{"status"})

	SimilarityRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newswatch_similarity_requests_total",
		Help: "The total number of similarity judgment requests",
	}, []string{"status"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "newswatch_llm_request_duration_seconds",
		Help:    "Duration of LLM requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	MessagesDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newswatch_messages_delivered_total",
		Help: "The total number of Telegram messages sent",
	}, []string{"status"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "newswatch_run_duration_seconds",
		Help:    "Duration in seconds of one pipeline run",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
	})

	StoreDegraded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "newswatch_store_degraded",
		Help: "Whether the backing store has degraded to in-memory (0=no, 1=yes)",
	})
)

// Metric label values.
const (
	StatusOK    = "ok"
	StatusError = "error"

	DropReasonFingerprint = "fingerprint"
	DropReasonNearDup     = "near_duplicate"
)
