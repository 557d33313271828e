// Package telemetry provides application-level observability for Cloud
// Companion.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// served by the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<CC_TELEMETRY_METRICS_PORT>/metrics
//
// Default port: 9090. The endpoint is not part of the Gin router, so it is
// never exposed behind the API key middleware.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route
//     template, not raw URL, to keep label cardinality bounded)
//   - Chat turn counters by outcome
//   - Model gateway latency by operation (complete, embed)
//   - Graph and vector store query counters
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics. The path label holds the Gin route template (e.g.
// /api/v1/chat/message), never the raw URL.
//
// Example PromQL:
//   - Request rate:  rate(http_requests_total[5m])
//   - Error rate:    sum(rate(http_requests_total{status=~"5.."}[5m]))
//   - p99 latency:   histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Chat engine metrics.
//
// ChatTurnsTotal counts completed chat turns by outcome: "ok", "validation",
// "not_found", "store_error", "generation_error".
//
// Example PromQL:
//   - Turn failure rate:  sum(rate(chat_turns_total{outcome!="ok"}[5m])) / sum(rate(chat_turns_total[5m]))
var ChatTurnsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chat_turns_total",
		Help: "Total number of chat turns processed, by outcome.",
	},
	[]string{"outcome"},
)

// Model gateway metrics. The operation label is "complete" or "embed".
//
// Example PromQL:
//   - p95 completion latency:  histogram_quantile(0.95, rate(model_request_duration_seconds_bucket{operation="complete"}[15m]))
var ModelRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "model_request_duration_seconds",
		Help:    "Duration of model backend calls, by operation.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	},
	[]string{"operation"},
)

// Store gateway metrics.
//
// GraphQueriesTotal counts Cypher executions by access mode ("read",
// "write"). VectorSearchesTotal counts semantic searches by outcome ("ok",
// "error"); a rising error rate with healthy chat turns means retrieval is
// degrading silently and replies are going out ungrounded.
var (
	GraphQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_queries_total",
			Help: "Total number of graph store queries executed, by access mode.",
		},
		[]string{"mode"},
	)

	VectorSearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vector_searches_total",
			Help: "Total number of vector store searches, by outcome.",
		},
		[]string{"outcome"},
	)
)

// APIKeysExpiringSoon is set by the key-expiry sweeper to the number of
// active keys inside the warning window. Alert when it stays non-zero.
var APIKeysExpiringSoon = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "api_keys_expiring_soon",
		Help: "Number of active API keys that expire within the warning window.",
	},
)
