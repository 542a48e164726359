// Package metrics exposes the hub's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agenthub_requests_total",
			Help: "Total routed requests by type and outcome kind (empty kind = success)",
		},
		[]string{"type", "kind"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agenthub_request_duration_seconds",
			Help:    "Routed request duration by type",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	mcpCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agenthub_mcp_calls_total",
			Help: "Total MCP tools/call invocations by external tool name and outcome",
		},
		[]string{"tool", "outcome"},
	)
)

// RecordRequest increments the request counter and observes its duration.
// kind is empty for successful requests.
func RecordRequest(requestType, kind string, seconds float64) {
	requestsTotal.WithLabelValues(requestType, kind).Inc()
	requestDuration.WithLabelValues(requestType).Observe(seconds)
}

// RecordMCPCall increments the MCP call counter.
// outcome is "ok" or "error".
func RecordMCPCall(tool, outcome string) {
	mcpCallsTotal.WithLabelValues(tool, outcome).Inc()
}
