// Package observability provides Prometheus metrics and an instrumented
// HTTP transport for monitoring anfrage API traffic.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts outbound API requests by endpoint, method, and
	// status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anfrage_requests_total",
			Help: "Outbound API requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	// RequestDuration records API call duration in seconds by endpoint.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anfrage_request_duration_seconds",
			Help:    "API call duration",
			Buckets: LLMBuckets,
		},
		[]string{"endpoint"},
	)

	// StreamingConnections tracks the number of open SSE response streams.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "anfrage_streaming_connections_active",
			Help: "Open streaming responses",
		},
	)

	// TokensTotal counts tokens reported in response usage by direction
	// (input/output).
	TokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anfrage_tokens_total",
			Help: "Token count",
		},
		[]string{"model", "direction"},
	)

	// RecoveryAttemptsTotal counts retries performed by the recovery
	// orchestrator, by error class.
	RecoveryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anfrage_recovery_attempts_total",
			Help: "Recovery retries",
		},
		[]string{"class"},
	)

	// RecoveriesTotal counts finished recovery flows by outcome
	// (recovered/failed).
	RecoveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anfrage_recoveries_total",
			Help: "Finished recovery flows",
		},
		[]string{"outcome"},
	)

	// RetryWaitSeconds records how long the orchestrator waited between
	// attempts.
	RetryWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "anfrage_retry_wait_seconds",
			Help:    "Inter-retry wait time",
			Buckets: []float64{1, 3, 5, 10, 30, 45, 60, 120},
		},
	)

	// ToolExecutionsTotal counts tool executions by name and outcome.
	ToolExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anfrage_tool_executions_total",
			Help: "Tool executions",
		},
		[]string{"tool_name", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		TokensTotal,
		RecoveryAttemptsTotal,
		RecoveriesTotal,
		RetryWaitSeconds,
		ToolExecutionsTotal,
	)
}
