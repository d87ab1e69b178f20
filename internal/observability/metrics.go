// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// RPC metrics
	RPCCallLatency      *prometheus.HistogramVec
	FailoverAttempts    *prometheus.CounterVec
	EndpointsExhausted  prometheus.Counter
	CurrentEndpointHint prometheus.Gauge

	// Action metrics
	ActionsTotal         *prometheus.CounterVec
	ActionDuration       *prometheus.HistogramVec
	ConfirmationTimeouts prometheus.Counter
	ActionsRejectedBusy  prometheus.Counter

	// Read path metrics
	HistoryEntries   prometheus.Histogram
	HistoryDropped   prometheus.Counter
	MintCacheLookups *prometheus.CounterVec

	// Storage metrics
	StoreWriteErrors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_token_desk"
	}

	return &Metrics{
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		FailoverAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "failover",
			Name:      "attempts_total",
			Help:      "Read attempts per endpoint by outcome",
		}, []string{"endpoint", "outcome"}),
		EndpointsExhausted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "failover",
			Name:      "exhausted_total",
			Help:      "Reads that failed on every configured endpoint",
		}),
		CurrentEndpointHint: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "failover",
			Name:      "endpoint_hint",
			Help:      "Index of the last endpoint that served a read",
		}),

		ActionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "action",
			Name:      "executions_total",
			Help:      "Executed token actions by kind and outcome",
		}, []string{"kind", "outcome"}),
		ActionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "action",
			Name:      "duration_seconds",
			Help:      "Token action duration from validation to final state",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"kind"}),
		ConfirmationTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "action",
			Name:      "confirmation_timeouts_total",
			Help:      "Actions whose confirmation wait expired with an indeterminate outcome",
		}),
		ActionsRejectedBusy: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "action",
			Name:      "rejected_busy_total",
			Help:      "Actions rejected because another action was in flight on the same surface",
		}),

		HistoryEntries: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "history_entries",
			Help:      "Number of transaction records returned per history fetch",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		}),
		HistoryDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "history_dropped_total",
			Help:      "Signatures whose details could not be resolved",
		}),
		MintCacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "mint_cache_lookups_total",
			Help:      "Mint info cache lookups by result",
		}, []string{"result"}),

		StoreWriteErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "write_errors_total",
			Help:      "Failed writes to journal and attempt stores",
		}, []string{"store"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordFailoverAttempt records one read attempt against an endpoint.
func RecordFailoverAttempt(endpoint string, ok bool) {
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	DefaultMetrics.FailoverAttempts.WithLabelValues(endpoint, outcome).Inc()
}

// RecordEndpointsExhausted increments the exhaustion counter.
func RecordEndpointsExhausted() {
	DefaultMetrics.EndpointsExhausted.Inc()
}

// UpdateEndpointHint sets the remembered endpoint index.
func UpdateEndpointHint(index int) {
	DefaultMetrics.CurrentEndpointHint.Set(float64(index))
}

// RecordAction records a finished action.
func RecordAction(kind, outcome string, durationSeconds float64) {
	DefaultMetrics.ActionsTotal.WithLabelValues(kind, outcome).Inc()
	DefaultMetrics.ActionDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordConfirmationTimeout increments the confirmation timeout counter.
func RecordConfirmationTimeout() {
	DefaultMetrics.ConfirmationTimeouts.Inc()
}

// RecordActionBusy increments the busy rejection counter.
func RecordActionBusy() {
	DefaultMetrics.ActionsRejectedBusy.Inc()
}

// RecordHistory records a history fetch result.
func RecordHistory(returned, dropped int) {
	DefaultMetrics.HistoryEntries.Observe(float64(returned))
	DefaultMetrics.HistoryDropped.Add(float64(dropped))
}

// RecordMintCache records a mint cache hit or miss.
func RecordMintCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.MintCacheLookups.WithLabelValues(result).Inc()
}

// RecordStoreError records a failed store write.
func RecordStoreError(store string) {
	DefaultMetrics.StoreWriteErrors.WithLabelValues(store).Inc()
}
