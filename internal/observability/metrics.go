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
	// Simulation metrics
	PathsSimulated      prometheus.Counter
	AggregatesComputed  prometheus.Counter
	SweepRowsComputed   prometheus.Counter
	SimulationDuration  *prometheus.HistogramVec
	SimulationRunsTotal *prometheus.CounterVec

	// Live data metrics
	ChainCallLatency  *prometheus.HistogramVec
	TradeStreamEvents prometheus.Counter
	TradeStreamErrors prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "cex_dex_arbitrage"
	}

	return &Metrics{
		PathsSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "paths_simulated_total",
			Help:      "Total number of price paths simulated to completion",
		}),
		AggregatesComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "aggregates_computed_total",
			Help:      "Total number of cross-path aggregates computed",
		}),
		SweepRowsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "sweep_rows_computed_total",
			Help:      "Total number of parameter sweep rows computed",
		}),
		SimulationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "duration_seconds",
			Help:      "Simulation batch duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"kind"}),
		SimulationRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_total",
			Help:      "Total number of simulation runs by status",
		}, []string{"kind", "status"}),

		ChainCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "livedata",
			Name:      "chain_call_latency_seconds",
			Help:      "Ethereum RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		TradeStreamEvents: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "livedata",
			Name:      "trade_stream_events_total",
			Help:      "Total number of trade stream messages consumed",
		}),
		TradeStreamErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "livedata",
			Name:      "trade_stream_errors_total",
			Help:      "Total number of trade stream decode or transport errors",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPathSimulated increments the simulated paths counter.
func RecordPathSimulated() {
	DefaultMetrics.PathsSimulated.Inc()
}

// RecordAggregateComputed increments the aggregates computed counter.
func RecordAggregateComputed() {
	DefaultMetrics.AggregatesComputed.Inc()
}

// RecordSweepRow increments the sweep rows counter.
func RecordSweepRow() {
	DefaultMetrics.SweepRowsComputed.Inc()
}

// RecordSimulationRun records an aggregator or sweep run with its duration.
func RecordSimulationRun(kind, status string, durationSeconds float64) {
	DefaultMetrics.SimulationRunsTotal.WithLabelValues(kind, status).Inc()
	DefaultMetrics.SimulationDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordChainCallLatency records an Ethereum RPC call latency.
func RecordChainCallLatency(method string, seconds float64) {
	DefaultMetrics.ChainCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordTradeStreamEvent increments the trade stream message counter.
func RecordTradeStreamEvent() {
	DefaultMetrics.TradeStreamEvents.Inc()
}

// RecordTradeStreamError increments the trade stream error counter.
func RecordTradeStreamError() {
	DefaultMetrics.TradeStreamErrors.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
