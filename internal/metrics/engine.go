package metrics

import "github.com/prometheus/client_golang/prometheus"

// Split pool metrics.
var (
	SplitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "logtmpl",
			Name:      "pool_splits_total",
			Help:      "Split attempts by outcome",
		},
		[]string{"result"}, // "split" / "unsplittable"
	)

	ClustersEmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "logtmpl",
			Name:      "pool_clusters_emitted_total",
			Help:      "Clusters moved to the output set",
		},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "logtmpl",
			Name:      "pool_queue_depth",
			Help:      "Clusters waiting to be split",
		},
	)

	MergesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "logtmpl",
			Name:      "batch_merges_total",
			Help:      "Templates absorbed by the post-split merge pass",
		},
	)
)

// Streaming engine metrics.
var (
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "logtmpl",
			Name:      "messages_total",
			Help:      "Processed records by engine action",
		},
		[]string{"action"}, // matched / joined / created / skipped
	)

	TemplatesLive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "logtmpl",
			Name:      "templates",
			Help:      "Templates currently held by the engine",
		},
	)

	ProcessDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "logtmpl",
			Name:      "process_duration_seconds",
			Help:      "Time spent deciding and persisting one record",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	StoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "logtmpl",
			Name:      "store_errors_total",
			Help:      "Failed store writes by operation",
		},
		[]string{"op"}, // insert / update / append
	)

	ConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "logtmpl",
			Name:      "tcp_connections_active",
			Help:      "Open TCP ingest connections",
		},
	)
)

var engineMetricsRegistered bool

// RegisterEngineMetrics registers pool and engine metrics. Must be called once from main.
func RegisterEngineMetrics() {
	if engineMetricsRegistered {
		return
	}
	prometheus.MustRegister(SplitsTotal)
	prometheus.MustRegister(ClustersEmittedTotal)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(MergesTotal)
	prometheus.MustRegister(MessagesTotal)
	prometheus.MustRegister(TemplatesLive)
	prometheus.MustRegister(ProcessDuration)
	prometheus.MustRegister(StoreErrorsTotal)
	prometheus.MustRegister(ConnectionsActive)
	engineMetricsRegistered = true
}
