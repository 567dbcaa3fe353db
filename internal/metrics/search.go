package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "khoji",
			Name:      "searches_total",
			Help:      "Total number of search requests",
		},
		[]string{"kind", "status"}, // kind: "simple" / "advanced"
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "khoji",
			Name:      "search_duration_seconds",
			Help:      "Search execution duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"kind"},
	)

	SearchFallbackScansTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "khoji",
			Name:      "search_fallback_scans_total",
			Help:      "Searches served by the in-memory scan after an index failure",
		},
	)

	QueryLogFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "khoji",
			Name:      "query_log_failures_total",
			Help:      "Query log writes that failed (logging is best-effort)",
		},
	)

	SuggestionIncrementsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "khoji",
			Name:      "suggestion_increments_total",
			Help:      "Suggestion frequency increments recorded from searches",
		},
	)

	ReindexedDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "khoji",
			Name:      "reindexed_documents_total",
			Help:      "Documents processed by the reindex pipeline",
		},
		[]string{"result"}, // "success" / "failure"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchFallbackScansTotal)
	prometheus.MustRegister(QueryLogFailuresTotal)
	prometheus.MustRegister(SuggestionIncrementsTotal)
	prometheus.MustRegister(ReindexedDocumentsTotal)
	searchMetricsRegistered = true
}
