package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	FetchPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "effortwatch_fetch_pages_total",
		Help: "Total number of issue source pages fetched.",
	}, []string{"mode"})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "effortwatch_fetch_seconds",
		Help:    "Time spent fetching one month window from the issue source.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	IssuesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "effortwatch_issues_fetched_total",
		Help: "Total number of issues returned by the issue source.",
	}, []string{"mode"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "effortwatch_analysis_seconds",
		Help:    "Time spent analyzing one month window in memory.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	MonthsAnalyzedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "effortwatch_months_analyzed_total",
		Help: "Total number of month windows analyzed successfully.",
	})

	MonthsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "effortwatch_months_failed_total",
		Help: "Total number of month windows skipped after a fetch or analysis failure.",
	})

	TransitionsDetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "effortwatch_transitions_detected_total",
		Help: "Total number of qualifying field transitions detected.",
	}, []string{"mode", "direction"})

	DatasetReloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "effortwatch_dataset_reloads_total",
		Help: "Total number of persisted dataset reloads triggered by file changes.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "effortwatch_watcher_events_total",
		Help: "Total number of file system events received by the dataset watcher.",
	})
)
