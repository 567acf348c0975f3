package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BackendCallsTotal tracks terminal backend calls per operation
	BackendCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docketd_backend_calls_total",
			Help: "Total number of backend data calls",
		},
		[]string{"operation"},
	)

	// BackendErrorsTotal tracks backend call failures by error category
	BackendErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docketd_backend_errors_total",
			Help: "Total number of backend call failures",
		},
		[]string{"operation", "category"},
	)

	// BackendLatency tracks backend call latency
	BackendLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docketd_backend_latency_seconds",
			Help:    "Backend call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// RetryAttemptsTotal tracks retries performed by the retry policy
	RetryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docketd_retry_attempts_total",
			Help: "Total number of retry attempts by error category",
		},
		[]string{"category"},
	)

	// SessionRefreshTotal tracks session refresh outcomes
	SessionRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docketd_session_refresh_total",
			Help: "Total number of session refresh attempts",
		},
		[]string{"outcome"},
	)

	// SignOutsTotal tracks forced sign-outs
	SignOutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docketd_sign_outs_total",
			Help: "Total number of forced sign-outs",
		},
	)

	// Online reports current connectivity (1 = online, 0 = offline)
	Online = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docketd_online",
			Help: "Whether the backend is currently reachable",
		},
	)

	// QueueDepth tracks the summarization job queue depth
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docketd_summary_queue_depth",
			Help: "Number of pending summarization jobs",
		},
	)

	// CasesSynced tracks mirrored case rows
	CasesSynced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docketd_cases_synced_total",
			Help: "Total number of case rows synced into the mirror",
		},
	)

	// DocumentsSynced tracks mirrored document rows
	DocumentsSynced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docketd_documents_synced_total",
			Help: "Total number of document rows synced into the mirror",
		},
	)

	// SummariesTotal tracks summarization job outcomes
	SummariesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docketd_summaries_total",
			Help: "Total number of summarization jobs by outcome",
		},
		[]string{"outcome"},
	)
)
