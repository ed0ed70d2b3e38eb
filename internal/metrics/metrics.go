// Package metrics provides Prometheus metrics for alertd.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "alertd"
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	// HTTPRequestsInFlight tracks concurrent HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	// HTTPRateLimitedTotal counts requests rejected by the rate limiter.
	HTTPRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total requests rejected by the rate limiter",
		},
	)
)

// Evaluation metrics
var (
	MetricsSubmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metrics_submitted_total",
			Help:      "Total metric samples submitted for evaluation",
		},
	)

	RulesEvaluatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rules_evaluated_total",
			Help:      "Total rule evaluations performed",
		},
	)

	// AlertsTriggeredTotal counts created alerts by severity.
	AlertsTriggeredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_triggered_total",
			Help:      "Total alerts created",
		},
		[]string{"severity"},
	)

	// AlertsSuppressedTotal counts breaches swallowed by an already firing alert.
	AlertsSuppressedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_suppressed_total",
			Help:      "Total breaches suppressed because the rule already has a firing alert",
		},
	)

	AlertsResolvedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_resolved_total",
			Help:      "Total alerts resolved",
		},
	)

	AlertsFiring = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alerts_firing",
			Help:      "Number of currently firing alerts",
		},
	)

	HistorySeries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_series",
			Help:      "Number of metrics with retained sample history",
		},
	)

	// SweepRemovedTotal counts entries removed by maintenance sweeps.
	SweepRemovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_removed_total",
			Help:      "Total entries removed by maintenance sweeps",
		},
		[]string{"kind"}, // alerts, samples
	)
)

// Notification metrics
var (
	// NotificationsTotal counts channel deliveries by channel type and result.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "total",
			Help:      "Total notification deliveries",
		},
		[]string{"type", "result"}, // success, failure, skipped
	)

	// NotificationDuration tracks delivery latency per channel type.
	NotificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "duration_seconds",
			Help:      "Notification delivery latency in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"type"},
	)

	// NotificationsInFlight tracks deliveries currently running.
	NotificationsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "in_flight",
			Help:      "Number of notification deliveries in progress",
		},
	)
)

// Journal metrics
var (
	// JournalDroppedTotal counts events dropped because the journal queue was full.
	JournalDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "dropped_total",
			Help:      "Total alert events dropped due to journal backpressure",
		},
	)

	// JournalWrittenTotal counts persisted alert events.
	JournalWrittenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "written_total",
			Help:      "Total alert events written to the journal",
		},
	)
)

// Storage metrics
var (
	// StorageQueryDuration tracks query latency.
	StorageQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "query_duration_seconds",
			Help:      "Storage query latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation", "backend"},
	)

	// StorageErrors counts storage operation errors.
	StorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Total storage operation errors",
		},
		[]string{"operation", "backend"},
	)
)

// Info metric
var (
	// BuildInfo exposes build information.
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "commit", "build_time"},
	)
)

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, commit, buildTime string) {
	BuildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}
