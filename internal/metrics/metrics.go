// Package metrics defines Prometheus metrics for worktrail.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worktrail_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktrail_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktrail_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktrail_transitions_total",
			Help: "Status transitions by kind and result",
		},
		[]string{"kind", "result"},
	)

	LogAppendFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktrail_log_append_failures_total",
			Help: "Audit or activity appends that failed after the entity update",
		},
		[]string{"log"},
	)

	RealtimeSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worktrail_realtime_subscribers",
			Help: "Active realtime subscriptions",
		},
	)

	RealtimeDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worktrail_realtime_dropped_total",
			Help: "Events dropped because a subscriber buffer was full",
		},
	)

	StatsTruncated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktrail_stats_truncated_total",
			Help: "Aggregations that hit the row cap",
		},
		[]string{"source"},
	)

	AuditQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worktrail_audit_queue_depth",
			Help: "Current async audit queue depth",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		TransitionsTotal, LogAppendFailures,
		RealtimeSubscribers, RealtimeDropped,
		StatsTruncated, AuditQueueDepth,
	)
}
