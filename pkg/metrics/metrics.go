package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Certification workflow metrics
	TransitionsTotal  *prometheus.CounterVec
	TransitionsFailed *prometheus.CounterVec

	// Notification dispatch metrics
	NotificationsSent       *prometheus.CounterVec
	NotificationsFailed     *prometheus.CounterVec
	NotificationsSuppressed prometheus.Counter
	DispatchLatency         prometheus.Histogram
	OutboxQueueSize         prometheus.Gauge

	// Cross-country request metrics
	AuditRequestsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		TransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "process_transitions_total",
			Help:      "Total number of certification process transitions",
		}, []string{"action"}),
		TransitionsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "process_transitions_failed_total",
			Help:      "Total number of rejected certification process transitions",
		}, []string{"action", "reason"}),
		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_sent_total",
			Help:      "Total number of delivered notification emails",
		}, []string{"audience"}),
		NotificationsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_failed_total",
			Help:      "Total number of failed notification deliveries",
		}, []string{"audience"}),
		NotificationsSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_suppressed_total",
			Help:      "Notifications suppressed by the cooldown ledger",
		}),
		DispatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notification_dispatch_duration_seconds",
			Help:      "Time spent resolving and delivering one notification batch",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		OutboxQueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notification_outbox_size",
			Help:      "Current number of pending rows in the notification outbox",
		}),
		AuditRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cross_country_requests_total",
			Help:      "Total number of cross-country audit request operations",
		}, []string{"action"}),
	}
}
