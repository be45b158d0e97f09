package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics tracks the emit path and the realtime fan-out.
type NotificationMetrics struct {
	emitted     *prometheus.CounterVec
	suppressed  *prometheus.CounterVec
	failed      *prometheus.CounterVec
	subscribers prometheus.Gauge
	deliveries  *prometheus.CounterVec
}

// NewNotificationMetrics registers the notification metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	if reg == nil {
		return &NotificationMetrics{}
	}
	emitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_emitted_total",
		Help: "Notifications persisted by the emitter.",
	}, []string{"category"})
	suppressed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_suppressed_total",
		Help: "Notifications skipped because the owner disabled the category.",
	}, []string{"category"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Notifications that could not be persisted.",
	}, []string{"category"})
	subscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_subscribers",
		Help: "Live realtime subscriptions on this instance.",
	})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_deliveries_total",
		Help: "Realtime pushes handed to subscribers.",
	}, []string{"source"})
	reg.MustRegister(emitted, suppressed, failed, subscribers, deliveries)
	return &NotificationMetrics{
		emitted:     emitted,
		suppressed:  suppressed,
		failed:      failed,
		subscribers: subscribers,
		deliveries:  deliveries,
	}
}

// IncEmitted counts a persisted notification.
func (m *NotificationMetrics) IncEmitted(category string) {
	if m == nil || m.emitted == nil {
		return
	}
	m.emitted.WithLabelValues(normalizeLabel(category)).Inc()
}

// IncSuppressed counts a preference-suppressed notification.
func (m *NotificationMetrics) IncSuppressed(category string) {
	if m == nil || m.suppressed == nil {
		return
	}
	m.suppressed.WithLabelValues(normalizeLabel(category)).Inc()
}

// IncFailed counts a failed insert.
func (m *NotificationMetrics) IncFailed(category string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(category)).Inc()
}

// SubscriberAdded bumps the live subscription gauge.
func (m *NotificationMetrics) SubscriberAdded() {
	if m == nil || m.subscribers == nil {
		return
	}
	m.subscribers.Inc()
}

// SubscriberRemoved lowers the live subscription gauge.
func (m *NotificationMetrics) SubscriberRemoved() {
	if m == nil || m.subscribers == nil {
		return
	}
	m.subscribers.Dec()
}

// IncDelivered counts pushes; source is "local" or "redis".
func (m *NotificationMetrics) IncDelivered(source string, n int) {
	if m == nil || m.deliveries == nil || n <= 0 {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(source)).Add(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
