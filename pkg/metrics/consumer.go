package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConsumerMetrics records how domain event messages were handled.
type ConsumerMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

// NewConsumerMetrics registers the consumer metrics on the provided registerer.
func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	if reg == nil {
		return &ConsumerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "domain_event_duration_seconds",
		Help:    "Time spent handling one domain event message.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "domain_events_total",
		Help: "Domain event messages by outcome (processed, duplicate, skipped, malformed, rejected, retry).",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(duration, outcomes)
	return &ConsumerMetrics{duration: duration, outcomes: outcomes}
}

// ObserveDuration records handling time for the event type.
func (c *ConsumerMetrics) ObserveDuration(eventType string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(eventType)).Observe(duration.Seconds())
}

// IncOutcome counts a handled message.
func (c *ConsumerMetrics) IncOutcome(eventType, outcome string) {
	if c == nil || c.outcomes == nil {
		return
	}
	c.outcomes.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
