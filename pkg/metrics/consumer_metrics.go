package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConsumerMetrics records the outcome of queue deliveries per queue.
type ConsumerMetrics struct {
	duration     *prometheus.HistogramVec
	processed    *prometheus.CounterVec
	retried      *prometheus.CounterVec
	deadLettered *prometheus.CounterVec
}

// NewConsumerMetrics registers the consumer metrics on the provided registerer.
func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	if reg == nil {
		return &ConsumerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "queue_handle_duration_seconds",
		Help:    "Duration of queue message handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"queue"})
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "queue_messages_processed",
		Help: "Messages handled without error.",
	}, []string{"queue"})
	retried := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "queue_messages_retried",
		Help: "Messages republished for another attempt.",
	}, []string{"queue"})
	deadLettered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "queue_messages_dead_lettered",
		Help: "Messages routed to the dead letter queue after exhausting retries.",
	}, []string{"queue"})
	reg.MustRegister(duration, processed, retried, deadLettered)
	return &ConsumerMetrics{
		duration:     duration,
		processed:    processed,
		retried:      retried,
		deadLettered: deadLettered,
	}
}

// ObserveDuration records the handling duration for the named queue.
func (c *ConsumerMetrics) ObserveDuration(queue string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(queue)).Observe(duration.Seconds())
}

// IncProcessed increments the processed counter for the named queue.
func (c *ConsumerMetrics) IncProcessed(queue string) {
	if c == nil || c.processed == nil {
		return
	}
	c.processed.WithLabelValues(normalizeLabel(queue)).Inc()
}

// IncRetried increments the retried counter for the named queue.
func (c *ConsumerMetrics) IncRetried(queue string) {
	if c == nil || c.retried == nil {
		return
	}
	c.retried.WithLabelValues(normalizeLabel(queue)).Inc()
}

// IncDeadLettered increments the dead letter counter for the named queue.
func (c *ConsumerMetrics) IncDeadLettered(queue string) {
	if c == nil || c.deadLettered == nil {
		return
	}
	c.deadLettered.WithLabelValues(normalizeLabel(queue)).Inc()
}

func normalizeLabel(queue string) string {
	if queue == "" {
		return "unknown"
	}
	return queue
}
