package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records state-machine activity.
type PaymentMetrics struct {
	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_transitions_total",
		Help: "Completed payment status transitions.",
	}, []string{"from", "to"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_transition_rejections_total",
		Help: "Transition attempts rejected by the allowed-edge table.",
	}, []string{"from", "to"})
	reg.MustRegister(transitions, rejections)
	return &PaymentMetrics{
		transitions: transitions,
		rejections:  rejections,
	}
}

// IncTransition increments the counter for a completed transition.
func (p *PaymentMetrics) IncTransition(from, to string) {
	if p == nil || p.transitions == nil {
		return
	}
	p.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncRejection increments the counter for a rejected transition.
func (p *PaymentMetrics) IncRejection(from, to string) {
	if p == nil || p.rejections == nil {
		return
	}
	p.rejections.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// ConsumerMetrics records queue consumer processing outcomes.
type ConsumerMetrics struct {
	duration *prometheus.HistogramVec
	acks     *prometheus.CounterVec
	nacks    *prometheus.CounterVec
}

// NewConsumerMetrics registers the consumer metrics on the provided registerer.
func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	if reg == nil {
		return &ConsumerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "consumer_message_duration_seconds",
		Help:    "Duration of queue message handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"consumer"})
	acks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_message_acks_total",
		Help: "Messages acknowledged after a durable effect or deliberate no-op.",
	}, []string{"consumer"})
	nacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_message_nacks_total",
		Help: "Messages negatively acknowledged on unexpected errors.",
	}, []string{"consumer"})
	reg.MustRegister(duration, acks, nacks)
	return &ConsumerMetrics{
		duration: duration,
		acks:     acks,
		nacks:    nacks,
	}
}

// ObserveDuration records the handling duration for the named consumer.
func (c *ConsumerMetrics) ObserveDuration(consumer string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(consumer)).Observe(duration.Seconds())
}

// IncAck increments the ack counter for the named consumer.
func (c *ConsumerMetrics) IncAck(consumer string) {
	if c == nil || c.acks == nil {
		return
	}
	c.acks.WithLabelValues(normalizeLabel(consumer)).Inc()
}

// IncNack increments the nack counter for the named consumer.
func (c *ConsumerMetrics) IncNack(consumer string) {
	if c == nil || c.nacks == nil {
		return
	}
	c.nacks.WithLabelValues(normalizeLabel(consumer)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
