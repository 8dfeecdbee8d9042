package metrics

import "github.com/prometheus/client_golang/prometheus"

// BrokerMetrics holds Prometheus metrics for the WebSocket broker.
type BrokerMetrics struct {
	ActiveSessions    prometheus.Gauge
	MessagesDelivered prometheus.Counter
	DeliveryFailures  prometheus.Counter
	SweepRemovals     prometheus.Counter
}

// NewBrokerMetrics creates and registers broker metrics on the given registry.
func NewBrokerMetrics(reg prometheus.Registerer) *BrokerMetrics {
	m := &BrokerMetrics{
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "active_sessions",
			Help:      "Number of established STOMP sessions.",
		}),
		MessagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "messages_delivered_total",
			Help:      "Total number of MESSAGE frames delivered to subscribers.",
		}),
		DeliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "delivery_failures_total",
			Help:      "Total number of deliveries skipped because a recipient transport was unusable.",
		}),
		SweepRemovals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "sweep_removals_total",
			Help:      "Total number of dead connections reclaimed by the cleanup sweep.",
		}),
	}

	reg.MustRegister(m.ActiveSessions, m.MessagesDelivered, m.DeliveryFailures, m.SweepRemovals)
	return m
}
