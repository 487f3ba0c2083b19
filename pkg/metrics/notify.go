package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotifyMetrics records dispatcher delivery counters. Nil-safe like
// AssignmentMetrics.
type NotifyMetrics struct {
	sent    *prometheus.CounterVec
	dropped *prometheus.CounterVec
}

// NewNotifyMetrics registers the dispatcher metrics on the provided registerer.
func NewNotifyMetrics(reg prometheus.Registerer) *NotifyMetrics {
	if reg == nil {
		return &NotifyMetrics{}
	}

	m := &NotifyMetrics{
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_notifications_sent_total",
			Help: "Notifications delivered, by kind.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_notifications_dropped_total",
			Help: "Notifications dropped, by cause.",
		}, []string{"cause"}),
	}

	reg.MustRegister(m.sent, m.dropped)
	return m
}

func (m *NotifyMetrics) IncSent(kind string) {
	if m == nil || m.sent == nil {
		return
	}
	m.sent.WithLabelValues(kind).Inc()
}

func (m *NotifyMetrics) IncDropped(cause string) {
	if m == nil || m.dropped == nil {
		return
	}
	m.dropped.WithLabelValues(cause).Inc()
}
