package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AssignmentMetrics records engine-level counters. All methods are nil-safe
// so wiring metrics stays optional in tests.
type AssignmentMetrics struct {
	offers          prometheus.Counter
	accepts         prometheus.Counter
	reassignments   *prometheus.CounterVec
	exhaustions     prometheus.Counter
	responseLatency prometheus.Histogram
}

// NewAssignmentMetrics registers the engine metrics on the provided registerer.
func NewAssignmentMetrics(reg prometheus.Registerer) *AssignmentMetrics {
	if reg == nil {
		return &AssignmentMetrics{}
	}

	m := &AssignmentMetrics{
		offers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_offers_total",
			Help: "Offers extended to candidates.",
		}),
		accepts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_accepts_total",
			Help: "Offers accepted by candidates.",
		}),
		reassignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_reassignments_total",
			Help: "Reassignments by reason.",
		}, []string{"reason"}),
		exhaustions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_exhaustions_total",
			Help: "Work items that ran out of candidates.",
		}),
		responseLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dispatch_offer_response_seconds",
			Help:    "Time from offer to candidate response.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}

	reg.MustRegister(m.offers, m.accepts, m.reassignments, m.exhaustions, m.responseLatency)
	return m
}

func (m *AssignmentMetrics) IncOffers() {
	if m == nil || m.offers == nil {
		return
	}
	m.offers.Inc()
}

func (m *AssignmentMetrics) IncAccepts() {
	if m == nil || m.accepts == nil {
		return
	}
	m.accepts.Inc()
}

func (m *AssignmentMetrics) IncReassignments(reason string) {
	if m == nil || m.reassignments == nil {
		return
	}
	m.reassignments.WithLabelValues(reason).Inc()
}

func (m *AssignmentMetrics) IncExhaustions() {
	if m == nil || m.exhaustions == nil {
		return
	}
	m.exhaustions.Inc()
}

func (m *AssignmentMetrics) ObserveResponseLatency(d time.Duration) {
	if m == nil || m.responseLatency == nil {
		return
	}
	m.responseLatency.Observe(d.Seconds())
}
