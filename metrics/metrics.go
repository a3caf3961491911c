package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the booking counters. A nil *Metrics is valid and records
// nothing, which keeps tests free of registry setup.
type Metrics struct {
	registry      *prometheus.Registry
	transitions   *prometheus.CounterVec
	gatewayCalls  *prometheus.CounterVec
	notifications *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "career_mentor",
			Name:      "session_transitions_total",
			Help:      "Session status transitions by target status and outcome.",
		}, []string{"to", "outcome"}),
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "career_mentor",
			Name:      "payment_gateway_calls_total",
			Help:      "Payment gateway requests by operation and outcome.",
		}, []string{"op", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "career_mentor",
			Name:      "notifications_total",
			Help:      "Notification deliveries by outcome.",
		}, []string{"outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "career_mentor",
			Name:      "mentor_cache_lookups_total",
			Help:      "Mentor directory cache lookups by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		m.transitions,
		m.gatewayCalls,
		m.notifications,
		m.cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) Transition(to string, err error) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to, outcome(err)).Inc()
}

func (m *Metrics) GatewayCall(op string, err error) {
	if m == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(op, outcome(err)).Inc()
}

func (m *Metrics) Notification(delivered bool) {
	if m == nil {
		return
	}
	result := "delivered"
	if !delivered {
		result = "failed"
	}
	m.notifications.WithLabelValues(result).Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
