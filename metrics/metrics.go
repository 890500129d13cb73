// Package metrics defines the Prometheus collectors for requests and
// connections.
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector.
type Metrics struct {
	Requests         *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	InFlight         prometheus.Gauge
	Connections      prometheus.Gauge
	ConnectionEvents *prometheus.CounterVec
	Messages         *prometheus.CounterVec
	Actions          *prometheus.CounterVec
}

// New makes the collectors and registers them with reg (if not nil).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shoots_requests_total",
				Help: "Requests by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shoots_request_duration_seconds",
				Help:    "Request durations including interceptors",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "shoots_requests_in_flight",
				Help: "Requests whose loading flag is set",
			},
		),
		Connections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "shoots_connections",
				Help: "Registered connections",
			},
		),
		ConnectionEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shoots_connection_events_total",
				Help: "Connection lifecycle events",
			},
			[]string{"event"},
		),
		Messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shoots_connection_messages_total",
				Help: "Connection messages by direction",
			},
			[]string{"direction"},
		),
		Actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shoots_actions_total",
				Help: "Executed actions by kind",
			},
			[]string{"kind"},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.Requests,
			m.RequestDuration,
			m.InFlight,
			m.Connections,
			m.ConnectionEvents,
			m.Messages,
			m.Actions,
		)
	}
	return m
}

// ObserveRequest records a finished request.
func (m *Metrics) ObserveRequest(method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, outcome).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// Loading tracks the in-flight gauge.
func (m *Metrics) Loading(loading bool) {
	if m == nil {
		return
	}
	if loading {
		m.InFlight.Inc()
	} else {
		m.InFlight.Dec()
	}
}

// ConnectionEvent counts a lifecycle event and maintains the
// connection gauge.
func (m *Metrics) ConnectionEvent(event string) {
	if m == nil {
		return
	}
	m.ConnectionEvents.WithLabelValues(event).Inc()
	switch event {
	case "open":
		m.Connections.Inc()
	case "close":
		m.Connections.Dec()
	}
}

// Message counts a message in the given direction ("in" or "out").
func (m *Metrics) Message(direction string) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(direction).Inc()
}

// Action counts an executed action.
func (m *Metrics) Action(kind string) {
	if m == nil {
		return
	}
	m.Actions.WithLabelValues(kind).Inc()
}
