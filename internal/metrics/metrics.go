// Package metrics holds the prometheus collectors of the server
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "catering"

// Metrics is the set of collectors the server records into.
// A nil *Metrics records nothing.
type Metrics struct {
	authAttempts    *prometheus.CounterVec
	tableSelections *prometheus.CounterVec
	resolverStates  *prometheus.CounterVec
	ordersPlaced    prometheus.Counter
	openStreams     prometheus.Gauge
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Authentication form submissions by mode and outcome.",
		}, []string{"mode", "outcome"}),
		tableSelections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "table_selections_total",
			Help:      "Route tables selected for incoming requests.",
		}, []string{"table"}),
		resolverStates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "resolver_states_total",
			Help:      "Session states published by streaming resolvers.",
		}, []string{"status"}),
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "placed_total",
			Help:      "Orders placed from checkout.",
		}),
		openStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "open_event_streams",
			Help:      "Websocket auth-event streams currently open.",
		}),
	}

	reg.MustRegister(m.authAttempts, m.tableSelections, m.resolverStates, m.ordersPlaced, m.openStreams)
	return m
}

// AuthAttempt counts one form submission
func (m *Metrics) AuthAttempt(mode, outcome string) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(mode, outcome).Inc()
}

// TableSelected counts one route table selection
func (m *Metrics) TableSelected(table string) {
	if m == nil {
		return
	}
	m.tableSelections.WithLabelValues(table).Inc()
}

// ResolverState counts one state published by a resolver
func (m *Metrics) ResolverState(status string) {
	if m == nil {
		return
	}
	m.resolverStates.WithLabelValues(status).Inc()
}

// OrderPlaced counts one placed order
func (m *Metrics) OrderPlaced() {
	if m == nil {
		return
	}
	m.ordersPlaced.Inc()
}

// StreamOpened tracks an auth-event stream; call the returned func when it closes
func (m *Metrics) StreamOpened() (closed func()) {
	if m == nil {
		return func() {}
	}
	m.openStreams.Inc()
	return m.openStreams.Dec
}
