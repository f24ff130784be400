// Package metrics holds the Prometheus instrumentation of the menu engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Dispatch outcome labels.
const (
	OutcomeContinue  = "continue"
	OutcomeRedisplay = "redisplay"
	OutcomeClosed    = "closed"
	OutcomeError     = "error"
)

// Metrics bundles the engine collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	Dispatches     *prometheus.CounterVec
	NodeErrors     prometheus.Counter
	ActiveSessions prometheus.Gauge
}

// New creates the collectors and registers them with reg. Registering twice
// against the same registry (one engine per session sharing a registry)
// reuses the collectors already present.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{}

	dispatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "espalier_dispatches_total",
		Help: "Input dispatches processed, by outcome.",
	}, []string{"outcome"})
	if err := reg.Register(dispatches); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			dispatches = are.ExistingCollector.(*prometheus.CounterVec)
		}
	}
	m.Dispatches = dispatches

	nodeErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "espalier_node_errors_total",
		Help: "Errors raised by application node/callback functions.",
	})
	if err := reg.Register(nodeErrors); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			nodeErrors = are.ExistingCollector.(prometheus.Counter)
		}
	}
	m.NodeErrors = nodeErrors

	active := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "espalier_active_sessions",
		Help: "Menu sessions currently open.",
	})
	if err := reg.Register(active); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			active = are.ExistingCollector.(prometheus.Gauge)
		}
	}
	m.ActiveSessions = active

	return m
}

// ObserveDispatch records one dispatch outcome.
func (m *Metrics) ObserveDispatch(outcome string) {
	if m == nil {
		return
	}
	m.Dispatches.WithLabelValues(outcome).Inc()
}

// ObserveNodeError records one failed node/callback invocation.
func (m *Metrics) ObserveNodeError() {
	if m == nil {
		return
	}
	m.NodeErrors.Inc()
}

// SessionOpened and SessionClosed track the active-session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}
