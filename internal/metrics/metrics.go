// Package metrics exposes Prometheus counters for account operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics groups the collectors recorded by the account service.
type Metrics struct {
	operations   *prometheus.CounterVec
	handleChecks *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devlinks",
			Name:      "account_operations_total",
			Help:      "Account operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		handleChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devlinks",
			Name:      "handle_checks_total",
			Help:      "Handle availability checks by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.operations, m.handleChecks)
	return m
}

// ObserveOperation counts one call of operation. Nil receivers are no-ops.
func (m *Metrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// ObserveHandleCheck counts one handle availability check.
func (m *Metrics) ObserveHandleCheck(taken bool) {
	if m == nil {
		return
	}
	result := "free"
	if taken {
		result = "taken"
	}
	m.handleChecks.WithLabelValues(result).Inc()
}
