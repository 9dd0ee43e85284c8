// Package metrics exposes Prometheus counters for the gate. All
// counters live on a caller-supplied registerer so tests can isolate
// their own registries.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gate's counters.
type Metrics struct {
	Requests  *prometheus.CounterVec
	Decisions *prometheus.CounterVec
	ToolRuns  *prometheus.CounterVec
}

// New registers the gate's counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toolgate",
			Name:      "requests_total",
			Help:      "JSON-RPC requests handled, by method.",
		}, []string{"method"}),
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toolgate",
			Name:      "policy_decisions_total",
			Help:      "Policy decisions rendered, by action.",
		}, []string{"action"}),
		ToolRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toolgate",
			Name:      "tool_runs_total",
			Help:      "Tool executions, by tool name and outcome.",
		}, []string{"tool", "outcome"}),
	}
}

// ObserveRequest counts one handled request.
func (m *Metrics) ObserveRequest(method string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method).Inc()
}

// ObserveDecision counts one policy decision.
func (m *Metrics) ObserveDecision(action string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(action).Inc()
}

// ObserveToolRun counts one tool execution.
func (m *Metrics) ObserveToolRun(tool string, success bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.ToolRuns.WithLabelValues(tool, outcome).Inc()
}
