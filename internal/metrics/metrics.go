// Package metrics defines the Prometheus collectors exported by the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/moolen/faultlens/internal/dga"
	"github.com/moolen/faultlens/internal/workflow"
)

// Parse results recorded in WorkflowParses.
const (
	ParseOK    = "ok"
	ParseError = "error"
)

// Metrics holds the server's collectors.
type Metrics struct {
	DiagnosesTotal       *prometheus.CounterVec // by primary method
	DiagnosisConfidence  prometheus.Histogram
	WorkflowParsesTotal  *prometheus.CounterVec // by result
	GateEvaluationsTotal *prometheus.CounterVec // by resulting state
	Sessions             prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. Tests pass
// a fresh prometheus.NewRegistry().
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DiagnosesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "faultlens_diagnoses_total",
			Help: "Fused diagnoses by primary method",
		}, []string{"method"}),
		DiagnosisConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "faultlens_diagnosis_confidence",
			Help:    "Confidence of fused diagnoses",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		}),
		WorkflowParsesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "faultlens_workflow_parses_total",
			Help: "Workflow imports by result",
		}, []string{"result"}),
		GateEvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "faultlens_gate_evaluations_total",
			Help: "Logic gate evaluations by resulting state",
		}, []string{"state"}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "faultlens_sessions",
			Help: "Workflow sessions currently held in memory",
		}),
	}

	reg.MustRegister(
		m.DiagnosesTotal,
		m.DiagnosisConfidence,
		m.WorkflowParsesTotal,
		m.GateEvaluationsTotal,
		m.Sessions,
	)
	return m
}

// ObserveDiagnosis records one fused result.
func (m *Metrics) ObserveDiagnosis(r dga.Result) {
	method := string(r.PrimaryMethod)
	if method == "" {
		method = "none"
	}
	m.DiagnosesTotal.WithLabelValues(method).Inc()
	m.DiagnosisConfidence.Observe(r.Confidence)
}

// ObserveParse records a workflow import outcome.
func (m *Metrics) ObserveParse(err error) {
	if err != nil {
		m.WorkflowParsesTotal.WithLabelValues(ParseError).Inc()
		return
	}
	m.WorkflowParsesTotal.WithLabelValues(ParseOK).Inc()
}

// ObserveGates counts the states produced by one evaluation pass.
func (m *Metrics) ObserveGates(gates []*workflow.LogicGate) {
	for _, g := range gates {
		m.GateEvaluationsTotal.WithLabelValues(string(g.State)).Inc()
	}
}
