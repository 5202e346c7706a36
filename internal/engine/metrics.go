package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/arbiter/internal/ir"
)

// Metrics holds the Prometheus collectors of one engine.
//
// Metrics:
//   - arbiter_decisions_total{tier} - decisions appended per tier
//   - arbiter_core_memories_total - decisions retained as core memories
//   - arbiter_retention_threshold - current retention threshold
//   - arbiter_threshold_adjustments_total{reason} - threshold history entries
//   - arbiter_outcomes_total{result} - outcomes recorded ("confirmed" or "disconfirmed")
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	DecisionsTotal     *prometheus.CounterVec
	CoreMemoriesTotal  prometheus.Counter
	RetentionThreshold prometheus.Gauge
	AdjustmentsTotal   *prometheus.CounterVec
	OutcomesTotal      *prometheus.CounterVec
}

// NewMetrics registers the engine collectors on reg.
// Returns nil when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	f := promauto.With(reg)
	return &Metrics{
		DecisionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbiter_decisions_total",
				Help: "Total number of decisions appended to the log",
			},
			[]string{"tier"},
		),
		CoreMemoriesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "arbiter_core_memories_total",
				Help: "Total number of decisions retained as core memories",
			},
		),
		RetentionThreshold: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "arbiter_retention_threshold",
				Help: "Current core memory retention threshold",
			},
		),
		AdjustmentsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbiter_threshold_adjustments_total",
				Help: "Total number of retention threshold adjustments",
			},
			[]string{"reason"},
		),
		OutcomesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbiter_outcomes_total",
				Help: "Total number of decision outcomes recorded",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) recordDecision(d ir.DecisionRecord) {
	if m == nil {
		return
	}
	m.DecisionsTotal.WithLabelValues(string(d.Tier)).Inc()
	if d.Retained {
		m.CoreMemoriesTotal.Inc()
	}
}

func (m *Metrics) recordOutcome(correct bool) {
	if m == nil {
		return
	}
	result := "disconfirmed"
	if correct {
		result = "confirmed"
	}
	m.OutcomesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) recordAdjustment(adj *ir.Adjustment) {
	if m == nil || adj == nil {
		return
	}
	m.AdjustmentsTotal.WithLabelValues(string(adj.Reason)).Inc()
}

func (m *Metrics) setThreshold(v float64) {
	if m == nil {
		return
	}
	m.RetentionThreshold.Set(v)
}
