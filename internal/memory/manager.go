// Package memory gates which decisions become durable core memories.
//
// The Manager owns one adaptive retention threshold. The bar relaxes one
// step after a run of consecutive confirming outcomes and never moves up on
// its own: a disconfirming outcome only resets the run. Raising the bar is
// an explicit Tighten call. The threshold stays within [floor, ceiling].
package memory

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/arbiter/internal/ir"
)

// Manager owns the retention threshold, its history, the outcome evidence
// and the list of retained core memories.
//
// Thread-safety: all methods are safe for concurrent use. Mutations are
// serialized so the history order equals the call order.
type Manager struct {
	mu        sync.Mutex
	policy    Policy
	threshold float64
	streak    int
	history   []ir.Adjustment
	outcomes  []ir.Outcome
	core      []ir.CoreMemory

	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithNow overrides the wall clock used for history timestamps.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// OutcomeResult reports what RecordOutcome did to the threshold.
type OutcomeResult struct {
	// Adjusted reports whether the threshold value changed.
	Adjusted bool

	// Threshold is the threshold after the outcome was applied.
	Threshold float64

	// Adjustment is the history entry written by this outcome, if any.
	Adjustment *ir.Adjustment

	// Streak is the consecutive-confirmation count after this outcome.
	Streak int
}

// New creates a Manager starting at policy.Initial.
func New(policy Policy, opts ...Option) (*Manager, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		policy:    policy,
		threshold: policy.Initial,
		logger:    zap.NewNop(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Policy returns the manager's policy.
func (m *Manager) Policy() Policy {
	return m.policy
}

// Threshold returns the current retention threshold.
func (m *Manager) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// ShouldRetain reports whether confidence >= the current threshold.
func (m *Manager) ShouldRetain(confidence float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return confidence >= m.threshold
}

// RecordOutcome appends an evidence point and applies the relaxation rule.
func (m *Manager) RecordOutcome(confidence float64, correct bool) (OutcomeResult, error) {
	if !ir.ValidConfidence(confidence) {
		return OutcomeResult{}, ir.NewInvalidInput("record outcome",
			fmt.Sprintf("confidence %v outside [0,100]", confidence))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.outcomes = append(m.outcomes, ir.Outcome{
		Confidence: confidence,
		Correct:    correct,
		Timestamp:  now,
	})

	if !correct {
		// A single failure never raises the bar; it only breaks the run.
		m.streak = 0
		return OutcomeResult{Threshold: m.threshold, Streak: 0}, nil
	}

	m.streak++
	if m.streak < m.policy.Confirmations {
		return OutcomeResult{Threshold: m.threshold, Streak: m.streak}, nil
	}
	m.streak = 0

	next := m.threshold - m.policy.Step
	reason := ir.ReasonRelaxed
	if next < m.policy.Floor {
		next = m.policy.Floor
		reason = ir.ReasonFloorReached
	}
	adj := m.adjust(next, reason, fmt.Sprintf("%d consecutive confirmations", m.policy.Confirmations), now)
	return OutcomeResult{
		Adjusted:   adj.From != adj.To,
		Threshold:  m.threshold,
		Adjustment: &adj,
	}, nil
}

// Tighten raises the threshold by one step, clamped at the ceiling.
func (m *Manager) Tighten(note string) ir.Adjustment {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.threshold + m.policy.Step
	reason := ir.ReasonTightened
	if next > m.policy.Ceiling {
		next = m.policy.Ceiling
		reason = ir.ReasonCeilingReached
	}
	m.streak = 0
	return m.adjust(next, reason, note, m.now())
}

// adjust moves the threshold and appends a history entry. Caller holds mu.
func (m *Manager) adjust(next float64, reason ir.AdjustmentReason, note string, now time.Time) ir.Adjustment {
	adj := ir.Adjustment{
		From:      m.threshold,
		To:        next,
		Reason:    reason,
		Note:      note,
		Timestamp: now,
	}
	m.threshold = next
	m.history = append(m.history, adj)

	m.logger.Info("retention threshold adjusted",
		zap.Float64("from", adj.From),
		zap.Float64("to", adj.To),
		zap.String("reason", string(reason)),
		zap.String("note", note),
	)
	return adj
}

// Retain records the decision as a core memory if its confidence clears
// the current threshold. Returns whether it was retained and the threshold
// it was judged against.
func (m *Manager) Retain(d ir.DecisionRecord) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	threshold := m.threshold
	if d.Confidence < threshold {
		return false, threshold
	}
	m.core = append(m.core, ir.CoreMemory{
		Seq:        d.Seq,
		Title:      d.Title,
		Confidence: d.Confidence,
		Threshold:  threshold,
		Timestamp:  d.Timestamp,
	})
	m.logger.Debug("core memory retained",
		zap.Int64("seq", d.Seq),
		zap.Float64("confidence", d.Confidence),
		zap.Float64("threshold", threshold),
	)
	return true, threshold
}

// History returns a copy of the threshold adjustment history.
func (m *Manager) History() []ir.Adjustment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ir.Adjustment(nil), m.history...)
}

// Outcomes returns a copy of the recorded evidence points.
func (m *Manager) Outcomes() []ir.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ir.Outcome(nil), m.outcomes...)
}

// Core returns a copy of the retained core memories.
func (m *Manager) Core() []ir.CoreMemory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ir.CoreMemory(nil), m.core...)
}

// State captures the manager for a snapshot.
func (m *Manager) State() ir.MemoryState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ir.MemoryState{
		Threshold: m.threshold,
		Streak:    m.streak,
		History:   append([]ir.Adjustment(nil), m.history...),
		Outcomes:  append([]ir.Outcome(nil), m.outcomes...),
		Core:      append([]ir.CoreMemory(nil), m.core...),
	}
}

// Restore replaces the manager's state with a snapshot.
// The restored threshold must lie within the policy's [floor, ceiling].
func (m *Manager) Restore(s ir.MemoryState) error {
	if s.Threshold < m.policy.Floor || s.Threshold > m.policy.Ceiling {
		return ir.NewInvalidInput("restore memory",
			fmt.Sprintf("threshold %v outside [%v,%v]", s.Threshold, m.policy.Floor, m.policy.Ceiling))
	}
	if s.Streak < 0 {
		return ir.NewInvalidInput("restore memory", "streak must not be negative")
	}
	for i, a := range s.History {
		if !a.Reason.Valid() {
			return ir.NewInvalidInput("restore memory",
				fmt.Sprintf("adjustment %d: unknown reason %q", i, a.Reason))
		}
		if !ir.ValidConfidence(a.From) || !ir.ValidConfidence(a.To) {
			return ir.NewInvalidInput("restore memory",
				fmt.Sprintf("adjustment %d: %v -> %v outside [0,100]", i, a.From, a.To))
		}
	}
	for i, o := range s.Outcomes {
		if !ir.ValidConfidence(o.Confidence) {
			return ir.NewInvalidInput("restore memory",
				fmt.Sprintf("outcome %d: confidence %v outside [0,100]", i, o.Confidence))
		}
	}
	for _, c := range s.Core {
		switch {
		case c.Title == "":
			return ir.NewInvalidInput("restore memory",
				fmt.Sprintf("core memory %d: title is empty", c.Seq))
		case !ir.ValidConfidence(c.Confidence) || !ir.ValidConfidence(c.Threshold):
			return ir.NewInvalidInput("restore memory",
				fmt.Sprintf("core memory %d: confidence %v or threshold %v outside [0,100]", c.Seq, c.Confidence, c.Threshold))
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.threshold = s.Threshold
	m.streak = s.Streak
	m.history = append([]ir.Adjustment(nil), s.History...)
	m.outcomes = append([]ir.Outcome(nil), s.Outcomes...)
	m.core = append([]ir.CoreMemory(nil), s.Core...)
	return nil
}
