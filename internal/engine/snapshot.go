package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/arbiter/internal/catalog"
	"github.com/roach88/arbiter/internal/ir"
	"github.com/roach88/arbiter/internal/matcher"
	"github.com/roach88/arbiter/internal/memory"
	"github.com/roach88/arbiter/internal/philosophy"
)

// Snapshot captures the complete engine state.
func (e *Engine) Snapshot() *ir.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := &ir.Snapshot{
		Version:   ir.SnapshotVersion,
		Patterns:  e.catalog.All(),
		Decisions: append([]ir.DecisionRecord(nil), e.decisions...),
		Memory:    e.memory.State(),
	}
	if len(s.Patterns) == 0 {
		s.Patterns = nil
	}
	if topics := e.philosophy.Topics(); len(topics) > 0 {
		s.Philosophy = topics
	}
	return s
}

// Restore replaces the engine state with s.
//
// The decision log is taken as-is and the logical clock resumes after its
// last seq, so decisions appended afterwards continue the same order.
// On error the engine is left unchanged.
func (e *Engine) Restore(s *ir.Snapshot) error {
	if s == nil {
		return ir.NewInvalidInput("restore", "snapshot is nil")
	}
	if s.Version != ir.SnapshotVersion {
		return ir.NewInvalidInput("restore",
			fmt.Sprintf("unsupported snapshot version %q (want %q)", s.Version, ir.SnapshotVersion))
	}

	cat := catalog.New()
	for _, rec := range s.Patterns {
		if err := cat.Register(rec); err != nil {
			return fmt.Errorf("restore pattern %q: %w", rec.Name, err)
		}
	}

	phil := philosophy.New()
	for _, topic := range s.SortedTopics() {
		for key, value := range s.Philosophy[topic] {
			if err := phil.Record(topic, key, value); err != nil {
				return fmt.Errorf("restore philosophy %s/%s: %w", topic, key, err)
			}
		}
	}

	var last int64
	for _, d := range s.Decisions {
		if d.Seq <= last {
			return ir.NewInvalidInput("restore",
				fmt.Sprintf("decision seq %d does not follow %d", d.Seq, last))
		}
		if err := validateDecision(d); err != nil {
			return err
		}
		last = d.Seq
	}

	mem, err := memory.New(e.memoryPolicy,
		memory.WithLogger(e.logger.Named("memory")),
		memory.WithNow(e.now),
	)
	if err != nil {
		return err
	}
	if err := mem.Restore(s.Memory); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.catalog = cat
	e.philosophy = phil
	e.memory = mem
	e.matcher = matcher.New(cat, matcher.WithMinConfidence(e.minMatch))
	e.decisions = append([]ir.DecisionRecord(nil), s.Decisions...)
	e.clock = NewClockAt(last)
	e.metrics.setThreshold(mem.Threshold())

	e.logger.Info("engine state restored",
		zap.Int("patterns", cat.Len()),
		zap.Int("decisions", len(e.decisions)),
		zap.Int64("last_seq", last),
		zap.Float64("threshold", mem.Threshold()),
	)
	return nil
}

// validateDecision checks a stored decision against the same rules Submit
// enforces on new ones.
func validateDecision(d ir.DecisionRecord) error {
	bad := func(msg string) error {
		return ir.NewInvalidInput("restore", fmt.Sprintf("decision %d: %s", d.Seq, msg))
	}
	switch {
	case d.Title == "":
		return bad("title is empty")
	case d.EvidenceCount < 0:
		return bad(fmt.Sprintf("evidence count %d is negative", d.EvidenceCount))
	case !d.Alignment.Valid():
		return bad(fmt.Sprintf("unknown alignment %q", d.Alignment))
	case !d.Tier.Valid():
		return bad(fmt.Sprintf("unknown tier %q", d.Tier))
	case !ir.ValidConfidence(d.BaseConfidence):
		return bad(fmt.Sprintf("base confidence %v outside [0,100]", d.BaseConfidence))
	case !ir.ValidConfidence(d.Confidence):
		return bad(fmt.Sprintf("confidence %v outside [0,100]", d.Confidence))
	case !ir.ValidConfidence(d.Threshold):
		return bad(fmt.Sprintf("threshold %v outside [0,100]", d.Threshold))
	}
	return nil
}

// NewFromSnapshot creates an engine and restores s into it.
func NewFromSnapshot(s *ir.Snapshot, opts ...EngineOption) (*Engine, error) {
	e, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := e.Restore(s); err != nil {
		return nil, err
	}
	return e, nil
}
