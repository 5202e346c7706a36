package engine

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/arbiter/internal/catalog"
	"github.com/roach88/arbiter/internal/ir"
	"github.com/roach88/arbiter/internal/matcher"
	"github.com/roach88/arbiter/internal/memory"
	"github.com/roach88/arbiter/internal/philosophy"
)

// Engine owns one catalog, one philosophy store, one memory manager and
// one append-only decision log for its lifetime.
//
// Thread-safety model:
//   - Submit and SubmitDecision are serialized: seq order equals append order
//   - catalog, philosophy and memory calls delegate to components that
//     carry their own locks
//   - Restore must not run concurrently with any other call
type Engine struct {
	mu        sync.Mutex // guards decisions and clock
	decisions []ir.DecisionRecord
	clock     *Clock

	policy     Policy
	catalog    *catalog.Catalog
	philosophy *philosophy.Store
	memory     *memory.Manager
	matcher    *matcher.Matcher
	session    string

	memoryPolicy memory.Policy
	sessionGen   SessionGenerator
	minMatch     float64
	now          func() time.Time
	logger       *zap.Logger
	metrics      *Metrics
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithPolicy sets the scoring policy. Default: DefaultPolicy().
func WithPolicy(p Policy) EngineOption {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithMemoryPolicy sets the retention threshold policy.
// Default: memory.DefaultPolicy().
func WithMemoryPolicy(p memory.Policy) EngineOption {
	return func(e *Engine) {
		e.memoryPolicy = p
	}
}

// WithLogger sets the logger. Default: no-op.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics attaches Prometheus collectors. Nil disables metrics.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithNow overrides the wall clock used for record timestamps.
func WithNow(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithSessionGenerator sets the session token source.
// Default: UUIDv7Generator.
func WithSessionGenerator(g SessionGenerator) EngineOption {
	return func(e *Engine) {
		if g != nil {
			e.sessionGen = g
		}
	}
}

// WithMinMatchConfidence hides patterns below c from recommendations.
func WithMinMatchConfidence(c float64) EngineOption {
	return func(e *Engine) {
		e.minMatch = c
	}
}

// New creates an empty engine. Fails if either policy is invalid.
func New(opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		clock:        NewClock(),
		policy:       DefaultPolicy(),
		memoryPolicy: memory.DefaultPolicy(),
		sessionGen:   UUIDv7Generator{},
		now:          systemNow,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.policy.Validate(); err != nil {
		return nil, err
	}
	mem, err := memory.New(e.memoryPolicy,
		memory.WithLogger(e.logger.Named("memory")),
		memory.WithNow(e.now),
	)
	if err != nil {
		return nil, err
	}

	e.memory = mem
	e.catalog = catalog.New()
	e.philosophy = philosophy.New()
	e.matcher = matcher.New(e.catalog, matcher.WithMinConfidence(e.minMatch))
	e.session = e.sessionGen.Generate()
	e.metrics.setThreshold(mem.Threshold())
	return e, nil
}

// Session returns the token stamped on decisions made by this instance.
func (e *Engine) Session() string {
	return e.session
}

// Policy returns the scoring policy.
func (e *Engine) Policy() Policy {
	p := e.policy
	p.EvidenceCurve = append([]float64(nil), e.policy.EvidenceCurve...)
	return p
}

// Register adds a pattern record to the catalog.
func (e *Engine) Register(rec ir.PatternRecord) error {
	return e.catalog.Register(rec)
}

// Pattern returns the named pattern record.
func (e *Engine) Pattern(name string) (ir.PatternRecord, error) {
	return e.catalog.Get(name)
}

// Patterns returns every pattern in registration order.
func (e *Engine) Patterns() []ir.PatternRecord {
	return e.catalog.All()
}

// PatternsByCategory returns the patterns of one category in registration order.
func (e *Engine) PatternsByCategory(c ir.Category) ([]ir.PatternRecord, error) {
	return e.catalog.ListByCategory(c)
}

// PatternsAbove returns the patterns with confidence >= min, best first.
func (e *Engine) PatternsAbove(min float64) []ir.PatternRecord {
	return e.catalog.FilterByMinConfidence(min)
}

// ReviseConfidence explicitly revises a pattern's confidence.
func (e *Engine) ReviseConfidence(name string, confidence float64) error {
	if err := e.catalog.ReviseConfidence(name, confidence); err != nil {
		return err
	}
	e.logger.Info("pattern confidence revised",
		zap.String("pattern", name),
		zap.Float64("confidence", confidence),
	)
	return nil
}

// Recommend returns scored matches for a free-text context.
func (e *Engine) Recommend(context string) []matcher.Match {
	return e.matcher.Recommend(context)
}

// RecommendPattern returns the records matching context, best first.
func (e *Engine) RecommendPattern(context string) []ir.PatternRecord {
	matches := e.matcher.Recommend(context)
	out := make([]ir.PatternRecord, len(matches))
	for i, m := range matches {
		out[i] = m.Record
	}
	return out
}

// BestStrategy returns the ordered phases of the named pattern.
func (e *Engine) BestStrategy(name string) ([]ir.Phase, error) {
	return e.matcher.BestStrategy(name)
}

// Philosophy returns a copy of the facts recorded under topic.
func (e *Engine) Philosophy(topic ir.Topic) map[string]ir.FactValue {
	return e.philosophy.Get(topic)
}

// RecordPhilosophy upserts one preference fact.
func (e *Engine) RecordPhilosophy(topic ir.Topic, key string, value ir.FactValue) error {
	return e.philosophy.Record(topic, key, value)
}

// Threshold returns the current retention threshold.
func (e *Engine) Threshold() float64 {
	return e.memory.Threshold()
}

// ShouldRetain reports whether confidence clears the retention threshold.
func (e *Engine) ShouldRetain(confidence float64) bool {
	return e.memory.ShouldRetain(confidence)
}

// RecordOutcome feeds back whether an acted-on decision turned out right.
func (e *Engine) RecordOutcome(confidence float64, correct bool) (memory.OutcomeResult, error) {
	res, err := e.memory.RecordOutcome(confidence, correct)
	if err != nil {
		return memory.OutcomeResult{}, err
	}
	e.metrics.recordOutcome(correct)
	e.metrics.recordAdjustment(res.Adjustment)
	e.metrics.setThreshold(res.Threshold)
	return res, nil
}

// Tighten raises the retention threshold by one step.
func (e *Engine) Tighten(reason string) ir.Adjustment {
	adj := e.memory.Tighten(reason)
	e.metrics.recordAdjustment(&adj)
	e.metrics.setThreshold(adj.To)
	return adj
}

// ThresholdHistory returns every threshold adjustment in order.
func (e *Engine) ThresholdHistory() []ir.Adjustment {
	return e.memory.History()
}

// Outcomes returns every recorded outcome in order.
func (e *Engine) Outcomes() []ir.Outcome {
	return e.memory.Outcomes()
}

// CoreMemories returns the retained decisions in order.
func (e *Engine) CoreMemories() []ir.CoreMemory {
	return e.memory.Core()
}
