package harness

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/arbiter/internal/engine"
	"github.com/roach88/arbiter/internal/ir"
	"github.com/roach88/arbiter/internal/memory"
	"github.com/roach88/arbiter/internal/seed"
	"github.com/roach88/arbiter/internal/store"
	"github.com/roach88/arbiter/internal/testutil"
)

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger sets the logger handed to the engine. Defaults to a no-op.
func WithLogger(l *zap.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// Harness executes one scenario against its own engine.
type Harness struct {
	engine *engine.Engine
	clock  *testutil.StepClock
	logger *zap.Logger
}

// Run executes a scenario and returns the result.
//
// Each run builds a fresh engine with a fixed session token and a stepping
// clock. Setup failures (bad seed, duplicate setup pattern) are returned as
// errors; step and assertion failures are reported in the result.
//
// Execution flow:
//  1. Build the engine from the scenario's policies
//  2. Apply the seed, then setup patterns and philosophy
//  3. Execute steps, checking expect clauses
//  4. Persist the final snapshot to an in-memory store and evaluate assertions
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		clock:  testutil.NewStepClock(time.Second),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}

	policy := engine.DefaultPolicy()
	if scenario.Policy != nil {
		policy = *scenario.Policy
	}
	memPolicy := memory.DefaultPolicy()
	if scenario.Memory != nil {
		memPolicy = *scenario.Memory
	}

	eng, err := engine.New(
		engine.WithPolicy(policy),
		engine.WithMemoryPolicy(memPolicy),
		engine.WithNow(h.clock.Now),
		engine.WithSessionGenerator(testutil.NewFixedSessionGenerator(scenario.Session)),
		engine.WithLogger(h.logger.Named("engine")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	h.engine = eng

	if err := h.setup(scenario); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	for _, step := range scenario.Steps {
		h.executeStep(step, result)
	}
	result.Final = eng.Snapshot()

	if len(scenario.Assertions) > 0 {
		if err := h.evaluate(scenario.Assertions, result); err != nil {
			return nil, err
		}
	}

	h.logger.Debug("scenario finished",
		zap.String("scenario", scenario.Name),
		zap.Bool("pass", result.Pass),
		zap.Int("steps", len(result.Trace)),
	)
	return result, nil
}

// setup applies the seed, then the scenario's own patterns and facts.
func (h *Harness) setup(s *Scenario) error {
	switch s.Seed {
	case "":
	case DefaultSeed:
		sd, err := seed.Default()
		if err != nil {
			return err
		}
		if err := seed.Apply(sd, h.engine); err != nil {
			return err
		}
	default:
		sd, err := seed.LoadFile(s.Seed)
		if err != nil {
			return err
		}
		if err := seed.Apply(sd, h.engine); err != nil {
			return err
		}
	}

	for i, p := range s.Patterns {
		if err := h.engine.Register(p); err != nil {
			return fmt.Errorf("patterns[%d]: %w", i, err)
		}
	}

	topics := make([]string, 0, len(s.Philosophy))
	for t := range s.Philosophy {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	for _, t := range topics {
		topic, err := ir.ParseTopic(t)
		if err != nil {
			return fmt.Errorf("philosophy: %w", err)
		}
		facts := s.Philosophy[t]
		keys := make([]string, 0, len(facts))
		for k := range facts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := h.engine.RecordPhilosophy(topic, k, facts[k].FactValue); err != nil {
				return fmt.Errorf("philosophy.%s.%s: %w", t, k, err)
			}
		}
	}
	return nil
}

// executeStep runs one step, appends its trace event and checks its expect
// clause.
func (h *Harness) executeStep(step Step, result *Result) {
	var (
		fields map[string]any
		err    error
	)
	switch step.Kind() {
	case KindRegister:
		fields, err = h.register(*step.Register)
	case KindSubmit:
		fields, err = h.submit(*step.Submit)
	case KindOutcome:
		fields, err = h.outcome(*step.Outcome)
	case KindTighten:
		fields = h.tighten(*step.Tighten)
	case KindRecommend:
		fields = h.recommend(*step.Recommend)
	case KindPhilosophy:
		fields, err = h.philosophy(*step.Philosophy)
	}

	code := ""
	if err != nil {
		code = string(ir.CodeOf(err))
		if code == "" {
			code = err.Error()
		}
	}
	ev := result.addEvent(step.Kind(), fields, code)

	for _, msg := range checkExpect(ev, step.Expect) {
		result.AddError(fmt.Sprintf("step %d (%s): %s", ev.Step, ev.Kind, msg))
	}

	h.logger.Debug("step executed",
		zap.Int("step", ev.Step),
		zap.String("kind", ev.Kind),
		zap.String("error", ev.Error),
	)
}

func (h *Harness) register(p ir.PatternRecord) (map[string]any, error) {
	fields := map[string]any{"name": p.Name}
	if err := h.engine.Register(p); err != nil {
		return fields, err
	}
	fields["category"] = string(p.Category)
	fields["confidence"] = p.Confidence
	return fields, nil
}

func (h *Harness) submit(s SubmitStep) (map[string]any, error) {
	d, err := h.engine.Submit(engine.Request{
		Title:          s.Title,
		EvidenceCount:  s.Evidence,
		Alignment:      ir.Alignment(s.Alignment),
		PatternName:    s.Pattern,
		BaseConfidence: s.Base,
	})
	if err != nil {
		return map[string]any{"title": s.Title}, err
	}
	return map[string]any{
		"seq":             d.Seq,
		"title":           d.Title,
		"pattern_name":    d.PatternName,
		"base_confidence": d.BaseConfidence,
		"evidence_count":  d.EvidenceCount,
		"alignment":       string(d.Alignment),
		"confidence":      d.Confidence,
		"tier":            string(d.Tier),
		"rationale":       d.Rationale,
		"retained":        d.Retained,
		"threshold":       d.Threshold,
	}, nil
}

func (h *Harness) outcome(o OutcomeStep) (map[string]any, error) {
	res, err := h.engine.RecordOutcome(o.Confidence, o.Correct)
	fields := map[string]any{
		"confidence": o.Confidence,
		"correct":    o.Correct,
	}
	if err != nil {
		return fields, err
	}
	fields["adjusted"] = res.Adjusted
	fields["threshold"] = res.Threshold
	fields["streak"] = res.Streak
	if res.Adjustment != nil {
		fields["reason"] = string(res.Adjustment.Reason)
	}
	return fields, nil
}

func (h *Harness) tighten(t TightenStep) map[string]any {
	adj := h.engine.Tighten(t.Note)
	return map[string]any{
		"from":      adj.From,
		"to":        adj.To,
		"threshold": adj.To,
		"reason":    string(adj.Reason),
	}
}

func (h *Harness) recommend(r RecommendStep) map[string]any {
	names := []string{}
	for _, p := range h.engine.RecommendPattern(r.Context) {
		names = append(names, p.Name)
	}
	return map[string]any{
		"context": r.Context,
		"names":   names,
	}
}

func (h *Harness) philosophy(p PhilosophyStep) (map[string]any, error) {
	fields := map[string]any{"topic": p.Topic}
	topic, err := ir.ParseTopic(p.Topic)
	if err != nil {
		return fields, err
	}

	if p.Key != "" {
		fields["key"] = p.Key
		fields["value"] = factFields(p.Value.FactValue)
		return fields, h.engine.RecordPhilosophy(topic, p.Key, p.Value.FactValue)
	}

	facts := map[string]any{}
	for k, v := range h.engine.Philosophy(topic) {
		facts[k] = factFields(v)
	}
	fields["facts"] = facts
	return fields, nil
}

func factFields(v ir.FactValue) map[string]any {
	return map[string]any{
		"text": v.Text,
		"list": append([]string{}, v.List...),
	}
}

// evaluate persists the final snapshot and runs the assertions against the
// trace and the stored rows.
func (h *Harness) evaluate(assertions []Assertion, result *Result) error {
	ctx := context.Background()
	st, err := store.Open(":memory:")
	if err != nil {
		return fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := st.SaveSnapshot(ctx, result.Final); err != nil {
		return fmt.Errorf("failed to persist final state: %w", err)
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, assertions, actx) {
		result.AddError(msg)
	}
	return nil
}
