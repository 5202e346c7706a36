package engine

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/arbiter/internal/ir"
)

// Request is one proposed action submitted for classification.
//
// At most one of PatternName and BaseConfidence may be set. With neither,
// the policy's neutral base is used.
type Request struct {
	Title          string
	EvidenceCount  int
	Alignment      ir.Alignment
	PatternName    string
	BaseConfidence *float64
}

// Base returns a pointer to c, for Request.BaseConfidence literals.
func Base(c float64) *float64 {
	return &c
}

// baseSource records where a request's base confidence came from.
type baseSource int

const (
	baseNeutral baseSource = iota
	basePattern
	baseExplicit
)

// resolve validates req and returns its base confidence.
func (e *Engine) resolve(op string, req Request) (float64, baseSource, error) {
	if strings.TrimSpace(req.Title) == "" {
		return 0, 0, ir.NewInvalidInput(op, "title must not be empty")
	}
	if req.EvidenceCount < 0 {
		return 0, 0, ir.NewInvalidInput(op, fmt.Sprintf("evidence count %d is negative", req.EvidenceCount))
	}
	if !req.Alignment.Valid() {
		return 0, 0, ir.NewInvalidInput(op, fmt.Sprintf("unknown alignment strength %q", req.Alignment))
	}
	if req.PatternName != "" && req.BaseConfidence != nil {
		return 0, 0, ir.NewInvalidInput(op, "pattern name and explicit base confidence are mutually exclusive")
	}

	switch {
	case req.PatternName != "":
		rec, err := e.catalog.Get(req.PatternName)
		if err != nil {
			return 0, 0, err
		}
		return rec.Confidence, basePattern, nil
	case req.BaseConfidence != nil:
		if !ir.ValidConfidence(*req.BaseConfidence) {
			return 0, 0, ir.NewInvalidInput(op, fmt.Sprintf("base confidence %v outside [0,100]", *req.BaseConfidence))
		}
		return *req.BaseConfidence, baseExplicit, nil
	default:
		return e.policy.NeutralBase, baseNeutral, nil
	}
}

// Score computes the confidence and tier of req without logging a decision.
func (e *Engine) Score(req Request) (float64, ir.Tier, error) {
	base, _, err := e.resolve("score", req)
	if err != nil {
		return 0, "", err
	}
	c := e.policy.Score(base, req.EvidenceCount, req.Alignment)
	return c, e.policy.Classify(c), nil
}

// Classify maps a confidence to its tier under the engine's policy.
func (e *Engine) Classify(confidence float64) ir.Tier {
	return e.policy.Classify(confidence)
}

// SubmitDecision classifies a proposed action based on an optional pattern.
func (e *Engine) SubmitDecision(title string, evidence int, alignment ir.Alignment, patternName string) (ir.DecisionRecord, error) {
	return e.Submit(Request{
		Title:         title,
		EvidenceCount: evidence,
		Alignment:     alignment,
		PatternName:   patternName,
	})
}

// Submit scores req, classifies it and appends exactly one record to the
// decision log. A blocked classification is a successful submission.
func (e *Engine) Submit(req Request) (ir.DecisionRecord, error) {
	base, src, err := e.resolve("submit decision", req)
	if err != nil {
		return ir.DecisionRecord{}, err
	}
	confidence := e.policy.Score(base, req.EvidenceCount, req.Alignment)
	tier := e.policy.Classify(confidence)
	topics := e.philosophy.Populated()

	e.mu.Lock()
	defer e.mu.Unlock()

	rec := ir.DecisionRecord{
		Seq:            e.clock.Next(),
		Session:        e.session,
		Title:          req.Title,
		PatternName:    req.PatternName,
		BaseConfidence: base,
		EvidenceCount:  req.EvidenceCount,
		Alignment:      req.Alignment,
		Confidence:     confidence,
		Tier:           tier,
		Rationale:      e.rationale(req, base, src, confidence, tier, topics),
		Timestamp:      e.now(),
	}
	rec.Retained, rec.Threshold = e.memory.Retain(rec)
	e.decisions = append(e.decisions, rec)

	e.metrics.recordDecision(rec)
	e.logger.Debug("decision appended",
		zap.Int64("seq", rec.Seq),
		zap.String("title", rec.Title),
		zap.Float64("confidence", rec.Confidence),
		zap.String("tier", string(rec.Tier)),
		zap.Bool("retained", rec.Retained),
	)
	return rec, nil
}

func (e *Engine) rationale(req Request, base float64, src baseSource, confidence float64, tier ir.Tier, topics []ir.Topic) string {
	var b strings.Builder
	switch src {
	case basePattern:
		fmt.Fprintf(&b, "pattern %q base %.2f", req.PatternName, base)
	case baseExplicit:
		fmt.Fprintf(&b, "explicit base %.2f", base)
	default:
		fmt.Fprintf(&b, "neutral base %.2f", base)
	}
	fmt.Fprintf(&b, "; evidence %d bonus %.2f", req.EvidenceCount, e.policy.EvidenceBonus(req.EvidenceCount))
	fmt.Fprintf(&b, "; %s alignment bonus %.2f", req.Alignment, e.policy.Alignment.For(req.Alignment))
	fmt.Fprintf(&b, "; confidence %.2f is %s: %s", confidence, tier, tier.Guidance())
	if len(topics) > 0 {
		names := make([]string, len(topics))
		for i, t := range topics {
			names[i] = string(t)
		}
		fmt.Fprintf(&b, "; context: %s", strings.Join(names, ", "))
	}
	return b.String()
}

// Decisions returns a copy of the decision log in seq order.
func (e *Engine) Decisions() []ir.DecisionRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ir.DecisionRecord(nil), e.decisions...)
}

// Decision returns the record with the given seq.
func (e *Engine) Decision(seq int64) (ir.DecisionRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, d := range e.decisions {
		if d.Seq == seq {
			return d, nil
		}
	}
	return ir.DecisionRecord{}, ir.NewNotFound("get decision", "decision", fmt.Sprintf("%d", seq))
}
