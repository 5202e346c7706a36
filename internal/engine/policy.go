package engine

import (
	"fmt"
	"math"

	"github.com/roach88/arbiter/internal/ir"
)

// Weights are the contributions of the three confidence inputs.
type Weights struct {
	Pattern   float64 `koanf:"pattern" yaml:"pattern"`
	Evidence  float64 `koanf:"evidence" yaml:"evidence"`
	Alignment float64 `koanf:"alignment" yaml:"alignment"`
}

// AlignmentBonus maps each alignment strength to a bonus in [0,100].
type AlignmentBonus struct {
	Weak     float64 `koanf:"weak" yaml:"weak"`
	Moderate float64 `koanf:"moderate" yaml:"moderate"`
	Strong   float64 `koanf:"strong" yaml:"strong"`
}

// For returns the bonus for a. Unknown strengths earn nothing.
func (b AlignmentBonus) For(a ir.Alignment) float64 {
	switch a {
	case ir.AlignmentWeak:
		return b.Weak
	case ir.AlignmentModerate:
		return b.Moderate
	case ir.AlignmentStrong:
		return b.Strong
	default:
		return 0
	}
}

// TierThresholds are the lower bounds of the three non-blocked tiers.
type TierThresholds struct {
	Autonomous float64 `koanf:"autonomous" yaml:"autonomous"`
	Validated  float64 `koanf:"validated" yaml:"validated"`
	Flagged    float64 `koanf:"flagged" yaml:"flagged"`
}

// Policy is the complete, explicit scoring rule of the engine.
//
//	confidence = round2(clamp(base*W.pattern + curve[n]*W.evidence
//	                          + bonus(a)*W.alignment, 0, 100))
type Policy struct {
	Weights Weights `koanf:"weights" yaml:"weights"`

	// NeutralBase is the base confidence when a request names no pattern
	// and carries no explicit base.
	NeutralBase float64 `koanf:"neutral_base" yaml:"neutral_base"`

	// EvidenceCurve is indexed by evidence count and saturates at its
	// last entry.
	EvidenceCurve []float64 `koanf:"evidence_curve" yaml:"evidence_curve"`

	Alignment AlignmentBonus `koanf:"alignment" yaml:"alignment"`
	Tiers     TierThresholds `koanf:"tiers" yaml:"tiers"`
}

// DefaultPolicy returns weights 0.5/0.3/0.2, curve [0,50,80,95,100],
// alignment bonuses 30/65/100 and tiers at 90/70/50.
func DefaultPolicy() Policy {
	return Policy{
		Weights:       Weights{Pattern: 0.5, Evidence: 0.3, Alignment: 0.2},
		NeutralBase:   50,
		EvidenceCurve: []float64{0, 50, 80, 95, 100},
		Alignment:     AlignmentBonus{Weak: 30, Moderate: 65, Strong: 100},
		Tiers:         TierThresholds{Autonomous: 90, Validated: 70, Flagged: 50},
	}
}

// Validate checks that every component of the policy is well-formed.
func (p Policy) Validate() error {
	w := p.Weights
	if w.Pattern < 0 || w.Evidence < 0 || w.Alignment < 0 {
		return fmt.Errorf("engine policy: weights must not be negative (%v/%v/%v)", w.Pattern, w.Evidence, w.Alignment)
	}
	if !ir.ValidConfidence(p.NeutralBase) {
		return fmt.Errorf("engine policy: neutral base %v outside [0,100]", p.NeutralBase)
	}
	if len(p.EvidenceCurve) == 0 {
		return fmt.Errorf("engine policy: evidence curve is empty")
	}
	for i, v := range p.EvidenceCurve {
		if !ir.ValidConfidence(v) {
			return fmt.Errorf("engine policy: evidence curve[%d]=%v outside [0,100]", i, v)
		}
		if i > 0 && v < p.EvidenceCurve[i-1] {
			return fmt.Errorf("engine policy: evidence curve decreases at index %d", i)
		}
	}
	a := p.Alignment
	for _, v := range []float64{a.Weak, a.Moderate, a.Strong} {
		if !ir.ValidConfidence(v) {
			return fmt.Errorf("engine policy: alignment bonus %v outside [0,100]", v)
		}
	}
	if a.Weak > a.Moderate || a.Moderate > a.Strong {
		return fmt.Errorf("engine policy: alignment bonuses must not decrease with strength")
	}
	t := p.Tiers
	if t.Flagged < 0 || t.Autonomous > 100 || t.Flagged > t.Validated || t.Validated > t.Autonomous {
		return fmt.Errorf("engine policy: tier thresholds must satisfy 0 <= flagged <= validated <= autonomous <= 100")
	}
	return nil
}

// EvidenceBonus returns the curve value for n pieces of evidence.
func (p Policy) EvidenceBonus(n int) float64 {
	if n < 0 || len(p.EvidenceCurve) == 0 {
		return 0
	}
	if n >= len(p.EvidenceCurve) {
		return p.EvidenceCurve[len(p.EvidenceCurve)-1]
	}
	return p.EvidenceCurve[n]
}

// Score combines the three inputs into a confidence in [0,100], rounded
// to two decimals.
func (p Policy) Score(base float64, evidence int, a ir.Alignment) float64 {
	raw := base*p.Weights.Pattern +
		p.EvidenceBonus(evidence)*p.Weights.Evidence +
		p.Alignment.For(a)*p.Weights.Alignment
	return round2(clamp(raw, ir.MinConfidence, ir.MaxConfidence))
}

// Classify maps a confidence to its tier.
func (p Policy) Classify(confidence float64) ir.Tier {
	switch {
	case confidence >= p.Tiers.Autonomous:
		return ir.TierAutonomous
	case confidence >= p.Tiers.Validated:
		return ir.TierValidated
	case confidence >= p.Tiers.Flagged:
		return ir.TierFlagged
	default:
		return ir.TierBlocked
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
