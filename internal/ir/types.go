package ir

import (
	"fmt"
	"time"
)

// MinConfidence and MaxConfidence bound every confidence value.
const (
	MinConfidence = 0.0
	MaxConfidence = 100.0
)

// ValidConfidence reports whether c lies in [0,100].
func ValidConfidence(c float64) bool {
	return c >= MinConfidence && c <= MaxConfidence
}

// Category classifies a pattern record.
type Category string

const (
	CategoryConfiguration Category = "configuration"
	CategoryWorkflow      Category = "workflow"
	CategoryQuality       Category = "quality"
	CategoryCommunication Category = "communication"
	CategoryArchitecture  Category = "architecture"
)

// Categories lists every category in declaration order.
var Categories = []Category{
	CategoryConfiguration,
	CategoryWorkflow,
	CategoryQuality,
	CategoryCommunication,
	CategoryArchitecture,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory converts a string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", NewInvalidInput("parse category", fmt.Sprintf("unknown category %q", s))
	}
	return c, nil
}

// Tier is the autonomy class derived from a confidence score.
type Tier string

const (
	// TierAutonomous executes without confirmation.
	TierAutonomous Tier = "autonomous"

	// TierValidated executes but requires a post-hoc check.
	TierValidated Tier = "validated"

	// TierFlagged is surfaced to the requester before proceeding.
	TierFlagged Tier = "flagged"

	// TierBlocked does not execute; the requester must supply more evidence.
	TierBlocked Tier = "blocked"
)

// Tiers lists every tier from least to most autonomous.
var Tiers = []Tier{TierBlocked, TierFlagged, TierValidated, TierAutonomous}

// Rank orders tiers by autonomy. Blocked is 0, Autonomous is 3.
// Unknown tiers rank -1.
func (t Tier) Rank() int {
	for i, known := range Tiers {
		if t == known {
			return i
		}
	}
	return -1
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t.Rank() >= 0
}

// Guidance is the one-line instruction attached to each tier.
func (t Tier) Guidance() string {
	switch t {
	case TierAutonomous:
		return "execute without confirmation"
	case TierValidated:
		return "execute, then verify the result"
	case TierFlagged:
		return "surface to the requester before proceeding"
	case TierBlocked:
		return "do not execute; supply more evidence or alignment"
	default:
		return ""
	}
}

// Alignment is how well a proposed action matches validated preferences.
type Alignment string

const (
	AlignmentWeak     Alignment = "weak"
	AlignmentModerate Alignment = "moderate"
	AlignmentStrong   Alignment = "strong"
)

// Alignments lists every alignment from weakest to strongest.
var Alignments = []Alignment{AlignmentWeak, AlignmentModerate, AlignmentStrong}

// Valid reports whether a is a known alignment strength.
func (a Alignment) Valid() bool {
	for _, known := range Alignments {
		if a == known {
			return true
		}
	}
	return false
}

// ParseAlignment converts a string into an Alignment.
func ParseAlignment(s string) (Alignment, error) {
	a := Alignment(s)
	if !a.Valid() {
		return "", NewInvalidInput("parse alignment", fmt.Sprintf("unknown alignment strength %q", s))
	}
	return a, nil
}

// Topic keys the philosophy store.
type Topic string

const (
	TopicIdentity      Topic = "identity"
	TopicMethodology   Topic = "methodology"
	TopicCommunication Topic = "communication"
	TopicQuality       Topic = "quality"
	TopicProject       Topic = "project"
)

// Topics lists every philosophy topic in declaration order.
var Topics = []Topic{
	TopicIdentity,
	TopicMethodology,
	TopicCommunication,
	TopicQuality,
	TopicProject,
}

// Valid reports whether t is a known topic.
func (t Topic) Valid() bool {
	for _, known := range Topics {
		if t == known {
			return true
		}
	}
	return false
}

// ParseTopic converts a string into a Topic.
func ParseTopic(s string) (Topic, error) {
	t := Topic(s)
	if !t.Valid() {
		return "", NewInvalidInput("parse topic", fmt.Sprintf("unknown philosophy topic %q", s))
	}
	return t, nil
}

// Phase is one named step group of a pattern's application strategy.
type Phase struct {
	Name  string   `json:"name" yaml:"name"`
	Steps []string `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// PatternRecord is a named, reusable solution approach.
type PatternRecord struct {
	Name        string   `json:"name" yaml:"name"`
	Category    Category `json:"category" yaml:"category"`
	Confidence  float64  `json:"confidence" yaml:"confidence"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Phases      []Phase  `json:"phases,omitempty" yaml:"phases,omitempty"`
}

// Clone returns a deep copy of the record.
// Empty slices come back nil so copies compare equal after a round trip.
func (p PatternRecord) Clone() PatternRecord {
	out := p
	out.Phases = nil
	for _, ph := range p.Phases {
		out.Phases = append(out.Phases, Phase{
			Name:  ph.Name,
			Steps: append([]string(nil), ph.Steps...),
		})
	}
	return out
}

// FactValue is an opaque philosophy value: either a single text or a list.
type FactValue struct {
	Text string   `json:"text,omitempty" yaml:"text,omitempty"`
	List []string `json:"list,omitempty" yaml:"list,omitempty"`
}

// Text builds a single-string fact value.
func Text(s string) FactValue {
	return FactValue{Text: s}
}

// List builds a sequence fact value.
func List(items ...string) FactValue {
	return FactValue{List: append([]string(nil), items...)}
}

// Clone returns a deep copy of the value.
func (v FactValue) Clone() FactValue {
	return FactValue{Text: v.Text, List: append([]string(nil), v.List...)}
}

// IsZero reports whether the value carries nothing.
func (v FactValue) IsZero() bool {
	return v.Text == "" && len(v.List) == 0
}

// String renders the value for humans.
func (v FactValue) String() string {
	if len(v.List) > 0 {
		return fmt.Sprintf("%v", v.List)
	}
	return v.Text
}

// DecisionRecord is one immutable entry of the append-only decision log.
type DecisionRecord struct {
	Seq            int64     `json:"seq" yaml:"seq"`
	Session        string    `json:"session" yaml:"session"`
	Title          string    `json:"title" yaml:"title"`
	PatternName    string    `json:"pattern_name,omitempty" yaml:"pattern_name,omitempty"`
	BaseConfidence float64   `json:"base_confidence" yaml:"base_confidence"`
	EvidenceCount  int       `json:"evidence_count" yaml:"evidence_count"`
	Alignment      Alignment `json:"alignment" yaml:"alignment"`
	Confidence     float64   `json:"confidence" yaml:"confidence"`
	Tier           Tier      `json:"tier" yaml:"tier"`
	Rationale      string    `json:"rationale" yaml:"rationale"`
	Retained       bool      `json:"retained" yaml:"retained"`
	Threshold      float64   `json:"threshold" yaml:"threshold"`
	Timestamp      time.Time `json:"timestamp" yaml:"timestamp"`
}

// AdjustmentReason names why the retention threshold moved (or tried to).
type AdjustmentReason string

const (
	ReasonRelaxed        AdjustmentReason = "relaxed"
	ReasonFloorReached   AdjustmentReason = "floor_reached"
	ReasonTightened      AdjustmentReason = "tightened"
	ReasonCeilingReached AdjustmentReason = "ceiling_reached"
)

// Valid reports whether r is one of the known adjustment reasons.
func (r AdjustmentReason) Valid() bool {
	switch r {
	case ReasonRelaxed, ReasonFloorReached, ReasonTightened, ReasonCeilingReached:
		return true
	}
	return false
}

// Adjustment is one entry of the retention threshold history.
type Adjustment struct {
	From      float64          `json:"from" yaml:"from"`
	To        float64          `json:"to" yaml:"to"`
	Reason    AdjustmentReason `json:"reason" yaml:"reason"`
	Note      string           `json:"note,omitempty" yaml:"note,omitempty"`
	Timestamp time.Time        `json:"timestamp" yaml:"timestamp"`
}

// Outcome is one evidence point fed back after a decision was acted on.
type Outcome struct {
	Confidence float64   `json:"confidence" yaml:"confidence"`
	Correct    bool      `json:"correct" yaml:"correct"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
}

// CoreMemory is a decision durable enough to exceed the retention threshold.
type CoreMemory struct {
	Seq        int64     `json:"seq" yaml:"seq"`
	Title      string    `json:"title" yaml:"title"`
	Confidence float64   `json:"confidence" yaml:"confidence"`
	Threshold  float64   `json:"threshold" yaml:"threshold"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
}
