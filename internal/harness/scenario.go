package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/arbiter/internal/engine"
	"github.com/roach88/arbiter/internal/ir"
	"github.com/roach88/arbiter/internal/memory"
)

// DefaultSeed selects the built-in seed in a scenario's seed field.
const DefaultSeed = "default"

// Scenario defines a decision scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Session is the fixed session token stamped on every decision.
	// Empty selects testutil.DefaultSession.
	Session string `yaml:"session,omitempty"`

	// Seed is DefaultSeed or a CUE seed file, relative to the scenario file.
	Seed string `yaml:"seed,omitempty"`

	// Policy and Memory override the default policies key by key.
	Policy *engine.Policy `yaml:"policy,omitempty"`
	Memory *memory.Policy `yaml:"memory,omitempty"`

	// Patterns are registered after the seed, in order.
	Patterns []ir.PatternRecord `yaml:"patterns,omitempty"`

	// Philosophy facts are recorded after the patterns.
	Philosophy map[string]map[string]Fact `yaml:"philosophy,omitempty"`

	// Steps run in order; each produces one trace event.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and the persisted final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one operation. Exactly one of the operation fields is set.
type Step struct {
	Register   *ir.PatternRecord `yaml:"register,omitempty"`
	Submit     *SubmitStep       `yaml:"submit,omitempty"`
	Outcome    *OutcomeStep      `yaml:"outcome,omitempty"`
	Tighten    *TightenStep      `yaml:"tighten,omitempty"`
	Recommend  *RecommendStep    `yaml:"recommend,omitempty"`
	Philosophy *PhilosophyStep   `yaml:"philosophy,omitempty"`

	// Expect is checked against the step's result. Nil checks nothing
	// beyond the absence of an error.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Kind returns the name of the operation the step performs.
func (s Step) Kind() string {
	switch {
	case s.Register != nil:
		return KindRegister
	case s.Submit != nil:
		return KindSubmit
	case s.Outcome != nil:
		return KindOutcome
	case s.Tighten != nil:
		return KindTighten
	case s.Recommend != nil:
		return KindRecommend
	case s.Philosophy != nil:
		return KindPhilosophy
	default:
		return ""
	}
}

func (s Step) operationCount() int {
	n := 0
	for _, set := range []bool{
		s.Register != nil, s.Submit != nil, s.Outcome != nil,
		s.Tighten != nil, s.Recommend != nil, s.Philosophy != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// Step kinds.
const (
	KindRegister   = "register"
	KindSubmit     = "submit"
	KindOutcome    = "outcome"
	KindTighten    = "tighten"
	KindRecommend  = "recommend"
	KindPhilosophy = "philosophy"
)

// SubmitStep proposes a decision.
type SubmitStep struct {
	Title     string   `yaml:"title"`
	Evidence  int      `yaml:"evidence"`
	Alignment string   `yaml:"alignment"`
	Pattern   string   `yaml:"pattern,omitempty"`
	Base      *float64 `yaml:"base,omitempty"`
}

// OutcomeStep reports whether an acted-on decision turned out correct.
type OutcomeStep struct {
	Confidence float64 `yaml:"confidence"`
	Correct    bool    `yaml:"correct"`
}

// TightenStep raises the retention threshold.
type TightenStep struct {
	Note string `yaml:"note,omitempty"`
}

// RecommendStep ranks patterns against a free-text context.
type RecommendStep struct {
	Context string `yaml:"context"`
}

// PhilosophyStep records a fact when Key is set, otherwise reads the topic.
type PhilosophyStep struct {
	Topic string `yaml:"topic"`
	Key   string `yaml:"key,omitempty"`
	Value *Fact  `yaml:"value,omitempty"`
}

// Expect holds the expected result of a step. Unset fields are not checked.
type Expect struct {
	// Error is the expected ir.ErrorCode, e.g. DUPLICATE_NAME.
	Error string `yaml:"error,omitempty"`

	Tier          string   `yaml:"tier,omitempty"`
	Confidence    *float64 `yaml:"confidence,omitempty"`
	MinConfidence *float64 `yaml:"min_confidence,omitempty"`
	MaxConfidence *float64 `yaml:"max_confidence,omitempty"`
	Retained      *bool    `yaml:"retained,omitempty"`

	Threshold *float64 `yaml:"threshold,omitempty"`
	Adjusted  *bool    `yaml:"adjusted,omitempty"`
	Reason    string   `yaml:"reason,omitempty"`

	// Names is the exact ordered recommendation; an empty list expects
	// no recommendation at all.
	Names *[]string `yaml:"names,omitempty"`

	// Facts is the exact content of a philosophy topic.
	Facts map[string]Fact `yaml:"facts,omitempty"`
}

// Fact is a philosophy value written in YAML as a string or a list.
type Fact struct {
	ir.FactValue
}

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (f *Fact) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		f.FactValue = ir.Text(s)
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		f.FactValue = ir.List(items...)
	default:
		return fmt.Errorf("line %d: fact must be a string or a list of strings", node.Line)
	}
	return nil
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count, final_state.
	Type string `yaml:"type"`

	// Kind is the step kind (trace_contains, trace_count).
	Kind string `yaml:"kind,omitempty"`

	// Fields is a subset of event fields (trace_contains).
	Fields map[string]interface{} `yaml:"fields,omitempty"`

	// Kinds is the expected order of step kinds (trace_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Count is the expected number of events (trace_count).
	Count int `yaml:"count,omitempty"`

	// Table, Where and Expect select and check one persisted row
	// (final_state).
	Table  string                 `yaml:"table,omitempty"`
	Where  map[string]interface{} `yaml:"where,omitempty"`
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file. A relative seed
// path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return parseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML. A relative seed path is resolved
// against the working directory.
func ParseScenario(data []byte) (*Scenario, error) {
	return parseScenario(data, "")
}

func parseScenario(data []byte, baseDir string) (*Scenario, error) {
	policy := engine.DefaultPolicy()
	mem := memory.DefaultPolicy()
	scenario := Scenario{Policy: &policy, Memory: &mem}

	// Reject unknown fields so typos like "expects:" fail loudly.
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Seed != "" && scenario.Seed != DefaultSeed &&
		!filepath.IsAbs(scenario.Seed) && baseDir != "" {
		scenario.Seed = filepath.Join(baseDir, scenario.Seed)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if s.Seed != "" && s.Seed != DefaultSeed {
		if _, err := os.Stat(s.Seed); os.IsNotExist(err) {
			return fmt.Errorf("seed file not found: %s", s.Seed)
		}
	}
	for topic := range s.Philosophy {
		if _, err := ir.ParseTopic(topic); err != nil {
			return fmt.Errorf("philosophy: %w", err)
		}
	}

	for i, step := range s.Steps {
		if n := step.operationCount(); n != 1 {
			return fmt.Errorf("steps[%d]: exactly one operation is required, found %d", i, n)
		}
		if step.Philosophy != nil {
			if step.Philosophy.Topic == "" {
				return fmt.Errorf("steps[%d]: philosophy topic is required", i)
			}
			if (step.Philosophy.Key == "") != (step.Philosophy.Value == nil) {
				return fmt.Errorf("steps[%d]: philosophy key and value go together", i)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
