// Package seed loads pattern catalog and philosophy seed data from CUE.
//
// A seed file declares patterns by name and philosophy facts by topic:
//
//	pattern: "config-centralization": {
//		category:   "configuration"
//		confidence: 92
//		phases: [{name: "inventory", steps: ["list constants"]}]
//	}
//	philosophy: quality: tests: "always"
//
// The file is unified with an embedded schema before extraction, so
// malformed seeds fail with a file:line:col position.
package seed

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/arbiter/internal/ir"
)

//go:embed schema.cue
var schemaSource string

//go:embed default.cue
var defaultSource []byte

// DefaultName is the filename reported for the built-in seed.
const DefaultName = "default.cue"

// Seed is the extracted content of a seed file.
type Seed struct {
	// Patterns in declaration order.
	Patterns []ir.PatternRecord

	Philosophy map[ir.Topic]map[string]ir.FactValue
}

// Target receives seed data. Implemented by *engine.Engine.
type Target interface {
	Register(rec ir.PatternRecord) error
	RecordPhilosophy(topic ir.Topic, key string, value ir.FactValue) error
}

// Default returns the built-in seed.
func Default() (*Seed, error) {
	return Load(defaultSource, DefaultName)
}

// LoadFile reads and compiles a seed file.
func LoadFile(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	return Load(data, path)
}

// Load compiles seed source against the schema and extracts its content.
// filename is used in error positions.
func Load(src []byte, filename string) (*Seed, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile seed schema: %w", err)
	}

	data := ctx.CompileBytes(src, cue.Filename(filename))
	if err := data.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.Unify(data)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	patterns, err := extractPatterns(v)
	if err != nil {
		return nil, err
	}
	philosophy, err := extractPhilosophy(v)
	if err != nil {
		return nil, err
	}
	return &Seed{Patterns: patterns, Philosophy: philosophy}, nil
}

type phaseDoc struct {
	Name  string   `json:"name"`
	Steps []string `json:"steps"`
}

type patternDoc struct {
	Category    string     `json:"category"`
	Confidence  float64    `json:"confidence"`
	Description string     `json:"description"`
	Phases      []phaseDoc `json:"phases"`
}

func extractPatterns(v cue.Value) ([]ir.PatternRecord, error) {
	patternsVal := v.LookupPath(cue.ParsePath("pattern"))
	if !patternsVal.Exists() {
		return nil, nil
	}
	iter, err := patternsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []ir.PatternRecord
	for iter.Next() {
		name := iter.Selector().Unquoted()
		var doc patternDoc
		if err := iter.Value().Decode(&doc); err != nil {
			return nil, formatCUEError(err)
		}
		rec := ir.PatternRecord{
			Name:        name,
			Category:    ir.Category(doc.Category),
			Confidence:  doc.Confidence,
			Description: doc.Description,
		}
		for _, p := range doc.Phases {
			var steps []string
			if len(p.Steps) > 0 {
				steps = p.Steps
			}
			rec.Phases = append(rec.Phases, ir.Phase{Name: p.Name, Steps: steps})
		}
		out = append(out, rec)
	}
	return out, nil
}

func extractPhilosophy(v cue.Value) (map[ir.Topic]map[string]ir.FactValue, error) {
	philVal := v.LookupPath(cue.ParsePath("philosophy"))
	if !philVal.Exists() {
		return nil, nil
	}
	topics, err := philVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out map[ir.Topic]map[string]ir.FactValue
	for topics.Next() {
		topic, err := ir.ParseTopic(topics.Selector().Unquoted())
		if err != nil {
			return nil, &Error{Message: err.Error(), Pos: topics.Value().Pos()}
		}
		iter, err := topics.Value().Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			fact, err := decodeFact(iter.Value())
			if err != nil {
				return nil, err
			}
			if out == nil {
				out = make(map[ir.Topic]map[string]ir.FactValue)
			}
			if out[topic] == nil {
				out[topic] = make(map[string]ir.FactValue)
			}
			out[topic][iter.Selector().Unquoted()] = fact
		}
	}
	return out, nil
}

func decodeFact(v cue.Value) (ir.FactValue, error) {
	if s, err := v.String(); err == nil {
		return ir.Text(s), nil
	}
	var items []string
	if err := v.Decode(&items); err != nil {
		return ir.FactValue{}, formatCUEError(err)
	}
	return ir.List(items...), nil
}

// Apply registers every pattern and records every fact into t.
// Patterns go first in declaration order; facts follow in topic order
// with keys sorted.
func Apply(s *Seed, t Target) error {
	for _, rec := range s.Patterns {
		if err := t.Register(rec); err != nil {
			return fmt.Errorf("seed pattern %q: %w", rec.Name, err)
		}
	}
	for _, topic := range ir.Topics {
		facts := s.Philosophy[topic]
		keys := make([]string, 0, len(facts))
		for k := range facts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := t.RecordPhilosophy(topic, k, facts[k]); err != nil {
				return fmt.Errorf("seed philosophy %s/%s: %w", topic, k, err)
			}
		}
	}
	return nil
}
