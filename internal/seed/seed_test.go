package seed

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arbiter/internal/ir"
)

func TestLoadFile_Valid(t *testing.T) {
	s, err := LoadFile(filepath.Join("testdata", "valid.cue"))
	require.NoError(t, err)

	require.Len(t, s.Patterns, 2)
	assert.Equal(t, ir.PatternRecord{
		Name:       "b-second",
		Category:   ir.CategoryWorkflow,
		Confidence: 61.5,
	}, s.Patterns[0])
	assert.Equal(t, ir.PatternRecord{
		Name:        "a-first",
		Category:    ir.CategoryConfiguration,
		Confidence:  92,
		Description: "declared after b-second",
		Phases: []ir.Phase{
			{Name: "one", Steps: []string{"x", "y"}},
			{Name: "two"},
		},
	}, s.Patterns[1])

	assert.Equal(t, map[ir.Topic]map[string]ir.FactValue{
		ir.TopicIdentity:      {"role": ir.Text("maintainer")},
		ir.TopicCommunication: {"channels": ir.List("chat", "pr")},
	}, s.Philosophy)
}

func TestLoad_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown category", `pattern: x: {category: "misc", confidence: 50}`, "category"},
		{"confidence above range", `pattern: x: {category: "quality", confidence: 101}`, "confidence"},
		{"confidence below range", `pattern: x: {category: "quality", confidence: -1}`, "confidence"},
		{"missing confidence", `pattern: x: {category: "quality"}`, "confidence"},
		{"unnamed phase", `pattern: x: {category: "quality", confidence: 5, phases: [{steps: []}]}`, "name"},
		{"unknown topic", `philosophy: weather: today: "sunny"`, "weather"},
		{"non-string fact", `philosophy: quality: level: 3`, "level"},
		{"syntax error", `pattern: x: {`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.src), "inline.cue")
			require.Error(t, err)

			var seedErr *Error
			require.True(t, errors.As(err, &seedErr), "want *seed.Error, got %T: %v", err, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile_ErrorHasPosition(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "bad_confidence.cue"))
	require.Error(t, err)

	var seedErr *Error
	require.True(t, errors.As(err, &seedErr))
	assert.True(t, seedErr.Pos.IsValid())
	assert.Contains(t, err.Error(), "confidence")
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "nope.cue"))
	assert.Error(t, err)
}

func TestLoad_Empty(t *testing.T) {
	s, err := Load(nil, "empty.cue")
	require.NoError(t, err)
	assert.Empty(t, s.Patterns)
	assert.Nil(t, s.Philosophy)
}

func TestDefault(t *testing.T) {
	s, err := Default()
	require.NoError(t, err)

	require.Len(t, s.Patterns, 5)
	assert.Equal(t, "config-centralization", s.Patterns[0].Name)
	assert.Equal(t, 92.0, s.Patterns[0].Confidence)
	assert.Len(t, s.Patterns[0].Phases, 3)
	assert.Nil(t, s.Patterns[4].Phases)

	assert.Equal(t, ir.Text("terse"), s.Philosophy[ir.TopicCommunication]["style"])
	assert.Equal(t, ir.List("observe", "propose", "validate", "retain"), s.Philosophy[ir.TopicMethodology]["steps"])
}

type recordingTarget struct {
	patterns []string
	facts    []string
	failOn   string
}

func (r *recordingTarget) Register(rec ir.PatternRecord) error {
	if rec.Name == r.failOn {
		return ir.NewDuplicateName("register", rec.Name)
	}
	r.patterns = append(r.patterns, rec.Name)
	return nil
}

func (r *recordingTarget) RecordPhilosophy(topic ir.Topic, key string, _ ir.FactValue) error {
	r.facts = append(r.facts, string(topic)+"/"+key)
	return nil
}

func TestApply(t *testing.T) {
	s := &Seed{
		Patterns: []ir.PatternRecord{{Name: "p1"}, {Name: "p2"}},
		Philosophy: map[ir.Topic]map[string]ir.FactValue{
			ir.TopicQuality:  {"b": ir.Text("2"), "a": ir.Text("1")},
			ir.TopicIdentity: {"role": ir.Text("dev")},
		},
	}
	target := &recordingTarget{}
	require.NoError(t, Apply(s, target))

	assert.Equal(t, []string{"p1", "p2"}, target.patterns)
	assert.Equal(t, []string{"identity/role", "quality/a", "quality/b"}, target.facts)
}

func TestApply_StopsOnError(t *testing.T) {
	s := &Seed{Patterns: []ir.PatternRecord{{Name: "p1"}, {Name: "dup"}, {Name: "p3"}}}
	target := &recordingTarget{failOn: "dup"}

	err := Apply(s, target)
	require.Error(t, err)
	assert.True(t, ir.IsDuplicateName(err))
	assert.Equal(t, []string{"p1"}, target.patterns)
}
