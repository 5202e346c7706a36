package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arbiter/internal/engine"
	"github.com/roach88/arbiter/internal/ir"
	"github.com/roach88/arbiter/internal/memory"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/decision_tiers.yaml")
	require.NoError(t, err)

	assert.Equal(t, "decision_tiers", s.Name)
	assert.Equal(t, "test-session-tiers", s.Session)
	require.Len(t, s.Patterns, 1)
	assert.Equal(t, ir.CategoryConfiguration, s.Patterns[0].Category)
	require.Len(t, s.Steps, 5)
	assert.Equal(t, KindSubmit, s.Steps[0].Kind())
	assert.Equal(t, KindRegister, s.Steps[2].Kind())
	require.NotNil(t, s.Steps[1].Submit.Base)
	assert.Equal(t, 40.0, *s.Steps[1].Submit.Base)
	assert.Equal(t, "DUPLICATE_NAME", s.Steps[2].Expect.Error)
	assert.Len(t, s.Assertions, 4)
}

func TestParseScenario_PolicyDefaultsAndOverrides(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: overrides
description: partial policy overrides keep the other defaults
memory: { floor: 80, confirmations: 3 }
policy:
  tiers: { autonomous: 95 }
steps:
  - tighten: {}
`))
	require.NoError(t, err)

	wantMem := memory.DefaultPolicy()
	wantMem.Floor = 80
	wantMem.Confirmations = 3
	assert.Equal(t, wantMem, *s.Memory)

	wantPolicy := engine.DefaultPolicy()
	wantPolicy.Tiers.Autonomous = 95
	assert.Equal(t, wantPolicy, *s.Policy)
}

func TestParseScenario_Facts(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: facts
description: string and list facts
philosophy:
  quality:
    tests: "always"
    checks: [lint, vet]
steps:
  - philosophy: { topic: quality, key: review, value: [two, approvals] }
`))
	require.NoError(t, err)

	assert.Equal(t, ir.Text("always"), s.Philosophy["quality"]["tests"].FactValue)
	assert.Equal(t, ir.List("lint", "vet"), s.Philosophy["quality"]["checks"].FactValue)
	require.NotNil(t, s.Steps[0].Philosophy.Value)
	assert.Equal(t, ir.List("two", "approvals"), s.Steps[0].Philosophy.Value.FactValue)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nsteps: [{tighten: {}}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nsteps: [{tighten: {}}]\n",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			yaml:    "name: n\ndescription: d\n",
			wantErr: "steps list is required",
		},
		{
			name:    "unknown field",
			yaml:    "name: n\ndescription: d\nstepz: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "two operations in one step",
			yaml:    "name: n\ndescription: d\nsteps: [{tighten: {}, recommend: {context: x}}]\n",
			wantErr: "exactly one operation",
		},
		{
			name:    "empty step",
			yaml:    "name: n\ndescription: d\nsteps: [{expect: {threshold: 90}}]\n",
			wantErr: "exactly one operation",
		},
		{
			name:    "philosophy key without value",
			yaml:    "name: n\ndescription: d\nsteps: [{philosophy: {topic: quality, key: k}}]\n",
			wantErr: "key and value go together",
		},
		{
			name:    "unknown setup topic",
			yaml:    "name: n\ndescription: d\nphilosophy: {legal: {a: b}}\nsteps: [{tighten: {}}]\n",
			wantErr: "unknown philosophy topic",
		},
		{
			name:    "fact as mapping",
			yaml:    "name: n\ndescription: d\nphilosophy: {quality: {a: {b: c}}}\nsteps: [{tighten: {}}]\n",
			wantErr: "fact must be a string or a list",
		},
		{
			name:    "missing seed file",
			yaml:    "name: n\ndescription: d\nseed: /nonexistent/seed.cue\nsteps: [{tighten: {}}]\n",
			wantErr: "seed file not found",
		},
		{
			name:    "unknown assertion type",
			yaml:    "name: n\ndescription: d\nsteps: [{tighten: {}}]\nassertions: [{type: trace_magic}]\n",
			wantErr: "unknown assertion type",
		},
		{
			name:    "final_state without expect",
			yaml:    "name: n\ndescription: d\nsteps: [{tighten: {}}]\nassertions: [{type: final_state, table: memory_state}]\n",
			wantErr: "expect is required",
		},
		{
			name:    "trace_order without kinds",
			yaml:    "name: n\ndescription: d\nsteps: [{tighten: {}}]\nassertions: [{type: trace_order}]\n",
			wantErr: "kinds list is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_ResolvesSeedRelativeToFile(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seeds", "tiny.cue")
	require.NoError(t, os.MkdirAll(filepath.Dir(seedPath), 0o755))
	require.NoError(t, os.WriteFile(seedPath, []byte(`
pattern: "tiny": { category: "quality", confidence: 60 }
philosophy: {}
`), 0o644))

	scenarioPath := filepath.Join(dir, "tiny.yaml")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(`
name: tiny
description: seed path is relative to the scenario
seed: seeds/tiny.cue
steps:
  - submit: { title: "use tiny", evidence: 1, alignment: moderate, pattern: tiny }
`), 0o644))

	s, err := LoadScenario(scenarioPath)
	require.NoError(t, err)
	assert.Equal(t, seedPath, s.Seed)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/absent.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
