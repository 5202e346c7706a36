package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arbiter/internal/engine"
	"github.com/roach88/arbiter/internal/memory"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arbiter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultDatabase, cfg.Database)
	assert.Equal(t, engine.DefaultPolicy(), cfg.Policy)
	assert.Equal(t, memory.DefaultPolicy(), cfg.Memory)
}

func TestLoad_NoFileGivesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
database: /var/lib/arbiter/state.db
log:
  level: debug
  format: json
policy:
  weights:
    pattern: 0.6
    evidence: 0.2
  evidence_curve: [0, 40, 70]
memory:
  floor: 80
  confirmations: 3
metrics:
  textfile: /var/lib/node_exporter/arbiter.prom
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/arbiter/state.db", cfg.Database)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 0.6, cfg.Policy.Weights.Pattern)
	assert.Equal(t, 0.2, cfg.Policy.Weights.Evidence)
	assert.Equal(t, 0.2, cfg.Policy.Weights.Alignment, "unset keys keep their default")
	assert.Equal(t, []float64{0, 40, 70}, cfg.Policy.EvidenceCurve, "lists replace rather than merge")
	assert.Equal(t, 80.0, cfg.Memory.Floor)
	assert.Equal(t, 95.0, cfg.Memory.Initial)
	assert.Equal(t, 3, cfg.Memory.Confirmations)
	assert.Equal(t, "/var/lib/node_exporter/arbiter.prom", cfg.Metrics.Textfile)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "log:\n  level: debug\n")
	t.Setenv("ARBITER_LOG_LEVEL", "error")
	t.Setenv("ARBITER_DATABASE", "/tmp/env.db")
	t.Setenv("ARBITER_POLICY_NEUTRAL_BASE", "40")
	t.Setenv("ARBITER_POLICY_WEIGHTS_PATTERN", "0.4")
	t.Setenv("ARBITER_POLICY_WEIGHTS_EVIDENCE", "0.4")
	t.Setenv("ARBITER_MEMORY_STEP", "2.5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "/tmp/env.db", cfg.Database)
	assert.Equal(t, 40.0, cfg.Policy.NeutralBase)
	assert.Equal(t, 0.4, cfg.Policy.Weights.Pattern)
	assert.Equal(t, 0.4, cfg.Policy.Weights.Evidence)
	assert.Equal(t, 2.5, cfg.Memory.Step)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"floor above ceiling", "memory:\n  floor: 99\n", "memory policy"},
		{"negative weight", "policy:\n  weights:\n    pattern: -0.1\n", "engine policy"},
		{"bad log format", "log:\n  format: xml\n", "log format"},
		{"empty database", "database: \"\"\n", "database path"},
		{"malformed yaml", "policy: [unclosed\n", "failed to load config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open config file")
}

func TestLoad_FileTooLarge(t *testing.T) {
	big := "# " + strings.Repeat("x", maxConfigFileSize) + "\n"
	_, err := Load(writeConfig(t, big))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoad_Directory(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestEnvKeys(t *testing.T) {
	keys := envKeys([]string{"log.level", "policy.neutral_base", "policy.weights.pattern"})
	assert.Equal(t, map[string]string{
		"log_level":              "log.level",
		"policy_neutral_base":    "policy.neutral_base",
		"policy_weights_pattern": "policy.weights.pattern",
	}, keys)
}
