package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arbiter/internal/ir"
)

func patternNames(recs []ir.PatternRecord) []string {
	names := make([]string, 0, len(recs))
	for _, r := range recs {
		names = append(names, r.Name)
	}
	return names
}

func TestPatternList_SeededInRegistrationOrder(t *testing.T) {
	db := testDB(t)

	var recs []ir.PatternRecord
	executeJSON(t, db, &recs, "pattern", "list")
	assert.Equal(t, []string{
		"config-centralization", "test-before-fix", "incremental-rename",
		"layered-config", "terse-status-updates",
	}, patternNames(recs))
}

func TestPatternList_Filters(t *testing.T) {
	db := testDB(t)

	var byCategory []ir.PatternRecord
	executeJSON(t, db, &byCategory, "pattern", "list", "--category", "quality")
	assert.Equal(t, []string{"test-before-fix"}, patternNames(byCategory))

	var above []ir.PatternRecord
	executeJSON(t, db, &above, "pattern", "list", "--min", "80")
	assert.Equal(t, []string{"config-centralization", "test-before-fix", "incremental-rename"}, patternNames(above))

	var both []ir.PatternRecord
	executeJSON(t, db, &both, "pattern", "list", "--category", "configuration", "--min", "95")
	assert.Empty(t, both)
}

func TestPatternList_UnknownCategory(t *testing.T) {
	out, err := execute(t, testDB(t), "--format", "json", "pattern", "list", "--category", "cooking")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, ErrCodeUnknownName, decodeError(t, out).Code)
}

func TestPatternShow(t *testing.T) {
	db := testDB(t)

	var detail PatternDetail
	executeJSON(t, db, &detail, "pattern", "show", "test-before-fix")
	assert.Equal(t, "test-before-fix", detail.Name)
	assert.Equal(t, ir.CategoryQuality, detail.Category)
	require.Len(t, detail.Strategy, 2)
	assert.Equal(t, "reproduce", detail.Strategy[0].Name)

	out, err := execute(t, db, "pattern", "show", "terse-status-updates")
	require.NoError(t, err)
	assert.Contains(t, out, "terse-status-updates (communication, 70.00)")
}

func TestPatternShow_Unknown(t *testing.T) {
	out, err := execute(t, testDB(t), "--format", "json", "pattern", "show", "ghost")
	require.Error(t, err)
	assert.Equal(t, ErrCodeUnknownName, decodeError(t, out).Code)
}

func TestPatternAdd(t *testing.T) {
	db := testDB(t)

	var rec ir.PatternRecord
	executeJSON(t, db, &rec, "pattern", "add", "small-prs",
		"--category", "quality", "--confidence", "88",
		"--phase", "split:one concern per change; keep diffs small",
		"--phase", "review")
	assert.Equal(t, "small-prs", rec.Name)
	assert.Equal(t, []ir.Phase{
		{Name: "split", Steps: []string{"one concern per change", "keep diffs small"}},
		{Name: "review"},
	}, rec.Phases)

	var recs []ir.PatternRecord
	executeJSON(t, db, &recs, "pattern", "list")
	require.Len(t, recs, 6)
	assert.Equal(t, "small-prs", recs[5].Name)
}

func TestPatternAdd_Duplicate(t *testing.T) {
	db := testDB(t)

	out, err := execute(t, db, "--format", "json", "pattern", "add", "layered-config",
		"--category", "quality", "--confidence", "10")
	require.Error(t, err)
	assert.Equal(t, ErrCodeDuplicateName, decodeError(t, out).Code)

	var rec PatternDetail
	executeJSON(t, db, &rec, "pattern", "show", "layered-config")
	assert.Equal(t, ir.CategoryArchitecture, rec.Category)
	assert.Equal(t, 75.0, rec.Confidence)
}

func TestPatternAdd_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad category", []string{"pattern", "add", "p", "--category", "cooking", "--confidence", "50"}},
		{"confidence too high", []string{"pattern", "add", "p", "--category", "quality", "--confidence", "101"}},
		{"unnamed phase", []string{"pattern", "add", "p", "--category", "quality", "--phase", ":step"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, testDB(t), append([]string{"--format", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Equal(t, ErrCodeInvalidInput, decodeError(t, out).Code)
		})
	}
}

func TestPatternRevise(t *testing.T) {
	db := testDB(t)

	var rec ir.PatternRecord
	executeJSON(t, db, &rec, "pattern", "revise", "incremental-rename", "64.5")
	assert.Equal(t, 64.5, rec.Confidence)

	var d ir.DecisionRecord
	executeJSON(t, db, &d, "decide", "rename", "-a", "weak", "-p", "incremental-rename")
	assert.Equal(t, 64.5, d.BaseConfidence)
}

func TestPatternRevise_Rejections(t *testing.T) {
	db := testDB(t)

	out, err := execute(t, db, "--format", "json", "pattern", "revise", "ghost", "50")
	require.Error(t, err)
	assert.Equal(t, ErrCodeUnknownName, decodeError(t, out).Code)

	out, err = execute(t, db, "--format", "json", "pattern", "revise", "layered-config", "high")
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidInput, decodeError(t, out).Code)

	out, err = execute(t, db, "--format", "json", "pattern", "revise", "layered-config", "150")
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidInput, decodeError(t, out).Code)
}

func TestParsePhases(t *testing.T) {
	phases, err := parsePhases([]string{"plan:a; b;", " do "})
	require.NoError(t, err)
	assert.Equal(t, []ir.Phase{{Name: "plan", Steps: []string{"a", "b"}}, {Name: "do"}}, phases)

	phases, err = parsePhases(nil)
	require.NoError(t, err)
	assert.Nil(t, phases)

	_, err = parsePhases([]string{"  :x"})
	assert.True(t, ir.IsInvalidInput(err))
}
