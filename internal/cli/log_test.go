package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arbiter/internal/ir"
)

// seedDecisions logs one autonomous, one blocked and one retained decision.
func seedDecisions(t *testing.T, db string) {
	t.Helper()
	runs := [][]string{
		{"decide", "centralize config", "-e", "2", "-a", "strong", "-p", "config-centralization"},
		{"decide", "rewrite scheduler", "-e", "0", "-a", "weak", "--base", "40"},
		{"decide", "certain", "-e", "4", "-a", "strong", "--base", "100"},
	}
	for _, args := range runs {
		_, err := execute(t, db, args...)
		require.NoError(t, err)
	}
}

func TestLog_ListsInSeqOrder(t *testing.T) {
	db := testDB(t)
	seedDecisions(t, db)

	var res LogResult
	executeJSON(t, db, &res, "log")
	require.Len(t, res.Entries, 3)
	for i, e := range res.Entries {
		assert.Equal(t, int64(i+1), e.Seq)
		assert.Empty(t, e.Digest)
	}
	assert.Equal(t, 3, res.Stats.Total)
	assert.Equal(t, 1, res.Stats.Retained)
	assert.Equal(t, 2, res.Stats.ByTier[ir.TierAutonomous])
	assert.Equal(t, 1, res.Stats.ByTier[ir.TierBlocked])
}

func TestLog_Filters(t *testing.T) {
	db := testDB(t)
	seedDecisions(t, db)

	var blocked LogResult
	executeJSON(t, db, &blocked, "log", "--tier", "blocked")
	require.Len(t, blocked.Entries, 1)
	assert.Equal(t, "rewrite scheduler", blocked.Entries[0].Title)

	var last LogResult
	executeJSON(t, db, &last, "log", "--limit", "2")
	require.Len(t, last.Entries, 2)
	assert.Equal(t, int64(2), last.Entries[0].Seq)

	var all LogResult
	executeJSON(t, db, &all, "log")
	var session LogResult
	executeJSON(t, db, &session, "log", "--session", all.Entries[0].Session)
	require.Len(t, session.Entries, 1)
	assert.Equal(t, int64(1), session.Entries[0].Seq)
}

func TestLog_Digest(t *testing.T) {
	db := testDB(t)
	seedDecisions(t, db)

	var first, second LogResult
	executeJSON(t, db, &first, "log", "--digest")
	executeJSON(t, db, &second, "log", "--digest")
	require.Len(t, first.Entries, 3)
	for i, e := range first.Entries {
		assert.Len(t, e.Digest, 64)
		assert.Equal(t, e.Digest, second.Entries[i].Digest)
	}
	assert.NotEqual(t, first.Entries[0].Digest, first.Entries[1].Digest)
}

func TestLog_EmptyDatabase(t *testing.T) {
	out, err := execute(t, testDB(t), "log")
	require.NoError(t, err)
	assert.Contains(t, out, "No decisions")
}

func TestLog_UnknownTier(t *testing.T) {
	out, err := execute(t, testDB(t), "--format", "json", "log", "--tier", "maybe")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, ErrCodeInvalidInput, decodeError(t, out).Code)
}

func TestBuildLog_LimitAppliesAfterFilter(t *testing.T) {
	decisions := []ir.DecisionRecord{
		{Seq: 1, Tier: ir.TierBlocked},
		{Seq: 2, Tier: ir.TierFlagged},
		{Seq: 3, Tier: ir.TierBlocked},
		{Seq: 4, Tier: ir.TierBlocked, Retained: true},
	}

	res, err := buildLog(decisions, &LogOptions{Tier: "blocked", Limit: 2})
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, int64(3), res.Entries[0].Seq)
	assert.Equal(t, int64(4), res.Entries[1].Seq)
	assert.Equal(t, 2, res.Stats.Total)
	assert.Equal(t, 1, res.Stats.Retained)
}
