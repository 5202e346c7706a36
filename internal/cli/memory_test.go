package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arbiter/internal/ir"
)

func TestThreshold_Default(t *testing.T) {
	db := testDB(t)

	out, err := execute(t, db, "threshold")
	require.NoError(t, err)
	assert.Contains(t, out, "threshold 95.00 (0 outcomes, 0 core memories)")
}

func TestOutcome_RelaxesAfterConfirmations(t *testing.T) {
	db := testDB(t)

	var first OutcomeReport
	executeJSON(t, db, &first, "outcome", "92")
	assert.False(t, first.Adjusted)
	assert.Equal(t, 1, first.Streak)
	assert.Equal(t, 95.0, first.Threshold)

	var second OutcomeReport
	executeJSON(t, db, &second, "outcome", "93")
	assert.True(t, second.Adjusted)
	assert.Equal(t, 90.0, second.Threshold)
	require.NotNil(t, second.Adjustment)
	assert.Equal(t, ir.ReasonRelaxed, second.Adjustment.Reason)

	var status ThresholdStatus
	executeJSON(t, db, &status, "threshold", "--history")
	assert.Equal(t, 90.0, status.Threshold)
	assert.Equal(t, 2, status.Outcomes)
	require.Len(t, status.History, 1)
	assert.Equal(t, 95.0, status.History[0].From)
	assert.Equal(t, 90.0, status.History[0].To)
}

func TestOutcome_NeverBelowFloor(t *testing.T) {
	db := testDB(t)

	for i := 0; i < 6; i++ {
		_, err := execute(t, db, "outcome", "90")
		require.NoError(t, err)
	}

	var status ThresholdStatus
	executeJSON(t, db, &status, "threshold", "--history")
	assert.Equal(t, 85.0, status.Threshold)
	require.Len(t, status.History, 3)
	assert.Equal(t, ir.ReasonFloorReached, status.History[2].Reason)
	assert.Equal(t, status.History[2].From, status.History[2].To)
}

func TestOutcome_WrongResetsStreak(t *testing.T) {
	db := testDB(t)

	_, err := execute(t, db, "outcome", "92")
	require.NoError(t, err)
	_, err = execute(t, db, "outcome", "60", "--wrong")
	require.NoError(t, err)

	var report OutcomeReport
	executeJSON(t, db, &report, "outcome", "92")
	assert.False(t, report.Adjusted)
	assert.Equal(t, 1, report.Streak)
	assert.Equal(t, 95.0, report.Threshold)
}

func TestOutcome_Invalid(t *testing.T) {
	db := testDB(t)

	for _, arg := range []string{"abc", "120"} {
		out, err := execute(t, db, "--format", "json", "outcome", arg)
		require.Error(t, err, arg)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Equal(t, ErrCodeInvalidInput, decodeError(t, out).Code)
	}

	var status ThresholdStatus
	executeJSON(t, db, &status, "threshold")
	assert.Equal(t, 0, status.Outcomes)
}

func TestTighten(t *testing.T) {
	db := testDB(t)

	var atCeiling ir.Adjustment
	executeJSON(t, db, &atCeiling, "tighten")
	assert.Equal(t, ir.ReasonCeilingReached, atCeiling.Reason)
	assert.Equal(t, 95.0, atCeiling.To)

	_, err := execute(t, db, "outcome", "92")
	require.NoError(t, err)
	_, err = execute(t, db, "outcome", "92")
	require.NoError(t, err)

	out, err := execute(t, db, "tighten", "too", "many", "stale", "memories")
	require.NoError(t, err)
	assert.Contains(t, out, "threshold 90.00 -> 95.00 (tightened)")

	var status ThresholdStatus
	executeJSON(t, db, &status, "threshold", "--history")
	require.Len(t, status.History, 3)
	assert.Equal(t, "too many stale memories", status.History[2].Note)
}
