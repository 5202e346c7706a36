package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/arbiter/internal/ir"
)

var testTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSnapshot builds a consistent snapshot touching every table.
func createTestSnapshot() *ir.Snapshot {
	return &ir.Snapshot{
		Version: ir.SnapshotVersion,
		Patterns: []ir.PatternRecord{
			{
				Name:        "z-last-alphabetically",
				Category:    ir.CategoryWorkflow,
				Confidence:  80,
				Description: "registered first",
				Phases: []ir.Phase{
					{Name: "plan", Steps: []string{"write it down"}},
					{Name: "do"},
				},
			},
			{Name: "a-first-alphabetically", Category: ir.CategoryQuality, Confidence: 61.25},
		},
		Philosophy: map[ir.Topic]map[string]ir.FactValue{
			ir.TopicIdentity: {"role": ir.Text("maintainer")},
			ir.TopicQuality:  {"checks": ir.List("lint", "test"), "style": ir.Text("<strict> & \"quoted\"")},
		},
		Decisions: []ir.DecisionRecord{
			{
				Seq: 1, Session: "session-a", Title: "apply config pattern",
				PatternName: "z-last-alphabetically", BaseConfidence: 80, EvidenceCount: 2,
				Alignment: ir.AlignmentStrong, Confidence: 84, Tier: ir.TierValidated,
				Rationale: "r1", Threshold: 95, Timestamp: testTime,
			},
			{
				Seq: 2, Session: "session-a", Title: "certain",
				BaseConfidence: 100, EvidenceCount: 4, Alignment: ir.AlignmentStrong,
				Confidence: 100, Tier: ir.TierAutonomous, Rationale: "r2",
				Retained: true, Threshold: 95, Timestamp: testTime.Add(time.Second),
			},
		},
		Memory: ir.MemoryState{
			Threshold: 90,
			Streak:    1,
			History: []ir.Adjustment{
				{From: 95, To: 90, Reason: ir.ReasonRelaxed, Note: "2 consecutive confirmations", Timestamp: testTime.Add(2 * time.Second)},
			},
			Outcomes: []ir.Outcome{
				{Confidence: 92, Correct: true, Timestamp: testTime.Add(2 * time.Second)},
				{Confidence: 92, Correct: true, Timestamp: testTime.Add(2 * time.Second)},
				{Confidence: 40.5, Correct: true, Timestamp: testTime.Add(3 * time.Second)},
			},
			Core: []ir.CoreMemory{
				{Seq: 2, Title: "certain", Confidence: 100, Threshold: 95, Timestamp: testTime.Add(time.Second)},
			},
		},
	}
}
