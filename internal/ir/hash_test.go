package ir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() *Snapshot {
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &Snapshot{
		Version: SnapshotVersion,
		Patterns: []PatternRecord{
			{
				Name:        "config-centralization",
				Category:    CategoryConfiguration,
				Confidence:  92,
				Description: "Move scattered settings into one config module",
				Phases: []Phase{
					{Name: "inventory", Steps: []string{"list settings"}},
					{Name: "extract", Steps: []string{"create module", "replace reads"}},
				},
			},
		},
		Philosophy: map[Topic]map[string]FactValue{
			TopicMethodology: {"testing": Text("table-driven")},
			TopicQuality:     {"gates": List("lint", "test")},
		},
		Decisions: []DecisionRecord{
			{
				Seq:            1,
				Session:        "session-1",
				Title:          "apply config pattern",
				PatternName:    "config-centralization",
				BaseConfidence: 92,
				EvidenceCount:  2,
				Alignment:      AlignmentStrong,
				Confidence:     90,
				Tier:           TierAutonomous,
				Rationale:      "test",
				Retained:       false,
				Threshold:      95,
				Timestamp:      ts,
			},
		},
		Memory: MemoryState{
			Threshold: 90,
			History: []Adjustment{
				{From: 95, To: 90, Reason: ReasonRelaxed, Timestamp: ts},
			},
			Outcomes: []Outcome{
				{Confidence: 92, Correct: true, Timestamp: ts},
				{Confidence: 92, Correct: true, Timestamp: ts},
			},
		},
	}
}

func TestSnapshotDigestDeterministic(t *testing.T) {
	a, err := SnapshotDigest(sampleSnapshot())
	require.NoError(t, err)
	b, err := SnapshotDigest(sampleSnapshot())
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestSnapshotDigestSensitivity(t *testing.T) {
	base, err := SnapshotDigest(sampleSnapshot())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(s *Snapshot)
	}{
		{"threshold", func(s *Snapshot) { s.Memory.Threshold = 85 }},
		{"pattern confidence", func(s *Snapshot) { s.Patterns[0].Confidence = 91.99 }},
		{"decision tier", func(s *Snapshot) { s.Decisions[0].Tier = TierValidated }},
		{"philosophy fact", func(s *Snapshot) { s.Philosophy[TopicQuality]["gates"] = List("lint") }},
		{"phase order", func(s *Snapshot) {
			p := s.Patterns[0].Phases
			p[0], p[1] = p[1], p[0]
		}},
		{"decision order", func(s *Snapshot) {
			extra := s.Decisions[0]
			extra.Seq = 2
			s.Decisions = []DecisionRecord{extra, s.Decisions[0]}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sampleSnapshot()
			tt.mutate(s)
			got, err := SnapshotDigest(s)
			require.NoError(t, err)
			assert.NotEqual(t, base, got)
		})
	}
}

func TestDecisionDigestDomainSeparation(t *testing.T) {
	d := sampleSnapshot().Decisions[0]
	digest, err := DecisionDigest(d)
	require.NoError(t, err)

	canonical, err := MarshalCanonical(decisionObject(d))
	require.NoError(t, err)
	assert.Equal(t, hashWithDomain(DomainDecision, canonical), digest)
	assert.NotEqual(t, hashWithDomain(DomainSnapshot, canonical), digest)
}

func TestBasisPoints(t *testing.T) {
	assert.Equal(t, int64(9000), BasisPoints(90))
	assert.Equal(t, int64(8850), BasisPoints(88.5))
	assert.Equal(t, int64(3333), BasisPoints(33.333))
	assert.Equal(t, int64(0), BasisPoints(0))
}

func TestSnapshotDigest_DistinguishesSubHundredths(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Snapshot, c float64)
	}{
		{"pattern confidence", func(s *Snapshot, c float64) { s.Patterns[0].Confidence = c }},
		{"decision base", func(s *Snapshot, c float64) { s.Decisions[0].BaseConfidence = c }},
		{"memory threshold", func(s *Snapshot, c float64) { s.Memory.Threshold = c }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := sampleSnapshot(), sampleSnapshot()
			tt.mutate(a, 87.651)
			tt.mutate(b, 87.654)
			require.Equal(t, BasisPoints(87.651), BasisPoints(87.654))

			da, err := SnapshotDigest(a)
			require.NoError(t, err)
			db, err := SnapshotDigest(b)
			require.NoError(t, err)
			assert.NotEqual(t, da, db)
		})
	}
}

func TestExactFloat(t *testing.T) {
	assert.Equal(t, "90", exactFloat(90))
	assert.Equal(t, "87.651", exactFloat(87.651))
	assert.Equal(t, "0.1", exactFloat(0.1))
}

func TestDecisionTraceObjectOmitsWallClock(t *testing.T) {
	obj := DecisionTraceObject(sampleSnapshot().Decisions[0])
	assert.NotContains(t, obj, "timestamp")
	assert.NotContains(t, obj, "session")
	assert.Equal(t, int64(9000), obj["confidence"])
}

func TestSortedTopics(t *testing.T) {
	s := sampleSnapshot()
	s.Philosophy[TopicIdentity] = map[string]FactValue{"name": Text("dev")}
	assert.Equal(t, []Topic{TopicIdentity, TopicMethodology, TopicQuality}, s.SortedTopics())
}
