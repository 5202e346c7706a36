package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Domain prefixes for content-addressed digests.
// Version suffix enables future algorithm migration.
const (
	DomainSnapshot = "arbiter/snapshot/v1"
	DomainDecision = "arbiter/decision/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// BasisPoints converts a confidence into hundredths, the integer form of a
// float in golden traces.
func BasisPoints(c float64) int64 {
	return int64(math.Round(c * 100))
}

// exactFloat is the lossless canonical form of a float in digests: the
// shortest decimal string that parses back to the same value.
func exactFloat(c float64) string {
	return strconv.FormatFloat(c, 'g', -1, 64)
}

// DecisionDigest computes the content digest of one decision record.
func DecisionDigest(d DecisionRecord) (string, error) {
	canonical, err := MarshalCanonical(decisionObject(d))
	if err != nil {
		return "", fmt.Errorf("DecisionDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDecision, canonical), nil
}

// SnapshotDigest computes the content digest of a snapshot.
// Two snapshots with equal digests hold the same catalog, philosophy,
// decision log order and memory state.
func SnapshotDigest(s *Snapshot) (string, error) {
	canonical, err := MarshalCanonical(SnapshotObject(s))
	if err != nil {
		return "", fmt.Errorf("SnapshotDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// SnapshotObject converts a snapshot into canonical-JSON-ready values.
func SnapshotObject(s *Snapshot) map[string]any {
	patterns := make([]any, len(s.Patterns))
	for i, p := range s.Patterns {
		patterns[i] = PatternObject(p)
	}

	decisions := make([]any, len(s.Decisions))
	for i, d := range s.Decisions {
		decisions[i] = decisionObject(d)
	}

	philosophy := map[string]any{}
	for topic, facts := range s.Philosophy {
		obj := map[string]any{}
		for k, v := range facts {
			obj[k] = factObject(v)
		}
		philosophy[string(topic)] = obj
	}

	return map[string]any{
		"version":    s.Version,
		"patterns":   patterns,
		"philosophy": philosophy,
		"decisions":  decisions,
		"memory":     memoryObject(s.Memory),
	}
}

// PatternObject converts a pattern record into canonical-JSON-ready values.
func PatternObject(p PatternRecord) map[string]any {
	phases := make([]any, len(p.Phases))
	for i, ph := range p.Phases {
		phases[i] = map[string]any{
			"name":  ph.Name,
			"steps": append([]string{}, ph.Steps...),
		}
	}
	return map[string]any{
		"name":        p.Name,
		"category":    string(p.Category),
		"confidence":  exactFloat(p.Confidence),
		"description": p.Description,
		"phases":      phases,
	}
}

// DecisionTraceObject is the wall-clock-free form of a decision used in
// golden traces: it omits the timestamp and session token and rounds
// confidences to basis points.
func DecisionTraceObject(d DecisionRecord) map[string]any {
	obj := decisionObject(d)
	delete(obj, "timestamp")
	delete(obj, "session")
	obj["base_confidence"] = BasisPoints(d.BaseConfidence)
	obj["confidence"] = BasisPoints(d.Confidence)
	obj["threshold"] = BasisPoints(d.Threshold)
	return obj
}

func decisionObject(d DecisionRecord) map[string]any {
	return map[string]any{
		"seq":             d.Seq,
		"session":         d.Session,
		"title":           d.Title,
		"pattern_name":    d.PatternName,
		"base_confidence": exactFloat(d.BaseConfidence),
		"evidence_count":  d.EvidenceCount,
		"alignment":       string(d.Alignment),
		"confidence":      exactFloat(d.Confidence),
		"tier":            string(d.Tier),
		"rationale":       d.Rationale,
		"retained":        d.Retained,
		"threshold":       exactFloat(d.Threshold),
		"timestamp":       d.Timestamp.UnixNano(),
	}
}

func factObject(v FactValue) map[string]any {
	return map[string]any{
		"text": v.Text,
		"list": append([]string{}, v.List...),
	}
}

func memoryObject(m MemoryState) map[string]any {
	history := make([]any, len(m.History))
	for i, a := range m.History {
		history[i] = map[string]any{
			"from":      exactFloat(a.From),
			"to":        exactFloat(a.To),
			"reason":    string(a.Reason),
			"note":      a.Note,
			"timestamp": a.Timestamp.UnixNano(),
		}
	}
	outcomes := make([]any, len(m.Outcomes))
	for i, o := range m.Outcomes {
		outcomes[i] = map[string]any{
			"confidence": exactFloat(o.Confidence),
			"correct":    o.Correct,
			"timestamp":  o.Timestamp.UnixNano(),
		}
	}
	core := make([]any, len(m.Core))
	for i, c := range m.Core {
		core[i] = map[string]any{
			"seq":        c.Seq,
			"title":      c.Title,
			"confidence": exactFloat(c.Confidence),
			"threshold":  exactFloat(c.Threshold),
			"timestamp":  c.Timestamp.UnixNano(),
		}
	}
	return map[string]any{
		"threshold": exactFloat(m.Threshold),
		"streak":    m.Streak,
		"history":   history,
		"outcomes":  outcomes,
		"core":      core,
	}
}

// SortedTopics returns the snapshot's philosophy topics in declaration order.
func (s *Snapshot) SortedTopics() []Topic {
	topics := make([]Topic, 0, len(s.Philosophy))
	for t := range s.Philosophy {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool {
		return topicIndex(topics[i]) < topicIndex(topics[j])
	})
	return topics
}

func topicIndex(t Topic) int {
	for i, known := range Topics {
		if t == known {
			return i
		}
	}
	return len(Topics)
}
